package ingest

import (
	"regexp"
	"strings"
)

var headerLine = regexp.MustCompile(`^#+\s`)

// ChunkMarkdownByHeaders splits markdown into sections starting at each
// header line. Text before the first header forms its own chunk. Chunks are
// trimmed and empty ones dropped.
func ChunkMarkdownByHeaders(markdown string) []string {
	var chunks []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		if chunk := strings.TrimSpace(strings.Join(current, "\n")); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		if headerLine.MatchString(line) {
			flush()
			current = []string{line}
			continue
		}
		current = append(current, line)
	}
	flush()

	return chunks
}
