package cli

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderReport renders a markdown report for the terminal.
// Rendering failures fall back to the plain text.
func RenderReport(report string, wordWrap int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return report
	}
	out, err := renderer.Render(report)
	if err != nil {
		return report
	}
	// Glamour adds leading/trailing newlines - trim them
	return strings.TrimSpace(out)
}
