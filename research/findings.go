package research

import (
	"bytes"
	"encoding/json"
)

// Findings is the ordered, append-only record of researcher output for one run
type Findings struct {
	items []string
}

func (f *Findings) Append(finding string) {
	f.items = append(f.items, finding)
}

func (f *Findings) Len() int {
	return len(f.items)
}

// Items returns a copy of the findings in the order they were added
func (f *Findings) Items() []string {
	return append([]string{}, f.items...)
}

// JSON serializes the findings as a compact JSON array for agent prompts
func (f *Findings) JSON() string {
	return f.encode("")
}

// IndentedJSON serializes the findings with two-space indentation
func (f *Findings) IndentedJSON() string {
	return f.encode("  ")
}

func (f *Findings) encode(indent string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	items := f.items
	if items == nil {
		items = []string{}
	}
	// Encoding a []string cannot fail
	_ = enc.Encode(items)
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func (f *Findings) reset() {
	f.items = nil
}
