package research

import (
	"encoding/json"
	"strings"
)

// Verdict is the critic's judgement on the findings
type Verdict int

const (
	Continue Verdict = iota
	Complete
)

func (v Verdict) String() string {
	if v == Complete {
		return "COMPLETE"
	}
	return "CONTINUE"
}

// Decision is the verdict extracted from a critic response. Report is set
// only for Complete.
type Decision struct {
	Verdict Verdict
	Report  string
}

// IsComplete reports whether research can stop
func (d Decision) IsComplete() bool {
	return d.Verdict == Complete
}

const (
	fence       = "```"
	jsonTag     = "json"
	completeKey = "COMPLETE"
)

// candidateFunc selects the part of a critic response to parse as JSON
type candidateFunc func(text string) (string, bool)

// decisionFunc turns a candidate into a decision, or declines
type decisionFunc func(candidate, raw string) (Decision, bool)

var candidates = []candidateFunc{taggedFence, untaggedFence, rawText}

var parsers = []decisionFunc{structuredDecision, keywordDecision}

// ExtractDecision interprets a critic response. It never fails: anything it
// cannot interpret is Continue.
//
// The first ```json block wins, then the first plain ``` block, then the
// whole text. A JSON object with "decision": "COMPLETE" completes with its
// final_report; any other object continues. Text that is not a JSON object
// completes if it mentions COMPLETE anywhere, in any case. That includes
// words like "INCOMPLETE".
func ExtractDecision(text string) Decision {
	var candidate string
	for _, fn := range candidates {
		if c, ok := fn(text); ok {
			candidate = c
			break
		}
	}

	for _, fn := range parsers {
		if d, ok := fn(candidate, text); ok {
			return d
		}
	}
	return Decision{Verdict: Continue}
}

// taggedFence returns what follows the first ```json, in any case, up to the
// next fence. The match may start inside a longer run of backticks.
func taggedFence(text string) (string, bool) {
	for i := 0; ; {
		j := strings.Index(text[i:], fence)
		if j < 0 {
			return "", false
		}
		start := i + j + len(fence)
		if end := start + len(jsonTag); end <= len(text) && strings.EqualFold(text[start:end], jsonTag) {
			return untilFence(text[end:]), true
		}
		i += j + 1
	}
}

// untaggedFence returns everything between the first fence and the next one
func untaggedFence(text string) (string, bool) {
	i := strings.Index(text, fence)
	if i < 0 {
		return "", false
	}
	return untilFence(text[i+len(fence):]), true
}

func rawText(text string) (string, bool) {
	return text, true
}

func untilFence(s string) string {
	if i := strings.Index(s, fence); i >= 0 {
		return s[:i]
	}
	return s
}

// structuredDecision accepts any candidate that parses as a JSON object
func structuredDecision(candidate, raw string) (Decision, bool) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil || payload == nil {
		return Decision{}, false
	}

	if decision, _ := payload["decision"].(string); decision != completeKey {
		return Decision{Verdict: Continue}, true
	}

	report, _ := payload["final_report"].(string)
	if report == "" {
		report = raw
	}
	return Decision{Verdict: Complete, Report: report}, true
}

func keywordDecision(_, raw string) (Decision, bool) {
	if strings.Contains(strings.ToUpper(raw), completeKey) {
		return Decision{Verdict: Complete, Report: raw}, true
	}
	return Decision{}, false
}
