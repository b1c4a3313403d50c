// Package suggest parses completion-endpoint replies into ordered
// suggestion records. Structured JSON is the primary path; replies that
// fail to decode fall back to a line-based heuristic so a chatty model
// still yields something usable.
package suggest

import (
	"encoding/json"
	"regexp"
	"strings"

	aatma "github.com/aatma-dev/aatma"
)

// fallbackMaxLines caps the heuristic path. The structured path does not
// truncate; the engine applies the configured maximum.
const fallbackMaxLines = 10

const fallbackDetail = "AI suggestion"

// kinds is the closed category set. Anything outside it maps to "text"
// at the presentation boundary.
var kinds = map[string]bool{
	"function": true, "method": true, "variable": true,
	"class": true, "property": true, "snippet": true,
	"keyword": true, "module": true, "interface": true,
}

// NormalizeKind maps a raw kind tag, case-insensitively, into the closed
// category set, defaulting to "text".
func NormalizeKind(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	if kinds[k] {
		return k
	}
	return "text"
}

// Parse turns a completion reply into an ordered suggestion list. An
// empty or whitespace-only reply yields an empty list. A reply that
// decodes as a JSON array is mapped field-permissively; anything else
// goes through the line heuristic. Decode failure is recovered here and
// never surfaces to the caller.
func Parse(raw string) []aatma.Suggestion {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return []aatma.Suggestion{}
	}

	var objs []map[string]any
	if err := json.Unmarshal([]byte(stripFence(trimmed)), &objs); err != nil {
		return parseLines(trimmed)
	}

	out := make([]aatma.Suggestion, 0, len(objs))
	for _, obj := range objs {
		out = append(out, aatma.Suggestion{
			Text:          stringField(obj, "text", "completion", "label"),
			Kind:          stringFieldOr(obj, "text", "kind"),
			Detail:        stringField(obj, "detail", "description"),
			Documentation: stringField(obj, "documentation", "docs"),
			InsertText:    stringField(obj, "insertText", "text", "completion"),
		})
	}
	return out
}

// stripFence removes a ```json or bare ``` wrapper around the reply so
// models that insist on fencing their JSON still hit the strict path.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// stringField returns the first key holding a string value. Non-string
// values count as absent.
func stringField(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok {
			return v
		}
	}
	return ""
}

// stringFieldOr is stringField with an explicit default.
func stringFieldOr(obj map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok {
			return v
		}
	}
	return def
}

var (
	reCallSuffix = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*\($`)
	reDeclare    = regexp.MustCompile(`\b(?:const|let|var)\s+[A-Za-z_]`)
	reFuncWord   = regexp.MustCompile(`\bfunction\b`)
)

// classifyLine assigns a kind by pattern, first match wins. The patterns
// are best-effort; unmatched lines are plain text.
func classifyLine(line string) string {
	switch {
	case reCallSuffix.MatchString(line):
		return "function"
	case reDeclare.MatchString(line):
		return "variable"
	case strings.Contains(line, "class "):
		return "class"
	case strings.Contains(line, "=>") || reFuncWord.MatchString(line):
		return "function"
	default:
		return "text"
	}
}

// parseLines is the heuristic fallback: trimmed non-blank, non-comment
// lines become suggestions, capped at fallbackMaxLines.
func parseLines(raw string) []aatma.Suggestion {
	out := []aatma.Suggestion{}
	for _, rawLine := range strings.Split(raw, "\n") {
		if len(out) >= fallbackMaxLines {
			break
		}
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		out = append(out, aatma.Suggestion{
			Text:       line,
			Kind:       classifyLine(line),
			Detail:     fallbackDetail,
			InsertText: line,
		})
	}
	return out
}
