// Package format turns raw assistant replies into display-ready markup.
// Code regions are lifted out before any markdown rewriting runs and are
// restored, entity-escaped, afterwards, so reply content can never inject
// markup into the panel.
package format

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// CodeBlock is a fenced code region lifted out of a reply.
type CodeBlock struct {
	// Placeholder stands in for the region while markdown rules run.
	Placeholder string
	// Language is the lowercased word after the opening fence, or "text"
	// when the fence carries no label.
	Language string
	// Content is the fenced body with surrounding whitespace trimmed.
	Content string
	// DOMID is a generated unique id the copy/insert controls bind to.
	DOMID string
}

// InlineCode is a single-backtick span lifted out of a reply.
// Its content is preserved verbatim.
type InlineCode struct {
	Placeholder string
	Content     string
}

var (
	// An unterminated fence never matches, so its backticks stay literal.
	// The first closing fence terminates the region; nesting is not a thing.
	reFence  = regexp.MustCompile("(?s)```([A-Za-z0-9_+#.-]*)[ \t]*\n?(.*?)```")
	reInline = regexp.MustCompile("`([^`\n]*)`")
)

// Segment extracts code regions from a raw reply, replacing each with a
// placeholder unique to this pass. Fenced regions are removed first so
// that backticks inside a fenced body are never read as inline spans.
// Substituting each placeholder with its recorded content reproduces the
// original code exactly (block bodies modulo the trim).
func Segment(raw string) (stripped string, blocks []CodeBlock, inlines []InlineCode) {
	// The nonce makes placeholders underivable from reply content, so a
	// reply that happens to contain placeholder-shaped text cannot collide.
	nonce := uuid.NewString()[:8]

	stripped = reFence.ReplaceAllStringFunc(raw, func(m string) string {
		sub := reFence.FindStringSubmatch(m)
		lang := strings.ToLower(sub[1])
		if lang == "" {
			lang = "text"
		}
		ph := fmt.Sprintf("@@AATMA:CB:%d:%s@@", len(blocks), nonce)
		blocks = append(blocks, CodeBlock{
			Placeholder: ph,
			Language:    lang,
			Content:     strings.TrimSpace(sub[2]),
			DOMID:       "aatma-code-" + uuid.NewString(),
		})
		return ph
	})

	stripped = reInline.ReplaceAllStringFunc(stripped, func(m string) string {
		sub := reInline.FindStringSubmatch(m)
		ph := fmt.Sprintf("@@AATMA:IC:%d:%s@@", len(inlines), nonce)
		inlines = append(inlines, InlineCode{
			Placeholder: ph,
			Content:     sub[1],
		})
		return ph
	})

	return stripped, blocks, inlines
}
