package format

import (
	"fmt"
	"html"
	"strings"
)

// Restore re-inserts extracted code into transformed markup. Each
// placeholder is replaced exactly once, in extraction order, so a literal
// placeholder-shaped string elsewhere in the reply can never be consumed
// by a later token. Code content is entity-escaped on the way in; it is
// never raw-inserted.
func Restore(markup string, blocks []CodeBlock, inlines []InlineCode) string {
	for _, ic := range inlines {
		span := "<code>" + html.EscapeString(ic.Content) + "</code>"
		markup = strings.Replace(markup, ic.Placeholder, span, 1)
	}
	for _, cb := range blocks {
		markup = strings.Replace(markup, cb.Placeholder, renderCodeBlock(cb), 1)
	}
	return markup
}

// renderCodeBlock builds the composite block for one fenced region: a
// header row with the uppercased language tag and the copy/insert
// controls, and a body carrying the escaped code under the block's DOMID.
func renderCodeBlock(cb CodeBlock) string {
	var sb strings.Builder
	sb.WriteString(`<div class="code-block">`)
	sb.WriteString(`<div class="code-header"><span class="code-lang">`)
	sb.WriteString(strings.ToUpper(cb.Language))
	sb.WriteString(`</span>`)
	fmt.Fprintf(&sb, `<button class="code-action" data-action="copy" data-target=%q>copy</button>`, cb.DOMID)
	fmt.Fprintf(&sb, `<button class="code-action" data-action="insert" data-target=%q>insert</button>`, cb.DOMID)
	sb.WriteString(`</div>`)
	fmt.Fprintf(&sb, `<pre id=%q><code>%s</code></pre>`, cb.DOMID, html.EscapeString(cb.Content))
	sb.WriteString(`</div>`)
	return sb.String()
}

// Render runs the full pipeline on a raw reply: segment out code, apply
// the markdown rules, restore the code escaped.
func Render(raw string) string {
	stripped, blocks, inlines := Segment(raw)
	return Restore(Transform(stripped), blocks, inlines)
}
