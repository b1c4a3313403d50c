package format

import (
	"strings"
	"testing"
)

func TestRestoreEscapesInlineCode(t *testing.T) {
	raw := "try `<script>alert(1)</script>` now"
	got := Render(raw)
	if strings.Contains(got, "<script>") {
		t.Errorf("raw markup injected into output: %q", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("expected escaped entities, got %q", got)
	}
	if !strings.Contains(got, "<code>") {
		t.Errorf("expected a code span, got %q", got)
	}
}

func TestRestoreEscapesBlockContent(t *testing.T) {
	raw := "```html\n<div class=\"x\">&</div>\n```"
	got := Render(raw)
	if strings.Contains(got, `<div class="x">`) {
		t.Errorf("raw markup injected into output: %q", got)
	}
	for _, want := range []string{"&lt;div", "&amp;", "&lt;/div&gt;"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output, got %q", want, got)
		}
	}
}

func TestRestoreBlockHeaderAndActions(t *testing.T) {
	raw := "```python\nprint(1)\n```"
	got := Render(raw)
	if !strings.Contains(got, `<span class="code-lang">PYTHON</span>`) {
		t.Errorf("expected uppercased language tag, got %q", got)
	}
	for _, action := range []string{`data-action="copy"`, `data-action="insert"`} {
		if !strings.Contains(got, action) {
			t.Errorf("expected %s control, got %q", action, got)
		}
	}
}

func TestRestoreBindsDOMID(t *testing.T) {
	stripped, blocks, inlines := Segment("```go\nx\n```")
	got := Restore(stripped, blocks, inlines)
	id := blocks[0].DOMID
	if !strings.Contains(got, `<pre id="`+id+`">`) {
		t.Errorf("expected body bound to %q, got %q", id, got)
	}
	if !strings.Contains(got, `data-target="`+id+`"`) {
		t.Errorf("expected actions bound to %q, got %q", id, got)
	}
}

func TestRestoreOrderIndependentOfMapIteration(t *testing.T) {
	raw := "```\nAAA\n```\n\n```\nBBB\n```\n\n```\nCCC\n```"
	got := Render(raw)
	a := strings.Index(got, "AAA")
	b := strings.Index(got, "BBB")
	c := strings.Index(got, "CCC")
	if a < 0 || b < 0 || c < 0 {
		t.Fatalf("missing block content in %q", got)
	}
	if !(a < b && b < c) {
		t.Errorf("expected left-to-right order preserved, got offsets %d %d %d", a, b, c)
	}
}

func TestRestoreNoPlaceholderLeaks(t *testing.T) {
	raw := "mix `inline` with\n```js\nconst x = 1\n```\nand `more`"
	got := Render(raw)
	if strings.Contains(got, "@@AATMA:") {
		t.Errorf("placeholder leaked into final output: %q", got)
	}
}

func TestRestoreEachPlaceholderReplacedOnce(t *testing.T) {
	// A reply that literally contains a placeholder-shaped string must not
	// have it consumed by restoration.
	stripped, blocks, _ := Segment("```\nbody\n```")
	literal := "@@AATMA:CB:0:00000000@@"
	markup := stripped + " " + literal
	got := Restore(markup, blocks, nil)
	if !strings.Contains(got, literal) {
		t.Errorf("literal placeholder-shaped text was consumed: %q", got)
	}
	if strings.Count(got, "body") != 1 {
		t.Errorf("expected exactly one substitution, got %q", got)
	}
}

func TestRenderFullPipeline(t *testing.T) {
	raw := "### Setup\n\nRun `npm install` first.\n\n```sh\nnpm run build\n```\n\n- fast\n- safe"
	got := Render(raw)
	for _, want := range []string{
		"<h3>Setup</h3>",
		"<code>npm install</code>",
		"npm run build",
		`<span class="code-lang">SH</span>`,
		"<ul><li>fast</li><br><li>safe</li></ul>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in rendered output:\n%s", want, got)
		}
	}
}

func TestRenderPlainTextUnaltered(t *testing.T) {
	// Already-safe plain text keeps its visible characters.
	got := Render("just a plain sentence")
	if !strings.Contains(got, "just a plain sentence") {
		t.Errorf("plain text altered: %q", got)
	}
}
