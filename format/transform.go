package format

import (
	"regexp"
	"strings"
)

// The transform is an ordered pipeline of pure string rules. The order is
// load-bearing: bold must run before italic so the second star of a **
// pair is not read as an italic delimiter, and paragraph folding must run
// last so it never re-wraps heading or list tags. Placeholders contain no
// characters any rule rewrites and pass through untouched.
var rules = []func(string) string{
	headings,
	bold,
	italic,
	listItems,
	groupLists,
	blockQuotes,
	horizontalRules,
	paragraphs,
}

// Transform applies the markdown rules to segmented text and returns
// block markup.
func Transform(s string) string {
	for _, rule := range rules {
		s = rule(s)
	}
	return s
}

var (
	reH3 = regexp.MustCompile(`(?m)^### (.*)$`)
	reH2 = regexp.MustCompile(`(?m)^## (.*)$`)
	reH1 = regexp.MustCompile(`(?m)^# (.*)$`)
)

// headings turns lines led by 1-3 hash marks plus a space into heading
// tags. Four or more marks, or a missing space, leave the line alone.
func headings(s string) string {
	s = reH3.ReplaceAllString(s, "<h3>$1</h3>")
	s = reH2.ReplaceAllString(s, "<h2>$1</h2>")
	s = reH1.ReplaceAllString(s, "<h1>$1</h1>")
	return s
}

var reBold = regexp.MustCompile(`\*\*(.+?)\*\*`)

func bold(s string) string {
	return reBold.ReplaceAllString(s, "<strong>$1</strong>")
}

var reItalic = regexp.MustCompile(`\*([^*\n]+)\*`)

func italic(s string) string {
	return reItalic.ReplaceAllString(s, "<em>$1</em>")
}

var reListItem = regexp.MustCompile(`(?m)^(?:- |\d+\. )(.*)$`)

func listItems(s string) string {
	return reListItem.ReplaceAllString(s, "<li>$1</li>")
}

var reListRun = regexp.MustCompile(`<li>.*?</li>(?:\s*<li>.*?</li>)*`)

// groupLists merges each maximal run of adjacent list items, optionally
// separated only by whitespace, into a single unordered-list wrapper.
func groupLists(s string) string {
	return reListRun.ReplaceAllStringFunc(s, func(run string) string {
		return "<ul>" + run + "</ul>"
	})
}

var reBlockQuote = regexp.MustCompile(`(?m)^> (.*)$`)

func blockQuotes(s string) string {
	return reBlockQuote.ReplaceAllString(s, "<blockquote>$1</blockquote>")
}

var reHRule = regexp.MustCompile(`(?m)^-{3,}$`)

func horizontalRules(s string) string {
	return reHRule.ReplaceAllString(s, "<hr>")
}

var (
	reParaBreak = regexp.MustCompile(`\n{2,}`)
	reEmptyPara = regexp.MustCompile(`<p>(?:\s|<br>)*</p>`)
)

// paragraphs folds double newlines into paragraph boundaries, wraps the
// whole text in one paragraph container, converts remaining single
// newlines to line breaks and drops the empty containers the folding
// produces around block-level tags.
func paragraphs(s string) string {
	s = reParaBreak.ReplaceAllString(s, "</p><p>")
	s = "<p>" + s + "</p>"
	s = strings.ReplaceAll(s, "\n", "<br>")
	s = reEmptyPara.ReplaceAllString(s, "")
	return s
}
