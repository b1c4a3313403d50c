package recall

import (
	"bytes"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// safeVars are environment variables that are non-sensitive and useful
// as context.
var safeVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "OLDPWD": true,
	"SHELL": true, "PATH": true, "LANG": true, "TERM": true,
	"EDITOR": true, "PAGER": true, "HOSTNAME": true, "LOGNAME": true,
	"TMPDIR": true, "XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true,
	"XDG_RUNTIME_DIR": true, "DISPLAY": true, "SHLVL": true,
	"COLUMNS": true, "LINES": true, "LC_ALL": true, "LC_CTYPE": true,
}

// specialParams are shell special parameters that should not be redacted.
var specialParams = map[string]bool{
	"?": true, "!": true, "#": true, "@": true, "*": true,
	"-": true, "$": true, "_": true,
	"0": true, "1": true, "2": true, "3": true, "4": true,
	"5": true, "6": true, "7": true, "8": true, "9": true,
}

// shellLanguages are editor language ids handled by the shell AST path.
var shellLanguages = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "shell": true, "shellscript": true,
}

// Redact masks likely secrets in a snippet before it leaves the machine.
// Shell-family snippets are parsed and their assignment values and
// parameter expansions masked; everything else goes through pattern
// redaction. Safe well-known variables pass untouched.
func Redact(snippet, language string) string {
	if shellLanguages[strings.ToLower(language)] {
		return redactShell(snippet)
	}
	return regexRedact(snippet)
}

// redactShell walks the parsed AST, masking parameter expansions and
// assignment values of non-safe variables. Snippets that fail to parse
// fall through to pattern redaction.
func redactShell(snippet string) string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true))
	prog, err := parser.Parse(strings.NewReader(snippet), "")
	if err != nil {
		return regexRedact(snippet)
	}

	syntax.Walk(prog, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.ParamExp:
			if n.Param != nil && !safeVars[n.Param.Value] && !specialParams[n.Param.Value] {
				n.Param.Value = "REDACTED"
			}
		case *syntax.Assign:
			if n.Name != nil && !safeVars[n.Name.Value] && n.Value != nil {
				n.Value.Parts = []syntax.WordPart{&syntax.Lit{Value: "<redacted>"}}
			}
		}
		return true
	})

	var buf bytes.Buffer
	printer := syntax.NewPrinter(syntax.Indent(0))
	if err := printer.Print(&buf, prog); err != nil {
		return regexRedact(snippet)
	}
	return strings.TrimRight(buf.String(), "\n")
}

var (
	reURLUserinfo = regexp.MustCompile(`(\w+://)[^/\s:@]+:[^/\s@]+@`)
	reBearer      = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]+=*`)
	reKeyAssign   = regexp.MustCompile(`(?i)\b((?:api[_-]?key|apikey|secret|token|password|passwd|pwd)\s*["']?\s*[:=]\s*)["']?[^"'\s,;]+["']?`)
)

// regexRedact masks credential-shaped substrings: URL userinfo, bearer
// tokens, and key/secret/password assignments.
func regexRedact(s string) string {
	s = reURLUserinfo.ReplaceAllString(s, "$1<redacted>@")
	s = reBearer.ReplaceAllString(s, "Bearer <redacted>")
	s = reKeyAssign.ReplaceAllString(s, "$1<redacted>")
	return s
}
