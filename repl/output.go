package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	aatma "github.com/aatma-dev/aatma"
	"golang.org/x/term"
)

// termWriter wraps a file and converts \n to \r\n when the file is a terminal
// (needed because raw mode disables the kernel's NL→CRNL translation).
// When the file is redirected, \n passes through unchanged.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err // report original length to caller
}

func writeHeader(w io.Writer, input string) {
	fmt.Fprintf(w, "# %s\n\n", strings.Repeat("═", 60))
	fmt.Fprintln(w, "[request]")
	fmt.Fprintf(w, "timestamp = %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "input = %s\n", tomlQuote(input))
	fmt.Fprintln(w)
}

// writeChatEntry records one chat exchange to the TOML transcript.
func writeChatEntry(w io.Writer, input, markup string) {
	writeHeader(w, input)
	fmt.Fprintln(w, "[reply]")
	fmt.Fprintf(w, "markup = %s\n", tomlQuote(markup))
	fmt.Fprintln(w)
}

// writeSuggestionsEntry records one completion cycle to the transcript.
func writeSuggestionsEntry(w io.Writer, input string, items []aatma.Suggestion) {
	writeHeader(w, input)
	for _, s := range items {
		fmt.Fprintln(w, "[[suggestions]]")
		fmt.Fprintf(w, "text = %s\n", tomlQuote(s.Text))
		fmt.Fprintf(w, "kind = %s\n", tomlQuote(s.Kind))
		if s.Detail != "" {
			fmt.Fprintf(w, "detail = %s\n", tomlQuote(s.Detail))
		}
		if s.InsertText != "" && s.InsertText != s.Text {
			fmt.Fprintf(w, "insert_text = %s\n", tomlQuote(s.InsertText))
		}
		fmt.Fprintln(w)
	}
}

func writeErrorEntry(w io.Writer, input string, err error) {
	writeHeader(w, input)
	fmt.Fprintln(w, "[error]")
	fmt.Fprintf(w, "message = %s\n", tomlQuote(err.Error()))
	fmt.Fprintln(w)
}

// tomlQuote returns a TOML basic-string quoted value.
func tomlQuote(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
