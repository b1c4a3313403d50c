// Command aatma-repl is an interactive test REPL for the aatma engine.
// It talks to the engine directly, no daemon in between, and writes a
// structured TOML transcript to stdout.
//
// Usage:
//
//	./aatma-repl             # interactive, TOML on screen
//	./aatma-repl > log.toml  # prompt on screen, TOML to file
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aatma-dev/aatma/assist"
)

const prompt = "> "

func main() {
	editor, err := NewEditor()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer editor.Close()

	tty := editor.Tty()

	fmt.Fprintf(tty, "\033[2J\033[H") // clear screen
	fmt.Fprintf(tty, "aatma repl\r\n")
	fmt.Fprintf(tty, "\r\ncommands:\r\n")
	fmt.Fprintf(tty, "  /login <user> <password>   authenticate\r\n")
	fmt.Fprintf(tty, "  /logout                    clear the session\r\n")
	fmt.Fprintf(tty, "  /complete <code>           request inline suggestions\r\n")
	fmt.Fprintf(tty, "  /explain <code>            explain a snippet\r\n")
	fmt.Fprintf(tty, "  /quit                      exit\r\n")
	fmt.Fprintf(tty, "\r\nanything else is sent as a chat message\r\n\r\n")

	engine := assist.NewEngine()
	defer engine.Close()

	// Warm the workspace cache as if a document in the cwd were open.
	if cwd, err := os.Getwd(); err == nil {
		engine.WarmWorkspace(filepath.Join(cwd, "repl"))
	}

	// stdout writer: converts \n → \r\n when stdout is a terminal (raw mode),
	// passes \n through unchanged when redirected to a file.
	out := termWriter(os.Stdout)

	for {
		text, err := editor.ReadLine(prompt)
		if err == io.EOF || err == ErrInterrupt {
			break
		}
		if err != nil {
			fmt.Fprintf(tty, "read error: %v\r\n", err)
			break
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if text == "/quit" || text == "/q" {
			break
		}

		handleLine(tty, out, engine, text)
	}
}

func handleLine(tty *os.File, out io.Writer, engine *assist.Engine, text string) {
	ctx := context.Background()

	switch {
	case strings.HasPrefix(text, "/login "):
		fields := strings.Fields(text)
		if len(fields) != 3 {
			fmt.Fprintf(tty, "usage: /login <user> <password>\r\n\r\n")
			return
		}
		user, err := engine.Login(ctx, fields[1], fields[2])
		if err != nil {
			fmt.Fprintf(tty, "login failed: %v\r\n\r\n", err)
			return
		}
		fmt.Fprintf(tty, "logged in as user %d\r\n\r\n", user.ID)

	case text == "/logout":
		engine.Logout()
		fmt.Fprintf(tty, "logged out\r\n\r\n")

	case strings.HasPrefix(text, "/complete "):
		code := strings.TrimPrefix(text, "/complete ")
		items := engine.Complete(ctx, assist.CompletionRequest{Text: code})
		if len(items) == 0 {
			fmt.Fprintf(tty, "(no suggestions)\r\n")
		}
		for i, s := range items {
			fmt.Fprintf(tty, "  %d. [%s] %s\r\n", i+1, s.Kind, s.Text)
		}
		fmt.Fprintf(tty, "\r\n")
		writeSuggestionsEntry(out, code, items)

	case strings.HasPrefix(text, "/explain "):
		code := strings.TrimPrefix(text, "/explain ")
		markup, err := engine.Explain(ctx, code, "")
		if err != nil {
			fmt.Fprintf(tty, "error: %v\r\n\r\n", err)
			writeErrorEntry(out, code, err)
			return
		}
		fmt.Fprintf(tty, "%s\r\n\r\n", markup)
		writeChatEntry(out, code, markup)

	case strings.HasPrefix(text, "/"):
		fmt.Fprintf(tty, "unknown command: %s\r\n\r\n", strings.Fields(text)[0])

	default:
		markup, err := engine.Chat(ctx, text)
		if err != nil {
			fmt.Fprintf(tty, "error: %v\r\n\r\n", err)
			writeErrorEntry(out, text, err)
			return
		}
		fmt.Fprintf(tty, "%s\r\n\r\n", markup)
		writeChatEntry(out, text, markup)
	}
}
