package assist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"text/template"

	aatma "github.com/aatma-dev/aatma"
	"github.com/aatma-dev/aatma/backend"
	defaults "github.com/aatma-dev/aatma/default"
)

// stubBackend counts calls and returns canned replies.
type stubBackend struct {
	session *backend.Session

	chatReply     string
	chatErr       error
	completeReply string

	loginCalls    int
	chatCalls     int
	completeCalls int
	lastPrompt    string
}

func (s *stubBackend) Login(_ context.Context, _, _ string) (*aatma.UserInfo, error) {
	s.loginCalls++
	return &aatma.UserInfo{ID: 1}, nil
}

func (s *stubBackend) Chat(_ context.Context, message string) (string, error) {
	s.chatCalls++
	s.lastPrompt = message
	return s.chatReply, s.chatErr
}

func (s *stubBackend) Complete(_ context.Context, prompt string) string {
	s.completeCalls++
	s.lastPrompt = prompt
	return s.completeReply
}

func (s *stubBackend) Session() *backend.Session {
	return s.session
}

func newTestEngine(t *testing.T, stub *stubBackend) *Engine {
	t.Helper()
	if stub.session == nil {
		stub.session = backend.NewSession()
	}
	return &Engine{
		backend:        stub,
		session:        stub.session,
		config:         aatma.DefaultConfig(),
		completionTmpl: template.Must(template.New("completion").Parse(defaults.CompletionPrompt)),
		explainTmpl:    template.Must(template.New("explain").Parse(defaults.ExplainPrompt)),
	}
}

func loggedInStub() *stubBackend {
	s := backend.NewSession()
	s.Begin("tok-test", aatma.UserInfo{ID: 1})
	return &stubBackend{session: s}
}

func TestChatWhileLoggedOut(t *testing.T) {
	stub := &stubBackend{}
	e := newTestEngine(t, stub)

	_, err := e.Chat(context.Background(), "hello")
	if !errors.Is(err, backend.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if stub.chatCalls != 0 {
		t.Errorf("expected no transport calls while logged out, got %d", stub.chatCalls)
	}
}

func TestExplainWhileLoggedOut(t *testing.T) {
	stub := &stubBackend{}
	e := newTestEngine(t, stub)

	_, err := e.Explain(context.Background(), "x := 1", "go")
	if !errors.Is(err, backend.ErrAuthRequired) {
		t.Fatalf("expected ErrAuthRequired, got %v", err)
	}
	if stub.chatCalls != 0 {
		t.Errorf("expected no transport calls while logged out, got %d", stub.chatCalls)
	}
}

func TestCompleteWhileLoggedOutYieldsEmpty(t *testing.T) {
	stub := &stubBackend{completeReply: `[{"text":"x"}]`}
	e := newTestEngine(t, stub)

	items := e.Complete(context.Background(), CompletionRequest{Text: "code"})
	if len(items) != 0 {
		t.Errorf("expected empty suggestions while logged out, got %d", len(items))
	}
	if items == nil {
		t.Error("expected empty slice, not nil")
	}
	if stub.completeCalls != 0 {
		t.Errorf("expected no transport calls while logged out, got %d", stub.completeCalls)
	}
}

func TestCompleteDisabledYieldsEmpty(t *testing.T) {
	stub := loggedInStub()
	e := newTestEngine(t, stub)
	disabled := false
	e.config.Completion.Enabled = &disabled

	items := e.Complete(context.Background(), CompletionRequest{Text: "code"})
	if len(items) != 0 || stub.completeCalls != 0 {
		t.Errorf("expected silent no-op when disabled, got %d items, %d calls", len(items), stub.completeCalls)
	}
}

func TestCompleteBlankInputYieldsEmpty(t *testing.T) {
	stub := loggedInStub()
	e := newTestEngine(t, stub)

	items := e.Complete(context.Background(), CompletionRequest{Text: "   \n"})
	if len(items) != 0 || stub.completeCalls != 0 {
		t.Errorf("expected no call for blank input, got %d items, %d calls", len(items), stub.completeCalls)
	}
}

func TestCompleteParsesAndNormalizes(t *testing.T) {
	stub := loggedInStub()
	stub.completeReply = `[{"text":"foo()","kind":"Function"},{"text":"bar","kind":"widget"}]`
	e := newTestEngine(t, stub)

	items := e.Complete(context.Background(), CompletionRequest{Text: "fo", Language: "go"})
	if len(items) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(items))
	}
	if items[0].Kind != "function" {
		t.Errorf("expected normalized kind function, got %q", items[0].Kind)
	}
	if items[1].Kind != "text" {
		t.Errorf("expected unknown kind mapped to text, got %q", items[1].Kind)
	}
}

func TestCompleteTruncatesToMax(t *testing.T) {
	stub := loggedInStub()
	stub.completeReply = `[{"text":"a"},{"text":"b"},{"text":"c"},{"text":"d"}]`
	e := newTestEngine(t, stub)

	items := e.Complete(context.Background(), CompletionRequest{Text: "x", MaxResults: 2})
	if len(items) != 2 {
		t.Errorf("expected truncation to 2, got %d", len(items))
	}
}

func TestCompleteConfigMaxApplies(t *testing.T) {
	stub := loggedInStub()
	stub.completeReply = `[{"text":"a"},{"text":"b"},{"text":"c"}]`
	e := newTestEngine(t, stub)
	e.config.Completion.MaxSuggestions = 2

	items := e.Complete(context.Background(), CompletionRequest{Text: "x"})
	if len(items) != 2 {
		t.Errorf("expected config cap of 2, got %d", len(items))
	}
}

func TestCompleteEmptyBackendReplyYieldsEmpty(t *testing.T) {
	stub := loggedInStub()
	stub.completeReply = ""
	e := newTestEngine(t, stub)

	items := e.Complete(context.Background(), CompletionRequest{Text: "x"})
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", items)
	}
}

func TestCompletePromptCarriesLanguageAndCode(t *testing.T) {
	stub := loggedInStub()
	stub.completeReply = `[]`
	e := newTestEngine(t, stub)

	e.Complete(context.Background(), CompletionRequest{Text: "def main():", Language: "python"})
	if !strings.Contains(stub.lastPrompt, "python") {
		t.Errorf("expected language in prompt, got %q", stub.lastPrompt)
	}
	if !strings.Contains(stub.lastPrompt, "def main():") {
		t.Errorf("expected code in prompt, got %q", stub.lastPrompt)
	}
}

func TestCompleteRedactsSecrets(t *testing.T) {
	stub := loggedInStub()
	stub.completeReply = `[]`
	e := newTestEngine(t, stub)

	e.Complete(context.Background(), CompletionRequest{Text: `api_key = "sk-secret123"`, Language: "python"})
	if strings.Contains(stub.lastPrompt, "sk-secret123") {
		t.Errorf("secret leaked into prompt: %q", stub.lastPrompt)
	}
}

func TestChatRendersMarkup(t *testing.T) {
	stub := loggedInStub()
	stub.chatReply = "**bold** and `code`"
	e := newTestEngine(t, stub)

	got, err := e.Chat(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("expected rendered markup, got %q", got)
	}
	if !strings.Contains(got, "<code>code</code>") {
		t.Errorf("expected code span, got %q", got)
	}
}

func TestChatErrorPropagates(t *testing.T) {
	stub := loggedInStub()
	stub.chatErr = &backend.HTTPError{Status: 500, Body: "boom"}
	e := newTestEngine(t, stub)

	_, err := e.Chat(context.Background(), "hi")
	var httpErr *backend.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError to propagate, got %v", err)
	}
}

func TestExplainUsesChatEndpoint(t *testing.T) {
	stub := loggedInStub()
	stub.chatReply = "It prints a number."
	e := newTestEngine(t, stub)

	got, err := e.Explain(context.Background(), "print(1)", "python")
	if err != nil {
		t.Fatal(err)
	}
	if stub.chatCalls != 1 {
		t.Errorf("expected 1 chat call, got %d", stub.chatCalls)
	}
	if !strings.Contains(stub.lastPrompt, "print(1)") {
		t.Errorf("expected code in explain prompt, got %q", stub.lastPrompt)
	}
	if !strings.Contains(got, "It prints a number.") {
		t.Errorf("expected rendered explanation, got %q", got)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	stub := loggedInStub()
	e := newTestEngine(t, stub)

	if !e.LoggedIn() {
		t.Fatal("expected logged-in engine")
	}
	e.Logout()
	if e.LoggedIn() {
		t.Error("expected logged-out engine after Logout")
	}
}
