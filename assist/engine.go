// Package assist orchestrates the assistant operations behind the panel
// and editor surfaces: login, chat, inline completion and code
// explanation.
package assist

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	aatma "github.com/aatma-dev/aatma"
	"github.com/aatma-dev/aatma/backend"
	defaults "github.com/aatma-dev/aatma/default"
	"github.com/aatma-dev/aatma/format"
	"github.com/aatma-dev/aatma/recall"
	"github.com/aatma-dev/aatma/suggest"
	"github.com/aatma-dev/aatma/workspace"
)

// recallTurns is how many earlier turns are folded into a chat prompt.
const recallTurns = 3

// Backend is the request layer the engine dispatches protected
// operations to.
type Backend interface {
	Login(ctx context.Context, username, password string) (*aatma.UserInfo, error)
	Chat(ctx context.Context, message string) (string, error)
	Complete(ctx context.Context, prompt string) string
	Session() *backend.Session
}

// CompletionRequest describes one inline completion cycle.
type CompletionRequest struct {
	// Text is the code window before the cursor.
	Text string
	// Language is the editor's language identifier.
	Language string
	// Path is the absolute path of the active document, when known.
	Path string
	// MaxResults caps the returned suggestions; 0 means the configured
	// maximum.
	MaxResults int
}

// Engine orchestrates backend calls, context gathering and reply
// interpretation for the assistant operations.
type Engine struct {
	backend   Backend
	session   *backend.Session
	config    *aatma.Config
	workspace *workspace.Cache // nil disables workspace context
	recall    *recall.Index    // nil disables conversation recall

	completionTmpl *template.Template
	explainTmpl    *template.Template
}

// New creates an engine around the given request layer. Workspace
// context and conversation recall stay disabled until attached by
// NewEngine.
func New(b Backend, cfg *aatma.Config) *Engine {
	if cfg == nil {
		cfg = aatma.DefaultConfig()
	}
	return &Engine{
		backend:        b,
		session:        b.Session(),
		config:         cfg,
		completionTmpl: loadPrompt("completion", aatma.CompletionPromptPath(), defaults.CompletionPrompt),
		explainTmpl:    loadPrompt("explain", aatma.ExplainPromptPath(), defaults.ExplainPrompt),
	}
}

// NewEngine creates a fully wired engine from the on-disk configuration.
func NewEngine() *Engine {
	cfg, err := aatma.LoadConfig()
	if err != nil {
		slog.Warn("failed to load config, using defaults", "error", err)
		cfg = aatma.DefaultConfig()
	}

	session := backend.NewSession()
	client := backend.NewClient(aatma.ResolveBackendBaseURL(cfg), session, cfg.Completion.TimeoutSeconds)

	e := New(client, cfg)
	e.workspace = workspace.NewCache(time.Duration(cfg.Workspace.CacheTTLMinutes) * time.Minute)

	if aatma.EmbeddingEnabled(cfg) {
		embedder := recall.NewEmbedder(
			aatma.ResolveEmbeddingBaseURL(cfg),
			aatma.ResolveEmbeddingAPIKey(cfg),
			aatma.ResolveEmbeddingModel(cfg),
		)
		e.recall = recall.NewIndex(embedder, cfg.Embedding.MaxTurns)
	}

	return e
}

// loadPrompt reads a prompt override from the config directory, falling
// back to the embedded default when absent or unparsable.
func loadPrompt(name, overridePath, fallback string) *template.Template {
	src := fallback
	if data, err := os.ReadFile(overridePath); err == nil {
		slog.Info("loaded custom prompt", "path", overridePath)
		src = string(data)
	}
	t, err := template.New(name).Parse(src)
	if err != nil {
		slog.Warn("failed to parse prompt template, using built-in default", "error", err)
		t = template.Must(template.New(name).Parse(fallback))
	}
	return t
}

// Close releases resources held by the engine.
func (e *Engine) Close() {
	if e.workspace != nil {
		e.workspace.Close()
	}
}

// LoggedIn reports the session state.
func (e *Engine) LoggedIn() bool {
	return e.session.LoggedIn()
}

// Login authenticates against the backend. On success the session holds
// the credential and identity for every later protected operation.
func (e *Engine) Login(ctx context.Context, username, password string) (*aatma.UserInfo, error) {
	return e.backend.Login(ctx, username, password)
}

// Logout clears the session.
func (e *Engine) Logout() {
	e.session.Clear()
}

// WarmWorkspace pre-populates the workspace context cache for the
// directory of the given document path.
func (e *Engine) WarmWorkspace(path string) {
	if e.workspace != nil && path != "" {
		e.workspace.Warm(filepath.Dir(path))
	}
}

// Chat sends a panel message and returns the rendered reply markup.
// Errors propagate: the panel shows them.
func (e *Engine) Chat(ctx context.Context, text string) (string, error) {
	if !e.session.LoggedIn() {
		return "", backend.ErrAuthRequired
	}

	prompt := text
	if e.recall != nil {
		if turns, err := e.recall.Relevant(ctx, text, recallTurns); err == nil && len(turns) > 0 {
			var sb strings.Builder
			sb.WriteString("Earlier in this conversation:\n")
			for _, turn := range turns {
				sb.WriteString("- ")
				sb.WriteString(turn.Role)
				sb.WriteString(": ")
				sb.WriteString(turn.Text)
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
			sb.WriteString(text)
			prompt = sb.String()
		} else if err != nil {
			slog.Debug("recall lookup failed", "error", err)
		}
	}

	reply, err := e.backend.Chat(ctx, prompt)
	if err != nil {
		return "", err
	}

	if e.recall != nil {
		// Record both turns off the request cycle; a failed record only
		// costs future recall quality.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := e.recall.Record(ctx, "user", text); err != nil {
				slog.Debug("failed to record user turn", "error", err)
			}
			if err := e.recall.Record(ctx, "assistant", reply); err != nil {
				slog.Debug("failed to record assistant turn", "error", err)
			}
		}()
	}

	return format.Render(reply), nil
}

// Complete returns completion suggestions for the request. It never
// returns an error: the logged-out state, the disabled flag, and backend
// failures all yield an empty list so completions never interrupt
// editing. The result is never nil.
func (e *Engine) Complete(ctx context.Context, req CompletionRequest) []aatma.Suggestion {
	none := []aatma.Suggestion{}

	if !aatma.CompletionEnabled(e.config) || !e.session.LoggedIn() {
		return none
	}
	if strings.TrimSpace(req.Text) == "" {
		return none
	}

	output := e.backend.Complete(ctx, e.buildCompletionPrompt(req))
	if output == "" {
		return none
	}

	items := suggest.Parse(output)
	for i := range items {
		items[i].Kind = suggest.NormalizeKind(items[i].Kind)
	}

	if max := e.maxSuggestions(req.MaxResults); len(items) > max {
		items = items[:max]
	}
	if items == nil {
		items = none
	}
	return items
}

// maxSuggestions resolves the effective cap from the request and the
// configured maximum.
func (e *Engine) maxSuggestions(requested int) int {
	max := e.config.Completion.MaxSuggestions
	if max <= 0 {
		max = 5
	}
	if requested > 0 && requested < max {
		max = requested
	}
	return max
}

// completionPromptData is the template payload for completion prompts.
type completionPromptData struct {
	Language   string
	MaxResults int
	Workspace  string
	Code       string
}

func (e *Engine) buildCompletionPrompt(req CompletionRequest) string {
	lang := req.Language
	if lang == "" {
		lang = "text"
	}

	var wsContext string
	if e.workspace != nil && req.Path != "" {
		dir := filepath.Dir(req.Path)
		if entry := e.workspace.Get(dir); entry != nil {
			wsContext = entry.Summary()
		} else {
			// Miss: warm for the next keystroke, complete without it now.
			e.workspace.Warm(dir)
		}
	}

	data := completionPromptData{
		Language:   lang,
		MaxResults: e.maxSuggestions(req.MaxResults),
		Workspace:  wsContext,
		Code:       recall.Redact(req.Text, lang),
	}

	var buf strings.Builder
	if err := e.completionTmpl.Execute(&buf, data); err != nil {
		slog.Warn("completion prompt template failed", "error", err)
		return data.Code
	}
	return strings.TrimRight(buf.String(), " \t\n")
}

// explainPromptData is the template payload for explain prompts.
type explainPromptData struct {
	Language string
	Code     string
}

// Explain asks the backend to explain a code excerpt and returns the
// rendered reply markup. Errors propagate.
func (e *Engine) Explain(ctx context.Context, code, language string) (string, error) {
	if !e.session.LoggedIn() {
		return "", backend.ErrAuthRequired
	}

	if language == "" {
		language = "text"
	}

	var buf strings.Builder
	data := explainPromptData{Language: language, Code: recall.Redact(code, language)}
	if err := e.explainTmpl.Execute(&buf, data); err != nil {
		slog.Warn("explain prompt template failed", "error", err)
		buf.Reset()
		buf.WriteString(data.Code)
	}

	reply, err := e.backend.Chat(ctx, strings.TrimRight(buf.String(), " \t\n"))
	if err != nil {
		return "", err
	}
	return format.Render(reply), nil
}
