package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"

	aatma "github.com/aatma-dev/aatma"
	"github.com/aatma-dev/aatma/assist"
	"github.com/aatma-dev/aatma/backend"
)

// Assistant is the engine surface the server dispatches panel messages to.
type Assistant interface {
	Login(ctx context.Context, username, password string) (*aatma.UserInfo, error)
	Logout()
	LoggedIn() bool
	Chat(ctx context.Context, text string) (string, error)
	Complete(ctx context.Context, req assist.CompletionRequest) []aatma.Suggestion
	Explain(ctx context.Context, code, language string) (string, error)
	WarmWorkspace(path string)
	Close()
}

// Server listens on a Unix domain socket for panel messages.
type Server struct {
	listener net.Listener
	sockPath string
	engine   Assistant
	actions  aatma.ActionsConfig
}

// NewServer creates an IPC server bound to the given socket path, backed
// by a fully wired engine.
func NewServer(sockPath string) (*Server, error) {
	engine := assist.NewEngine()
	cfg, err := aatma.LoadConfig()
	if err != nil {
		cfg = aatma.DefaultConfig()
	}
	return NewServerWithAssistant(sockPath, engine, cfg.Actions)
}

// NewServerWithAssistant creates an IPC server with a custom Assistant.
func NewServerWithAssistant(sockPath string, engine Assistant, actions aatma.ActionsConfig) (*Server, error) {
	// Remove stale socket file if it exists
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}

	// The socket carries credentials; keep it owner-only.
	if err := os.Chmod(sockPath, 0o600); err != nil {
		listener.Close()
		os.Remove(sockPath)
		return nil, err
	}

	return &Server{
		listener: listener,
		sockPath: sockPath,
		engine:   engine,
		actions:  actions,
	}, nil
}

// Serve accepts connections and handles panel messages.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// Close shuts down the server, the engine, and removes the socket file.
func (s *Server) Close() {
	s.engine.Close()
	s.listener.Close()
	os.Remove(s.sockPath)
}

// panelConn wraps a connection with a write lock so replies from
// concurrent messages never interleave mid-line.
type panelConn struct {
	mu   sync.Mutex
	conn net.Conn
}

func (p *panelConn) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal reply", "error", err)
		return
	}
	slog.Debug("reply", "data", string(data))
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conn.Write(append(data, '\n'))
}

// handleConn reads panel messages for the life of the connection. A panel
// holds its connection open and pipelines messages, so each one is
// dispatched on its own goroutine.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	pc := &panelConn{conn: conn}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		slog.Debug("request", "data", string(raw))

		var msg aatma.PanelMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Warn("invalid message", "error", err)
			pc.send(aatma.PanelReply{Kind: aatma.KindError, Text: "invalid message: " + err.Error()})
			continue
		}

		go s.dispatch(pc, msg)
	}
}

func (s *Server) dispatch(pc *panelConn, msg aatma.PanelMessage) {
	ctx := context.Background()

	switch msg.Kind {
	case aatma.KindLogin:
		s.handleLogin(ctx, pc, msg)
	case aatma.KindLogout:
		s.engine.Logout()
		pc.send(aatma.PanelReply{Kind: aatma.KindShowLogin})
	case aatma.KindSend:
		s.handleSend(ctx, pc, msg)
	case aatma.KindComplete:
		s.handleComplete(ctx, pc, msg)
	case aatma.KindExplain:
		s.handleExplain(ctx, pc, msg)
	case aatma.KindCopy:
		s.handleAction(pc, s.actions.CopyCommand, "copy", msg.Text)
	case aatma.KindInsert:
		s.handleAction(pc, s.actions.InsertCommand, "insert", msg.Text)
	default:
		pc.send(aatma.PanelReply{Kind: aatma.KindError, Text: "unknown message kind: " + msg.Kind})
	}
}

func (s *Server) handleLogin(ctx context.Context, pc *panelConn, msg aatma.PanelMessage) {
	user, err := s.engine.Login(ctx, msg.Username, msg.Password)
	if err != nil {
		slog.Info("login failed", "username", msg.Username, "error", err)
		pc.send(aatma.PanelReply{Kind: aatma.KindLoginError, Message: err.Error()})
		return
	}
	slog.Info("login", "username", msg.Username, "user_id", user.ID)
	pc.send(aatma.PanelReply{Kind: aatma.KindLoginSuccess, User: user})
}

func (s *Server) handleSend(ctx context.Context, pc *panelConn, msg aatma.PanelMessage) {
	markup, err := s.engine.Chat(ctx, msg.Text)
	if err != nil {
		s.sendError(pc, msg, err)
		return
	}
	pc.send(aatma.PanelReply{Kind: aatma.KindAssistant, Text: markup})
}

func (s *Server) handleComplete(ctx context.Context, pc *panelConn, msg aatma.PanelMessage) {
	if msg.Path != "" {
		s.engine.WarmWorkspace(msg.Path)
	}
	items := s.engine.Complete(ctx, assist.CompletionRequest{
		Text:       msg.Text,
		Language:   msg.Language,
		Path:       msg.Path,
		MaxResults: msg.MaxResults,
	})
	if items == nil {
		items = []aatma.Suggestion{}
	}
	pc.send(aatma.SuggestionsReply{
		Kind:      aatma.KindSuggestions,
		RequestID: msg.RequestID,
		Items:     items,
	})
}

func (s *Server) handleExplain(ctx context.Context, pc *panelConn, msg aatma.PanelMessage) {
	markup, err := s.engine.Explain(ctx, msg.Code, msg.Language)
	if err != nil {
		s.sendError(pc, msg, err)
		return
	}
	pc.send(aatma.PanelReply{Kind: aatma.KindExplanation, RequestID: msg.RequestID, Text: markup})
}

// sendError maps auth failures to a showLogin reply so the panel swaps
// back to the login form; everything else becomes an error reply.
func (s *Server) sendError(pc *panelConn, msg aatma.PanelMessage, err error) {
	if errors.Is(err, backend.ErrAuthRequired) || errors.Is(err, backend.ErrAuthFailed) {
		pc.send(aatma.PanelReply{Kind: aatma.KindShowLogin, RequestID: msg.RequestID})
		return
	}
	slog.Warn("request failed", "kind", msg.Kind, "error", err)
	pc.send(aatma.PanelReply{Kind: aatma.KindError, RequestID: msg.RequestID, Text: err.Error()})
}

// handleAction pipes the payload to the configured editor-side command.
func (s *Server) handleAction(pc *panelConn, command, name, text string) {
	if command == "" {
		pc.send(aatma.PanelReply{Kind: aatma.KindError, Text: "no " + name + " command configured"})
		return
	}
	cmd := exec.Command("sh", "-c", command)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		slog.Warn("action failed", "action", name, "error", err, "output", string(out))
		pc.send(aatma.PanelReply{Kind: aatma.KindError, Text: name + " failed: " + err.Error()})
	}
}
