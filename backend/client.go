package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	aatma "github.com/aatma-dev/aatma"
)

const maxErrorBodyBytes = 512

// Client issues authenticated requests against the aatma backend. One
// Client and one Session serve the whole daemon.
type Client struct {
	baseURL string
	session *Session
	// timeoutHint is forwarded to the completion endpoint in the payload.
	// It is advisory only; the shared http.Client carries the local cap.
	timeoutHint int
	client      *http.Client
}

// NewClient creates a client for the given base URL. timeoutHint is the
// completion timeout forwarded to the backend, in seconds.
func NewClient(baseURL string, session *Session, timeoutHint int) *Client {
	if timeoutHint <= 0 {
		timeoutHint = 10
	}
	return &Client{
		baseURL:     baseURL,
		session:     session,
		timeoutHint: timeoutHint,
		client:      &http.Client{Timeout: 120 * time.Second},
	}
}

// Session returns the session this client authenticates with.
func (c *Client) Session() *Session {
	return c.session
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	UserID         int    `json:"user_id,omitempty"`
	Email          string `json:"email,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Token          string `json:"token,omitempty"`
	AccessToken    string `json:"access_token,omitempty"`
}

type queryRequest struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Timeout int    `json:"timeout,omitempty"`
}

type queryResponse struct {
	Response string `json:"response"`
}

// Login authenticates and installs the session credential on success.
// Token preference: explicit token, then access_token, then a placeholder
// derived from the numeric user id.
func (c *Client) Login(ctx context.Context, username, password string) (*aatma.UserInfo, error) {
	body, err := c.post(ctx, "/api/login", loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("parse login response: %w", err)
	}

	if !lr.Success {
		if lr.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrAuthFailed, lr.Message)
		}
		return nil, ErrAuthFailed
	}

	token := lr.Token
	if token == "" {
		token = lr.AccessToken
	}
	if token == "" && lr.UserID != 0 {
		token = fmt.Sprintf("session-%d", lr.UserID)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: login response carried no token", ErrAuthFailed)
	}

	c.session.Begin(token, aatma.UserInfo{
		ID:             lr.UserID,
		Email:          lr.Email,
		ConversationID: lr.ConversationID,
	})
	return c.session.User(), nil
}

// Chat sends a message to the general-purpose endpoint and returns the
// raw reply text. Failures propagate to the caller.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	body, err := c.post(ctx, "/query_aatma", queryRequest{Message: message})
	if err != nil {
		return "", err
	}
	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return "", fmt.Errorf("parse chat response: %w", err)
	}
	return qr.Response, nil
}

// Complete asks the completion endpoint for the given prompt. On any
// failure it makes exactly one fallback attempt against the chat endpoint
// with the same prompt; when that also fails it returns "". Completions
// degrade silently and never surface an error.
func (c *Client) Complete(ctx context.Context, prompt string) string {
	text, err := c.completeOnce(ctx, prompt)
	if err == nil {
		return text
	}
	slog.Debug("completion endpoint failed, falling back to chat", "error", err)

	text, err = c.Chat(ctx, prompt)
	if err != nil {
		slog.Debug("completion fallback failed", "error", err)
		return ""
	}
	return text
}

func (c *Client) completeOnce(ctx context.Context, prompt string) (string, error) {
	body, err := c.post(ctx, "/query_completion", queryRequest{
		Message: prompt,
		Type:    "completion",
		Timeout: c.timeoutHint,
	})
	if err != nil {
		return "", err
	}
	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return "", fmt.Errorf("parse completion response: %w", err)
	}
	return qr.Response, nil
}

// post issues one JSON request. A held token rides along as both a
// bearer authorization header and the secondary token header. 401/403
// clears the session and comes back as ErrAuthFailed; other non-2xx
// statuses become an HTTPError.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Auth-Token", token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reach backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.session.Clear()
		return nil, ErrAuthFailed
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &HTTPError{Status: resp.StatusCode, Body: truncateBody(body)}
	}
	return body, nil
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBodyBytes {
		return string(body[:maxErrorBodyBytes]) + "..."
	}
	return string(body)
}
