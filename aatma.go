// Package aatma defines the message types spoken between display surfaces
// (the chat panel, the editor completion provider) and the aatma daemon.
// Messages are JSON-encoded and sent over a Unix domain socket, one per line.
package aatma

// Inbound message kinds.
const (
	KindLogin    = "login"
	KindSend     = "send"
	KindComplete = "complete"
	KindExplain  = "explain"
	KindCopy     = "copy"
	KindInsert   = "insert"
	KindLogout   = "logout"
)

// Outbound message kinds.
const (
	KindLoginSuccess = "loginSuccess"
	KindLoginError   = "loginError"
	KindShowLogin    = "showLogin"
	KindAssistant    = "assistant"
	KindSuggestions  = "suggestions"
	KindExplanation  = "explanation"
	KindError        = "error"
)

// PanelMessage is sent from a display surface to the daemon.
type PanelMessage struct {
	// Kind discriminates the message: login, send, complete, explain,
	// copy, insert or logout.
	Kind string `json:"kind"`
	// RequestID is assigned by the editor surface and echoed back on
	// completion and explanation replies so the caller can discard replies
	// that arrive after the cursor has moved on.
	RequestID int `json:"request_id,omitempty"`
	// Username and Password carry credentials for login messages.
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	// Text is the chat message for send, the code window before the cursor
	// for complete, or the payload for copy/insert.
	Text string `json:"text,omitempty"`
	// Code is the source excerpt to explain.
	Code string `json:"code,omitempty"`
	// Language is the editor's language identifier for complete/explain.
	Language string `json:"language,omitempty"`
	// Path is the absolute path of the active document, when known.
	Path string `json:"path,omitempty"`
	// MaxResults caps the suggestion count for complete messages.
	MaxResults int `json:"max_results,omitempty"`
}

// PanelReply is sent from the daemon back to a display surface.
type PanelReply struct {
	// Kind discriminates the reply: loginSuccess, loginError, showLogin,
	// assistant, explanation or error.
	Kind string `json:"kind"`
	// RequestID is echoed from the request on explanation replies.
	RequestID int `json:"request_id,omitempty"`
	// Text carries rendered markup for assistant/explanation replies, or
	// the error description for error replies.
	Text string `json:"text,omitempty"`
	// Message is the human-readable reason on loginError replies.
	Message string `json:"message,omitempty"`
	// User identifies the authenticated account on loginSuccess replies.
	User *UserInfo `json:"user,omitempty"`
}

// SuggestionsReply answers a complete message. Items is always present in
// the encoded form, empty rather than null, so editor surfaces can consume
// it without nil checks.
type SuggestionsReply struct {
	Kind      string       `json:"kind"`
	RequestID int          `json:"request_id"`
	Items     []Suggestion `json:"items"`
}

// Suggestion is a normalized completion candidate with display metadata and
// an insertable text payload.
type Suggestion struct {
	// Text is the primary completion string shown in the list.
	Text string `json:"text"`
	// Kind is the category tag: function, method, variable, class,
	// property, snippet, keyword, module, interface or text.
	Kind string `json:"kind"`
	// Detail is a short one-line description.
	Detail string `json:"detail,omitempty"`
	// Documentation is optional long-form text shown on selection.
	Documentation string `json:"documentation,omitempty"`
	// InsertText is the text actually inserted; it defaults to Text.
	InsertText string `json:"insert_text,omitempty"`
}

// UserInfo identifies an authenticated account.
type UserInfo struct {
	// ID is the backend's numeric user id.
	ID int `json:"id"`
	// Email is the account email, when the backend reports one.
	Email string `json:"email,omitempty"`
	// ConversationID names the server-side conversation this session
	// continues.
	ConversationID string `json:"conversation_id,omitempty"`
}
