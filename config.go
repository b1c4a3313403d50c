package aatma

import (
	"encoding/json"
	"os"
	"path/filepath"

	defaults "github.com/aatma-dev/aatma/default"
)

// Config represents the user's aatma configuration.
type Config struct {
	Version    int              `json:"version"`
	Backend    BackendConfig    `json:"backend"`
	Completion CompletionConfig `json:"completion"`
	Embedding  EmbeddingConfig  `json:"embedding"`
	Workspace  WorkspaceConfig  `json:"workspace"`
	Actions    ActionsConfig    `json:"actions"`
}

// BackendConfig holds settings for the inference backend.
type BackendConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// CompletionConfig holds settings for inline completions.
type CompletionConfig struct {
	// Enabled switches proactive completions on or off. nil means the
	// default applies.
	Enabled        *bool `json:"enabled,omitempty"`
	MaxSuggestions int   `json:"max_suggestions,omitempty"`
	// TimeoutSeconds is forwarded to the backend as a hint; it is not
	// enforced locally.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// EmbeddingConfig holds settings for the embedding API that powers
// conversation recall. Recall is disabled unless base_url and api_key are
// both set.
type EmbeddingConfig struct {
	BaseURL    string `json:"base_url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
	MaxTurns   int    `json:"max_turns,omitempty"`
}

// WorkspaceConfig holds settings for document-context gathering.
type WorkspaceConfig struct {
	CacheTTLMinutes int `json:"cache_ttl_minutes,omitempty"`
}

// ActionsConfig holds the editor-side commands copy/insert messages run.
// The payload is piped to the command's stdin.
type ActionsConfig struct {
	CopyCommand   string `json:"copy_command,omitempty"`
	InsertCommand string `json:"insert_command,omitempty"`
}

// ConfigDir returns the config directory path.
// Resolution order: $AATMA_CONFIG_DIR > $XDG_CONFIG_HOME/aatma > ~/.config/aatma
func ConfigDir() string {
	if dir := os.Getenv("AATMA_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "aatma")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "aatma-config")
	}
	return filepath.Join(home, ".config", "aatma")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// CompletionPromptPath returns the path of the completion prompt override.
func CompletionPromptPath() string {
	return filepath.Join(ConfigDir(), "completion_prompt.md")
}

// ExplainPromptPath returns the path of the explain prompt override.
func ExplainPromptPath() string {
	return filepath.Join(ConfigDir(), "explain_prompt.md")
}

// DefaultConfig returns the default configuration from the embedded default_config.json.
func DefaultConfig() *Config {
	var cfg Config
	if err := json.Unmarshal(defaults.DefaultConfigJSON, &cfg); err != nil {
		panic("aatma: invalid embedded default_config.json: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if cfg.Backend.TimeoutSeconds == 0 {
		cfg.Backend.TimeoutSeconds = defaults.Backend.TimeoutSeconds
	}
	if cfg.Completion.Enabled == nil {
		cfg.Completion.Enabled = defaults.Completion.Enabled
	}
	if cfg.Completion.MaxSuggestions == 0 {
		cfg.Completion.MaxSuggestions = defaults.Completion.MaxSuggestions
	}
	if cfg.Completion.TimeoutSeconds == 0 {
		cfg.Completion.TimeoutSeconds = defaults.Completion.TimeoutSeconds
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaults.Embedding.Model
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = defaults.Embedding.Dimensions
	}
	if cfg.Embedding.MaxTurns == 0 {
		cfg.Embedding.MaxTurns = defaults.Embedding.MaxTurns
	}
	if cfg.Workspace.CacheTTLMinutes == 0 {
		cfg.Workspace.CacheTTLMinutes = defaults.Workspace.CacheTTLMinutes
	}

	return &cfg, nil
}

// ResolveBackendBaseURL returns the inference backend base URL.
// Priority: $AATMA_BACKEND_URL env > config value.
func ResolveBackendBaseURL(cfg *Config) string {
	if url := os.Getenv("AATMA_BACKEND_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Backend.BaseURL
	}
	return ""
}

// ResolveEmbeddingBaseURL returns the embedding API base URL.
// Priority: $AATMA_EMBEDDING_URL env > config value.
func ResolveEmbeddingBaseURL(cfg *Config) string {
	if url := os.Getenv("AATMA_EMBEDDING_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Embedding.BaseURL
	}
	return ""
}

// ResolveEmbeddingAPIKey returns the embedding API key.
// Priority: $AATMA_EMBEDDING_API_KEY env > config value.
func ResolveEmbeddingAPIKey(cfg *Config) string {
	if key := os.Getenv("AATMA_EMBEDDING_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Embedding.APIKey
	}
	return ""
}

// ResolveEmbeddingModel returns the embedding model name.
// Priority: $AATMA_EMBEDDING_MODEL env > config value.
func ResolveEmbeddingModel(cfg *Config) string {
	if model := os.Getenv("AATMA_EMBEDDING_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Embedding.Model
	}
	return ""
}

// CompletionEnabled reports whether proactive completions are switched on.
func CompletionEnabled(cfg *Config) bool {
	if cfg == nil || cfg.Completion.Enabled == nil {
		return true
	}
	return *cfg.Completion.Enabled
}

// EmbeddingEnabled returns true when both base_url and api_key are configured
// for embedding.
func EmbeddingEnabled(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return ResolveEmbeddingBaseURL(cfg) != "" && ResolveEmbeddingAPIKey(cfg) != ""
}
