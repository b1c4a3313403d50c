// Package defaults provides embedded default assets (config and prompt templates).
package defaults

import _ "embed"

//go:embed default_config.json
var DefaultConfigJSON []byte

//go:embed completion_prompt.md
var CompletionPrompt string

//go:embed explain_prompt.md
var ExplainPrompt string
