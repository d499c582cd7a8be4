package types

import "time"

// PathsConfig locates the read-only resources the pipeline consumes.
type PathsConfig struct {
	// Catalog is the metric catalog YAML (default "semantic/metrics.yaml").
	Catalog string `json:"catalog" yaml:"catalog" mapstructure:"catalog"`

	// Contract is the JSON contract with the required key list
	// (default "contracts/normalized_request.schema.json").
	Contract string `json:"contract" yaml:"contract" mapstructure:"contract"`

	// Prompt is the completion prompt template
	// (default "prompts/json_completion_prompt.md").
	Prompt string `json:"prompt" yaml:"prompt" mapstructure:"prompt"`
}

// EnrichmentConfig controls LLM-assisted field completion.
type EnrichmentConfig struct {
	// Enabled turns enrichment on. Off by default.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Timeout bounds each completion call (default 5s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// AllowedFields are the top-level keys or dotted paths the completion
	// may fill.
	AllowedFields []string `json:"allowed_fields" yaml:"allowed_fields" mapstructure:"allowed_fields"`

	// ProtectedFields are always restored from the draft, even when they
	// also appear in AllowedFields.
	ProtectedFields []string `json:"protected_fields" yaml:"protected_fields" mapstructure:"protected_fields"`

	// MaxAttempts is clamped to [1,2].
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// PromptPath is the prompt template file.
	PromptPath string `json:"prompt_path" yaml:"prompt_path" mapstructure:"prompt_path"`
}

// LLMProvider selects the completion backend.
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
)

// LLMConfig holds settings for the chat bot and the completion capability.
type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "gemini".
	Provider LLMProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// BaseURL is the OpenAI-compatible API root (e.g. "https://api.openai.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	Model string `json:"model" yaml:"model" mapstructure:"model"`

	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// SystemPrompt seeds every chat session.
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt" mapstructure:"system_prompt"`

	// Temperature is sent with every chat request (default 0.3).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxRetries is the number of retries on HTTP 429/503 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RateLimit is the minimum spacing between outbound calls; zero disables it.
	RateLimit time.Duration `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AuditConfig controls the local normalization audit log.
type AuditConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// DBPath is the SQLite file (default "data/audit.db").
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`

	// MaxResults is the default list size (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// RateLimit is requests per second across all clients; zero disables it.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
}

// Config groups every section of smartbi.yaml.
type Config struct {
	Paths      PathsConfig      `json:"paths" yaml:"paths" mapstructure:"paths"`
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment" mapstructure:"enrichment"`
	LLM        LLMConfig        `json:"llm" yaml:"llm" mapstructure:"llm"`
	Audit      AuditConfig      `json:"audit" yaml:"audit" mapstructure:"audit"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
}
