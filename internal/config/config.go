// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config turns a viper instance into a types.Config. Sources, from
// highest precedence: SMARTBI_* environment variables and the bare LLM_*
// names, the smartbi.yaml config file, a .env file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/smartbi/internal/catalog"
	"github.com/pdiddy/smartbi/internal/enrich"
	"github.com/pdiddy/smartbi/internal/secrets"
	"github.com/pdiddy/smartbi/internal/validate"
	"github.com/pdiddy/smartbi/pkg/types"
)

// EnvPrefix prefixes every environment override (SMARTBI_LLM_MODEL, ...).
const EnvPrefix = "SMARTBI"

// ErrMissing marks a required setting that has no value.
var ErrMissing = errors.New("missing configuration")

// bareEnv maps config keys to the unprefixed variable names also accepted
// in the environment and in .env files.
var bareEnv = map[string]string{
	"llm.provider":      "LLM_PROVIDER",
	"llm.base_url":      "LLM_BASE_URL",
	"llm.model":         "LLM_MODEL",
	"llm.api_key":       "LLM_API_KEY",
	"llm.system_prompt": "SYSTEM_PROMPT",
}

// SetDefaults registers every key with its default so that environment
// overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paths.catalog", catalog.DefaultPath)
	v.SetDefault("paths.contract", validate.DefaultContractPath)
	v.SetDefault("paths.prompt", enrich.DefaultPromptPath)

	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("enrichment.timeout", enrich.DefaultTimeout)
	v.SetDefault("enrichment.allowed_fields", enrich.DefaultAllowedFields)
	v.SetDefault("enrichment.protected_fields", enrich.DefaultProtectedFields)
	v.SetDefault("enrichment.max_attempts", enrich.DefaultMaxAttempts)
	v.SetDefault("enrichment.prompt_path", "")

	v.SetDefault("llm.provider", string(types.ProviderOpenAI))
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.system_prompt", "")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.rate_limit", time.Duration(0))

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.db_path", "data/audit.db")
	v.SetDefault("audit.max_results", 20)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
}

// BindEnv enables SMARTBI_* overrides and the bare LLM_* names.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range bareEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, name); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// ReadDotEnv folds a .env file at path into v's defaults, so the config
// file and the environment still win. A missing file is not an error.
func ReadDotEnv(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for key, name := range bareEnv {
		if val := env.GetString(strings.ToLower(name)); val != "" {
			v.SetDefault(key, val)
		}
	}
	return nil
}

// Load unmarshals v into a Config and fills derived defaults.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Enrichment.PromptPath == "" {
		cfg.Enrichment.PromptPath = cfg.Paths.Prompt
	}
	cfg.LLM.BaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.LLM.BaseURL), "/")

	switch cfg.LLM.Provider {
	case "":
		cfg.LLM.Provider = types.ProviderOpenAI
	case types.ProviderOpenAI, types.ProviderGemini:
	default:
		return types.Config{}, fmt.Errorf("llm.provider: unknown provider %q", cfg.LLM.Provider)
	}
	return cfg, nil
}

// ApplySecrets fills an empty API key from the secrets directory.
func ApplySecrets(cfg *types.Config, s map[string]string) {
	switch cfg.LLM.Provider {
	case types.ProviderGemini:
		cfg.LLM.APIKey = secrets.Fallback(s, cfg.LLM.APIKey, secrets.GeminiAPIKey, secrets.LLMAPIKey)
	default:
		cfg.LLM.APIKey = secrets.Fallback(s, cfg.LLM.APIKey, secrets.LLMAPIKey)
	}
}

// RequireLLM reports the first setting a completion backend cannot run
// without, wrapped in ErrMissing.
func RequireLLM(cfg types.LLMConfig) error {
	required := []struct{ key, val string }{
		{"LLM_MODEL", cfg.Model},
		{"LLM_API_KEY", cfg.APIKey},
	}
	if cfg.Provider != types.ProviderGemini {
		required = append([]struct{ key, val string }{{"LLM_BASE_URL", cfg.BaseURL}}, required...)
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("%w: %s", ErrMissing, r.key)
		}
	}
	return nil
}

// RequireSystemPrompt reports a missing chat system prompt.
func RequireSystemPrompt(cfg types.LLMConfig) error {
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		return fmt.Errorf("%w: SYSTEM_PROMPT", ErrMissing)
	}
	return nil
}
