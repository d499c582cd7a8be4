// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"fmt"

	"github.com/pdiddy/smartbi/pkg/types"
)

// Backend is a provider usable both for chat and for single-prompt completion.
type Backend interface {
	Capability
	Chatter
}

// New selects the backend named by cfg.Provider. An empty provider means
// OpenAI-compatible.
func New(cfg types.LLMConfig) (Backend, error) {
	switch cfg.Provider {
	case "", types.ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case types.ProviderGemini:
		return NewGemini(cfg), nil
	default:
		return nil, fmt.Errorf("%w: provider %q", ErrUnsupported, cfg.Provider)
	}
}
