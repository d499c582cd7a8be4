// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package completion defines the text-completion capability the enricher
// and chat bot depend on, with OpenAI-compatible and Gemini backends.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Capability completes a prompt within timeout. Implementations should
// honor both timeout and ctx; callers treat any error as a failed attempt.
type Capability interface {
	Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error)
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chatter answers a multi-turn conversation.
type Chatter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Func adapts a plain function to Capability.
type Func func(ctx context.Context, prompt string, timeout time.Duration) (string, error)

// Complete calls f.
func (f Func) Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	return f(ctx, prompt, timeout)
}

// ErrUnsupported is returned by Adapt for values with no completion shape.
var ErrUnsupported = errors.New("unsupported completion capability")

// Adapt converts v to a Capability. It accepts a Capability, a
// func(string, time.Duration) (string, error), or a
// func(context.Context, string, time.Duration) (string, error).
// A nil v yields a nil Capability and no error.
func Adapt(v any) (Capability, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case Capability:
		return c, nil
	case func(context.Context, string, time.Duration) (string, error):
		return Func(c), nil
	case func(string, time.Duration) (string, error):
		return Func(func(_ context.Context, prompt string, timeout time.Duration) (string, error) {
			return c(prompt, timeout)
		}), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

// CapabilityError wraps a backend failure with the provider name.
type CapabilityError struct {
	Provider string
	Err      error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s completion: %v", e.Provider, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// StripCodeFences removes a surrounding ```json fence that models often add
// around JSON answers.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
