// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chat keeps per-session conversation history in memory and
// forwards each turn, with a system prompt, to a chat backend.
package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/pdiddy/smartbi/internal/completion"
)

// Bot is safe for concurrent use.
type Bot struct {
	backend      completion.Chatter
	systemPrompt string

	mu       sync.Mutex
	sessions map[string][]completion.Message
}

// New returns a Bot that seeds every request with systemPrompt.
func New(backend completion.Chatter, systemPrompt string) *Bot {
	return &Bot{
		backend:      backend,
		systemPrompt: systemPrompt,
		sessions:     make(map[string][]completion.Message),
	}
}

// Invoke sends text in session and records both turns on success.
func (b *Bot) Invoke(ctx context.Context, session, text string) (string, error) {
	history := b.History(session)

	msgs := make([]completion.Message, 0, len(history)+2)
	if b.systemPrompt != "" {
		msgs = append(msgs, completion.Message{Role: completion.RoleSystem, Content: b.systemPrompt})
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, completion.Message{Role: completion.RoleUser, Content: text})

	reply, err := b.backend.Chat(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("chat session %s: %w", session, err)
	}

	b.mu.Lock()
	b.sessions[session] = append(b.sessions[session],
		completion.Message{Role: completion.RoleUser, Content: text},
		completion.Message{Role: completion.RoleAssistant, Content: reply},
	)
	b.mu.Unlock()
	return reply, nil
}

// Reset forgets session.
func (b *Bot) Reset(session string) {
	b.mu.Lock()
	delete(b.sessions, session)
	b.mu.Unlock()
}

// History returns a copy of the user and assistant turns in session.
func (b *Bot) History(session string) []completion.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]completion.Message(nil), b.sessions[session]...)
}
