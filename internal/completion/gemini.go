// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/pdiddy/smartbi/pkg/types"
)

const providerGemini = "gemini"

// Gemini calls Google's Generative Language API.
type Gemini struct {
	APIKey      string
	Model       string
	Temperature float64

	limiter *rate.Limiter
}

// NewGemini builds a Gemini backend from cfg.
func NewGemini(cfg types.LLMConfig) *Gemini {
	g := &Gemini{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		Model:       strings.TrimSpace(cfg.Model),
		Temperature: cfg.Temperature,
	}
	if cfg.RateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Every(cfg.RateLimit), 1)
	}
	return g
}

func (g *Gemini) model(ctx context.Context) (*genai.Client, *genai.GenerativeModel, error) {
	if g.APIKey == "" {
		return nil, nil, errors.New("api key is empty")
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return nil, nil, err
	}
	m := cl.GenerativeModel(g.Model)
	if m == nil {
		cl.Close()
		return nil, nil, fmt.Errorf("model %q unavailable", g.Model)
	}
	return cl, m, nil
}

// Complete asks for a JSON answer at temperature 0.
func (g *Gemini) Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	cl, m, err := g.model(ctx)
	if err != nil {
		return "", &CapabilityError{Provider: providerGemini, Err: err}
	}
	defer cl.Close()

	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &CapabilityError{Provider: providerGemini, Err: err}
	}
	txt := firstText(resp)
	if txt == "" {
		return "", &CapabilityError{Provider: providerGemini, Err: errors.New("empty response")}
	}
	return txt, nil
}

// Chat replays messages as a Gemini chat session. System messages become
// the system instruction; the last message is sent as the new turn.
func (g *Gemini) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", &CapabilityError{Provider: providerGemini, Err: errors.New("no messages")}
	}
	cl, m, err := g.model(ctx)
	if err != nil {
		return "", &CapabilityError{Provider: providerGemini, Err: err}
	}
	defer cl.Close()

	temp := g.Temperature
	if temp == 0 {
		temp = defaultTemperature
	}
	m.GenerationConfig = genai.GenerationConfig{Temperature: ptrFloat32(float32(temp))}

	system, history, last := splitForGemini(messages)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	cs := m.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", &CapabilityError{Provider: providerGemini, Err: err}
	}
	txt := firstText(resp)
	if txt == "" {
		return "", &CapabilityError{Provider: providerGemini, Err: errors.New("empty response")}
	}
	return txt, nil
}

// splitForGemini maps chat messages onto Gemini's user/model roles.
func splitForGemini(messages []Message) (system string, history []*genai.Content, last string) {
	var sys []string
	for i, msg := range messages {
		if msg.Role == RoleSystem {
			sys = append(sys, msg.Content)
			continue
		}
		if i == len(messages)-1 {
			last = msg.Content
			break
		}
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	return strings.Join(sys, "\n\n"), history, last
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				if s := strings.TrimSpace(string(t)); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func ptrFloat32(f float32) *float32 { return &f }
