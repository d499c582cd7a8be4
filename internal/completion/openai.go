// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/smartbi/internal/httputil"
	"github.com/pdiddy/smartbi/pkg/types"
)

const (
	providerOpenAI     = "openai"
	defaultTemperature = 0.3
)

// OpenAI talks to any OpenAI-compatible /chat/completions endpoint. It
// serves both as the chat bot backend and as the enricher's capability.
type OpenAI struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxRetries  int
	Client      *http.Client

	limiter *rate.Limiter
}

// NewOpenAI builds a client from cfg. A positive cfg.RateLimit spaces
// outbound calls at least that far apart.
func NewOpenAI(cfg types.LLMConfig) *OpenAI {
	o := &OpenAI{
		BaseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxRetries:  cfg.MaxRetries,
		Client:      &http.Client{},
	}
	if cfg.RateLimit > 0 {
		o.limiter = rate.NewLimiter(rate.Every(cfg.RateLimit), 1)
	}
	return o
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends prompt as a single user turn at temperature 0.
func (o *OpenAI) Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return o.send(ctx, chatRequest{
		Model:    o.Model,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	})
}

// Chat sends the whole conversation and returns the assistant reply.
func (o *OpenAI) Chat(ctx context.Context, messages []Message) (string, error) {
	temp := o.Temperature
	if temp == 0 {
		temp = defaultTemperature
	}
	return o.send(ctx, chatRequest{
		Model:       o.Model,
		Messages:    messages,
		Temperature: temp,
	})
}

func (o *OpenAI) send(ctx context.Context, body chatRequest) (string, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", &CapabilityError{Provider: providerOpenAI, Err: err}
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", &CapabilityError{Provider: providerOpenAI, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", &CapabilityError{Provider: providerOpenAI, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, o.MaxRetries)
	if err != nil {
		return "", &CapabilityError{Provider: providerOpenAI, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CapabilityError{Provider: providerOpenAI, Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &CapabilityError{Provider: providerOpenAI, Err: fmt.Errorf("API returned %d: %s", resp.StatusCode, string(raw))}
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", &CapabilityError{Provider: providerOpenAI, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if cr.Error != nil {
		return "", &CapabilityError{Provider: providerOpenAI, Err: fmt.Errorf("API error: %s (%s)", cr.Error.Message, cr.Error.Type)}
	}
	if len(cr.Choices) == 0 {
		return "", &CapabilityError{Provider: providerOpenAI, Err: fmt.Errorf("empty choices")}
	}
	return cr.Choices[0].Message.Content, nil
}
