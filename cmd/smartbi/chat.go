// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smartbi/internal/chat"
	"github.com/pdiddy/smartbi/internal/completion"
	"github.com/pdiddy/smartbi/internal/config"
	"github.com/pdiddy/smartbi/internal/normalize"
	"github.com/pdiddy/smartbi/pkg/types"
)

const chatSession = "smartbi-cli"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive session: normalize each question, then ask the assistant",
	Long: `Chat reads questions from stdin. Every line is normalized and the
normalized request is printed; the line is then sent to the chat assistant
with the session history. Normalization errors are printed and the loop
continues.

Commands:
  /exit                    leave
  /reset                   clear conversation memory
  /history                 print the conversation
  /normalize <text>        normalize only
  /normalize-debug <text>  normalize only, with stage snapshots and diff`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if err := config.RequireLLM(cfg.LLM); err != nil {
		return err
	}
	if err := config.RequireSystemPrompt(cfg.LLM); err != nil {
		return err
	}

	pipeline, _, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	backend, err := completion.New(cfg.LLM)
	if err != nil {
		return err
	}

	r := &repl{
		in:       cmd.InOrStdin(),
		out:      cmd.OutOrStdout(),
		debug:    cmd.OutOrStdout(),
		pipeline: pipeline,
		bot:      chat.New(backend, cfg.LLM.SystemPrompt),
		now:      time.Now,
	}

	store, err := openAudit(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		r.recorder = store
	}
	return r.run(cmd.Context())
}

type normalizer interface {
	Normalize(ctx context.Context, in normalize.Input, opts normalize.Options) (*types.NormalizedRequest, error)
}

type assistant interface {
	Invoke(ctx context.Context, session, text string) (string, error)
	Reset(session string)
	History(session string) []completion.Message
}

// repl is the chat loop, separated from cobra for testing.
type repl struct {
	in       io.Reader
	out      io.Writer
	debug    io.Writer
	pipeline normalizer
	bot      assistant
	recorder recorder
	now      func() time.Time
}

func (r *repl) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintln(r.out, "=== SmartBI Chat ===")
	fmt.Fprintln(r.out, "Commands: /exit  /reset  /history  /normalize <text>  /normalize-debug <text>")
	fmt.Fprintln(r.out, strings.Repeat("-", 43))

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, "You> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out, "\nBye.")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/exit":
			fmt.Fprintln(r.out, "Bye.")
			return nil
		case "/reset":
			r.bot.Reset(chatSession)
			fmt.Fprintln(r.out, "Conversation memory cleared.")
			continue
		case "/history":
			r.printHistory()
			continue
		}

		text, normalizeOnly, debug := line, false, false
		switch {
		case strings.HasPrefix(line, "/normalize-debug "):
			text = strings.TrimSpace(strings.TrimPrefix(line, "/normalize-debug "))
			normalizeOnly, debug = true, true
		case strings.HasPrefix(line, "/normalize "):
			text = strings.TrimSpace(strings.TrimPrefix(line, "/normalize "))
			normalizeOnly = true
		}

		if !r.normalize(ctx, text, debug) || normalizeOnly {
			continue
		}

		answer, err := r.bot.Invoke(ctx, chatSession, line)
		if err != nil {
			fmt.Fprintf(r.out, "[error] %v\n", err)
			continue
		}
		fmt.Fprintf(r.out, "AI> %s\n", answer)
	}
}

// normalize prints the normalized request and reports whether it succeeded.
func (r *repl) normalize(ctx context.Context, text string, debug bool) bool {
	meta := cliRequest(r.now())
	opts := normalize.Options{}
	if debug {
		opts.Debug = r.debug
	}

	req, err := r.pipeline.Normalize(ctx, normalize.Input{
		Text:    text,
		User:    cliUser,
		Request: meta,
	}, opts)
	recordOutcome(ctx, r.recorder, text, meta, req, err)

	if err != nil {
		var ne *normalize.NormalizationError
		if errors.As(err, &ne) {
			fmt.Fprintf(r.out, "[normalize error] %v\n", ne)
		} else {
			fmt.Fprintf(r.out, "[error] %v\n", err)
		}
		return false
	}

	fmt.Fprintln(r.out, "Normalized>")
	writeJSON(r.out, req)
	return true
}

func (r *repl) printHistory() {
	h := r.bot.History(chatSession)
	if len(h) == 0 {
		fmt.Fprintln(r.out, "(empty)")
		return
	}
	for i, m := range h {
		role := "You"
		if m.Role == completion.RoleAssistant {
			role = "AI"
		}
		fmt.Fprintf(r.out, "%02d %s: %s\n", i+1, role, m.Content)
	}
}

// writeJSON prints v indented without escaping non-ASCII or HTML.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
