// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pdiddy/smartbi/internal/audit"
	"github.com/pdiddy/smartbi/internal/completion"
	"github.com/pdiddy/smartbi/internal/config"
	"github.com/pdiddy/smartbi/internal/enrich"
	"github.com/pdiddy/smartbi/internal/normalize"
	"github.com/pdiddy/smartbi/internal/rules"
	"github.com/pdiddy/smartbi/internal/validate"
	"github.com/pdiddy/smartbi/pkg/types"
)

const cliChannel = "cli"

// cliUser is the identity attached to questions asked from the terminal.
var cliUser = types.UserContext{
	UserID:         "smartbi-cli-user",
	Role:           "analyst",
	DataScope:      []string{"AGGREGATED_ONLY"},
	AllowedRegions: []string{"澳門半島", "氹仔", "路氹城", "路環"},
}

// cliRequest stamps a request made at now.
func cliRequest(now time.Time) types.RequestMeta {
	return types.RequestMeta{
		RequestID: fmt.Sprintf("req-%d", now.Unix()),
		RequestTS: now.Format(time.RFC3339),
		Timezone:  "Asia/Macau",
		Channel:   cliChannel,
	}
}

// newPipeline wires rules, validator and, when enabled, the enricher.
func newPipeline(cfg types.Config) (*normalize.Pipeline, *validate.Validator, error) {
	v, err := validate.New(cfg.Paths.Contract)
	if err != nil {
		return nil, nil, err
	}
	p := &normalize.Pipeline{
		Rules:     &rules.Engine{CatalogPath: cfg.Paths.Catalog},
		Validator: v,
	}
	if !cfg.Enrichment.Enabled {
		return p, v, nil
	}

	if err := config.RequireLLM(cfg.LLM); err != nil {
		return nil, nil, fmt.Errorf("enrichment: %w", err)
	}
	backend, err := completion.New(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	e, err := enrich.New(cfg.Enrichment, backend, v)
	if err != nil {
		return nil, nil, err
	}
	e.OnFailure = func(f enrich.AttemptFailure) {
		slog.Warn("enrichment attempt failed", "attempt", f.Attempt, "reason", f.Reason, "err", f.Err)
	}
	p.Enricher = e
	return p, v, nil
}

// openAudit returns nil when the audit log is disabled.
func openAudit(cfg types.Config) (*audit.Store, error) {
	if !cfg.Audit.Enabled {
		return nil, nil
	}
	return audit.NewStore(cfg.Audit)
}

type recorder interface {
	Record(ctx context.Context, rec types.AuditRecord) (int64, error)
}

func recordOutcome(ctx context.Context, r recorder, text string, meta types.RequestMeta, req *types.NormalizedRequest, err error) {
	if r == nil {
		return
	}
	if _, rerr := r.Record(ctx, audit.NewRecord(text, meta, req, err)); rerr != nil {
		slog.Warn("audit record failed", "request_id", meta.RequestID, "err", rerr)
	}
}
