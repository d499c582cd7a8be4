// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package audit records every normalization in a local SQLite database and
// serves filtered listings and exports of it.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/smartbi/internal/normalize"
	"github.com/pdiddy/smartbi/pkg/types"
)

const defaultMaxResults = 20

// Store manages the audit database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the database at cfg.DBPath, creating parent
// directories and the schema as needed.
func NewStore(cfg types.AuditConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating audit directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	s := &Store{db: db, maxResults: maxResults}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS normalizations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			channel TEXT,
			raw_text TEXT NOT NULL,
			intent TEXT,
			language TEXT,
			risk_flags TEXT,
			metric_hints TEXT,
			ok INTEGER NOT NULL,
			errors TEXT,
			document TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_normalizations_intent ON normalizations(intent)`,
		`CREATE INDEX IF NOT EXISTS idx_normalizations_request_id ON normalizations(request_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// NewRecord summarizes one normalization outcome. req is nil when err is
// non-nil; validator messages are taken from a *normalize.NormalizationError.
func NewRecord(rawText string, meta types.RequestMeta, req *types.NormalizedRequest, err error) types.AuditRecord {
	rec := types.AuditRecord{
		RequestID:   meta.RequestID,
		RecordedAt:  time.Now().UTC(),
		Channel:     meta.Channel,
		RawText:     rawText,
		RiskFlags:   []string{},
		MetricHints: []string{},
		OK:          err == nil && req != nil,
	}
	if err != nil {
		var ne *normalize.NormalizationError
		if errors.As(err, &ne) {
			rec.Errors = ne.Errors
		} else {
			rec.Errors = []string{err.Error()}
		}
		return rec
	}
	if req == nil {
		return rec
	}
	rec.Channel = req.RequestContext.Channel
	rec.Intent = req.QueryContext.Intent
	rec.Language = req.QueryContext.Language
	rec.RiskFlags = append(rec.RiskFlags, req.RiskContext.RiskFlags...)
	rec.MetricHints = append(rec.MetricHints, req.MetricHints...)
	if doc, derr := req.Document(); derr == nil {
		rec.Document = doc
	}
	return rec
}

// Record inserts rec and returns its row id.
func (s *Store) Record(ctx context.Context, rec types.AuditRecord) (int64, error) {
	flags, _ := json.Marshal(nonNil(rec.RiskFlags))
	hints, _ := json.Marshal(nonNil(rec.MetricHints))
	errs, _ := json.Marshal(nonNil(rec.Errors))

	var doc sql.NullString
	if rec.Document != nil {
		data, err := json.Marshal(rec.Document)
		if err != nil {
			return 0, fmt.Errorf("marshaling document: %w", err)
		}
		doc = sql.NullString{String: string(data), Valid: true}
	}

	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO normalizations
			(request_id, recorded_at, channel, raw_text, intent, language,
			 risk_flags, metric_hints, ok, errors, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, recordedAt.Format(time.RFC3339Nano), rec.Channel, rec.RawText,
		string(rec.Intent), string(rec.Language),
		string(flags), string(hints), rec.OK, string(errs), doc,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting audit record: %w", err)
	}
	return res.LastInsertId()
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
