// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/smartbi/pkg/types"
)

// QueryOptions filters List and the exports. Zero values match everything.
type QueryOptions struct {
	Intent types.Intent

	// Flag keeps records whose risk flags include it.
	Flag string

	// Text is a substring of the raw question.
	Text string

	// FailedOnly keeps records rejected by validation.
	FailedOnly bool

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]types.AuditRecord, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT id, request_id, recorded_at, channel, raw_text, intent, language,
			risk_flags, metric_hints, ok, errors, document
		FROM normalizations
		WHERE 1=1`)

	if opts.Intent != "" {
		qb.WriteString(` AND intent = ?`)
		args = append(args, string(opts.Intent))
	}
	if opts.Flag != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM json_each(risk_flags) WHERE value = ?)`)
		args = append(args, opts.Flag)
	}
	if opts.Text != "" {
		qb.WriteString(` AND instr(raw_text, ?) > 0`)
		args = append(args, opts.Text)
	}
	if opts.FailedOnly {
		qb.WriteString(` AND ok = 0`)
	}

	qb.WriteString(` ORDER BY id DESC LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var out []types.AuditRecord
	for rows.Next() {
		var (
			rec        types.AuditRecord
			recordedAt string
			channel    sql.NullString
			intent     sql.NullString
			language   sql.NullString
			flagsJSON  sql.NullString
			hintsJSON  sql.NullString
			errsJSON   sql.NullString
			docJSON    sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.RequestID, &recordedAt, &channel, &rec.RawText, &intent, &language,
			&flagsJSON, &hintsJSON, &rec.OK, &errsJSON, &docJSON,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		rec.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		rec.Channel = channel.String
		rec.Intent = types.Intent(intent.String)
		rec.Language = types.Language(language.String)
		rec.RiskFlags = decodeStrings(flagsJSON)
		rec.MetricHints = decodeStrings(hintsJSON)
		if errs := decodeStrings(errsJSON); len(errs) > 0 {
			rec.Errors = errs
		}
		if docJSON.Valid {
			json.Unmarshal([]byte(docJSON.String), &rec.Document)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decodeStrings(ns sql.NullString) []string {
	out := []string{}
	if ns.Valid {
		json.Unmarshal([]byte(ns.String), &out)
	}
	return out
}
