// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smartbi/internal/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [text...]",
	Short: "Normalize one question and print the request document",
	Long: `Normalize runs the rule engine, optional LLM enrichment, and contract
validation over the question and prints the normalized request as JSON.

Use --now to pin the reference time for relative phrases, --debug to print
stage snapshots and the build/enrich diff to stderr, and --enrich to turn
on LLM completion for this run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNormalize,
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if enrichFlag, _ := cmd.Flags().GetBool("enrich"); enrichFlag {
		cfg.Enrichment.Enabled = true
	}

	now := time.Now()
	var ref time.Time
	if s, _ := cmd.Flags().GetString("now"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("--now: %w", err)
		}
		ref, now = t, t
	}

	pipeline, _, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	opts := normalize.Options{}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		opts.Debug = os.Stderr
	}

	text := strings.Join(args, " ")
	meta := cliRequest(now)
	req, nerr := pipeline.Normalize(cmd.Context(), normalize.Input{
		Text:      text,
		User:      cliUser,
		Request:   meta,
		Reference: ref,
	}, opts)

	store, err := openAudit(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		recordOutcome(cmd.Context(), store, text, meta, req, nerr)
	}

	if nerr != nil {
		return nerr
	}
	return writeJSON(cmd.OutOrStdout(), req)
}

func init() {
	normalizeCmd.Flags().Bool("debug", false, "print stage snapshots and diff paths to stderr")
	normalizeCmd.Flags().String("now", "", "reference time for relative phrases (RFC 3339)")
	normalizeCmd.Flags().Bool("enrich", false, "enable LLM enrichment for this run")

	rootCmd.AddCommand(normalizeCmd)
}
