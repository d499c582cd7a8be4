// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smartbi/internal/audit"
	"github.com/pdiddy/smartbi/pkg/types"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the normalization audit log",
	Long: `Audit reads the SQLite log of past normalizations (audit.db_path).
Records are written by chat, normalize and serve when audit.enabled is set.`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded normalizations, newest first",
	RunE:  runAuditList,
}

func runAuditList(cmd *cobra.Command, args []string) error {
	store, err := audit.NewStore(appConfig.Audit)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(context.Background(), auditOptsFromFlags(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if records == nil {
			records = []types.AuditRecord{}
		}
		return writeJSON(out, records)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No records found.")
		return nil
	}
	fmt.Fprintf(out, "%-5s  %-20s  %-15s  %-4s  %-40s  %s\n", "ID", "Recorded", "Intent", "OK", "Text", "Flags")
	fmt.Fprintln(out, strings.Repeat("-", 120))
	for _, r := range records {
		text := []rune(r.RawText)
		if len(text) > 38 {
			text = append(text[:35], []rune("...")...)
		}
		ok := "yes"
		if !r.OK {
			ok = "no"
		}
		fmt.Fprintf(out, "%-5d  %-20s  %-15s  %-4s  %-40s  %s\n",
			r.ID, r.RecordedAt.Local().Format("2006-01-02 15:04:05"), r.Intent, ok, string(text), strings.Join(r.RiskFlags, ","))
	}
	fmt.Fprintf(out, "\n%d records\n", len(records))
	return nil
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the audit log to YAML or JSON",
	RunE:  runAuditExport,
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	store, err := audit.NewStore(appConfig.Audit)
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if err := store.Export(context.Background(), w, format, auditOptsFromFlags(cmd)); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", output)
	}
	return nil
}

func auditOptsFromFlags(cmd *cobra.Command) audit.QueryOptions {
	intent, _ := cmd.Flags().GetString("intent")
	flag, _ := cmd.Flags().GetString("flag")
	text, _ := cmd.Flags().GetString("text")
	failed, _ := cmd.Flags().GetBool("failed")
	limit, _ := cmd.Flags().GetInt("limit")
	return audit.QueryOptions{
		Intent:     types.Intent(intent),
		Flag:       flag,
		Text:       text,
		FailedOnly: failed,
		MaxResults: limit,
	}
}

func init() {
	for _, c := range []*cobra.Command{auditListCmd, auditExportCmd} {
		c.Flags().String("intent", "", "filter by intent: kpi_query, comparison, trend, detail_request, out_of_scope")
		c.Flags().String("flag", "", "filter by risk flag")
		c.Flags().String("text", "", "filter by substring of the question")
		c.Flags().Bool("failed", false, "only records rejected by validation")
	}
	auditListCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	auditListCmd.Flags().Bool("json", false, "output records as JSON")
	auditExportCmd.Flags().String("format", audit.FormatYAML, "export format: yaml or json")
	auditExportCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditExportCmd)
	rootCmd.AddCommand(auditCmd)
}
