// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smartbi/internal/catalog"
	"github.com/pdiddy/smartbi/internal/rules"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the metric catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := catalog.Load(appConfig.Paths.Catalog)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-40s  %-28s  %s\n", "Metric ID", "Key", "Aliases")
		fmt.Fprintln(out, strings.Repeat("-", 100))
		for _, e := range entries {
			fmt.Fprintf(out, "%-40s  %-28s  %s\n", e.MetricID, e.MetricKey, strings.Join(e.Aliases, ", "))
		}
		fmt.Fprintf(out, "\n%d metrics\n", len(entries))
		return nil
	},
}

var catalogHintsCmd = &cobra.Command{
	Use:   "hints <text...>",
	Short: "Show the metric hints retrieved for a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top-k")
		entries, err := catalog.Load(appConfig.Paths.Catalog)
		if err != nil {
			return err
		}

		text := rules.NormalizeText(strings.Join(args, " "))
		scores := catalog.Score(text, entries)
		hints := catalog.Retrieve(text, entries, topK)

		out := cmd.OutOrStdout()
		if len(hints) == 0 {
			fmt.Fprintln(out, "No matching metrics.")
			return nil
		}
		for i, id := range hints {
			fmt.Fprintf(out, "%d. %s (score %d)\n", i+1, id, scores[i].Score)
		}
		return nil
	},
}

func init() {
	catalogHintsCmd.Flags().Int("top-k", catalog.DefaultTopK, "number of hints to return")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogHintsCmd)
	rootCmd.AddCommand(catalogCmd)
}
