// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/smartbi/internal/validate"
	"github.com/pdiddy/smartbi/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file.json>",
	Short: "Check a request document against the contract",
	Long: `Validate reads a normalized request document and reports every
contract violation. It exits non-zero when the document is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	v, err := validate.New(appConfig.Paths.Contract)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ok, errs := v.Validate(doc)
	if ok {
		fmt.Fprintf(out, "%s: ok\n", args[0])
		return nil
	}
	for _, e := range errs {
		fmt.Fprintf(out, "%s: %s\n", args[0], e)
	}
	return fmt.Errorf("%d violation(s)", len(errs))
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
