// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the smartbi CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/smartbi/internal/config"
	"github.com/pdiddy/smartbi/internal/secrets"
	"github.com/pdiddy/smartbi/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// appConfig is resolved once per invocation in PersistentPreRunE.
var appConfig types.Config

var rootCmd = &cobra.Command{
	Use:   "smartbi",
	Short: "Normalize banking analytics questions into structured requests",
	Long: `smartbi turns free-form analytics questions (Traditional Chinese or
English) into normalized request documents for the BI query engine:
intent, time window, metric hints, risk flags, and missing fields.

Subcommands run the pipeline once (normalize), interactively (chat), or
as an HTTP API (serve), and inspect the catalog, contract, and audit log.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd)

		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}

		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		config.ApplySecrets(&cfg, s)
		appConfig = cfg
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./smartbi.yaml or ~/.config/smartbi/config.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file with LLM_* settings")
	rootCmd.PersistentFlags().String("catalog", "", "metric catalog YAML (default: semantic/metrics.yaml)")
	rootCmd.PersistentFlags().String("contract", "", "request contract JSON (default: contracts/normalized_request.schema.json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log diagnostics to stderr")

	viper.BindPFlag("paths.catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	viper.BindPFlag("paths.contract", rootCmd.PersistentFlags().Lookup("contract"))
}

func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("smartbi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "smartbi"))
		}
	}

	if err := config.BindEnv(v); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	envFile, _ := rootCmd.PersistentFlags().GetString("env-file")
	if err := config.ReadDotEnv(v, envFile); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}
}

func setupLogging(cmd *cobra.Command) {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
