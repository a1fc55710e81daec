// Package cli defines the Cobra command tree for the tokprep CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	internal "github.com/ZanzyTHEbar/tokprep/tokprep"
	"github.com/ZanzyTHEbar/tokprep/tokprep/config"
	"github.com/ZanzyTHEbar/tokprep/tokprep/preprocess"
	"github.com/ZanzyTHEbar/tokprep/tokprep/tokenizer"
)

var (
	// version, commit, date are set via -ldflags at build time.
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:   "tokprep",
		Short: "Tokenize text records with configurable truncation and padding",
		Long: `tokprep tokenizes JSONL text records for training pipelines.

Truncation side, truncation and padding strategies and max_length come from
the preprocess section of the config file or TOKPREP_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default searches ./config.yaml and "+internal.DefaultConfigFile+")")

	env := &loader{configPath: &configPath}
	root.AddCommand(
		newTokenizeCmd(env),
		newViewCmd(env),
		newStatsCmd(env),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute(v, c, d string) {
	version, commit, date = v, c, d
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tokprep %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// loader loads configuration, logger and tokenizer for a command.
type loader struct {
	configPath *string
}

type loaded struct {
	cfg    *config.Config
	pcfg   preprocess.Config
	logger zerolog.Logger
	tok    preprocess.Tokenizer
}

func (r *loader) load() (*loaded, error) {
	cfg, err := config.LoadConfig(*r.configPath)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(cfg.Log.Level, cfg.Log.Pretty)

	pcfg, err := cfg.Preprocess.ToPreprocess()
	if err != nil {
		return nil, err
	}
	tok, err := tokenizer.New(cfg.Tokenizer.TokenizerOptions(), logger)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	logger.Debug().Str("preprocess", cfg.Preprocess.String()).Msg("configuration loaded")
	return &loaded{cfg: cfg, pcfg: pcfg, logger: logger, tok: tok}, nil
}
