// Package cli implements qcctl, the operator command line for the email
// quality-control engine.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/email-qc/internal/config"
)

type globalOptions struct {
	verbose       bool
	scoringConfig string
	patternsFile  string
}

// config returns the process configuration with flag overrides applied.
func (g *globalOptions) config() *config.Config {
	cfg := config.LoadFromEnv()
	if g.scoringConfig != "" {
		cfg.ScoringConfigPath = g.scoringConfig
	}
	if g.patternsFile != "" {
		cfg.PatternsFile = g.patternsFile
	}
	return cfg
}

func (g *globalOptions) logger() *zap.Logger {
	if !g.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// NewRootCmd builds the qcctl command tree.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "qcctl",
		Short: "Operate the email quality-control engine",
		Long: `qcctl scores email replies from files, repairs the result store and
manages the pattern library.

Store settings come from the same environment variables as the server
(DB_PATH, DB_DRIVER, SCORING_CONFIG, PATTERNS_FILE, ...).`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log engine and store activity to stderr")
	root.PersistentFlags().StringVar(&g.scoringConfig, "scoring-config", "", "Scoring config file (YAML or JSON), overrides SCORING_CONFIG")
	root.PersistentFlags().StringVar(&g.patternsFile, "patterns", "", "Pattern library file, overrides PATTERNS_FILE")

	root.AddCommand(
		newScoreCmd(g),
		newReconcileCmd(g),
		newPatternsCmd(g),
	)
	return root
}
