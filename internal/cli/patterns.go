package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/godilite/email-qc/internal/patterns"
)

func newPatternsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Inspect and validate pattern library files",
	}
	cmd.AddCommand(newPatternsDumpCmd(g), newPatternsValidateCmd())
	return cmd
}

func newPatternsDumpCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the active pattern library as YAML",
		Long: `Print the pattern library as YAML. Without --patterns or PATTERNS_FILE this
is the built-in library, a starting point for a custom file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := patterns.LoadFile(g.config().PatternsFile)
			if err != nil {
				return err
			}
			return patterns.Dump(cmd.OutOrStdout(), set)
		},
	}
}

func newPatternsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check that pattern files load and compile",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			styles := newPrintStyles()
			out := cmd.OutOrStdout()

			failed := 0
			for _, path := range args {
				set, err := patterns.LoadFile(path)
				if err == nil {
					_, err = patterns.Compile(set)
				}
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s %s: %v\n", styles.poor.Render("FAIL"), path, err)
					continue
				}
				version := set.Version
				if version == "" {
					version = "unversioned"
				}
				fmt.Fprintf(out, "%s %s %s\n", styles.good.Render("ok"), path, styles.dim.Render("("+version+")"))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d pattern file(s) invalid", failed, len(args))
			}
			return nil
		},
	}
}
