package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/godilite/email-qc/internal/app"
	"github.com/godilite/email-qc/internal/repository"
	"github.com/godilite/email-qc/internal/service"
)

func newReconcileCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair result rows left without a detail row",
		Long: `Rebuild missing detail rows from the sub-score details stored with each
result, and delete detail rows whose result no longer exists. The server runs
the same pass at startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := g.config()
			logger := g.logger()
			defer logger.Sync()

			db, err := app.OpenStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			engine, err := app.NewEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer engine.Close()

			qc := service.NewQCService(engine, repository.NewQCResultRepository(db), logger)
			report, err := qc.Reconcile(ctx)
			if err != nil {
				return err
			}

			styles := newPrintStyles()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styles.header.Render("Reconciled "+cfg.DBPath))
			fmt.Fprintf(out, "  orphaned results:  %d\n", report.Orphaned)
			fmt.Fprintf(out, "  details restored:  %s\n", styles.good.Render(fmt.Sprint(report.Restored)))
			failed := fmt.Sprint(report.Failed)
			if report.Failed > 0 {
				failed = styles.poor.Render(failed)
			}
			fmt.Fprintf(out, "  restore failures:  %s\n", failed)
			fmt.Fprintf(out, "  dangling removed:  %d\n", report.DanglingRemoved)
			if report.Failed > 0 {
				return fmt.Errorf("%d detail row(s) could not be restored", report.Failed)
			}
			return nil
		},
	}
}
