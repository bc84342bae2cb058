package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/email-qc/internal/app"
	"github.com/godilite/email-qc/internal/repository"
	"github.com/godilite/email-qc/internal/scoring"
	"github.com/godilite/email-qc/internal/service"
)

type scoreOptions struct {
	root     string
	jsonOut  bool
	store    bool
	agentID  int64
	ticketID int64
}

// fileScore is one scored file as printed by `qcctl score`.
type fileScore struct {
	File            string              `json:"file"`
	ResultID        int64               `json:"result_id,omitempty"`
	TotalScore      float64             `json:"total_score"`
	SubScores       map[string]*float64 `json:"sub_scores"`
	Feedback        string              `json:"feedback"`
	Recommendations string              `json:"recommendations,omitempty"`
}

func newScoreCmd(g *globalOptions) *cobra.Command {
	o := &scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score <glob>...",
		Short: "Score email bodies read from files",
		Long: `Score every file matching the given glob patterns. Patterns are resolved
relative to --root and support ** for recursive matches, e.g.

  qcctl score 'replies/**/*.txt'

Files carry only the body, so the response-time dimension falls back to the
neutral score and is flagged as incomplete. With --store the results are
written to the result store.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.Context(), cmd.OutOrStdout(), g, o, args)
		},
	}
	cmd.Flags().StringVar(&o.root, "root", ".", "Directory the glob patterns are resolved against")
	cmd.Flags().BoolVar(&o.jsonOut, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&o.store, "store", false, "Persist results to the result store")
	cmd.Flags().Int64Var(&o.agentID, "agent-id", 0, "Agent the replies are attributed to")
	cmd.Flags().Int64Var(&o.ticketID, "ticket-id", 0, "Ticket the replies are attributed to")
	return cmd
}

// expandGlobs returns the regular files under root matching any pattern,
// sorted and without duplicates.
func expandGlobs(root string, patterns []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("error evaluating pattern %s: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

type scoreFunc func(ctx context.Context, sample scoring.EmailSample) (scoring.QCResult, int64, error)

func runScore(ctx context.Context, out io.Writer, g *globalOptions, o *scoreOptions, patterns []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	files, err := expandGlobs(o.root, patterns)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched %s under %s", strings.Join(patterns, ", "), o.root)
	}

	cfg := g.config()
	logger := g.logger()
	defer logger.Sync()

	engine, err := app.NewEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	score := scoreFunc(func(ctx context.Context, sample scoring.EmailSample) (scoring.QCResult, int64, error) {
		res, err := engine.ScoreEmail(ctx, sample)
		return res, 0, err
	})
	if o.store {
		db, err := app.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := repository.NewQCResultRepository(db)
		var opts []service.Option
		if o.agentID != 0 {
			resolver, err := service.NewAgentResolver(repo, nil, 0, logger)
			if err != nil {
				return err
			}
			opts = append(opts, service.WithAgentResolver(resolver))
		}
		score = service.NewQCService(engine, repo, logger, opts...).ScoreAndStore
	}

	results := make([]fileScore, 0, len(files))
	for _, name := range files {
		body, err := fs.ReadFile(os.DirFS(o.root), name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		res, id, err := score(ctx, scoring.EmailSample{
			Body:     string(body),
			TicketID: o.ticketID,
			AgentID:  o.agentID,
		})
		if err != nil {
			if errors.Is(err, service.ErrPersistence) {
				logger.Error("result not stored", zap.String("file", name), zap.Error(err))
			}
			return fmt.Errorf("score %s: %w", name, err)
		}
		results = append(results, toFileScore(name, id, res))
	}

	if o.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printScores(out, results, engine.Config().FeedbackThreshold)
	return nil
}

func toFileScore(name string, id int64, res scoring.QCResult) fileScore {
	fsc := fileScore{
		File:            name,
		ResultID:        id,
		TotalScore:      res.TotalScore,
		SubScores:       make(map[string]*float64, len(res.SubScores)),
		Feedback:        res.Feedback,
		Recommendations: res.Recommendations,
	}
	for _, s := range res.SubScores {
		if s.Indeterminate {
			fsc.SubScores[string(s.Name)] = nil
			continue
		}
		v := s.Score
		fsc.SubScores[string(s.Name)] = &v
	}
	return fsc
}

func printScores(out io.Writer, results []fileScore, threshold float64) {
	styles := newPrintStyles()

	width := len("file")
	for _, r := range results {
		width = max(width, len(r.File))
	}
	width += 2

	header := cell(width, "file") + cell(8, "total")
	for _, d := range scoring.Dimensions {
		header += cell(len(d)+2, string(d))
	}
	fmt.Fprintln(out, styles.header.Render(header))

	var sum float64
	for _, r := range results {
		line := cell(width, r.File) + cell(8, styles.score(r.TotalScore, threshold))
		for _, d := range scoring.Dimensions {
			v := r.SubScores[string(d)]
			text := styles.dim.Render("n/a")
			if v != nil {
				text = styles.score(*v, threshold)
			}
			line += cell(len(d)+2, text)
		}
		fmt.Fprintln(out, line)
		sum += r.TotalScore
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %d file(s), mean total %s\n",
		styles.header.Render("Scored"), len(results), styles.score(sum/float64(len(results)), threshold))
	for _, r := range results {
		if r.Recommendations == "" {
			continue
		}
		fmt.Fprintf(out, "\n%s\n%s\n", styles.header.Render(r.File), r.Recommendations)
	}
}
