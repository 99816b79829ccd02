package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/boxoffice/internal/estimate"
	"github.com/sells-group/boxoffice/internal/model"
	"github.com/sells-group/boxoffice/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the prediction log",
	Long:  "Commands for listing, viewing, and summarizing recorded predictions.",
}

// openRunStore opens the configured store for the runs subcommands.
func openRunStore(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate("runs"); err != nil {
		return nil, err
	}
	cmd.SilenceUsage = true
	env, err := newEnv(cmd.Context(), cfg, true)
	if err != nil {
		return nil, err
	}
	if env.Store == nil {
		return nil, eris.New("no store configured")
	}
	return env.Store, nil
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded predictions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openRunStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		outcome, _ := cmd.Flags().GetString("outcome")
		director, _ := cmd.Flags().GetString("director")
		limit, _ := cmd.Flags().GetInt("limit")

		if outcome != "" && !model.Outcome(outcome).Valid() {
			return eris.Errorf("unknown outcome %q", outcome)
		}

		runs, err := st.ListPredictions(cmd.Context(), store.RunFilter{
			Outcome:  model.Outcome(outcome),
			Director: director,
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a recorded prediction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openRunStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetPrediction(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show prediction counts by outcome",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openRunStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")

		var cutoff time.Time
		if since > 0 {
			cutoff = time.Now().Add(-since)
		}

		runs, err := listAllRuns(cmd.Context(), st, store.RunFilter{CreatedAfter: cutoff})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(cmd.OutOrStdout(), computeRunStats(runs, cutoff))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("outcome", "", "filter by outcome (success, no_match_found, ...)")
	runsListCmd.Flags().String("director", "", "filter by matched director name")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 0, "only count runs newer than this (e.g. 24h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

const statsPageSize = 1000

// listAllRuns pages through every run matching filter. Limit and Offset on
// filter are ignored.
func listAllRuns(ctx context.Context, st store.Store, filter store.RunFilter) ([]model.PredictionRun, error) {
	filter.Limit = statsPageSize
	filter.Offset = 0

	var all []model.PredictionRun
	for {
		page, err := st.ListPredictions(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < statsPageSize {
			return all, nil
		}
		filter.Offset += len(page)
	}
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total      int
	Succeeded  int
	ByOutcome  map[model.Outcome]int
	AvgScore   float64
	AvgRevenue float64
}

// computeRunStats aggregates runs created at or after cutoff. A zero cutoff
// counts every run.
func computeRunStats(runs []model.PredictionRun, cutoff time.Time) runStats {
	s := runStats{ByOutcome: make(map[model.Outcome]int)}

	var scoreSum, revenueSum float64
	var scored, revenues int
	for _, r := range runs {
		if !cutoff.IsZero() && r.CreatedAt.Before(cutoff) {
			continue
		}
		s.Total++
		s.ByOutcome[r.Outcome]++
		if r.Outcome == model.OutcomeSuccess {
			s.Succeeded++
		}
		if r.Score > 0 {
			scoreSum += r.Score
			scored++
		}
		if r.PredictedRevenue != nil {
			revenueSum += *r.PredictedRevenue
			revenues++
		}
	}

	if scored > 0 {
		s.AvgScore = scoreSum / float64(scored)
	}
	if revenues > 0 {
		s.AvgRevenue = revenueSum / float64(revenues)
	}
	return s
}

// formatRunsList writes a table of runs to out.
func formatRunsList(out io.Writer, runs []model.PredictionRun) {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		query := truncateText(r.DirectorQuery, 30)
		revenue := ""
		if r.PredictedRevenue != nil {
			revenue = estimate.FormatRevenue(*r.PredictedRevenue)
		}
		rows[i] = []string{
			truncateID(r.ID),
			query,
			r.DirectorName,
			string(r.Outcome),
			revenue,
			r.CreatedAt.Format("2006-01-02 15:04"),
		}
	}
	_, _ = io.WriteString(out, renderTable(
		[]string{"ID", "Query", "Director", "Outcome", "Revenue", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)+"\n")
}

// formatRunStats writes aggregate stats to out, one row per outcome seen.
func formatRunStats(out io.Writer, s runStats) {
	rows := [][]string{{"total", strconv.Itoa(s.Total)}}
	for _, o := range model.Outcomes {
		if n := s.ByOutcome[o]; n > 0 {
			rows = append(rows, []string{string(o), strconv.Itoa(n)})
		}
	}
	if s.AvgScore > 0 {
		rows = append(rows, []string{"avg match score", strconv.FormatFloat(s.AvgScore, 'f', 1, 64)})
	}
	if s.AvgRevenue != 0 {
		rows = append(rows, []string{"avg predicted revenue", estimate.FormatRevenue(s.AvgRevenue)})
	}
	_, _ = io.WriteString(out, renderTable(
		[]string{"Metric", "Value"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	)+"\n")
}
