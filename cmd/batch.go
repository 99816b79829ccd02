package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/boxoffice/internal/estimate"
	"github.com/sells-group/boxoffice/internal/model"
	"github.com/sells-group/boxoffice/internal/pipeline"
	"github.com/sells-group/boxoffice/internal/store"
)

var (
	batchInput       string
	batchOutput      string
	batchConcurrency int
	batchRecord      bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Predict revenue for every query in a YAML or CSV file",
	Long: `Reads director/budget queries from a YAML list or a CSV file with
director and budget columns, predicts each one concurrently and prints the
results as a table, JSON or CSV.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchConcurrency > 0 {
			cfg.Batch.Concurrency = batchConcurrency
		}
		if err := cfg.Validate("batch"); err != nil {
			return err
		}
		if !slices.Contains(batchOutputs, batchOutput) {
			return eris.Errorf("unknown output %q (want table, json or csv)", batchOutput)
		}
		cmd.SilenceUsage = true
		ctx := cmd.Context()

		reqs, err := readBatchFile(batchInput)
		if err != nil {
			return err
		}

		env, err := newEnv(ctx, cfg, batchRecord)
		if err != nil {
			return err
		}
		defer env.Close()

		tables, err := env.loadTables(ctx, cfg)
		if err != nil {
			return err
		}

		results, err := runBatch(ctx, env.Predictor, tables.Registry, tables.History, reqs, cfg.Batch.Concurrency)
		if err != nil {
			return err
		}

		if env.Store != nil {
			if err := recordBatch(ctx, env.Store, reqs, results); err != nil {
				return err
			}
		}

		return writeBatch(cmd.OutOrStdout(), batchOutput, reqs, results)
	},
}

var batchOutputs = []string{"table", "json", "csv"}

// batchFile is the YAML batch layout; a bare list of queries is accepted too.
type batchFile struct {
	Predictions []model.PredictionRequest `yaml:"predictions"`
}

func readBatchFile(path string) ([]model.PredictionRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read batch file %s", path)
	}

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "csv":
		return parseBatchCSV(data)
	case "yaml", "yml":
		return parseBatchYAML(data)
	default:
		return nil, eris.Errorf("batch file %s: unsupported extension (want .yaml, .yml or .csv)", path)
	}
}

func parseBatchYAML(data []byte) ([]model.PredictionRequest, error) {
	var list []model.PredictionRequest
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "parse batch yaml")
	}
	return f.Predictions, nil
}

func parseBatchCSV(data []byte) ([]model.PredictionRequest, error) {
	var reqs []model.PredictionRequest
	if err := csvutil.Unmarshal(data, &reqs); err != nil {
		return nil, eris.Wrap(err, "parse batch csv")
	}
	return reqs, nil
}

// runBatch predicts every request with at most concurrency workers. Results
// keep the order of reqs.
func runBatch(
	ctx context.Context,
	p pipeline.Predictor,
	reg *model.Registry,
	hist *model.History,
	reqs []model.PredictionRequest,
	concurrency int,
) ([]model.PredictionResult, error) {
	results := make([]model.PredictionResult, len(reqs))
	if len(reqs) == 0 {
		zap.L().Info("batch: no queries")
		return results, nil
	}

	zap.L().Info("batch: processing",
		zap.Int("queries", len(reqs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	var succeeded, failed atomic.Int64
	for i, req := range reqs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Predict(reg, hist, req.DirectorQuery, req.BudgetText)
			if results[i].OK() {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch: complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results, nil
}

func recordBatch(ctx context.Context, st store.Store, reqs []model.PredictionRequest, results []model.PredictionResult) error {
	runs := make([]model.PredictionRun, len(results))
	for i := range results {
		runs[i] = store.NewRun(reqs[i], results[i])
	}
	n, err := st.RecordPredictions(ctx, runs)
	if err != nil {
		return eris.Wrap(err, "record batch")
	}
	zap.L().Info("batch: recorded", zap.Int64("runs", n))
	return nil
}

// batchRow is one flattened line of batch output.
type batchRow struct {
	Director         string `csv:"director" json:"director"`
	Budget           string `csv:"budget" json:"budget"`
	Outcome          string `csv:"outcome" json:"outcome"`
	Match            string `csv:"match" json:"match"`
	Score            string `csv:"score" json:"score"`
	PredictedRevenue string `csv:"predicted_revenue" json:"predicted_revenue"`
	Message          string `csv:"message" json:"message"`
}

func toBatchRows(reqs []model.PredictionRequest, results []model.PredictionResult) []batchRow {
	rows := make([]batchRow, len(results))
	for i, res := range results {
		row := batchRow{
			Director: reqs[i].DirectorQuery,
			Budget:   reqs[i].BudgetText,
			Outcome:  string(res.Outcome),
			Match:    res.BestCandidate,
			Message:  pipeline.Message(res),
		}
		if res.BestCandidate != "" {
			row.Score = strconv.FormatFloat(res.Score, 'f', 1, 64)
		}
		if res.OK() {
			row.PredictedRevenue = strconv.FormatFloat(res.PredictedRevenue, 'f', 2, 64)
		}
		rows[i] = row
	}
	return rows
}

func writeBatch(out io.Writer, format string, reqs []model.PredictionRequest, results []model.PredictionResult) error {
	rows := toBatchRows(reqs, results)

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "csv":
		data, err := csvutil.Marshal(rows)
		if err != nil {
			return eris.Wrap(err, "encode batch csv")
		}
		_, err = out.Write(data)
		return err
	case "table":
		tableRows := make([][]string, len(rows))
		for i, r := range rows {
			revenue := ""
			if results[i].OK() {
				revenue = estimate.FormatRevenue(results[i].PredictedRevenue)
			}
			tableRows[i] = []string{r.Director, r.Budget, r.Outcome, r.Match, r.Score, revenue}
		}
		_, err := io.WriteString(out, renderTable(
			[]string{"Director", "Budget", "Outcome", "Match", "Score", "Revenue"},
			tableRows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight},
		)+"\n")
		return err
	default:
		return eris.Errorf("unknown output %q (want table, json or csv)", format)
	}
}

func init() {
	batchCmd.Flags().StringVarP(&batchInput, "input", "i", "", "batch file (.yaml, .yml or .csv)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "table", "output format: table, json or csv")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel predictions (default from config)")
	batchCmd.Flags().BoolVar(&batchRecord, "record", false, "record every prediction in the configured store")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}
