package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice/internal/dataset"
	"github.com/sells-group/boxoffice/internal/estimate"
	"github.com/sells-group/boxoffice/internal/model"
	"github.com/sells-group/boxoffice/internal/pipeline"
)

var (
	predictDirector string
	predictBudget   string
	predictOutput   string
	predictRecord   bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict revenue for a director and budget",
	Example: `  boxoffice predict --director "Christopher Nolan" --budget 150000000
  boxoffice predict --director "nolan" --budget 150000000 --output json --record`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("predict"); err != nil {
			return err
		}
		if predictOutput != "text" && predictOutput != "json" {
			return eris.Errorf("unknown output %q (want text or json)", predictOutput)
		}
		cmd.SilenceUsage = true
		ctx := cmd.Context()

		env, err := newEnv(ctx, cfg, predictRecord)
		if err != nil {
			return err
		}
		defer env.Close()

		tables, err := env.loadTables(ctx, cfg)
		if err != nil {
			// Prediction still runs and reports data_not_loaded.
			zap.L().Error("load tables", zap.Error(err))
			tables = &dataset.Tables{}
		}

		req := model.PredictionRequest{DirectorQuery: predictDirector, BudgetText: predictBudget}
		res := env.Predictor.Predict(tables.Registry, tables.History, req.DirectorQuery, req.BudgetText)

		var runID string
		if env.Store != nil {
			run, err := env.Store.RecordPrediction(ctx, req, res)
			if err != nil {
				return eris.Wrap(err, "record prediction")
			}
			runID = run.ID
		}

		if err := writePrediction(cmd.OutOrStdout(), predictOutput, res, runID); err != nil {
			return err
		}
		if !res.OK() {
			return eris.Errorf("prediction failed: %s", res.Outcome)
		}
		return nil
	},
}

func writePrediction(out io.Writer, format string, res model.PredictionResult, runID string) error {
	if format == "json" {
		payload := struct {
			model.PredictionResult
			Message string `json:"message"`
			Error   string `json:"error,omitempty"`
			RunID   string `json:"run_id,omitempty"`
		}{PredictionResult: res, Message: pipeline.Message(res), RunID: runID}
		if res.Err != nil {
			payload.Error = res.Err.Error()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	_, _ = fmt.Fprintln(out, pipeline.Message(res))
	if res.OK() {
		_, _ = fmt.Fprintf(out, "Matched %q (score %.1f) from %d movies; predicted %s\n",
			res.DirectorName, res.Score, res.Movies, estimate.FormatRevenue(res.PredictedRevenue))
	}
	if runID != "" {
		_, _ = fmt.Fprintf(out, "Recorded run %s\n", runID)
	}
	return nil
}

func init() {
	predictCmd.Flags().StringVar(&predictDirector, "director", "", "director name to match")
	predictCmd.Flags().StringVar(&predictBudget, "budget", "", "budget as a whole number of digits")
	predictCmd.Flags().StringVarP(&predictOutput, "output", "o", "text", "output format: text or json")
	predictCmd.Flags().BoolVar(&predictRecord, "record", false, "record the prediction in the configured store")
	_ = predictCmd.MarkFlagRequired("director")
	_ = predictCmd.MarkFlagRequired("budget")
	rootCmd.AddCommand(predictCmd)
}
