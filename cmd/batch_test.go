package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boxoffice/internal/model"
	"github.com/sells-group/boxoffice/internal/pipeline"
	"github.com/sells-group/boxoffice/internal/store"
)

func TestReadBatchFile_YAMLList(t *testing.T) {
	path := writeFile(t, t.TempDir(), "q.yaml", `
- director: Christopher Nolan
  budget: "150"
- director: spielberg
  budget: "75"
`)
	reqs, err := readBatchFile(path)
	require.NoError(t, err)
	assert.Equal(t, []model.PredictionRequest{
		{DirectorQuery: "Christopher Nolan", BudgetText: "150"},
		{DirectorQuery: "spielberg", BudgetText: "75"},
	}, reqs)
}

func TestReadBatchFile_YAMLMapping(t *testing.T) {
	path := writeFile(t, t.TempDir(), "q.yml", `
predictions:
  - director: Nolan
    budget: 150
`)
	reqs, err := readBatchFile(path)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "Nolan", reqs[0].DirectorQuery)
	assert.Equal(t, "150", reqs[0].BudgetText)
}

func TestReadBatchFile_CSV(t *testing.T) {
	path := writeFile(t, t.TempDir(), "q.csv", "director,budget\nChristopher Nolan,150\nNobody,abc\n")
	reqs, err := readBatchFile(path)
	require.NoError(t, err)
	assert.Equal(t, []model.PredictionRequest{
		{DirectorQuery: "Christopher Nolan", BudgetText: "150"},
		{DirectorQuery: "Nobody", BudgetText: "abc"},
	}, reqs)
}

func TestReadBatchFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := readBatchFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read batch file")

	_, err = readBatchFile(writeFile(t, dir, "q.json", "[]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")

	_, err = readBatchFile(writeFile(t, dir, "bad.yaml", "predictions: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse batch yaml")
}

func TestRunBatch_PreservesOrder(t *testing.T) {
	reg, hist := testTables()
	reqs := []model.PredictionRequest{
		{DirectorQuery: "Christopher Nolan", BudgetText: "150"},
		{DirectorQuery: "Christopher Nolan", BudgetText: "abc"},
		{DirectorQuery: "Steven Spielberg", BudgetText: "50"},
		{DirectorQuery: "Cristopher Nolen", BudgetText: "300"},
	}

	results, err := runBatch(context.Background(), pipeline.Predictor{}, reg, hist, reqs, 2)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, model.OutcomeSuccess, results[0].Outcome)
	assert.InDelta(t, 400.0, results[0].PredictedRevenue, 1e-9)
	assert.Equal(t, model.OutcomeInvalidBudget, results[1].Outcome)
	// Single-movie history is degenerate: the fit predicts mean revenue.
	assert.Equal(t, model.OutcomeSuccess, results[2].Outcome)
	assert.InDelta(t, 60.0, results[2].PredictedRevenue, 1e-9)
	assert.Equal(t, model.OutcomeSuccess, results[3].Outcome)
	assert.InDelta(t, 700.0, results[3].PredictedRevenue, 1e-9)
}

func TestRunBatch_Empty(t *testing.T) {
	results, err := runBatch(context.Background(), pipeline.Predictor{}, nil, nil, nil, 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunBatch_Cancelled(t *testing.T) {
	reg, hist := testTables()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runBatch(ctx, pipeline.Predictor{}, reg, hist, []model.PredictionRequest{{DirectorQuery: "Nolan", BudgetText: "1"}}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch processing")
}

func TestRecordBatch(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	reg, hist := testTables()
	reqs := []model.PredictionRequest{
		{DirectorQuery: "Christopher Nolan", BudgetText: "150"},
		{DirectorQuery: "Christopher Nolan", BudgetText: "-1"},
	}
	results, err := runBatch(context.Background(), pipeline.Predictor{}, reg, hist, reqs, 2)
	require.NoError(t, err)

	require.NoError(t, recordBatch(context.Background(), st, reqs, results))

	runs, err := st.ListPredictions(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	failed, err := st.ListPredictions(context.Background(), store.RunFilter{Outcome: model.OutcomeInvalidBudget})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Nil(t, failed[0].PredictedRevenue)
}

func batchFixture() ([]model.PredictionRequest, []model.PredictionResult) {
	reqs := []model.PredictionRequest{
		{DirectorQuery: "nolan", BudgetText: "150"},
		{DirectorQuery: "nobody", BudgetText: "10"},
	}
	results := []model.PredictionResult{
		{Outcome: model.OutcomeSuccess, DirectorName: "Christopher Nolan", BestCandidate: "Christopher Nolan", Score: 90, PredictedRevenue: 400},
		{Outcome: model.OutcomeLowConfidenceMatch, Query: "nobody", BestCandidate: "Christopher Nolan", Score: 33.3},
	}
	return reqs, results
}

func TestWriteBatch_JSON(t *testing.T) {
	reqs, results := batchFixture()

	var buf bytes.Buffer
	require.NoError(t, writeBatch(&buf, "json", reqs, results))

	var rows []batchRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "success", rows[0].Outcome)
	assert.Equal(t, "400.00", rows[0].PredictedRevenue)
	assert.Equal(t, "90.0", rows[0].Score)
	assert.Equal(t, "low_confidence_match", rows[1].Outcome)
	assert.Empty(t, rows[1].PredictedRevenue)
	assert.Contains(t, rows[1].Message, "closest: Christopher Nolan")
}

func TestWriteBatch_CSV(t *testing.T) {
	reqs, results := batchFixture()

	var buf bytes.Buffer
	require.NoError(t, writeBatch(&buf, "csv", reqs, results))

	out := buf.String()
	assert.Contains(t, out, "director,budget,outcome,match,score,predicted_revenue,message\n")
	assert.Contains(t, out, "nolan,150,success,Christopher Nolan,90.0,400.00,")
}

func TestWriteBatch_Table(t *testing.T) {
	reqs, results := batchFixture()

	var buf bytes.Buffer
	require.NoError(t, writeBatch(&buf, "table", reqs, results))

	out := buf.String()
	assert.Contains(t, out, "Director")
	assert.Contains(t, out, "Revenue")
	assert.Contains(t, out, "$400")
	assert.Contains(t, out, "low_confidence_match")
}

func TestWriteBatch_UnknownFormat(t *testing.T) {
	err := writeBatch(&bytes.Buffer{}, "xml", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output")
}

func TestBatchCommand_EndToEnd(t *testing.T) {
	directors, movies := writeTables(t)
	input := writeFile(t, t.TempDir(), "q.yaml", "- director: Cristopher Nolen\n  budget: \"150\"\n")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"batch", "--directors", directors, "--movies", movies, "--input", input, "--output", "json"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var rows []batchRow
	require.NoError(t, json.Unmarshal(out.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "success", rows[0].Outcome)
	assert.Equal(t, "Christopher Nolan", rows[0].Match)
	assert.Equal(t, "400.00", rows[0].PredictedRevenue)
}

func TestBatchCommand_UnknownOutputRejectedBeforeRecording(t *testing.T) {
	directors, movies := writeTables(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "q.yaml", "- director: Christopher Nolan\n  budget: \"150\"\n")
	dbPath := filepath.Join(dir, "runs.db")

	t.Setenv("BOXOFFICE_STORE_DRIVER", "sqlite")
	t.Setenv("BOXOFFICE_STORE_DATABASE_URL", dbPath)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"batch", "--directors", directors, "--movies", movies,
		"--input", input, "--output", "xml", "--record"})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		batchRecord = false
		batchOutput = "table"
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output "xml"`)
	assert.Empty(t, out.String())
	assert.NoFileExists(t, dbPath)
}
