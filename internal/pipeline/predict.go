// Package pipeline resolves a director and predicts revenue for a budget.
package pipeline

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/boxoffice/internal/estimate"
	"github.com/sells-group/boxoffice/internal/model"
	"github.com/sells-group/boxoffice/internal/resolve"
)

// Predictor runs the resolution and estimation guard chain. The zero value
// uses resolve.DefaultMinScore.
type Predictor struct {
	// MinScore is the lowest accepted match score (0-100).
	MinScore float64
	// Resolve overrides resolve.Resolve.
	Resolve ResolveFunc
}

// ResolveFunc picks the best candidate for a director query.
type ResolveFunc func(query string, candidates []resolve.Candidate) (*resolve.Match, bool)

// PredictRevenue runs the default Predictor.
func PredictRevenue(registry *model.Registry, history *model.History, query, budgetText string) model.PredictionResult {
	return Predictor{}.Predict(registry, history, query, budgetText)
}

// Predict resolves query against registry, fits that director's history and
// predicts revenue at the budget in budgetText. Every failure is reported as
// a classified outcome; the first failing guard wins:
//
//  1. both tables loaded
//  2. budget is digits only
//  3. registry has a non-blank name
//  4. resolver found a match
//  5. match score >= MinScore
//  6. matched name maps back to a registry row (first row wins)
//  7. director has history rows
//  8. history exposes budget and revenue
//  9. fit succeeds
//
// Neither table is modified.
func (p Predictor) Predict(registry *model.Registry, history *model.History, query, budgetText string) model.PredictionResult {
	res := p.predict(registry, history, query, budgetText)

	fields := []zap.Field{
		zap.String("outcome", string(res.Outcome)),
		zap.String("query", res.Query),
		zap.String("director", res.DirectorName),
		zap.Float64("score", res.Score),
	}
	switch {
	case res.OK():
		fields = append(fields,
			zap.Float64("budget", res.Budget),
			zap.Float64("predicted_revenue", res.PredictedRevenue),
			zap.Int("movies", res.Movies),
		)
		zap.L().Info("pipeline: revenue predicted", fields...)
	case res.Err != nil:
		zap.L().Warn("pipeline: prediction failed", append(fields, zap.Error(res.Err))...)
	default:
		zap.L().Info("pipeline: prediction rejected", fields...)
	}
	return res
}

func (p Predictor) predict(registry *model.Registry, history *model.History, query, budgetText string) model.PredictionResult {
	query = strings.TrimSpace(query)
	res := model.PredictionResult{Query: query}

	if registry == nil || history == nil {
		res.Outcome = model.OutcomeDataNotLoaded
		return res
	}

	budget, ok := ParseBudget(budgetText)
	if !ok {
		res.Outcome = model.OutcomeInvalidBudget
		return res
	}
	res.Budget = budget

	if !registry.HasNames() {
		res.Outcome = model.OutcomeNoDirectorCandidates
		return res
	}

	resolveFn := p.Resolve
	if resolveFn == nil {
		resolveFn = resolve.Resolve
	}
	match, ok := resolveFn(query, resolve.Candidates(registry))
	if !ok {
		res.Outcome = model.OutcomeNoMatchFound
		return res
	}
	res.BestCandidate = match.Name
	res.Score = match.Score

	if match.Score < p.minScore() {
		res.Outcome = model.OutcomeLowConfidenceMatch
		return res
	}
	res.DirectorName = match.Name

	row, ok := registry.FirstByName(match.Name)
	if !ok {
		res.Outcome = model.OutcomeDirectorRowMissing
		return res
	}
	res.DirectorID = row.ID

	movies := estimate.FilterByDirector(history.Movies, row.ID)
	res.Movies = len(movies)
	if len(movies) == 0 {
		res.Outcome = model.OutcomeNoHistoryForDirector
		return res
	}

	if !history.Columns.Complete() {
		res.Outcome = model.OutcomeMissingColumns
		return res
	}

	predicted, err := estimate.FitAndPredict(movies, budget)
	if err != nil {
		res.Outcome = model.OutcomeFitError
		res.Err = err
		return res
	}

	res.Outcome = model.OutcomeSuccess
	res.PredictedRevenue = predicted
	return res
}

func (p Predictor) minScore() float64 {
	if p.MinScore <= 0 {
		return resolve.DefaultMinScore
	}
	return p.MinScore
}

// ParseBudget accepts surrounding whitespace and otherwise only ASCII
// digits: no sign, decimal point or separators. Values too large for a
// finite float64 are rejected.
func ParseBudget(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
