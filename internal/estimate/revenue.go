// Package estimate fits per-director revenue models from movie history.
package estimate

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/boxoffice/internal/model"
)

var (
	// ErrNoMovies is returned when a fit is attempted on an empty history.
	ErrNoMovies = eris.New("estimate: no movies to fit")
	// ErrMalformedInput is returned when budgets, revenues or the fitted
	// coefficients are not finite.
	ErrMalformedInput = eris.New("estimate: non-finite value in fit")
)

// Line is an ordinary least-squares fit of revenue on budget.
type Line struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
	N         int     `json:"n"`
	// Degenerate is set when every budget is identical, which includes n=1.
	// The line is then flat at the mean revenue.
	Degenerate bool `json:"degenerate"`
}

// Predict evaluates the line at budget.
func (l Line) Predict(budget float64) float64 {
	return l.Intercept + l.Slope*budget
}

// Fit regresses revenue on budget with an intercept term.
//
// Zero budget variance leaves the least-squares slope undefined; the fit
// then uses slope 0 and intercept mean(revenue), so a single movie predicts
// its own revenue at any budget.
func Fit(movies []model.MovieRecord) (Line, error) {
	if len(movies) == 0 {
		return Line{}, ErrNoMovies
	}

	budgets := make([]float64, len(movies))
	revenues := make([]float64, len(movies))
	constant := true
	for i, m := range movies {
		if !finite(m.Budget) || !finite(m.Revenue) {
			return Line{}, eris.Wrapf(ErrMalformedInput, "movie %d: budget=%v revenue=%v", i, m.Budget, m.Revenue)
		}
		budgets[i] = m.Budget
		revenues[i] = m.Revenue
		if m.Budget != movies[0].Budget {
			constant = false
		}
	}

	var line Line
	if constant {
		line = Line{Intercept: stat.Mean(revenues, nil), N: len(movies), Degenerate: true}
	} else {
		alpha, beta := stat.LinearRegression(budgets, revenues, nil, false)
		line = Line{Intercept: alpha, Slope: beta, N: len(movies)}
	}

	if !finite(line.Intercept) || !finite(line.Slope) {
		return Line{}, eris.Wrapf(ErrMalformedInput, "fitted intercept=%v slope=%v", line.Intercept, line.Slope)
	}
	return line, nil
}

// FitAndPredict fits movies and evaluates the line at budget.
func FitAndPredict(movies []model.MovieRecord, budget float64) (float64, error) {
	line, err := Fit(movies)
	if err != nil {
		return 0, err
	}

	predicted := line.Predict(budget)
	if !finite(predicted) {
		return 0, eris.Wrapf(ErrMalformedInput, "prediction at budget %v", budget)
	}

	zap.L().Debug("estimate: revenue predicted",
		zap.Int("movies", line.N),
		zap.Float64("intercept", line.Intercept),
		zap.Float64("slope", line.Slope),
		zap.Bool("degenerate", line.Degenerate),
		zap.Float64("budget", budget),
		zap.Float64("predicted_revenue", predicted),
	)
	return predicted, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatRevenue formats a revenue amount in compact human-readable form.
func FormatRevenue(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	switch {
	case amount >= 1_000_000_000:
		return fmt.Sprintf("%s$%.1fB", sign, amount/1_000_000_000)
	case amount >= 1_000_000:
		return fmt.Sprintf("%s$%.1fM", sign, amount/1_000_000)
	case amount >= 1_000:
		return fmt.Sprintf("%s$%.0fK", sign, amount/1_000)
	default:
		return fmt.Sprintf("%s$%.0f", sign, amount)
	}
}
