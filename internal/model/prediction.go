package model

import "time"

// Outcome classifies a prediction call. OutcomeSuccess is the only
// non-failure value.
type Outcome string

const (
	OutcomeSuccess              Outcome = "success"
	OutcomeDataNotLoaded        Outcome = "data_not_loaded"
	OutcomeInvalidBudget        Outcome = "invalid_budget"
	OutcomeNoDirectorCandidates Outcome = "no_director_candidates"
	OutcomeNoMatchFound         Outcome = "no_match_found"
	OutcomeLowConfidenceMatch   Outcome = "low_confidence_match"
	OutcomeDirectorRowMissing   Outcome = "director_row_missing"
	OutcomeNoHistoryForDirector Outcome = "no_history_for_director"
	OutcomeMissingColumns       Outcome = "missing_columns"
	OutcomeFitError             Outcome = "fit_error"
)

// Outcomes lists every outcome in guard-chain order.
var Outcomes = []Outcome{
	OutcomeSuccess,
	OutcomeDataNotLoaded,
	OutcomeInvalidBudget,
	OutcomeNoDirectorCandidates,
	OutcomeNoMatchFound,
	OutcomeLowConfidenceMatch,
	OutcomeDirectorRowMissing,
	OutcomeNoHistoryForDirector,
	OutcomeMissingColumns,
	OutcomeFitError,
}

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	for _, v := range Outcomes {
		if o == v {
			return true
		}
	}
	return false
}

// IsFailure reports whether o is a failure kind.
func (o Outcome) IsFailure() bool {
	return o != OutcomeSuccess
}

// PredictionRequest is the raw user input for one prediction.
type PredictionRequest struct {
	DirectorQuery string `json:"director" yaml:"director" csv:"director"`
	BudgetText    string `json:"budget" yaml:"budget" csv:"budget"`
}

// PredictionResult is the tagged result of one prediction. Fields beyond
// Outcome are populated as far as the pipeline got before stopping.
type PredictionResult struct {
	Outcome          Outcome `json:"outcome"`
	Query            string  `json:"query"`
	Budget           float64 `json:"budget,omitempty"`
	PredictedRevenue float64 `json:"predicted_revenue,omitempty"`
	DirectorName     string  `json:"director_name,omitempty"`
	DirectorID       string  `json:"director_id,omitempty"`
	BestCandidate    string  `json:"best_candidate,omitempty"`
	Score            float64 `json:"score"`
	Movies           int     `json:"movies,omitempty"`
	Err              error   `json:"-"`
}

// OK reports whether the prediction succeeded.
func (r PredictionResult) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// PredictionRun is a recorded prediction call.
type PredictionRun struct {
	ID               string    `json:"id"`
	DirectorQuery    string    `json:"director_query"`
	BudgetText       string    `json:"budget_text"`
	Outcome          Outcome   `json:"outcome"`
	DirectorName     string    `json:"director_name,omitempty"`
	DirectorID       string    `json:"director_id,omitempty"`
	Score            float64   `json:"score"`
	PredictedRevenue *float64  `json:"predicted_revenue,omitempty"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
