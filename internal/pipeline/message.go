package pipeline

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/boxoffice/internal/model"
)

// Message renders the user-facing text for a prediction result.
func Message(res model.PredictionResult) string {
	p := message.NewPrinter(language.English)

	switch res.Outcome {
	case model.OutcomeSuccess:
		return p.Sprintf("Revenue: $%.2f (Director: %s)", res.PredictedRevenue, res.DirectorName)
	case model.OutcomeDataNotLoaded:
		return "Please load both the directors and movies tables first."
	case model.OutcomeInvalidBudget:
		return "Invalid budget: enter a whole number using digits only."
	case model.OutcomeNoDirectorCandidates:
		return "The directors table has no director names."
	case model.OutcomeNoMatchFound:
		return "No match found."
	case model.OutcomeLowConfidenceMatch:
		if res.BestCandidate == "" {
			return "No close match for director."
		}
		return p.Sprintf("No close match for director %q (closest: %s, score %.1f).", res.Query, res.BestCandidate, res.Score)
	case model.OutcomeDirectorRowMissing:
		return p.Sprintf("Director %s not found in directors table.", res.DirectorName)
	case model.OutcomeNoHistoryForDirector:
		return p.Sprintf("No movies found for %s.", res.DirectorName)
	case model.OutcomeMissingColumns:
		return "Movies table is missing the 'budget' or 'revenue' column."
	case model.OutcomeFitError:
		if res.Err != nil {
			return p.Sprintf("Could not fit a revenue model for %s: %v", res.DirectorName, res.Err)
		}
		return p.Sprintf("Could not fit a revenue model for %s.", res.DirectorName)
	default:
		return p.Sprintf("Unknown outcome %q.", string(res.Outcome))
	}
}
