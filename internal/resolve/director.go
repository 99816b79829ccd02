package resolve

import (
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/boxoffice/internal/model"
)

// DefaultMinScore is the lowest WRatio score the pipeline accepts as a
// usable director match. Resolve itself never applies it.
const DefaultMinScore = 60.0

// Candidate is a registry name eligible for matching.
type Candidate struct {
	Name string
	ID   string
}

// Match is a scored candidate.
type Match struct {
	Name  string  `json:"name"`
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Candidates builds the distinct, non-blank names of a registry in row
// order. A name that appears on several rows keeps the first row's ID.
func Candidates(reg *model.Registry) []Candidate {
	if reg == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(reg.Directors))
	out := make([]Candidate, 0, len(reg.Directors))
	for _, d := range reg.Directors {
		if strings.TrimSpace(d.Name) == "" {
			continue
		}
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		out = append(out, Candidate{Name: d.Name, ID: d.ID})
	}
	return out
}

// Resolve returns the highest scoring candidate for query, or false when
// there is nothing to score against. Exact ties keep the first-seen
// candidate. Candidates whose processed name is empty are skipped.
func Resolve(query string, candidates []Candidate) (*Match, bool) {
	q := Process(query)

	var best *Match
	for _, c := range candidates {
		name := Process(c.Name)
		if name == "" {
			continue
		}
		var score float64
		if q != "" {
			score = wratio(q, name)
		}
		if best == nil || score > best.Score {
			best = &Match{Name: c.Name, ID: c.ID, Score: score}
		}
	}

	if best == nil {
		return nil, false
	}

	zap.L().Debug("resolve: best director match",
		zap.String("query", query),
		zap.String("match", best.Name),
		zap.Float64("score", best.Score),
		zap.Int("candidates", len(candidates)),
	)
	return best, true
}

// Rank scores every candidate and returns up to limit matches ordered by
// descending score, first-seen order breaking ties. limit <= 0 returns all.
func Rank(query string, candidates []Candidate, limit int) []Match {
	q := Process(query)

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		name := Process(c.Name)
		if name == "" {
			continue
		}
		var score float64
		if q != "" {
			score = wratio(q, name)
		}
		matches = append(matches, Match{Name: c.Name, ID: c.ID, Score: score})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
