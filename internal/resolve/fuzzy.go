package resolve

import (
	"slices"
	"strings"

	"github.com/agext/levenshtein"
)

// Scaling factors applied by WRatio to the token and partial scorers.
const (
	unbaseScale      = 0.95
	partialScale     = 0.9
	longPartialScale = 0.6
	shortLenRatio    = 1.5
	longLenRatio     = 8.0
)

// indelParams prices a substitution as a deletion plus an insertion, which
// turns the Levenshtein distance into the indel distance the ratios use.
var indelParams = levenshtein.NewParams().SubCost(2)

// Ratio returns the normalized indel similarity of a and b in [0, 100].
// Two empty strings are identical (100).
func Ratio(a, b string) float64 {
	total := len([]rune(a)) + len([]rune(b))
	if total == 0 {
		return 100
	}
	dist := levenshtein.Distance(a, b, indelParams)
	return 100 * (1 - float64(dist)/float64(total))
}

// PartialRatio returns the best Ratio of the shorter string against every
// alignment of the same length in the longer one, including the partial
// windows that hang off either end.
func PartialRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		if len(ra) == len(rb) {
			return 100
		}
		return 0
	}
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	best := bestWindow(ra, rb)
	if len(ra) == len(rb) {
		best = max(best, bestWindow(rb, ra))
	}
	return best
}

func bestWindow(short, long []rune) float64 {
	needle := string(short)
	ls, ll := len(short), len(long)

	var best float64
	consider := func(w []rune) bool {
		best = max(best, Ratio(needle, string(w)))
		return best == 100
	}

	for i := 1; i < ls; i++ {
		if consider(long[:i]) {
			return best
		}
	}
	for i := 0; i+ls <= ll; i++ {
		if consider(long[i : i+ls]) {
			return best
		}
	}
	for i := ll - ls + 1; i < ll; i++ {
		if consider(long[i:]) {
			return best
		}
	}
	return best
}

// TokenSortRatio compares the strings after sorting their whitespace tokens.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedJoin(strings.Fields(a)), sortedJoin(strings.Fields(b)))
}

// TokenSetRatio compares the shared tokens against each side's remainder.
// When one side's token set contains the other's, the score is 100.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var sect, diffAB, diffBA []string
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			sect = append(sect, tok)
		} else {
			diffAB = append(diffAB, tok)
		}
	}
	for tok := range tb {
		if _, ok := ta[tok]; !ok {
			diffBA = append(diffBA, tok)
		}
	}

	if len(sect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	s := sortedJoin(sect)
	sab := joinNonEmpty(s, sortedJoin(diffAB))
	sba := joinNonEmpty(s, sortedJoin(diffBA))

	score := Ratio(sab, sba)
	if s != "" {
		score = max(score, Ratio(s, sab), Ratio(s, sba))
	}
	return score
}

// PartialTokenRatio is 100 when the strings share any token; otherwise it
// is the PartialRatio of the sorted token lists.
func PartialTokenRatio(a, b string) float64 {
	fa, fb := strings.Fields(a), strings.Fields(b)
	if len(fa) == 0 || len(fb) == 0 {
		return 0
	}

	ta, tb := tokenSet(a), tokenSet(b)
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			return 100
		}
	}

	return max(
		PartialRatio(sortedJoin(fa), sortedJoin(fb)),
		PartialRatio(sortedJoin(setKeys(ta)), sortedJoin(setKeys(tb))),
	)
}

// WRatio is the weighted ratio of two names after Process. It picks the
// scorer family by the length ratio of the processed strings:
//   - under 1.5: max(Ratio, token ratios * 0.95)
//   - otherwise: partial scorers scaled by 0.9 (0.6 beyond a ratio of 8)
//
// Either side processing to empty scores 0.
func WRatio(query, choice string) float64 {
	a, b := Process(query), Process(choice)
	if a == "" || b == "" {
		return 0
	}
	return wratio(a, b)
}

func wratio(a, b string) float64 {
	la, lb := float64(len([]rune(a))), float64(len([]rune(b)))
	lenRatio := max(la, lb) / min(la, lb)

	score := Ratio(a, b)
	if lenRatio < shortLenRatio {
		tokens := max(TokenSortRatio(a, b), TokenSetRatio(a, b))
		return max(score, tokens*unbaseScale)
	}

	scale := partialScale
	if lenRatio >= longLenRatio {
		scale = longPartialScale
	}
	score = max(score, PartialRatio(a, b)*scale)
	return max(score, PartialTokenRatio(a, b)*unbaseScale*scale)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

func setKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	return keys
}

func sortedJoin(tokens []string) string {
	sorted := slices.Clone(tokens)
	slices.Sort(sorted)
	return strings.Join(sorted, " ")
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
