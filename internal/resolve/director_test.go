package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boxoffice/internal/model"
)

func TestCandidates_DedupesAndSkipsBlank(t *testing.T) {
	reg := &model.Registry{Directors: []model.DirectorRecord{
		{ID: "1", Name: "Greta Gerwig"},
		{ID: "2", Name: ""},
		{ID: "3", Name: "Greta Gerwig"},
		{ID: "4", Name: "  "},
		{ID: "5", Name: "Ava DuVernay"},
	}}

	got := Candidates(reg)
	assert.Equal(t, []Candidate{
		{Name: "Greta Gerwig", ID: "1"},
		{Name: "Ava DuVernay", ID: "5"},
	}, got)
}

func TestCandidates_NilRegistry(t *testing.T) {
	assert.Empty(t, Candidates(nil))
}

func TestResolve_NoCandidates(t *testing.T) {
	m, ok := Resolve("Christopher Nolan", nil)
	assert.False(t, ok)
	assert.Nil(t, m)
}

func TestResolve_OnlyUnprocessableCandidates(t *testing.T) {
	m, ok := Resolve("Christopher Nolan", []Candidate{{Name: "???", ID: "1"}})
	assert.False(t, ok)
	assert.Nil(t, m)
}

func TestResolve_ExactNameScoresHundred(t *testing.T) {
	candidates := []Candidate{
		{Name: "Steven Spielberg", ID: "1"},
		{Name: "Christopher Nolan", ID: "2"},
		{Name: "Greta Gerwig", ID: "3"},
		{Name: "Nolan", ID: "4"},
	}

	for _, c := range candidates {
		t.Run(c.Name, func(t *testing.T) {
			m, ok := Resolve(c.Name, candidates)
			require.True(t, ok)
			assert.Equal(t, c.Name, m.Name)
			assert.Equal(t, c.ID, m.ID)
			assert.InDelta(t, 100.0, m.Score, 0.0001)
		})
	}
}

func TestResolve_Misspelled(t *testing.T) {
	candidates := []Candidate{
		{Name: "Steven Spielberg", ID: "1"},
		{Name: "Christopher Nolan", ID: "2"},
	}

	m, ok := Resolve("Cristopher Nolen", candidates)
	require.True(t, ok)
	assert.Equal(t, "Christopher Nolan", m.Name)
	assert.Equal(t, "2", m.ID)
	assert.InDelta(t, 90.909, m.Score, 0.01)
}

func TestResolve_ReturnsBestEvenBelowThreshold(t *testing.T) {
	m, ok := Resolve("Unknown Person", []Candidate{{Name: "Christopher Nolan", ID: "1"}})
	require.True(t, ok)
	assert.Equal(t, "Christopher Nolan", m.Name)
	assert.Less(t, m.Score, DefaultMinScore)
}

func TestResolve_EmptyQueryScoresZero(t *testing.T) {
	m, ok := Resolve("  ", []Candidate{{Name: "Christopher Nolan", ID: "1"}, {Name: "Greta Gerwig", ID: "2"}})
	require.True(t, ok)
	assert.Equal(t, "Christopher Nolan", m.Name)
	assert.Zero(t, m.Score)
}

func TestResolve_TieKeepsFirstSeen(t *testing.T) {
	// Both names process to the same string and score 100.
	a := []Candidate{{Name: "Christopher Nolan", ID: "1"}, {Name: "CHRISTOPHER NOLAN", ID: "2"}}
	m, ok := Resolve("christopher nolan", a)
	require.True(t, ok)
	assert.Equal(t, "1", m.ID)

	b := []Candidate{{Name: "CHRISTOPHER NOLAN", ID: "2"}, {Name: "Christopher Nolan", ID: "1"}}
	m, ok = Resolve("christopher nolan", b)
	require.True(t, ok)
	assert.Equal(t, "2", m.ID)
}

func TestRank(t *testing.T) {
	candidates := []Candidate{
		{Name: "Christopher Nolan", ID: "1"},
		{Name: "Steven Soderbergh", ID: "2"},
		{Name: "Steven Spielberg", ID: "3"},
	}

	got := Rank("Spielberg", candidates, 0)
	require.Len(t, got, 3)
	assert.Equal(t, "Steven Spielberg", got[0].Name)
	assert.InDelta(t, 90.0, got[0].Score, 0.01)
	assert.Equal(t, "Steven Soderbergh", got[1].Name)
	assert.Equal(t, "Christopher Nolan", got[2].Name)
	assert.InDelta(t, 40.0, got[2].Score, 0.01)

	top := Rank("Spielberg", candidates, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "3", top[0].ID)
}

func TestRank_StableOnTies(t *testing.T) {
	candidates := []Candidate{
		{Name: "Alpha", ID: "1"},
		{Name: "Bravo", ID: "2"},
	}
	got := Rank("zzzzzz", candidates, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
}
