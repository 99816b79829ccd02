package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boxoffice/internal/model"
)

func TestFilterByDirector_PreservesOrder(t *testing.T) {
	movies := []model.MovieRecord{
		{DirectorID: "1", Budget: 10, Revenue: 30},
		{DirectorID: "2", Budget: 20, Revenue: 40},
		{DirectorID: "1", Budget: 5, Revenue: 15},
		{DirectorID: "10", Budget: 7, Revenue: 9},
	}

	got := FilterByDirector(movies, "1")
	assert.Equal(t, []model.MovieRecord{
		{DirectorID: "1", Budget: 10, Revenue: 30},
		{DirectorID: "1", Budget: 5, Revenue: 15},
	}, got)
}

func TestFilterByDirector_NoMatch(t *testing.T) {
	got := FilterByDirector([]model.MovieRecord{{DirectorID: "2"}}, "1")
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = FilterByDirector(nil, "1")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterByDirector_ExactAndComplete(t *testing.T) {
	var movies []model.MovieRecord
	ids := []string{"1", "2", "3", "1", "01", "1 ", "3", "1"}
	for i, id := range ids {
		movies = append(movies, model.MovieRecord{DirectorID: id, Budget: float64(i)})
	}

	for _, want := range []string{"1", "2", "3", "01", "missing"} {
		got := FilterByDirector(movies, want)

		for _, m := range got {
			assert.Equal(t, want, m.DirectorID)
		}

		var expected int
		for _, id := range ids {
			if id == want {
				expected++
			}
		}
		assert.Len(t, got, expected, "director %q", want)
	}
}

func TestFilterByDirector_DoesNotMutateInput(t *testing.T) {
	movies := []model.MovieRecord{{DirectorID: "1", Budget: 1}, {DirectorID: "2", Budget: 2}}
	snapshot := append([]model.MovieRecord(nil), movies...)

	got := FilterByDirector(movies, "1")
	require.Len(t, got, 1)
	got[0].Budget = 99

	assert.Equal(t, snapshot, movies)
}
