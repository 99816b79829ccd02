package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/boxoffice/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeTables writes a two-director registry and a history where Nolan's
// films fit revenue = 2*budget + 100.
func writeTables(t *testing.T) (directors, movies string) {
	t.Helper()
	dir := t.TempDir()
	directors = writeFile(t, dir, "directors.csv", "id,director_name\n1,Christopher Nolan\n2,Steven Spielberg\n")
	movies = writeFile(t, dir, "movies.csv", "id,director_id,budget,revenue\n10,1,100,300\n11,1,200,500\n12,2,50,60\n")
	return directors, movies
}

func testTables() (*model.Registry, *model.History) {
	reg := &model.Registry{Directors: []model.DirectorRecord{
		{ID: "1", Name: "Christopher Nolan"},
		{ID: "2", Name: "Steven Spielberg"},
	}}
	hist := &model.History{
		Movies: []model.MovieRecord{
			{DirectorID: "1", Budget: 100, Revenue: 300},
			{DirectorID: "1", Budget: 200, Revenue: 500},
			{DirectorID: "2", Budget: 50, Revenue: 60},
		},
		Columns: model.HistoryColumns{Budget: true, Revenue: true},
	}
	return reg, hist
}
