package estimate

import "github.com/sells-group/boxoffice/internal/model"

// FilterByDirector returns the movies whose DirectorID equals directorID,
// preserving order. No match yields an empty slice, not an error.
func FilterByDirector(movies []model.MovieRecord, directorID string) []model.MovieRecord {
	out := make([]model.MovieRecord, 0)
	for _, m := range movies {
		if m.DirectorID == directorID {
			out = append(out, m)
		}
	}
	return out
}
