package model

// MovieRecord is one row of the movie history. DirectorID is a weak
// reference to DirectorRecord.ID.
type MovieRecord struct {
	DirectorID string  `json:"director_id" csv:"director_id"`
	Budget     float64 `json:"budget" csv:"budget"`
	Revenue    float64 `json:"revenue" csv:"revenue"`
}

// HistoryColumns records which value columns the source table exposed.
type HistoryColumns struct {
	Budget  bool `json:"budget"`
	Revenue bool `json:"revenue"`
}

// Complete reports whether both budget and revenue were present.
func (c HistoryColumns) Complete() bool {
	return c.Budget && c.Revenue
}

// History is the movie table keyed by director identifier.
type History struct {
	Movies  []MovieRecord  `json:"movies"`
	Columns HistoryColumns `json:"columns"`
}
