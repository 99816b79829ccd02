package model

import "strings"

// DirectorRecord is one row of the director registry.
type DirectorRecord struct {
	ID   string `json:"id" csv:"id"`
	Name string `json:"director_name" csv:"director_name"`
}

// Registry is the director lookup table. Names are not unique; IDs are
// assumed unique per row but never validated.
type Registry struct {
	Directors []DirectorRecord `json:"directors"`
}

// HasNames reports whether at least one row carries a non-blank name.
func (r *Registry) HasNames() bool {
	if r == nil {
		return false
	}
	for _, d := range r.Directors {
		if strings.TrimSpace(d.Name) != "" {
			return true
		}
	}
	return false
}

// FirstByName returns the first row whose name equals name exactly.
func (r *Registry) FirstByName(name string) (DirectorRecord, bool) {
	if r == nil {
		return DirectorRecord{}, false
	}
	for _, d := range r.Directors {
		if d.Name == name {
			return d, true
		}
	}
	return DirectorRecord{}, false
}
