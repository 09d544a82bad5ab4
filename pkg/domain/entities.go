// Package domain defines the core value types, identifier codec, and
// collaborator interfaces used by daphniacore.
package domain

import "strings"

// Specimen is one row of the colony table ("mother" record). Rows are
// produced by the ETL pipeline, immutable within a snapshot, and superseded
// wholesale by the next snapshot. Date fields are kept as free-form lab text
// on purpose: historical entries do not follow a single format.
type Specimen struct {
	// ID is the full identifier string, unique within one bulk read,
	// e.g. "E.1.3_0712".
	ID string `json:"id"`
	// HierarchyID is the upstream spreadsheet's own lineage key, carried
	// through untouched.
	HierarchyID string `json:"hierarchy_id,omitempty"`
	// ParentID is the full identifier of the origin mother, empty for
	// founders imported without ancestry.
	ParentID string `json:"parent_id,omitempty"`
	// SetLabel is the experimental set / family label, e.g. "E".
	SetLabel string `json:"set_label,omitempty"`
	// Status is free-form status text ("alive", "dead", "discarded", ...).
	Status string `json:"status,omitempty"`
	// BirthDate and DeathDate are lab-entered date text, possibly blank.
	BirthDate string `json:"birth_date,omitempty"`
	DeathDate string `json:"death_date,omitempty"`
	// NInitial and NFinal are the counted individuals at brood start/end.
	NInitial int `json:"n_initial,omitempty"`
	NFinal   int `json:"n_final,omitempty"`
	// TotalBroods is the number of broods this mother has produced.
	TotalBroods int    `json:"total_broods,omitempty"`
	Notes       string `json:"notes,omitempty"`
	// AssignedPerson is the lab member responsible for this specimen.
	AssignedPerson string `json:"assigned_person,omitempty"`
}

// deadStatuses are the status words that mark a specimen as not alive.
var deadStatuses = map[string]struct{}{
	"dead":     {},
	"deceased": {},
	"died":     {},
}

// Alive reports whether the specimen counts as alive: its status,
// case-insensitively trimmed, is none of dead/deceased/died (empty status
// counts as alive) and its death date is blank.
func (s Specimen) Alive() bool {
	status := strings.ToLower(strings.TrimSpace(s.Status))
	if _, dead := deadStatuses[status]; dead {
		return false
	}
	return strings.TrimSpace(s.DeathDate) == ""
}
