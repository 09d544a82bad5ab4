// Package core implements the lineage snapshot index, the brood decision
// engine, and the daily-cached service facade over a colony data source.
package core

import (
	"sort"
	"strings"
	"time"

	"daphniacore/pkg/domain"
)

// Snapshot is a read-only lineage index over one bulk read of the specimen
// table. It is a pure function of the input rows: built in a single pass,
// never mutated afterwards, and safe for concurrent readers. A refresh
// produces a whole new Snapshot; there is no partial update path.
type Snapshot struct {
	builtAt time.Time

	byID                  map[string]domain.Specimen
	childrenOf            map[string][]string
	latestByCore          map[string]latestEntry
	suffixIndex           map[string]map[string]string
	maxGenerationByFamily map[string]int
}

type latestEntry struct {
	rank int
	id   string
}

// BuildSnapshot indexes the given rows. Rows whose core does not parse are
// kept reachable through the identifier and adjacency maps but excluded from
// the core-keyed maps: lineage links must survive legacy identifiers that no
// longer normalize, while code suggestion only ever needs clean cores.
func BuildSnapshot(rows []domain.Specimen) *Snapshot {
	s := &Snapshot{
		builtAt:               time.Now().UTC(),
		byID:                  make(map[string]domain.Specimen, len(rows)),
		childrenOf:            make(map[string][]string),
		latestByCore:          make(map[string]latestEntry),
		suffixIndex:           make(map[string]map[string]string),
		maxGenerationByFamily: make(map[string]int),
	}

	for _, row := range rows {
		s.byID[row.ID] = row
		if row.ParentID != "" {
			s.childrenOf[row.ParentID] = append(s.childrenOf[row.ParentID], row.ID)
		}

		core, err := domain.ParseCore(row.ID)
		if err != nil {
			continue
		}
		key := core.String()
		_, suffix := domain.SplitIdentifier(row.ID)

		bucket := s.suffixIndex[key]
		if bucket == nil {
			bucket = make(map[string]string)
			s.suffixIndex[key] = bucket
		}
		bucket[suffix] = row.ID

		rank := domain.SuffixRank(suffix)
		if best, ok := s.latestByCore[key]; !ok || rank > best.rank {
			s.latestByCore[key] = latestEntry{rank: rank, id: row.ID}
		}

		if core.IsFounder() {
			if core.Generation > s.maxGenerationByFamily[core.Family] {
				s.maxGenerationByFamily[core.Family] = core.Generation
			}
		}
	}
	return s
}

// BuiltAt reports when the snapshot was constructed.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Len returns the number of indexed specimens.
func (s *Snapshot) Len() int { return len(s.byID) }

// Find returns the specimen stored under the exact identifier.
func (s *Snapshot) Find(id string) (domain.Specimen, bool) {
	row, ok := s.byID[id]
	return row, ok
}

// ChildrenOf returns the identifiers recorded as children of the given full
// identifier, in table order. The returned slice is a copy.
func (s *Snapshot) ChildrenOf(fullID string) []string {
	kids := s.childrenOf[fullID]
	if len(kids) == 0 {
		return nil
	}
	out := make([]string, len(kids))
	copy(out, kids)
	return out
}

// LatestByCore returns the full identifier carrying the numerically greatest
// suffix for the given core.
func (s *Snapshot) LatestByCore(core domain.CanonicalCore) (string, bool) {
	best, ok := s.latestByCore[core.String()]
	return best.id, ok
}

// MaxGeneration returns the greatest top-level generation observed for the
// family among pure FAMILY.generation identifiers. Unseen families report 1:
// every set implicitly starts at its first founder generation.
func (s *Snapshot) MaxGeneration(family string) int {
	if g, ok := s.maxGenerationByFamily[family]; ok {
		return g
	}
	return 1
}

// AliveCount scans the snapshot and counts alive specimens whose set label
// matches the family, case-insensitively. This is a live scan by design: the
// count feeds a policy decision and must reflect exactly the rows in hand.
func (s *Snapshot) AliveCount(family string) int {
	n := 0
	for _, row := range s.byID {
		if strings.EqualFold(row.SetLabel, family) && row.Alive() {
			n++
		}
	}
	return n
}

// Specimens returns all indexed rows ordered by identifier.
func (s *Snapshot) Specimens() []domain.Specimen {
	out := make([]domain.Specimen, 0, len(s.byID))
	for _, row := range s.byID {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve maps free-form user input to a concrete specimen row and its full
// identifier. Input carrying a suffix is matched against the canonical
// suffix index first and then, as a fallback, against the raw identifier
// itself: historical data contains fully-typed identifiers that never fit
// the canonical suffix scheme. Bare cores resolve to the latest suffix.
// Blank or unparseable input resolves to NotFoundError; for unparseable
// input the wrapped error is the codec's MalformedIdentifierError.
func (s *Snapshot) Resolve(input string) (domain.Specimen, string, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return domain.Specimen{}, "", domain.NotFoundError{Input: input}
	}

	core, err := domain.ParseCore(raw)
	if err != nil {
		return domain.Specimen{}, "", domain.NotFoundError{Input: raw, Err: err}
	}

	var fullID string
	if strings.Contains(raw, "_") {
		_, suffix := domain.SplitIdentifier(raw)
		fullID = s.suffixIndex[core.String()][suffix]
		if fullID == "" {
			if _, ok := s.byID[raw]; ok {
				fullID = raw
			}
		}
	} else {
		if best, ok := s.latestByCore[core.String()]; ok {
			fullID = best.id
		}
	}
	if fullID == "" {
		return domain.Specimen{}, "", domain.NotFoundError{Input: raw}
	}

	row, ok := s.byID[fullID]
	if !ok {
		return domain.Specimen{}, "", domain.NotFoundError{Input: raw}
	}
	return row, fullID, nil
}
