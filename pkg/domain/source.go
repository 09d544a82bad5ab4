package domain

import "context"

// Source is the narrow boundary to the colony data store. One call returns
// the complete specimen table at a point in time; the core builds its
// snapshot index from that and never reads incrementally. Implementations
// guarantee only that identifiers are unique within a single read.
type Source interface {
	FetchSpecimens(ctx context.Context) ([]Specimen, error)
}
