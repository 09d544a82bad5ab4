package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"daphniacore/internal/blob"
	"daphniacore/pkg/domain"
)

// SnapshotArchive is the serialized audit form of one daily snapshot.
type SnapshotArchive struct {
	DayKey        string            `json:"day_key"`
	BuiltAt       time.Time         `json:"built_at"`
	SpecimenCount int               `json:"specimen_count"`
	Specimens     []domain.Specimen `json:"specimens"`
}

// SnapshotArchiver writes rebuilt snapshots to a blob store, one object per
// cache day, giving the colony a daily audit trail of the table the decision
// engine saw.
type SnapshotArchiver struct {
	store  blob.Store
	prefix string
}

// NewSnapshotArchiver constructs an archiver writing under prefix
// ("snapshots" when empty).
func NewSnapshotArchiver(store blob.Store, prefix string) *SnapshotArchiver {
	if prefix == "" {
		prefix = "snapshots"
	}
	return &SnapshotArchiver{store: store, prefix: prefix}
}

// Key returns the object key used for the given day.
func (a *SnapshotArchiver) Key(dayKey string) string {
	return fmt.Sprintf("%s/%s.json", a.prefix, dayKey)
}

// Archive serializes the snapshot and stores it under the day's key,
// replacing any earlier archive for the same day.
func (a *SnapshotArchiver) Archive(ctx context.Context, dayKey string, snap *Snapshot) (blob.Info, error) {
	archive := SnapshotArchive{
		DayKey:        dayKey,
		BuiltAt:       snap.BuiltAt(),
		SpecimenCount: snap.Len(),
		Specimens:     snap.Specimens(),
	}
	payload, err := json.Marshal(archive)
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive snapshot %s: %w", dayKey, err)
	}
	info, err := a.store.Put(ctx, a.Key(dayKey), bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"day_key": dayKey},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive snapshot %s: %w", dayKey, err)
	}
	return info, nil
}

// Load reads back the archive stored for the given day.
func (a *SnapshotArchiver) Load(ctx context.Context, dayKey string) (SnapshotArchive, error) {
	_, rc, err := a.store.Get(ctx, a.Key(dayKey))
	if err != nil {
		return SnapshotArchive{}, err
	}
	defer func() { _ = rc.Close() }()
	var archive SnapshotArchive
	if err := json.NewDecoder(rc).Decode(&archive); err != nil {
		return SnapshotArchive{}, fmt.Errorf("decode snapshot archive %s: %w", dayKey, err)
	}
	return archive, nil
}
