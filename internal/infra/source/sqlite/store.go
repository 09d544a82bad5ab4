// Package sqlite provides an embedded colony source for offline and
// single-machine deployments, backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // register the pure-Go sqlite driver

	"daphniacore/pkg/domain"
)

var _ domain.Source = (*Store)(nil)

const defaultPath = "./daphnia.db"

const schema = `CREATE TABLE IF NOT EXISTS broods (
	mother_id TEXT PRIMARY KEY,
	hierarchy_id TEXT,
	origin_mother_id TEXT,
	set_label TEXT,
	status TEXT,
	birth_date TEXT,
	death_date TEXT,
	n_i INTEGER,
	n_f INTEGER,
	total_broods INTEGER,
	notes TEXT,
	assigned_person TEXT
)`

const selectBroods = `SELECT mother_id, hierarchy_id, origin_mother_id, set_label, status,
	birth_date, death_date, n_i, n_f, total_broods, notes, assigned_person
FROM broods`

// Store reads the specimen table from an embedded sqlite file.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the sqlite file at path and ensures the broods
// table exists. An empty path defaults to ./daphnia.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure broods table: %w", err)
	}
	return &Store{db: db}, nil
}

// FetchSpecimens bulk-reads every brood row.
func (s *Store) FetchSpecimens(ctx context.Context) ([]domain.Specimen, error) {
	rows, err := s.db.QueryContext(ctx, selectBroods)
	if err != nil {
		return nil, fmt.Errorf("select broods: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Specimen
	for rows.Next() {
		var (
			id                             string
			hierarchy, parent, set, status sql.NullString
			birth, death, notes, assigned  sql.NullString
			nInitial, nFinal, totalBroods  sql.NullInt64
		)
		if err := rows.Scan(&id, &hierarchy, &parent, &set, &status,
			&birth, &death, &nInitial, &nFinal, &totalBroods, &notes, &assigned); err != nil {
			return nil, fmt.Errorf("scan brood row: %w", err)
		}
		out = append(out, domain.Specimen{
			ID:             id,
			HierarchyID:    hierarchy.String,
			ParentID:       parent.String,
			SetLabel:       set.String,
			Status:         status.String,
			BirthDate:      birth.String,
			DeathDate:      death.String,
			NInitial:       int(nInitial.Int64),
			NFinal:         int(nFinal.Int64),
			TotalBroods:    int(totalBroods.Int64),
			Notes:          notes.String,
			AssignedPerson: assigned.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate broods: %w", err)
	}
	return out, nil
}

// DB exposes the underlying sql.DB for seeding and tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
