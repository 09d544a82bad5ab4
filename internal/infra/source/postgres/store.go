// Package postgres provides a Postgres-backed colony source reading the
// production broods table through the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"daphniacore/pkg/domain"
)

var _ domain.Source = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN matches the OpenSource factory defaults; real deployments
	// override through DAPHNIA_POSTGRES_DSN.
	defaultDSN = "postgres://localhost/daphnia?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

const selectBroods = `SELECT mother_id, hierarchy_id, origin_mother_id, set_label, status,
	birth_date, death_date, n_i, n_f, total_broods, notes, assigned_person
FROM broods`

// Store reads the specimen table from Postgres. It is read-only: schema and
// writes belong to the ETL pipeline.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed source using the provided DSN (falls back
// to defaultDSN) and verifies connectivity.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
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
		spec, err := scanSpecimen(rows)
		if err != nil {
			return nil, fmt.Errorf("scan brood row: %w", err)
		}
		out = append(out, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate broods: %w", err)
	}
	return out, nil
}

func scanSpecimen(rows *sql.Rows) (domain.Specimen, error) {
	var (
		id                             string
		hierarchy, parent, set, status sql.NullString
		birth, death, notes, assigned  sql.NullString
		nInitial, nFinal, totalBroods  sql.NullInt64
	)
	if err := rows.Scan(&id, &hierarchy, &parent, &set, &status,
		&birth, &death, &nInitial, &nFinal, &totalBroods, &notes, &assigned); err != nil {
		return domain.Specimen{}, err
	}
	return domain.Specimen{
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
	}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }
