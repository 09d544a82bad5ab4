package core

import (
	"fmt"
	"os"

	"daphniacore/internal/infra/source/memory"
	"daphniacore/internal/infra/source/postgres"
	"daphniacore/internal/infra/source/sqlite"
	"daphniacore/pkg/domain"
)

// SourceDriver identifies a concrete colony data-source implementation.
type SourceDriver string

const (
	SourceMemory   SourceDriver = "memory"   // in-memory only (tests / ephemeral)
	SourceSQLite   SourceDriver = "sqlite"   // embedded sqlite file
	SourcePostgres SourceDriver = "postgres" // PostgreSQL server
)

// OpenSource selects a data-source backend using environment variables.
// Defaults to sqlite when unset.
//
//	DAPHNIA_SOURCE_DRIVER: memory|sqlite|postgres (default sqlite)
//	DAPHNIA_SQLITE_PATH: path to sqlite file (default ./daphnia.db)
//	DAPHNIA_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenSource() (domain.Source, error) {
	driver := os.Getenv("DAPHNIA_SOURCE_DRIVER")
	if driver == "" {
		driver = string(SourceSQLite)
	}
	switch SourceDriver(driver) {
	case SourceMemory:
		return memory.NewStore(nil), nil
	case SourceSQLite:
		return sqlite.NewStore(os.Getenv("DAPHNIA_SQLITE_PATH"))
	case SourcePostgres:
		return postgres.NewStore(os.Getenv("DAPHNIA_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown source driver %s", driver)
	}
}
