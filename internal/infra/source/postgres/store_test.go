package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"testing"
)

// stubDriver serves canned brood rows through database/sql, standing in for a
// live Postgres during tests.
type stubDriver struct {
	mu   sync.Mutex
	rows [][]driver.Value
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &stubConn{rows: d.rows}, nil
}

type stubConn struct {
	rows [][]driver.Value
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepare unsupported")
}
func (c *stubConn) Close() error              { return nil }
func (c *stubConn) Begin() (driver.Tx, error) { return nil, errors.New("stub: tx unsupported") }
func (c *stubConn) Ping(context.Context) error { return nil }

func (c *stubConn) QueryContext(_ context.Context, _ string, _ []driver.NamedValue) (driver.Rows, error) {
	cloned := make([][]driver.Value, len(c.rows))
	copy(cloned, c.rows)
	return &stubRows{rows: cloned}, nil
}

type stubRows struct {
	rows [][]driver.Value
	pos  int
}

func (r *stubRows) Columns() []string {
	return []string{"mother_id", "hierarchy_id", "origin_mother_id", "set_label", "status",
		"birth_date", "death_date", "n_i", "n_f", "total_broods", "notes", "assigned_person"}
}

func (r *stubRows) Close() error { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

var registerOnce sync.Once

var stub = &stubDriver{}

func overrideOpen(t *testing.T, rows [][]driver.Value) {
	t.Helper()
	registerOnce.Do(func() { sql.Register("daphnia-pg-stub", stub) })
	stub.mu.Lock()
	stub.rows = rows
	stub.mu.Unlock()

	openMu.Lock()
	prev := sqlOpen
	sqlOpen = func(_, dsn string) (*sql.DB, error) { return sql.Open("daphnia-pg-stub", dsn) }
	openMu.Unlock()
	t.Cleanup(func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	})
}

func TestFetchSpecimens(t *testing.T) {
	overrideOpen(t, [][]driver.Value{
		{"E.1_0620", "1", "", "E", "alive", "0620", "", int64(12), int64(10), int64(3), "healthy", "minji"},
		{"E.1.1_0625", "1.1", "E.1_0620", "E", nil, nil, nil, nil, nil, nil, nil, nil},
	})

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	specs, err := store.FetchSpecimens(context.Background())
	if err != nil {
		t.Fatalf("FetchSpecimens: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("got %d specimens, want 2", len(specs))
	}

	first := specs[0]
	if first.ID != "E.1_0620" || first.SetLabel != "E" || first.NInitial != 12 ||
		first.TotalBroods != 3 || first.AssignedPerson != "minji" {
		t.Fatalf("first row = %+v", first)
	}

	// NULL columns come back as zero values.
	second := specs[1]
	if second.ID != "E.1.1_0625" || second.ParentID != "E.1_0620" {
		t.Fatalf("second row = %+v", second)
	}
	if second.Status != "" || second.NInitial != 0 || second.Notes != "" {
		t.Fatalf("NULL columns must scan to zero values: %+v", second)
	}
}

func TestFetchSpecimensEmptyTable(t *testing.T) {
	overrideOpen(t, nil)

	store, err := NewStore("custom-dsn-ignored-by-stub")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer func() { _ = store.Close() }()

	specs, err := store.FetchSpecimens(context.Background())
	if err != nil {
		t.Fatalf("FetchSpecimens: %v", err)
	}
	if len(specs) != 0 {
		t.Fatalf("got %d specimens, want 0", len(specs))
	}
}

func TestNewStoreOpenFailure(t *testing.T) {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("refused") }
	openMu.Unlock()
	t.Cleanup(func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	})

	if _, err := NewStore(""); err == nil {
		t.Fatalf("expected open failure")
	}
}
