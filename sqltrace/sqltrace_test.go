package sqltrace

import (
	"context"
	"sync"
	"testing"

	"github.com/hazyhaar/htmledit/dbopen"
	"github.com/hazyhaar/htmledit/kit"
)

type collector struct {
	mu      sync.Mutex
	entries []Entry
}

func (c *collector) add(e Entry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()
}

func (c *collector) snapshot() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}

func withCollector(t *testing.T) *collector {
	t.Helper()
	c := &collector{}
	SetHook(c.add)
	t.Cleanup(func() { SetHook(nil) })
	return c
}

func TestDriver_TracesStatements(t *testing.T) {
	c := withCollector(t)
	db := dbopen.OpenMemory(t, dbopen.WithDriver(DriverName))

	ctx := kit.WithTraceID(context.Background(), "trc_1")
	if _, err := db.ExecContext(ctx, "CREATE TABLE t (v TEXT)"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO t VALUES (?)", "x"); err != nil {
		t.Fatal(err)
	}
	var v string
	if err := db.QueryRowContext(ctx, "SELECT v FROM t").Scan(&v); err != nil {
		t.Fatal(err)
	}

	var execs, queries int
	for _, e := range c.snapshot() {
		if e.TraceID != "trc_1" {
			continue
		}
		switch e.Op {
		case "Exec":
			execs++
		case "Query":
			queries++
		}
	}
	if execs != 2 || queries != 1 {
		t.Errorf("traced exec=%d query=%d, want 2 and 1", execs, queries)
	}
}

func TestDriver_SkipsPragmas(t *testing.T) {
	c := withCollector(t)
	dbopen.OpenMemory(t, dbopen.WithDriver(DriverName))

	for _, e := range c.snapshot() {
		if e.Err == nil && len(e.Query) >= 6 && e.Query[:6] == "PRAGMA" {
			t.Errorf("pragma traced: %q", e.Query)
		}
	}
}

func TestDriver_RecordsErrors(t *testing.T) {
	c := withCollector(t)
	db := dbopen.OpenMemory(t, dbopen.WithDriver(DriverName))

	if _, err := db.Exec("SELECT * FROM missing_table"); err == nil {
		t.Fatal("expected error")
	}
	var failed bool
	for _, e := range c.snapshot() {
		if e.Err != nil {
			failed = true
		}
	}
	if !failed {
		t.Error("failed statement not recorded")
	}
}

func TestCompact(t *testing.T) {
	got := compact("SELECT a,\n\t\tb\n  FROM t")
	if got != "SELECT a, b FROM t" {
		t.Errorf("compact = %q", got)
	}
}
