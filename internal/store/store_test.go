package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chrich02/pizzashop/internal/testutil"
)

func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	ids := testutil.NewSequenceIDs("entry")
	opts = append([]Option{WithIDGenerator(ids.Generate), WithRunID("run-1")}, opts...)
	s, err := Open(filepath.Join(t.TempDir(), "log.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	assert.Equal(t, DialectSQLite, s.Dialect())
	assert.Len(t, s.RunID(), 36, "run id is a UUID")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestDialectFor(t *testing.T) {
	assert.Equal(t, DialectPostgres, DialectFor("postgres://shop@localhost/pizzashop"))
	assert.Equal(t, DialectPostgres, DialectFor("postgresql://shop@localhost/pizzashop"))
	assert.Equal(t, DialectSQLite, DialectFor("pizzashop-log.db"))
	assert.Equal(t, DialectSQLite, DialectFor(":memory:"))
}

func TestRebindDollar(t *testing.T) {
	got := rebindDollar("INSERT INTO order_log (a, b, c) VALUES (?, ?, ?)")
	assert.Equal(t, "INSERT INTO order_log (a, b, c) VALUES ($1, $2, $3)", got)

	s := &Store{dialect: DialectSQLite}
	assert.Equal(t, "WHERE order_id = ?", s.rebind("WHERE order_id = ?"))
}

func TestRecord_AppendOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	at := testutil.Epoch

	// Timestamps deliberately out of order: reads follow append order.
	require.NoError(t, s.Record(ctx, 1, "Registered", at.Add(2*time.Second)))
	require.NoError(t, s.Record(ctx, 2, "Registered", at))
	require.NoError(t, s.Record(ctx, 1, "Cooking", at.Add(time.Second)))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []string{"entry-1", "entry-2", "entry-3"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.Equal(t, int64(2), entries[1].OrderID)
	assert.Equal(t, "Cooking", entries[2].Action)
	assert.Equal(t, "run-1", entries[2].RunID)
	assert.True(t, entries[0].Seq < entries[1].Seq && entries[1].Seq < entries[2].Seq)

	mine, err := s.EntriesForOrder(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Registered", mine[0].Action)
	assert.Equal(t, "Cooking", mine[1].Action)
}

func TestEntries_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	entries, err := s.Entries(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestRecord_TimestampPrecision(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	at := time.Date(2024, 11, 2, 13, 0, 0, 123456789, time.FixedZone("CET", 3600))
	require.NoError(t, s.Record(ctx, 1, "Registered", at))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, time.Date(2024, 11, 2, 12, 0, 0, 123456000, time.UTC), entries[0].Timestamp)
}

func TestEntriesForRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.db")
	ctx := context.Background()

	first, err := Open(path, WithRunID("run-a"))
	require.NoError(t, err)
	require.NoError(t, first.Record(ctx, 1, "Registered", testutil.Epoch))
	require.NoError(t, first.Record(ctx, 1, "Cooking", testutil.Epoch))
	require.NoError(t, first.Close())

	second, err := Open(path, WithRunID("run-b"))
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Record(ctx, 1, "Resumed", testutil.Epoch))

	all, err := second.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3, "entries survive reopening")

	b, err := second.EntriesForRun(ctx, "run-b")
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, "Resumed", b[0].Action)
}

func TestExportJSON(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	at := testutil.Epoch

	require.NoError(t, s.Record(ctx, 1, "Registered", at))
	require.NoError(t, s.Record(ctx, 1, "Cooking", at.Add(time.Second)))
	require.NoError(t, s.Record(ctx, 2, "Registered", at.Add(time.Second)))
	require.NoError(t, s.Record(ctx, 1, "Collected", at.Add(5500*time.Millisecond)))

	path := filepath.Join(t.TempDir(), "export", "order_log.json")
	n, err := s.ExportJSON(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	testutil.AssertGoldenBytes(t, "export", data)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestExportJSON_EmptyLog(t *testing.T) {
	s := createTestStore(t)
	path := filepath.Join(t.TempDir(), "order_log.json")

	n, err := s.ExportJSON(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestMirror_RewrittenOnEveryAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order_log.json")
	s := createTestStore(t, WithMirror(path))
	ctx := context.Background()

	readMirror := func() []Entry {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var entries []Entry
		require.NoError(t, json.Unmarshal(data, &entries))
		return entries
	}

	require.NoError(t, s.Record(ctx, 1, "Registered", testutil.Epoch))
	require.Len(t, readMirror(), 1)

	require.NoError(t, s.Record(ctx, 1, "Cooking", testutil.Epoch.Add(time.Second)))
	entries := readMirror()
	require.Len(t, entries, 2)
	assert.Equal(t, "Cooking", entries[1].Action)
	assert.Equal(t, int64(1), entries[1].OrderID)
}

func TestMirror_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order_log.json")
	s := createTestStore(t, WithMirror(path))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, s.Record(ctx, id, "Registered", testutil.Epoch))
		}(int64(i))
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Len(t, entries, 20)
}

func TestMirror_FailureKeepsEntry(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := createTestStore(t, WithMirror(filepath.Join(blocker, "order_log.json")))
	ctx := context.Background()

	err := s.Record(ctx, 1, "Registered", testutil.Epoch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mirror order log")

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("PIZZASHOP_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("PIZZASHOP_TEST_POSTGRES not set")
	}
	ctx := context.Background()

	s, err := Open(dsn)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, DialectPostgres, s.Dialect())

	orderID := time.Now().UnixNano()
	require.NoError(t, s.Record(ctx, orderID, "Registered", testutil.Epoch))
	require.NoError(t, s.Record(ctx, orderID, "Cooking", testutil.Epoch.Add(time.Second)))

	entries, err := s.EntriesForOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Cooking", entries[1].Action)
	assert.Equal(t, s.RunID(), entries[0].RunID)
}
