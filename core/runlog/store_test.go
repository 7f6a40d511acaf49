package runlog

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/repairsched/core/optimize"
)

func records(now time.Time) []Record {
	return []Record{
		{RunID: "a", Timestamp: now.Add(-2 * time.Hour), Status: "optimal", Objective: 10, Components: optimize.Components{LeadTime: 4}},
		{RunID: "b", Timestamp: now.Add(-time.Hour), Status: "limit_reached", Objective: 12, Gap: math.Inf(1)},
		{RunID: "c", Timestamp: now, Status: "optimal", Objective: 9, Assignments: map[string]int{"Atelier": 3}},
	}
}

func exercise(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)
	for _, r := range records(now) {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	cases := []struct {
		name string
		q    Query
		want []string
	}{
		{"all", Query{}, []string{"a", "b", "c"}},
		{"status", Query{Status: "optimal"}, []string{"a", "c"}},
		{"since", Query{Start: now.Add(-90 * time.Minute)}, []string{"b", "c"}},
		{"until", Query{End: now.Add(-90 * time.Minute)}, []string{"a"}},
		{"run", Query{RunID: "b"}, []string{"b"}},
		{"limit", Query{Limit: 2}, []string{"b", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := store.Query(ctx, tc.q)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if len(out) != len(tc.want) {
				t.Fatalf("expected %v got %d records", tc.want, len(out))
			}
			for i, id := range tc.want {
				if out[i].RunID != id {
					t.Fatalf("record %d: expected %s got %s", i, id, out[i].RunID)
				}
			}
		})
	}
	out, _ := store.Query(ctx, Query{RunID: "c"})
	if out[0].Assignments["Atelier"] != 3 {
		t.Fatalf("assignments not persisted: %+v", out[0])
	}
	out, _ = store.Query(ctx, Query{RunID: "b"})
	if out[0].Gap != -1 {
		t.Fatalf("unknown gap should be stored as -1, got %v", out[0].Gap)
	}
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "runs", "runs.jsonl"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	exercise(t, store)
}

func TestRotatingJSONLStore(t *testing.T) {
	store, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"), 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	exercise(t, store)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 5, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	big := make(map[string]int, 2000)
	for i := range 2000 {
		big[filepath.Join("repairer", string(rune('a'+i%26)), time.Duration(i).String())] = i
	}
	rec := Record{RunID: "r", Timestamp: time.Now(), Assignments: big}
	for range 40 {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
		// backup names carry millisecond timestamps
		time.Sleep(2 * time.Millisecond)
	}
	files, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "runs*.jsonl"))
	if len(files) < 2 {
		t.Fatalf("expected rotated files got %v", files)
	}
	out, err := store.Query(context.Background(), Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 40 {
		t.Fatalf("expected records from all files, got %d", len(out))
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore("file:runlog_test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	exercise(t, store)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"jsonl", "rotating", "sqlite"} {
		s, err := Open(Config{Backend: backend, Path: filepath.Join(dir, backend+".log")})
		if err != nil {
			t.Fatalf("%s: %v", backend, err)
		}
		_ = s.Close()
	}
	if _, err := Open(Config{Backend: "csv"}); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
