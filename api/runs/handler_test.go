package runs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/repairsched/core/runlog"
)

type memStore struct {
	recs []runlog.Record
	last runlog.Query
	err  error
}

func (m *memStore) Append(ctx context.Context, r runlog.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(ctx context.Context, q runlog.Query) ([]runlog.Record, error) {
	m.last = q
	if m.err != nil {
		return nil, m.err
	}
	var res []runlog.Record
	for _, r := range m.recs {
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

func (m *memStore) Close() error { return nil }

func TestHandler_AuthAndFilters(t *testing.T) {
	store := &memStore{}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	_ = store.Append(context.Background(), runlog.Record{RunID: "a", Timestamp: now, Status: "optimal", Objective: 47.3})
	_ = store.Append(context.Background(), runlog.Record{RunID: "b", Timestamp: now, Status: "infeasible"})
	h := NewHandler(store, "tok")

	req := httptest.NewRequest(http.MethodGet, "/api/runs?status=optimal&start=2024-03-01T00:00:00Z&limit=5", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []runlog.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 || out[0].RunID != "a" {
		t.Fatalf("unexpected records %+v", out)
	}
	if store.last.Limit != 5 || !store.last.Start.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("query not forwarded: %+v", store.last)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestHandler_Empty(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHandler(&memStore{}, "").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "[]\n" {
		t.Fatalf("got %d %q", rr.Code, rr.Body.String())
	}
}

func TestHandler_BadRequests(t *testing.T) {
	h := NewHandler(&memStore{}, "")
	for _, url := range []string{"/api/runs?start=yesterday", "/api/runs?end=2024", "/api/runs?limit=-1", "/api/runs?limit=x"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, url, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", url, rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/runs", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

func TestHandler_StoreError(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHandler(&memStore{err: errors.New("disk")}, "").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
}
