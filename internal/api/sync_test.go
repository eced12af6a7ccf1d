package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/festql/festql/internal/airtable"
)

func postSync(t *testing.T, h http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sync", nil))
	return rr
}

func TestSyncReturns501WhenNotConfigured(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})

	rr := postSync(t, h)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestSyncFetchesMapsAndUpserts(t *testing.T) {
	repo := &fakeRepository{}
	source := &fakeSource{records: []airtable.Record{
		{ID: "rec-opening", Fields: map[string]any{"Name": "Opening Parade"}},
		{ID: "rec-closing", Fields: map[string]any{"Name": "Closing Fireworks"}},
		{ID: "", Fields: map[string]any{"Name": "orphan row"}},
	}}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Source: source})

	rr := postSync(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}

	// The message counts fetched records, including the unmappable one.
	if got := decodeBody(t, rr)["message"]; got != "Synced 3 records." {
		t.Fatalf("message = %v", got)
	}
	if rr.Header().Get("X-Sync-Run") == "" {
		t.Fatal("missing X-Sync-Run header")
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("upsert calls = %d", len(repo.upserted))
	}
	batch := repo.upserted[0]
	if len(batch) != 2 || batch[0].AirtableID != "rec-opening" || batch[1].AirtableID != "rec-closing" {
		t.Fatalf("unexpected batch: %+v", batch)
	}
}

func TestSyncWithEmptySourceWritesNothing(t *testing.T) {
	repo := &fakeRepository{}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Source: &fakeSource{}})

	rr := postSync(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody(t, rr)["message"]; got != "Synced 0 records." {
		t.Fatalf("message = %v", got)
	}
	if len(repo.upserted) != 1 || len(repo.upserted[0]) != 0 {
		t.Fatalf("upserted = %+v", repo.upserted)
	}
}

func TestSyncFetchFailureReturns500WithDetails(t *testing.T) {
	repo := &fakeRepository{}
	source := &fakeSource{err: errors.New("records page failed status=401")}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Source: source})

	rr := postSync(t, h)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error_code"] != "SYNC_FAILED" {
		t.Fatalf("error_code = %v", body["error_code"])
	}
	extra, ok := body["context"].(map[string]any)
	if !ok || extra["details"] != "records page failed status=401" {
		t.Fatalf("context = %v", body["context"])
	}
	if len(repo.upserted) != 0 {
		t.Fatal("upsert reached after fetch failure")
	}
}

func TestSyncUpsertFailureReturns500(t *testing.T) {
	repo := &fakeRepository{upsertErr: errors.New("begin upsert tx: connection reset")}
	source := &fakeSource{records: []airtable.Record{{ID: "rec-opening"}}}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Source: source})

	rr := postSync(t, h)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if decodeBody(t, rr)["error_code"] != "SYNC_FAILED" {
		t.Fatalf("body = %s", rr.Body.String())
	}
}
