package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewValidatesCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing token", Config{BaseID: "appX", Table: "Events"}},
		{"missing base id", Config{Token: "pat", Table: "Events"}},
		{"missing table", Config{Token: "pat", BaseID: "appX"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Fatal("New() expected error")
			}
		})
	}
}

func TestFetchAllFollowsOffsetCursor(t *testing.T) {
	var gotPaths []string
	var gotAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.URL.RequestURI())
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		if r.URL.Query().Get("pageSize") != "2" {
			t.Errorf("pageSize = %q", r.URL.Query().Get("pageSize"))
		}
		switch r.URL.Query().Get("offset") {
		case "":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{
					{"id": "rec1", "fields": map[string]any{"Name": "Opening"}},
					{"id": "rec2", "fields": map[string]any{"Name": "Parade"}},
				},
				"offset": "cursor-2",
			})
		case "cursor-2":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{
					{"id": "rec3", "fields": map[string]any{"Name": "Closing"}},
				},
			})
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	client, err := New(Config{Token: "pat-secret", BaseID: "appX", Table: "Events", BaseURL: srv.URL, PageSize: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	records, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if records[0].ID != "rec1" || records[2].ID != "rec3" {
		t.Fatalf("records out of order: %+v", records)
	}
	if records[0].Fields["Name"] != "Opening" {
		t.Fatalf("Fields[Name] = %v", records[0].Fields["Name"])
	}
	if len(gotPaths) != 2 {
		t.Fatalf("page requests = %d, want 2", len(gotPaths))
	}
	if !strings.HasPrefix(gotPaths[0], "/appX/Events?") {
		t.Fatalf("first page path = %q", gotPaths[0])
	}
	for _, auth := range gotAuth {
		if auth != "Bearer pat-secret" {
			t.Fatalf("Authorization = %q", auth)
		}
	}
}

func TestFetchAllEscapesTableName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/appX/Festival%20Events" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"records": []map[string]any{}})
	}))
	defer srv.Close()

	client, err := New(Config{Token: "pat", BaseID: "appX", Table: "Festival Events", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
}

func TestFetchAllAbortsOnErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"records": []map[string]any{{"id": "rec1"}},
				"offset":  "cursor-2",
			})
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"type":"LIST_RECORDS_ITERATOR_NOT_AVAILABLE"}}`))
	}))
	defer srv.Close()

	client, err := New(Config{Token: "pat", BaseID: "appX", Table: "Events", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	records, err := client.FetchAll(context.Background())
	if err == nil {
		t.Fatal("FetchAll() expected error")
	}
	if records != nil {
		t.Fatalf("records = %v, want nil on failure", records)
	}
	if !strings.Contains(err.Error(), "status=422") {
		t.Fatalf("error = %v, want status in message", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want fetch to stop after the failed page", calls)
	}
}

func TestFetchAllHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"records": []map[string]any{}})
	}))
	defer srv.Close()

	client, err := New(Config{Token: "pat", BaseID: "appX", Table: "Events", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.FetchAll(ctx); err == nil {
		t.Fatal("FetchAll() expected context error")
	}
}
