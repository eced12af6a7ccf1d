package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/festql/festql/internal/nl2sql"
)

func postQuery(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rr, req)
	return rr
}

func TestQueryReturns501WhenNotConfigured(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})

	rr := postQuery(t, h, `{"flow":"","query":"all events"}`)
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestQueryRejectsInvalidJSON(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Events:    &fakeRepository{},
		Generator: &fakeGenerator{},
		Schema:    "- id (integer)",
	})

	rr := postQuery(t, h, `{"flow":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if decodeBody(t, rr)["error_code"] != "INVALID_JSON" {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestQueryRejectsUnknownFields(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{
		Events:    &fakeRepository{},
		Generator: &fakeGenerator{},
		Schema:    "- id (integer)",
	})

	rr := postQuery(t, h, `{"flow":"","query":"all events","mode":"fast"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestQueryReturns503WithoutSchema(t *testing.T) {
	repo := &fakeRepository{}
	generator := &fakeGenerator{}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Generator: generator})

	rr := postQuery(t, h, `{"flow":"","query":"all events"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["message"] != "Service not ready: Schema not loaded." {
		t.Fatalf("message = %v", body["message"])
	}
	if len(generator.requests) != 0 || len(repo.queries) != 0 {
		t.Fatal("generator or repository reached without schema")
	}
}

func TestQueryRejectsEmptyQuestion(t *testing.T) {
	repo := &fakeRepository{}
	generator := &fakeGenerator{}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Generator: generator, Schema: "- id (integer)"})

	for _, body := range []string{`{"flow":""}`, `{"flow":"","query":""}`, `{"flow":"","query":"   "}`} {
		rr := postQuery(t, h, body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d", body, rr.Code)
		}
		decoded := decodeBody(t, rr)
		if decoded["message"] != "Query text cannot be empty." {
			t.Fatalf("body %s: message = %v", body, decoded["message"])
		}
	}
	if len(generator.requests) != 0 || len(repo.queries) != 0 {
		t.Fatal("generator or repository reached with empty question")
	}
}

func TestQueryRunsGeneratedSQLAndReturnsRows(t *testing.T) {
	repo := &fakeRepository{rows: []map[string]any{
		{"id": float64(1), "name": "Opening Parade"},
		{"id": float64(2), "name": "Closing Fireworks"},
	}}
	generator := &fakeGenerator{result: nl2sql.Result{
		SQL:     "SELECT * FROM events ORDER BY start_time ASC;",
		Outcome: nl2sql.OutcomeGenerated,
	}}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Generator: generator, Schema: "- id (integer)"})

	rr := postQuery(t, h, `{"flow":"","query":"what is on today?"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}

	if len(generator.requests) != 1 {
		t.Fatalf("generator calls = %d", len(generator.requests))
	}
	request := generator.requests[0]
	if request.Question != "what is on today?" || request.Schema != "- id (integer)" {
		t.Fatalf("unexpected generator request: %+v", request)
	}
	if len(repo.queries) != 1 || repo.queries[0] != "SELECT * FROM events ORDER BY start_time ASC;" {
		t.Fatalf("executed queries = %#v", repo.queries)
	}

	body := decodeBody(t, rr)
	if body["type"] != "list" {
		t.Fatalf("type = %v", body["type"])
	}
	data, ok := body["data"].([]any)
	if !ok || len(data) != 2 {
		t.Fatalf("data = %v", body["data"])
	}
}

func TestQueryDetailFlowReturnsDetailType(t *testing.T) {
	repo := &fakeRepository{rows: []map[string]any{{"id": float64(1)}}}
	generator := &fakeGenerator{result: nl2sql.Result{
		SQL:     "SELECT * FROM events WHERE name ILIKE '%parade%' LIMIT 1;",
		Outcome: nl2sql.OutcomeGenerated,
	}}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Generator: generator, Schema: "- id (integer)"})

	rr := postQuery(t, h, `{"flow":"get_event_details","query":"Opening Parade on July 19"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if decodeBody(t, rr)["type"] != "detail" {
		t.Fatalf("type = %v", decodeBody(t, rr)["type"])
	}
}

func TestQueryExecutesFallbackWhenGenerationBlocked(t *testing.T) {
	repo := &fakeRepository{rows: []map[string]any{{"?column?": "Invalid request. Only SELECT queries are allowed."}}}
	generator := &fakeGenerator{result: nl2sql.Result{
		SQL:     nl2sql.BlockedSQL,
		Outcome: nl2sql.OutcomeBlocked,
	}}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Generator: generator, Schema: "- id (integer)"})

	rr := postQuery(t, h, `{"flow":"","query":"drop the events table"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(repo.queries) != 1 || repo.queries[0] != nl2sql.BlockedSQL {
		t.Fatalf("executed queries = %#v", repo.queries)
	}
}

func TestQueryRepositoryErrorIsOpaque500(t *testing.T) {
	repo := &fakeRepository{queryErr: errors.New("pq: syntax error at or near \"FROMM\"")}
	generator := &fakeGenerator{result: nl2sql.Result{SQL: "SELECT * FROMM events;", Outcome: nl2sql.OutcomeGenerated}}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Generator: generator, Schema: "- id (integer)"})

	rr := postQuery(t, h, `{"flow":"","query":"all events"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["message"] != "An internal server error occurred." {
		t.Fatalf("message = %v", body["message"])
	}
	if strings.Contains(rr.Body.String(), "FROMM") {
		t.Fatal("response leaked the database error")
	}
}

func TestQueryEmptyResultKeepsDataArray(t *testing.T) {
	repo := &fakeRepository{rows: []map[string]any{}}
	generator := &fakeGenerator{result: nl2sql.Result{SQL: "SELECT * FROM events;", Outcome: nl2sql.OutcomeGenerated}}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Generator: generator, Schema: "- id (integer)"})

	rr := postQuery(t, h, `{"flow":"","query":"events in 2030"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"data":[]`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestQueryAnswersOnRootPath(t *testing.T) {
	repo := &fakeRepository{rows: []map[string]any{}}
	generator := &fakeGenerator{result: nl2sql.Result{SQL: "SELECT * FROM events;", Outcome: nl2sql.OutcomeGenerated}}
	h := NewHandler(testConfig(t), Dependencies{Events: repo, Generator: generator, Schema: "- id (integer)"})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"flow":"","query":"all events"}`))
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
}
