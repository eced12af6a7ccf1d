package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSchemaReturnsLiveSummary(t *testing.T) {
	repo := &fakeRepository{schema: "- id (integer)\n- airtable_id (character varying)"}
	h := NewHandler(testConfig(t), Dependencies{Events: repo})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/schema", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeBody(t, rr)["schema"]; got != "- id (integer)\n- airtable_id (character varying)" {
		t.Fatalf("schema = %v", got)
	}
}

func TestSchemaReturns501WhenNotConfigured(t *testing.T) {
	h := NewHandler(testConfig(t), Dependencies{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/schema", nil))

	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestSchemaFetchFailureReturns500(t *testing.T) {
	repo := &fakeRepository{schemaErr: errors.New("connection reset")}
	h := NewHandler(testConfig(t), Dependencies{Events: repo})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/schema", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if decodeBody(t, rr)["error_code"] != "SCHEMA_FETCH_FAILED" {
		t.Fatalf("body = %s", rr.Body.String())
	}
}
