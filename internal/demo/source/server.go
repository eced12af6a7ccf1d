// Package source runs an Airtable-compatible HTTP stub that serves a
// deterministic festival event table, so the sync path can be exercised
// locally without an Airtable account.
package source

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/festql/festql/internal/airtable"
)

const maxPageSize = 100

// Server holds the generated table and answers the records endpoint the real
// API exposes under /v0/{base}/{table}.
type Server struct {
	cfg     Config
	records []airtable.Record
}

func NewServer(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.BaseID) == "" {
		return nil, fmt.Errorf("base id is required")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("table name is required")
	}
	if cfg.RecordCount <= 0 {
		return nil, fmt.Errorf("record count must be > 0")
	}

	gen := NewGenerator(cfg.Seed, defaultOpening)
	records := make([]airtable.Record, 0, cfg.RecordCount)
	for i := 0; i < cfg.RecordCount; i++ {
		records = append(records, gen.NextRecord())
	}
	return &Server{cfg: cfg, records: records}, nil
}

// RecordCount reports how many records the stub serves.
func (s *Server) RecordCount() int {
	return len(s.records)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v0/{base}/{table}", s.handleListRecords)
	return mux
}

type listResponse struct {
	Records []airtable.Record `json:"records"`
	Offset  string            `json:"offset,omitempty"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("base") != s.cfg.BaseID || r.PathValue("table") != s.cfg.Table {
		writeAPIError(w, http.StatusNotFound, "NOT_FOUND", "base or table not found")
		return
	}
	if s.cfg.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.cfg.Token {
		writeAPIError(w, http.StatusUnauthorized, "AUTHENTICATION_REQUIRED", "invalid or missing token")
		return
	}

	// The real API rejects bad page sizes; the stub clamps instead so casual
	// curl sessions work.
	pageSize := maxPageSize
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= maxPageSize {
			pageSize = v
		}
	}

	start := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > len(s.records) {
			writeAPIError(w, http.StatusUnprocessableEntity, "LIST_RECORDS_ITERATOR_NOT_AVAILABLE", "offset is not valid")
			return
		}
		start = v
	}

	end := start + pageSize
	if end > len(s.records) {
		end = len(s.records)
	}
	resp := listResponse{Records: s.records[start:end]}
	if end < len(s.records) {
		resp.Offset = strconv.Itoa(end)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func writeAPIError(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]apiError{"error": {Type: errType, Message: message}})
}
