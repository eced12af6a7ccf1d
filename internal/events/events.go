// Package events holds the festival event domain model and the repository
// surface the HTTP layer depends on.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/festql/festql/internal/airtable"
)

var ErrNotFound = errors.New("events: not found")

type Repository interface {
	HealthCheck(ctx context.Context) error
	// UpsertBatch writes the batch in one transaction, keyed on AirtableID,
	// and reports the number of rows written.
	UpsertBatch(ctx context.Context, batch []Event) (int, error)
	// RunQuery executes caller-supplied SQL verbatim and returns the rows in
	// result order.
	RunQuery(ctx context.Context, query string) ([]map[string]any, error)
	// SchemaSummary renders the live events table columns as one
	// "- name (type)" line per column.
	SchemaSummary(ctx context.Context) (string, error)
	ListAll(ctx context.Context) ([]Event, error)
}

// Event mirrors one row of the events table. Nullable columns are pointers;
// UpdatedAt is assigned server-side on every upsert.
type Event struct {
	ID           int64
	AirtableID   string
	Name         *string
	Source       *string
	Workstream   *string
	Programme    *string
	Type         *string
	StartTime    *time.Time
	EndTime      *time.Time
	LinkedSpace  *string
	Dependencies *string
	Owner        *string
	Notes        *string
	Tags         *string
	PMOTracking  *string
	CreatedOn    *time.Time
	UpdatedAt    time.Time
}

// Timestamp layouts tried in order when mapping source values. Airtable
// returns ISO timestamps with and without fractional seconds; manually
// entered cells show up as US-style date-times or bare dates.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999Z",
	"2006-01-02T15:04:05Z",
	"1/2/2006 15:04",
	"2006-01-02",
}

// FromRecord maps a raw source record onto an Event. Records without an ID
// report ok=false and are skipped by callers. Source fields without a column
// are dropped; non-string and unparseable values are treated as absent.
func FromRecord(rec airtable.Record) (Event, bool) {
	if rec.ID == "" {
		return Event{}, false
	}
	return Event{
		AirtableID:   rec.ID,
		Name:         stringField(rec.Fields, "Name"),
		Source:       stringField(rec.Fields, "Source"),
		Workstream:   stringField(rec.Fields, "Workstream"),
		Programme:    stringField(rec.Fields, "Programme"),
		Type:         stringField(rec.Fields, "Type"),
		StartTime:    timeField(rec.Fields, "StartTime"),
		EndTime:      timeField(rec.Fields, "EndTime"),
		LinkedSpace:  stringField(rec.Fields, "LinkedSpace"),
		Dependencies: stringField(rec.Fields, "Dependencies"),
		Owner:        stringField(rec.Fields, "Owner"),
		Notes:        stringField(rec.Fields, "Notes"),
		Tags:         stringField(rec.Fields, "Tags"),
		PMOTracking:  stringField(rec.Fields, "PMO Tracking"),
		CreatedOn:    timeField(rec.Fields, "Created On"),
	}, true
}

// MapRecords converts a fetched batch, dropping records without an ID.
func MapRecords(records []airtable.Record) []Event {
	mapped := make([]Event, 0, len(records))
	for _, rec := range records {
		event, ok := FromRecord(rec)
		if !ok {
			continue
		}
		mapped = append(mapped, event)
	}
	return mapped
}

func stringField(fields map[string]any, name string) *string {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	value, ok := raw.(string)
	if !ok {
		return nil
	}
	return &value
}

func timeField(fields map[string]any, name string) *time.Time {
	raw := stringField(fields, name)
	if raw == nil {
		return nil
	}
	return parseTimestamp(*raw)
}

func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}
