// Package archive writes point-in-time parquet snapshots of the events table
// to object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/festql/festql/internal/events"
	"github.com/festql/festql/internal/storage"
)

// EventLister is the slice of the repository the exporter depends on.
type EventLister interface {
	ListAll(ctx context.Context) ([]events.Event, error)
}

type Exporter struct {
	store  storage.ObjectStore
	lister EventLister
	logger *slog.Logger
	now    func() time.Time
}

func NewExporter(store storage.ObjectStore, lister EventLister, logger *slog.Logger) (*Exporter, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if lister == nil {
		return nil, fmt.Errorf("event lister is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		store:  store,
		lister: lister,
		logger: logger,
		now:    time.Now,
	}, nil
}

type ExportResult struct {
	Key    string
	Events int
	Bytes  int64
}

// archiveEvent is the parquet row layout. Nullable columns stay optional so a
// snapshot round-trips rows exactly as the table holds them; timestamps are
// stored as unix milliseconds and dates as "2006-01-02" strings.
type archiveEvent struct {
	ID              int64   `parquet:"id"`
	AirtableID      string  `parquet:"airtable_id"`
	Name            *string `parquet:"name"`
	Source          *string `parquet:"source"`
	Workstream      *string `parquet:"workstream"`
	Programme       *string `parquet:"programme"`
	Type            *string `parquet:"type"`
	StartTimeUnixMs *int64  `parquet:"start_time_unix_ms"`
	EndTimeUnixMs   *int64  `parquet:"end_time_unix_ms"`
	LinkedSpace     *string `parquet:"linked_space"`
	Dependencies    *string `parquet:"dependencies"`
	Owner           *string `parquet:"owner"`
	Notes           *string `parquet:"notes"`
	Tags            *string `parquet:"tags"`
	PMOTracking     *string `parquet:"pmo_tracking"`
	CreatedOn       *string `parquet:"created_on"`
	UpdatedAtUnixMs int64   `parquet:"updated_at_unix_ms"`
}

// Export snapshots the full events table into one parquet object keyed by the
// current date. An empty table is an error rather than an empty snapshot so a
// broken sync cannot silently overwrite history with nothing.
func (e *Exporter) Export(ctx context.Context) (ExportResult, error) {
	listed, err := e.lister.ListAll(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("list events: %w", err)
	}
	if len(listed) == 0 {
		return ExportResult{}, fmt.Errorf("no events to archive")
	}

	encoded, err := encodeEvents(listed)
	if err != nil {
		return ExportResult{}, err
	}

	key := storage.BuildArchiveKey(e.now())
	if _, err := e.store.Put(ctx, key, bytes.NewReader(encoded), int64(len(encoded)), storage.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		return ExportResult{}, fmt.Errorf("put archive object: %w", err)
	}

	e.logger.InfoContext(ctx, "archived events snapshot",
		slog.String("key", key),
		slog.Int("events", len(listed)),
		slog.Int("bytes", len(encoded)),
	)

	return ExportResult{Key: key, Events: len(listed), Bytes: int64(len(encoded))}, nil
}

func encodeEvents(listed []events.Event) ([]byte, error) {
	rows := make([]archiveEvent, 0, len(listed))
	for _, event := range listed {
		rows = append(rows, archiveEvent{
			ID:              event.ID,
			AirtableID:      event.AirtableID,
			Name:            event.Name,
			Source:          event.Source,
			Workstream:      event.Workstream,
			Programme:       event.Programme,
			Type:            event.Type,
			StartTimeUnixMs: unixMs(event.StartTime),
			EndTimeUnixMs:   unixMs(event.EndTime),
			LinkedSpace:     event.LinkedSpace,
			Dependencies:    event.Dependencies,
			Owner:           event.Owner,
			Notes:           event.Notes,
			Tags:            event.Tags,
			PMOTracking:     event.PMOTracking,
			CreatedOn:       dateString(event.CreatedOn),
			UpdatedAtUnixMs: event.UpdatedAt.UnixMilli(),
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[archiveEvent](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func unixMs(ts *time.Time) *int64 {
	if ts == nil {
		return nil
	}
	ms := ts.UnixMilli()
	return &ms
}

func dateString(ts *time.Time) *string {
	if ts == nil {
		return nil
	}
	formatted := ts.Format("2006-01-02")
	return &formatted
}
