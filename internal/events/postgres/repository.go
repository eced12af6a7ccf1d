package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/festql/festql/internal/events"
)

// Repository implements events.Repository on top of Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping events db: %w", err)
	}
	return nil
}

const upsertEventSQL = `
INSERT INTO events (
	airtable_id, name, source, workstream, programme, type,
	start_time, end_time, linked_space, dependencies, owner,
	notes, tags, pmo_tracking, created_on
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (airtable_id) DO UPDATE SET
	name = EXCLUDED.name,
	source = EXCLUDED.source,
	workstream = EXCLUDED.workstream,
	programme = EXCLUDED.programme,
	type = EXCLUDED.type,
	start_time = EXCLUDED.start_time,
	end_time = EXCLUDED.end_time,
	linked_space = EXCLUDED.linked_space,
	dependencies = EXCLUDED.dependencies,
	owner = EXCLUDED.owner,
	notes = EXCLUDED.notes,
	tags = EXCLUDED.tags,
	pmo_tracking = EXCLUDED.pmo_tracking,
	created_on = EXCLUDED.created_on,
	updated_at = CURRENT_TIMESTAMP`

// UpsertBatch writes the batch in a single transaction so a failed sync
// never leaves a partially refreshed table behind.
func (r *Repository) UpsertBatch(ctx context.Context, batch []events.Event) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	for _, event := range batch {
		result, err := tx.ExecContext(ctx, upsertEventSQL,
			event.AirtableID,
			event.Name,
			event.Source,
			event.Workstream,
			event.Programme,
			event.Type,
			event.StartTime,
			event.EndTime,
			event.LinkedSpace,
			event.Dependencies,
			event.Owner,
			event.Notes,
			event.Tags,
			event.PMOTracking,
			event.CreatedOn,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert event %q: %w", event.AirtableID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("upsert event rows affected: %w", err)
		}
		written += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert tx: %w", err)
	}
	return written, nil
}

// RunQuery executes generated SQL verbatim and returns the rows keyed by
// column name, ready for JSON encoding.
func (r *Repository) RunQuery(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return results, nil
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	default:
		return typed
	}
}

// SchemaSummary renders the live events columns as one "- name (type)" line
// per column, the shape the SQL generation prompt embeds.
func (r *Repository) SchemaSummary(ctx context.Context) (string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_name = 'events'
ORDER BY ordinal_position`)
	if err != nil {
		return "", fmt.Errorf("query events schema: %w", err)
	}
	defer func() { _ = rows.Close() }()

	lines := make([]string, 0)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return "", fmt.Errorf("scan schema column: %w", err)
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", name, dataType))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate schema columns: %w", err)
	}

	return strings.Join(lines, "\n"), nil
}

const selectEventColumns = `
SELECT id, airtable_id, name, source, workstream, programme, type,
	start_time, end_time, linked_space, dependencies, owner,
	notes, tags, pmo_tracking, created_on, updated_at
FROM events`

func (r *Repository) ListAll(ctx context.Context) ([]events.Event, error) {
	rows, err := r.db.QueryContext(ctx, selectEventColumns+`
ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	listed := make([]events.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		listed = append(listed, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return listed, nil
}

// GetByAirtableID looks up a single synced event. Returns events.ErrNotFound
// when the record was never synced.
func (r *Repository) GetByAirtableID(ctx context.Context, airtableID string) (events.Event, error) {
	row := r.db.QueryRowContext(ctx, selectEventColumns+`
WHERE airtable_id = $1`, airtableID)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return events.Event{}, events.ErrNotFound
		}
		return events.Event{}, fmt.Errorf("get event %q: %w", airtableID, err)
	}
	return event, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (events.Event, error) {
	var event events.Event
	err := row.Scan(
		&event.ID,
		&event.AirtableID,
		&event.Name,
		&event.Source,
		&event.Workstream,
		&event.Programme,
		&event.Type,
		&event.StartTime,
		&event.EndTime,
		&event.LinkedSpace,
		&event.Dependencies,
		&event.Owner,
		&event.Notes,
		&event.Tags,
		&event.PMOTracking,
		&event.CreatedOn,
		&event.UpdatedAt,
	)
	if err != nil {
		return events.Event{}, err
	}
	return event, nil
}
