package store

import (
	"context"
	"fmt"
	"time"

	"github.com/loglens/loglens/pkg/types"
)

// BatchResult summarizes one committed ingest batch.
type BatchResult struct {
	Ingested int
	Formats  map[string]int
}

// Entry is a persisted log record with its storage identity.
type Entry struct {
	ID        int64        `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Source    string       `json:"source"`
	Level     string       `json:"level"`
	Message   string       `json:"message"`
	Raw       string       `json:"raw_line"`
	Format    types.Format `json:"format"`
	CreatedAt time.Time    `json:"created_at"`
}

// EntryFilter narrows ListEntries. A zero Limit defaults to 100; limits are
// clamped to [1, 1000].
type EntryFilter struct {
	Source string
	Level  string
	Limit  int
}

// InsertBatch persists a batch of records in one transaction, cascading each
// record's numeric fields into metric rows and string fields into category
// rows keyed by the new entry id. Field rows reuse the record timestamp so
// windowed metric queries see the record's instant, not commit time.
func (s *Store) InsertBatch(ctx context.Context, records []*types.LogRecord) (*BatchResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin batch: %w", err)
	}
	defer tx.Rollback()

	res := &BatchResult{Formats: make(map[string]int)}
	now := fmtTime(time.Now())

	for _, rec := range records {
		ts := fmtTime(rec.Timestamp)
		r, err := tx.ExecContext(ctx,
			`INSERT INTO log_entries (timestamp, source, level, message, raw_line, format_detected, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ts, rec.Source, rec.Level, rec.Message, rec.Raw, string(rec.Format), now)
		if err != nil {
			return nil, fmt.Errorf("store: insert entry: %w", err)
		}
		entryID, err := r.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("store: entry id: %w", err)
		}

		for name, value := range rec.NumericFields {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO metrics (log_entry_id, metric_name, metric_value, timestamp) VALUES (?, ?, ?, ?)`,
				entryID, name, value, ts); err != nil {
				return nil, fmt.Errorf("store: insert metric %s: %w", name, err)
			}
		}
		for name, value := range rec.StringFields {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO categories (log_entry_id, category_name, category_value, timestamp) VALUES (?, ?, ?, ?)`,
				entryID, name, value, ts); err != nil {
				return nil, fmt.Errorf("store: insert category %s: %w", name, err)
			}
		}

		res.Ingested++
		res.Formats[string(rec.Format)]++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit batch: %w", err)
	}
	return res, nil
}

// ListEntries returns recent entries, newest first.
func (s *Store) ListEntries(ctx context.Context, f EntryFilter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	query := `SELECT id, timestamp, source, level, message, raw_line, format_detected, created_at
	          FROM log_entries WHERE 1=1`
	var args []any
	if f.Source != "" {
		query += " AND source = ?"
		args = append(args, f.Source)
	}
	if f.Level != "" {
		query += " AND level = ?"
		args = append(args, f.Level)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts, created, format string
		if err := rows.Scan(&e.ID, &ts, &e.Source, &e.Level, &e.Message, &e.Raw, &format, &created); err != nil {
			return nil, fmt.Errorf("store: scan entry: %w", err)
		}
		e.Timestamp = parseTime(ts)
		e.CreatedAt = parseTime(created)
		e.Format = types.Format(format)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Sources returns the distinct source labels seen so far, sorted.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source FROM log_entries ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("store: sources: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("store: scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// SourceCount pairs a source label with its entry count.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// Stats is the aggregate snapshot served by the stats endpoint.
type Stats struct {
	TotalEntries  int           `json:"total_entries"`
	EntriesPerMin int           `json:"entries_per_min"`
	ErrorRate     float64       `json:"error_rate"`
	TopSources    []SourceCount `json:"top_sources"`
	ActiveAlerts  int           `json:"active_alerts"`
}

// Stats computes the aggregate view: totals, last-minute throughput, error
// rate, top ten sources, and the count of enabled rules.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{TopSources: []SourceCount{}}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM log_entries`).Scan(&st.TotalEntries); err != nil {
		return nil, fmt.Errorf("store: stats total: %w", err)
	}

	minuteAgo := fmtTime(time.Now().Add(-time.Minute))
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM log_entries WHERE timestamp >= ?`, minuteAgo).Scan(&st.EntriesPerMin); err != nil {
		return nil, fmt.Errorf("store: stats per-min: %w", err)
	}

	var errors int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM log_entries WHERE level = ?`, types.LevelError).Scan(&errors); err != nil {
		return nil, fmt.Errorf("store: stats errors: %w", err)
	}
	if st.TotalEntries > 0 {
		st.ErrorRate = float64(errors) / float64(st.TotalEntries)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source, COUNT(*) AS c FROM log_entries GROUP BY source ORDER BY c DESC LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("store: stats sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count); err != nil {
			return nil, fmt.Errorf("store: scan top source: %w", err)
		}
		st.TopSources = append(st.TopSources, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alert_rules WHERE enabled = 1`).Scan(&st.ActiveAlerts); err != nil {
		return nil, fmt.Errorf("store: stats rules: %w", err)
	}
	return st, nil
}
