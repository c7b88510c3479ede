package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Point is one metric observation in a series.
type Point struct {
	T time.Time `json:"t"`
	V float64   `json:"v"`
}

// SeriesFilter narrows MetricSeries. Zero times mean unbounded.
type SeriesFilter struct {
	Source string
	From   time.Time
	To     time.Time
}

// MetricMean returns the arithmetic mean of all observations of name with
// timestamp >= since. ok is false when the window holds no observations —
// callers treat that as "skip", not as an error.
func (s *Store) MetricMean(ctx context.Context, name string, since time.Time) (mean float64, ok bool, err error) {
	var v sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT AVG(metric_value) FROM metrics WHERE metric_name = ? AND timestamp >= ?`,
		name, fmtTime(since)).Scan(&v)
	if err != nil {
		return 0, false, fmt.Errorf("store: metric mean %s: %w", name, err)
	}
	return v.Float64, v.Valid, nil
}

// MetricSeries returns every observation grouped by metric name, ordered by
// timestamp ascending within each series.
func (s *Store) MetricSeries(ctx context.Context, f SeriesFilter) (map[string][]Point, error) {
	query := `SELECT m.metric_name, m.timestamp, m.metric_value
	          FROM metrics m JOIN log_entries le ON le.id = m.log_entry_id
	          WHERE 1=1`
	var args []any
	if f.Source != "" {
		query += " AND le.source = ?"
		args = append(args, f.Source)
	}
	if !f.From.IsZero() {
		query += " AND m.timestamp >= ?"
		args = append(args, fmtTime(f.From))
	}
	if !f.To.IsZero() {
		query += " AND m.timestamp <= ?"
		args = append(args, fmtTime(f.To))
	}
	query += " ORDER BY m.timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: metric series: %w", err)
	}
	defer rows.Close()

	series := make(map[string][]Point)
	for rows.Next() {
		var name, ts string
		var value float64
		if err := rows.Scan(&name, &ts, &value); err != nil {
			return nil, fmt.Errorf("store: scan metric: %w", err)
		}
		series[name] = append(series[name], Point{T: parseTime(ts), V: value})
	}
	return series, rows.Err()
}

// CategoryCounts returns value frequency tables per category name,
// optionally restricted to one source.
func (s *Store) CategoryCounts(ctx context.Context, source string) (map[string]map[string]int, error) {
	query := `SELECT c.category_name, c.category_value, COUNT(*)
	          FROM categories c JOIN log_entries le ON le.id = c.log_entry_id
	          WHERE 1=1`
	var args []any
	if source != "" {
		query += " AND le.source = ?"
		args = append(args, source)
	}
	query += " GROUP BY c.category_name, c.category_value ORDER BY c.category_name ASC, COUNT(*) DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: category counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]int)
	for rows.Next() {
		var name, value string
		var count int
		if err := rows.Scan(&name, &value, &count); err != nil {
			return nil, fmt.Errorf("store: scan category: %w", err)
		}
		if out[name] == nil {
			out[name] = make(map[string]int)
		}
		out[name][value] = count
	}
	return out, rows.Err()
}
