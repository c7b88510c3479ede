package store

import (
	"context"
	"fmt"

	"github.com/loglens/loglens/pkg/types"
)

// CreateRule inserts a rule and returns its id. Validation of the condition
// and window happens at the API boundary; the store persists what it is
// given.
func (s *Store) CreateRule(ctx context.Context, r types.AlertRule) (int64, error) {
	enabled := 0
	if r.Enabled {
		enabled = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_rules (metric_name, condition, threshold, window_seconds, webhook_url, email, enabled)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.MetricName, r.Condition, r.Threshold, r.WindowSeconds, r.WebhookURL, r.Email, enabled)
	if err != nil {
		return 0, fmt.Errorf("store: create rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: rule id: %w", err)
	}
	return id, nil
}

// DeleteRule removes a rule. Returns false when no rule had that id.
func (s *Store) DeleteRule(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete rule: %w", err)
	}
	return n > 0, nil
}

// SetRuleEnabled flips the only mutable rule field. Returns false when no
// rule had that id.
func (s *Store) SetRuleEnabled(ctx context.Context, id int64, enabled bool) (bool, error) {
	v := 0
	if enabled {
		v = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE alert_rules SET enabled = ? WHERE id = ?`, v, id)
	if err != nil {
		return false, fmt.Errorf("store: set rule enabled: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: set rule enabled: %w", err)
	}
	return n > 0, nil
}

// ListRules returns every rule, enabled or not.
func (s *Store) ListRules(ctx context.Context) ([]types.AlertRule, error) {
	return s.queryRules(ctx,
		`SELECT id, metric_name, condition, threshold, window_seconds, webhook_url, email, enabled FROM alert_rules`)
}

// ListEnabledRules returns only the rules eligible for evaluation.
func (s *Store) ListEnabledRules(ctx context.Context) ([]types.AlertRule, error) {
	return s.queryRules(ctx,
		`SELECT id, metric_name, condition, threshold, window_seconds, webhook_url, email, enabled FROM alert_rules WHERE enabled = 1`)
}

func (s *Store) queryRules(ctx context.Context, query string) ([]types.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list rules: %w", err)
	}
	defer rows.Close()

	var out []types.AlertRule
	for rows.Next() {
		var r types.AlertRule
		var webhook, email *string
		var enabled int
		if err := rows.Scan(&r.ID, &r.MetricName, &r.Condition, &r.Threshold, &r.WindowSeconds, &webhook, &email, &enabled); err != nil {
			return nil, fmt.Errorf("store: scan rule: %w", err)
		}
		if webhook != nil {
			r.WebhookURL = *webhook
		}
		if email != nil {
			r.Email = *email
		}
		r.Enabled = enabled != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertTrigger appends one trigger event to history. History is
// append-only; nothing ever updates or deletes these rows.
func (s *Store) InsertTrigger(ctx context.Context, ev types.TriggerEvent) error {
	notified := 0
	if ev.Notified {
		notified = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_history (rule_id, triggered_at, metric_value, notified) VALUES (?, ?, ?, ?)`,
		ev.RuleID, fmtTime(ev.TriggeredAt), ev.MetricValue, notified)
	if err != nil {
		return fmt.Errorf("store: insert trigger: %w", err)
	}
	return nil
}

// ListHistory returns the most recent trigger events, newest first.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]types.TriggerEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rule_id, triggered_at, metric_value, notified FROM alert_history ORDER BY triggered_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("store: list history: %w", err)
	}
	defer rows.Close()

	var out []types.TriggerEvent
	for rows.Next() {
		var ev types.TriggerEvent
		var ts string
		var notified int
		if err := rows.Scan(&ev.ID, &ev.RuleID, &ts, &ev.MetricValue, &notified); err != nil {
			return nil, fmt.Errorf("store: scan trigger: %w", err)
		}
		ev.TriggeredAt = parseTime(ts)
		ev.Notified = notified != 0
		out = append(out, ev)
	}
	return out, rows.Err()
}
