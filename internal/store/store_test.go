package store

import (
	"context"
	"testing"
	"time"

	"github.com/loglens/loglens/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(ts time.Time, source, level string, numeric map[string]float64, strs map[string]string) *types.LogRecord {
	if numeric == nil {
		numeric = map[string]float64{}
	}
	if strs == nil {
		strs = map[string]string{}
	}
	return &types.LogRecord{
		Timestamp:     ts,
		Source:        source,
		Level:         level,
		Message:       "test message",
		Raw:           "raw line",
		Format:        types.FormatPlain,
		NumericFields: numeric,
		StringFields:  strs,
	}
}

func TestInsertBatchAndListEntries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recs := []*types.LogRecord{
		testRecord(now.Add(-time.Second), "api", types.LevelInfo, map[string]float64{"latency_ms": 12.5}, map[string]string{"region": "eu"}),
		testRecord(now, "api", types.LevelError, nil, nil),
	}
	recs[1].Format = types.FormatJSON

	res, err := s.InsertBatch(ctx, recs)
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if res.Ingested != 2 {
		t.Errorf("ingested = %d, want 2", res.Ingested)
	}
	if res.Formats["plain"] != 1 || res.Formats["json"] != 1 {
		t.Errorf("formats = %v", res.Formats)
	}

	entries, err := s.ListEntries(ctx, EntryFilter{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].Level != types.LevelError {
		t.Errorf("expected newest entry first, got level %q", entries[0].Level)
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("created_at not round-tripped")
	}

	errOnly, err := s.ListEntries(ctx, EntryFilter{Level: types.LevelError})
	if err != nil {
		t.Fatalf("ListEntries(level): %v", err)
	}
	if len(errOnly) != 1 {
		t.Errorf("level filter: got %d entries, want 1", len(errOnly))
	}
}

func TestMetricMean(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recs := []*types.LogRecord{
		testRecord(now.Add(-10*time.Second), "api", types.LevelInfo, map[string]float64{"cpu": 90}, nil),
		testRecord(now.Add(-5*time.Second), "api", types.LevelInfo, map[string]float64{"cpu": 100}, nil),
		// Outside a 30s window the caller might use.
		testRecord(now.Add(-2*time.Hour), "api", types.LevelInfo, map[string]float64{"cpu": 10}, nil),
	}
	if _, err := s.InsertBatch(ctx, recs); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	mean, ok, err := s.MetricMean(ctx, "cpu", now.Add(-30*time.Second))
	if err != nil {
		t.Fatalf("MetricMean: %v", err)
	}
	if !ok || mean != 95 {
		t.Errorf("mean = %v ok=%v, want 95 true", mean, ok)
	}

	// All three observations.
	mean, ok, err = s.MetricMean(ctx, "cpu", now.Add(-3*time.Hour))
	if err != nil {
		t.Fatalf("MetricMean: %v", err)
	}
	if !ok || mean < 66 || mean > 67 {
		t.Errorf("full mean = %v ok=%v", mean, ok)
	}
}

func TestMetricMean_EmptyWindow(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.MetricMean(context.Background(), "nope", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("MetricMean: %v", err)
	}
	if ok {
		t.Error("expected ok=false for empty window")
	}
}

func TestMetricSeriesAndCategories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recs := []*types.LogRecord{
		testRecord(now.Add(-2*time.Second), "web", types.LevelInfo, map[string]float64{"status": 200}, map[string]string{"status_group": "2xx"}),
		testRecord(now.Add(-time.Second), "web", types.LevelInfo, map[string]float64{"status": 503}, map[string]string{"status_group": "5xx"}),
		testRecord(now, "db", types.LevelInfo, map[string]float64{"queries": 7}, nil),
	}
	if _, err := s.InsertBatch(ctx, recs); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	series, err := s.MetricSeries(ctx, SeriesFilter{Source: "web"})
	if err != nil {
		t.Fatalf("MetricSeries: %v", err)
	}
	if len(series["status"]) != 2 {
		t.Errorf("status series = %v", series["status"])
	}
	if _, ok := series["queries"]; ok {
		t.Error("source filter leaked another source's metric")
	}
	if series["status"][0].V != 200 {
		t.Errorf("series not ordered ascending: %v", series["status"])
	}

	cats, err := s.CategoryCounts(ctx, "")
	if err != nil {
		t.Fatalf("CategoryCounts: %v", err)
	}
	if cats["status_group"]["2xx"] != 1 || cats["status_group"]["5xx"] != 1 {
		t.Errorf("categories = %v", cats)
	}
}

func TestRulesLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRule(ctx, types.AlertRule{
		MetricName:    "cpu",
		Condition:     "gt",
		Threshold:     90,
		WindowSeconds: 60,
		WebhookURL:    "http://example.com/hook",
		Enabled:       true,
	})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero rule id")
	}

	enabled, err := s.ListEnabledRules(ctx)
	if err != nil {
		t.Fatalf("ListEnabledRules: %v", err)
	}
	if len(enabled) != 1 || enabled[0].MetricName != "cpu" || enabled[0].WebhookURL != "http://example.com/hook" {
		t.Errorf("enabled rules = %+v", enabled)
	}

	ok, err := s.SetRuleEnabled(ctx, id, false)
	if err != nil || !ok {
		t.Fatalf("SetRuleEnabled: ok=%v err=%v", ok, err)
	}
	enabled, err = s.ListEnabledRules(ctx)
	if err != nil {
		t.Fatalf("ListEnabledRules: %v", err)
	}
	if len(enabled) != 0 {
		t.Errorf("disabled rule still listed: %+v", enabled)
	}
	all, err := s.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("all rules = %+v", all)
	}

	ok, err = s.DeleteRule(ctx, id)
	if err != nil || !ok {
		t.Fatalf("DeleteRule: ok=%v err=%v", ok, err)
	}
	ok, err = s.DeleteRule(ctx, id)
	if err != nil {
		t.Fatalf("DeleteRule(again): %v", err)
	}
	if ok {
		t.Error("deleting a missing rule must report false")
	}
}

func TestTriggerHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRule(ctx, types.AlertRule{MetricName: "cpu", Condition: "gt", Threshold: 1, WindowSeconds: 60, Enabled: true})
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	now := time.Now().UTC()
	events := []types.TriggerEvent{
		{RuleID: id, TriggeredAt: now.Add(-time.Minute), MetricValue: 91, Notified: false},
		{RuleID: id, TriggeredAt: now, MetricValue: 95, Notified: true},
	}
	for _, ev := range events {
		if err := s.InsertTrigger(ctx, ev); err != nil {
			t.Fatalf("InsertTrigger: %v", err)
		}
	}

	hist, err := s.ListHistory(ctx, 10)
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("got %d events, want 2", len(hist))
	}
	if hist[0].MetricValue != 95 || !hist[0].Notified {
		t.Errorf("newest first expected, got %+v", hist[0])
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recs := []*types.LogRecord{
		testRecord(now, "api", types.LevelError, nil, nil),
		testRecord(now, "api", types.LevelInfo, nil, nil),
		testRecord(now.Add(-2*time.Hour), "batch", types.LevelInfo, nil, nil),
	}
	if _, err := s.InsertBatch(ctx, recs); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if _, err := s.CreateRule(ctx, types.AlertRule{MetricName: "m", Condition: "gt", Threshold: 1, WindowSeconds: 60, Enabled: true}); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalEntries != 3 {
		t.Errorf("total = %d", st.TotalEntries)
	}
	if st.EntriesPerMin != 2 {
		t.Errorf("per-min = %d, want 2", st.EntriesPerMin)
	}
	if st.ErrorRate < 0.33 || st.ErrorRate > 0.34 {
		t.Errorf("error rate = %v", st.ErrorRate)
	}
	if len(st.TopSources) == 0 || st.TopSources[0].Source != "api" {
		t.Errorf("top sources = %+v", st.TopSources)
	}
	if st.ActiveAlerts != 1 {
		t.Errorf("active alerts = %d", st.ActiveAlerts)
	}
}
