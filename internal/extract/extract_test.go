package extract

import (
	"fmt"
	"testing"

	"github.com/loglens/loglens/pkg/types"
)

func numRec(fields map[string]float64) *types.LogRecord {
	return &types.LogRecord{NumericFields: fields, StringFields: map[string]string{}}
}

func strRec(fields map[string]string) *types.LogRecord {
	return &types.LogRecord{NumericFields: map[string]float64{}, StringFields: fields}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Latency MS", "latency_ms"},
		{"response-time", "response_time"},
		{"  cpu  ", "cpu"},
		{"", "metric"},
		{"already_fine", "already_fine"},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDerive_ConstantMetricSuppressed(t *testing.T) {
	recs := []*types.LogRecord{
		numRec(map[string]float64{"latency_ms": 10}),
		numRec(map[string]float64{"latency_ms": 10}),
		numRec(map[string]float64{"latency_ms": 10}),
	}
	d := Derive(recs)
	if _, ok := d.Metrics["latency_ms"]; ok {
		t.Error("constant multi-sample metric must be suppressed")
	}
}

func TestDerive_SingletonMetricKept(t *testing.T) {
	d := Derive([]*types.LogRecord{numRec(map[string]float64{"retries": 3})})
	got, ok := d.Metrics["retries"]
	if !ok || len(got) != 1 || got[0] != 3 {
		t.Errorf("singleton metric: got %v, ok=%v", got, ok)
	}
}

func TestDerive_VaryingMetricKept(t *testing.T) {
	recs := []*types.LogRecord{
		numRec(map[string]float64{"cpu": 10}),
		numRec(map[string]float64{"cpu": 95}),
	}
	d := Derive(recs)
	if got := d.Metrics["cpu"]; len(got) != 2 {
		t.Errorf("varying metric: got %v", got)
	}
}

func TestDerive_StatusGroupSynthesis(t *testing.T) {
	recs := []*types.LogRecord{
		numRec(map[string]float64{"status": 200}),
		numRec(map[string]float64{"status": 503}),
		numRec(map[string]float64{"status": 404}),
		numRec(map[string]float64{"status": 200}),
	}
	d := Derive(recs)
	groups := d.Categories["status_group"]
	if groups["2xx"] != 2 || groups["5xx"] != 1 || groups["4xx"] != 1 {
		t.Errorf("status_group = %v", groups)
	}
}

func TestDerive_CategoryCardinalityBound(t *testing.T) {
	var recs []*types.LogRecord
	for i := 0; i < 51; i++ {
		recs = append(recs, strRec(map[string]string{"request_id": fmt.Sprintf("id-%d", i)}))
	}
	recs = append(recs, strRec(map[string]string{"region": "us-east-1"}))

	d := Derive(recs)
	if _, ok := d.Categories["request_id"]; ok {
		t.Error("51 distinct values must drop the category")
	}
	if d.Categories["region"]["us-east-1"] != 1 {
		t.Errorf("region = %v", d.Categories["region"])
	}
}

func TestDerive_NameNormalizationApplied(t *testing.T) {
	d := Derive([]*types.LogRecord{numRec(map[string]float64{"Response-Time": 1.5})})
	if _, ok := d.Metrics["response_time"]; !ok {
		t.Errorf("metrics = %v, want normalized name", d.Metrics)
	}
}

func TestDerive_Empty(t *testing.T) {
	d := Derive(nil)
	if d.Metrics == nil || d.Categories == nil {
		t.Error("maps must be non-nil for empty input")
	}
	if len(d.Metrics) != 0 || len(d.Categories) != 0 {
		t.Errorf("expected empty output, got %v / %v", d.Metrics, d.Categories)
	}
}
