// Package extract derives named metric series and bounded categorical
// distributions from a batch of uniform log records.
package extract

import (
	"fmt"
	"strings"

	"github.com/loglens/loglens/pkg/types"
)

// maxCategoryCardinality drops unbounded categorical fields (free-form IDs)
// to bound memory and keep distributions usable.
const maxCategoryCardinality = 50

// Derived is the output of one batch derivation: ordered numeric
// observations per metric name, and value frequency tables per category.
type Derived struct {
	Metrics    map[string][]float64
	Categories map[string]map[string]int
}

// NormalizeName folds a raw field name into metric/category form: lowercase,
// trimmed, spaces and hyphens to underscores. An empty name becomes "metric".
func NormalizeName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return "metric"
	}
	n = strings.ToLower(n)
	n = strings.ReplaceAll(n, " ", "_")
	n = strings.ReplaceAll(n, "-", "_")
	return n
}

// Derive turns a record batch into metric series and category tables.
//
// Metrics are restricted to names that either vary (more than one distinct
// value) or were observed exactly once: a constant repeated across a large
// batch carries no signal, but a rare single sample still does. Categories
// keep names with 1 to 50 distinct values. A numeric field named "status"
// additionally feeds a synthetic status_group category bucketed by first
// digit.
func Derive(records []*types.LogRecord) Derived {
	metrics := make(map[string][]float64)
	categories := make(map[string]map[string]int)

	bump := func(cat, val string) {
		if categories[cat] == nil {
			categories[cat] = make(map[string]int)
		}
		categories[cat][val]++
	}

	for _, rec := range records {
		for key, val := range rec.NumericFields {
			name := NormalizeName(key)
			metrics[name] = append(metrics[name], val)
			if name == "status" {
				bump("status_group", fmt.Sprintf("%dxx", int(val)/100))
			}
		}
		for key, val := range rec.StringFields {
			bump(NormalizeName(key), val)
		}
	}

	for name, values := range metrics {
		if len(values) > 1 && !varies(values) {
			delete(metrics, name)
		}
	}
	for name, table := range categories {
		if len(table) == 0 || len(table) > maxCategoryCardinality {
			delete(categories, name)
		}
	}

	return Derived{Metrics: metrics, Categories: categories}
}

func varies(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return true
		}
	}
	return false
}
