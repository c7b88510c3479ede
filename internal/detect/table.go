package detect

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/loglens/loglens/pkg/types"
)

// tableDelimiters are the candidate delimiters tried during sniffing, in
// preference order.
var tableDelimiters = []rune{',', '\t', '|', ';'}

// detectTable handles stage 3: delimited tables (CSV/TSV/pipe/semicolon).
// Requires at least two non-blank lines and a sniffed header with more than
// one column. Any sniffing or parse failure is a soft rejection, never an
// error surfaced to the caller.
func detectTable(text string, lines []string, source string) ([]*types.LogRecord, bool) {
	if len(lines) < 2 {
		return nil, false
	}
	delim, ok := sniffDelimiter(lines)
	if !ok {
		return nil, false
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil || len(rows) < 2 {
		return nil, false
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	if len(header) < 2 {
		return nil, false
	}

	var out []*types.LogRecord
	for _, row := range rows[1:] {
		rec, ok := parseTableRow(header, row, source)
		if ok {
			out = append(out, rec)
		}
	}
	return out, len(out) > 0
}

func parseTableRow(header, row []string, source string) (*types.LogRecord, bool) {
	cells := make(map[string]string, len(header))
	n := len(row)
	if len(header) < n {
		n = len(header)
	}
	any := false
	for i := 0; i < n; i++ {
		if header[i] == "" {
			continue
		}
		cells[header[i]] = strings.TrimSpace(row[i])
		any = true
	}
	if !any {
		return nil, false
	}

	msg := cells["message"]
	if msg == "" {
		msg = cells["msg"]
	}
	if msg == "" {
		// Synthesize key=value pairs from all non-empty cells, header order.
		var parts []string
		for i := 0; i < n; i++ {
			if header[i] == "" || cells[header[i]] == "" {
				continue
			}
			parts = append(parts, header[i]+"="+cells[header[i]])
		}
		msg = strings.Join(parts, " ")
	}

	ts := firstCell(cells, "timestamp", "time", "date")
	level := firstCell(cells, "level", "severity")
	src := firstCell(cells, "source", "service")
	if src == "" {
		src = source
	}

	numeric := make(map[string]float64)
	strFields := make(map[string]string)
	values := make([]string, 0, n)
	for i := 0; i < n; i++ {
		k := header[i]
		if k == "" {
			continue
		}
		v := cells[k]
		values = append(values, v)
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			numeric[k] = f
		} else {
			strFields[k] = v
		}
	}

	return &types.LogRecord{
		Timestamp:     NormalizeTimestamp(ts),
		Source:        src,
		Level:         GuessLevel(level, msg),
		Message:       msg,
		Raw:           strings.Join(values, ","),
		Format:        types.FormatCSV,
		NumericFields: numeric,
		StringFields:  strFields,
	}, true
}

func firstCell(cells map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := cells[k]; v != "" {
			return v
		}
	}
	return ""
}

// sniffDelimiter inspects up to the first 10 lines and picks the delimiter
// that appears a consistent, non-zero number of times on every sampled line.
// Ties go to the candidate listed first.
func sniffDelimiter(lines []string) (rune, bool) {
	sample := lines
	if len(sample) > 10 {
		sample = sample[:10]
	}

	best := rune(0)
	bestCount := 0
	for _, d := range tableDelimiters {
		count := strings.Count(sample[0], string(d))
		if count == 0 {
			continue
		}
		consistent := true
		for _, line := range sample[1:] {
			if strings.Count(line, string(d)) != count {
				consistent = false
				break
			}
		}
		if consistent && count > bestCount {
			best = d
			bestCount = count
		}
	}
	return best, bestCount > 0
}
