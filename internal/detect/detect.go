// Package detect classifies unlabeled log payloads and normalizes them into
// uniform records. Detection is a fixed-order cascade: whole-body JSON,
// JSON-Lines, delimited table, then per-line syslog / access-log / plain
// text. The first stage that recognizes the payload wins; no stage ever
// returns an error, and the plain-text fallback accepts any non-empty line.
package detect

import (
	"encoding/json"
	"strings"

	"github.com/loglens/loglens/pkg/types"
)

// DefaultSource is the caller-supplied source label when none is given.
// The access-log parser rewrites it to "nginx" for matched lines.
const DefaultSource = "ingest"

// Detect classifies a raw payload and returns one record per logical entry,
// preserving input order. An empty or all-blank payload yields no records.
//
// Stages 1-3 classify the whole payload at once. Stages 4-6 run per line, so
// a single multi-line payload may mix syslog, access-log, and plain records.
func Detect(text, source string) []*types.LogRecord {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return nil
	}

	if recs, ok := detectBodyJSON(text, source); ok {
		return recs
	}
	if recs, ok := detectJSONLines(lines, source); ok {
		return recs
	}
	if recs, ok := detectTable(text, lines, source); ok {
		return recs
	}

	recs := make([]*types.LogRecord, 0, len(lines))
	for _, line := range lines {
		if r, ok := parseSyslogLine(line, source); ok {
			recs = append(recs, r)
			continue
		}
		if r, ok := parseAccessLogLine(line, source); ok {
			recs = append(recs, r)
			continue
		}
		recs = append(recs, parsePlainLine(line, source))
	}
	return recs
}

// detectBodyJSON handles stage 1: the whole payload parsed as one JSON
// value. Objects yield one record; arrays yield one record per element, with
// non-object elements stringified and pushed back through the cascade.
func detectBodyJSON(text, source string) ([]*types.LogRecord, bool) {
	var body any
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		return nil, false
	}

	switch v := body.(type) {
	case map[string]any:
		return []*types.LogRecord{parseObject(v, source, strings.TrimSpace(text))}, true
	case []any:
		var recs []*types.LogRecord
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				raw, _ := json.Marshal(obj)
				recs = append(recs, parseObject(obj, source, string(raw)))
				continue
			}
			recs = append(recs, Detect(elementText(item), source)...)
		}
		return recs, true
	}

	// Scalar JSON values are not confident matches; let later stages decide.
	return nil, false
}

// detectJSONLines handles stage 2. All-or-nothing: if any non-blank line is
// not a JSON object, the whole stage is rejected and classification falls
// through to per-line dispatch.
func detectJSONLines(lines []string, source string) ([]*types.LogRecord, bool) {
	recs := make([]*types.LogRecord, 0, len(lines))
	for _, line := range lines {
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil || obj == nil {
			return nil, false
		}
		recs = append(recs, parseObject(obj, source, line))
	}
	return recs, len(recs) > 0
}

// elementText renders a non-object JSON array element back to text for
// re-classification. Strings pass through unquoted.
func elementText(item any) string {
	if s, ok := item.(string); ok {
		return s
	}
	b, err := json.Marshal(item)
	if err != nil {
		return ""
	}
	return string(b)
}

func nonBlankLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, strings.TrimRight(line, "\r"))
		}
	}
	return out
}
