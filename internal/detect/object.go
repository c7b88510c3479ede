package detect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/loglens/loglens/pkg/types"
)

// parseObject normalizes a decoded JSON object into a record. Shared by the
// whole-body JSON and JSON-Lines stages.
//
// Well-known keys are consulted in precedence order; every remaining value is
// classified into numeric and string fields. A string that also parses as a
// number lands in both maps so downstream consumers get categorical and
// numeric views of the same column.
func parseObject(obj map[string]any, fallbackSource, raw string) *types.LogRecord {
	ts, _ := pick(obj, "timestamp", "time", "ts")
	level, _ := pick(obj, "level", "severity", "log_level")
	msg, msgOK := pick(obj, "message", "msg", "event")
	src, srcOK := pick(obj, "source", "service", "app")

	message := raw
	if msgOK {
		message = stringify(msg)
	}
	source := fallbackSource
	if srcOK {
		source = stringify(src)
	}

	numeric := make(map[string]float64)
	strFields := make(map[string]string)
	for k, v := range obj {
		switch val := v.(type) {
		case float64:
			numeric[k] = val
		case string:
			strFields[k] = val
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				numeric[k] = f
			}
		default:
			// Booleans, nulls, and nested structures carry no field value.
		}
	}

	var tsStr string
	if ts != nil {
		tsStr = stringify(ts)
	}

	return &types.LogRecord{
		Timestamp:     NormalizeTimestamp(tsStr),
		Source:        source,
		Level:         GuessLevel(stringify(level), message),
		Message:       message,
		Raw:           raw,
		Format:        types.FormatJSON,
		NumericFields: numeric,
		StringFields:  strFields,
	}
}

// pick returns the first truthy value among keys. Nulls, empty strings,
// numeric zero, and false all fall through to the next candidate.
func pick(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val == "" {
				continue
			}
		case float64:
			if val == 0 {
				continue
			}
		case bool:
			if !val {
				continue
			}
		}
		return v, true
	}
	return nil, false
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
