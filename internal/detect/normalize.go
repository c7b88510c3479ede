package detect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/loglens/loglens/pkg/types"
)

// timestampLayouts are tried in order by NormalizeTimestamp. The syslog
// layout carries no year; see the backfill below.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"Jan _2 15:04:05",
	"02/Jan/2006:15:04:05 -0700",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
}

// isoFallbackLayouts back the general ISO-8601 attempt after the fixed
// templates fail. A trailing "Z" has already been rewritten to "+00:00".
var isoFallbackLayouts = []string{
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02",
}

// levelHints is the severity hint table. Order matters: the first hint that
// matches as a whole word wins, so "error" outranks "warn" inside one string.
var levelHints = []struct {
	re    *regexp.Regexp
	level string
}{
	{regexp.MustCompile(`(?i)\berror\b`), types.LevelError},
	{regexp.MustCompile(`(?i)\berr\b`), types.LevelError},
	{regexp.MustCompile(`(?i)\bwarn\b`), types.LevelWarn},
	{regexp.MustCompile(`(?i)\bwarning\b`), types.LevelWarn},
	{regexp.MustCompile(`(?i)\binfo\b`), types.LevelInfo},
	{regexp.MustCompile(`(?i)\bdebug\b`), types.LevelDebug},
	{regexp.MustCompile(`(?i)\btrace\b`), types.LevelDebug},
	{regexp.MustCompile(`(?i)\bcritical\b`), types.LevelError},
	{regexp.MustCompile(`(?i)\bfatal\b`), types.LevelError},
}

var (
	// isoTimestampRE finds an ISO-8601 timestamp anywhere in a line.
	isoTimestampRE = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)

	// numberRE matches signed decimal or integer tokens in free text.
	numberRE = regexp.MustCompile(`[-+]?\d*\.\d+|[-+]?\d+`)
)

// NormalizeTimestamp converts a heterogeneous timestamp string to a canonical
// instant. It never fails: unparseable, blank, or missing input yields the
// current ingestion time, so a record's timestamp is best-effort only.
func NormalizeTimestamp(raw string) time.Time {
	val := strings.TrimSpace(raw)
	if val == "" {
		return time.Now().UTC()
	}

	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			// Syslog timestamps carry no year; assume the current one.
			now := time.Now().UTC()
			t = time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
		}
		return t
	}

	iso := val
	if strings.HasSuffix(iso, "Z") {
		iso = strings.TrimSuffix(iso, "Z") + "+00:00"
	}
	for _, layout := range isoFallbackLayouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return t
		}
	}

	return time.Now().UTC()
}

// GuessLevel scans candidate strings in order for whole-word severity hints
// and returns the first match. Word boundaries prevent false positives such
// as "terroir" matching "err". Defaults to INFO.
func GuessLevel(candidates ...string) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, hint := range levelHints {
			if hint.re.MatchString(c) {
				return hint.level
			}
		}
	}
	return types.LevelInfo
}

// ExtractNumbers pulls every numeric token out of free text, named
// value_1..value_n in order of appearance. A low-confidence signal used only
// by the plain-text and syslog paths.
func ExtractNumbers(text string) map[string]float64 {
	out := make(map[string]float64)
	for i, tok := range numberRE.FindAllString(text, -1) {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		out[fmt.Sprintf("value_%d", i+1)] = f
	}
	return out
}

// truncate bounds a message to n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
