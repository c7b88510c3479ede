package detect

import (
	"regexp"

	"github.com/loglens/loglens/pkg/types"
)

// syslogRE matches BSD- and ISO-timestamped syslog lines with an optional
// <priority> prefix and an optional [pid] after the process name.
var syslogRE = regexp.MustCompile(
	`^(?:<(?P<pri>\d{1,3})>)?` +
		`(?P<ts>[A-Z][a-z]{2}\s+\d{1,2}\s\d{2}:\d{2}:\d{2}|\d{4}-\d{2}-\d{2}[T\s]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)\s+` +
		`(?P<host>[\w\-.]+)\s+(?P<proc>[\w\-./]+)(?:\[(?P<pid>\d+)\])?:\s*(?P<msg>.*)$`)

var (
	syslogTS   = syslogRE.SubexpIndex("ts")
	syslogHost = syslogRE.SubexpIndex("host")
	syslogProc = syslogRE.SubexpIndex("proc")
	syslogMsg  = syslogRE.SubexpIndex("msg")
)

// parseSyslogLine handles stage 4 for a single line. The process name
// becomes the record source; the hostname rides along as a string field.
func parseSyslogLine(line, source string) (*types.LogRecord, bool) {
	m := syslogRE.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	msg := m[syslogMsg]
	src := m[syslogProc]
	if src == "" {
		src = source
	}

	return &types.LogRecord{
		Timestamp:     NormalizeTimestamp(m[syslogTS]),
		Source:        src,
		Level:         GuessLevel(msg),
		Message:       msg,
		Raw:           line,
		Format:        types.FormatSyslog,
		NumericFields: ExtractNumbers(msg),
		StringFields:  map[string]string{"hostname": m[syslogHost]},
	}, true
}
