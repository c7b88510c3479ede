package detect

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/loglens/loglens/pkg/types"
)

// accessLogRE matches the Combined Log Format with an optional trailing
// response-time token.
var accessLogRE = regexp.MustCompile(
	`^(?P<ip>\S+)\s+\S+\s+\S+\s+\[(?P<ts>[^\]]+)\]\s+` +
		`"(?P<method>[A-Z]+)\s+(?P<path>\S+)\s+HTTP/[^"]+"\s+` +
		`(?P<status>\d{3})\s+(?P<size>\d+|-)\s+"(?P<ref>[^"]*)"\s+"(?P<ua>[^"]*)"(?:\s+(?P<rt>[\d.]+))?$`)

var (
	accessIP     = accessLogRE.SubexpIndex("ip")
	accessTS     = accessLogRE.SubexpIndex("ts")
	accessMethod = accessLogRE.SubexpIndex("method")
	accessPath   = accessLogRE.SubexpIndex("path")
	accessStatus = accessLogRE.SubexpIndex("status")
	accessSize   = accessLogRE.SubexpIndex("size")
	accessRT     = accessLogRE.SubexpIndex("rt")
)

// parseAccessLogLine handles stage 5 for a single line. The level derives
// purely from the numeric status: >=500 ERROR, >=400 WARN, else INFO.
func parseAccessLogLine(line, source string) (*types.LogRecord, bool) {
	m := accessLogRE.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}

	status, err := strconv.Atoi(m[accessStatus])
	if err != nil {
		return nil, false
	}

	numeric := map[string]float64{
		"status": float64(status),
		"bytes":  0,
	}
	if size := m[accessSize]; size != "-" {
		if b, err := strconv.ParseFloat(size, 64); err == nil {
			numeric["bytes"] = b
		}
	}
	if rt := m[accessRT]; rt != "" {
		if f, err := strconv.ParseFloat(rt, 64); err == nil {
			numeric["response_time"] = f
		}
	}

	level := types.LevelInfo
	switch {
	case status >= 500:
		level = types.LevelError
	case status >= 400:
		level = types.LevelWarn
	}

	src := source
	if src == DefaultSource || src == "" {
		src = "nginx"
	}

	return &types.LogRecord{
		Timestamp:     NormalizeTimestamp(m[accessTS]),
		Source:        src,
		Level:         level,
		Message:       fmt.Sprintf("%s %s -> %d", m[accessMethod], m[accessPath], status),
		Raw:           line,
		Format:        types.FormatAccessLog,
		NumericFields: numeric,
		StringFields: map[string]string{
			"ip":           m[accessIP],
			"method":       m[accessMethod],
			"path":         m[accessPath],
			"status_group": fmt.Sprintf("%dxx", status/100),
		},
	}, true
}
