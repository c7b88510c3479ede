package types

import "time"

// Format identifies which parser in the detection cascade produced a record.
type Format string

const (
	FormatJSON      Format = "json"
	FormatCSV       Format = "csv"
	FormatSyslog    Format = "syslog"
	FormatAccessLog Format = "access_log"
	FormatPlain     Format = "plain"
)

// Normalized severity levels. Every record carries exactly one of these;
// detection never leaves the level empty.
const (
	LevelError = "ERROR"
	LevelWarn  = "WARN"
	LevelInfo  = "INFO"
	LevelDebug = "DEBUG"
)

// LogRecord is the uniform shape every input line or object is normalized
// into, regardless of the source format. Records are immutable once built.
type LogRecord struct {
	Timestamp     time.Time          `json:"timestamp"`
	Source        string             `json:"source"`
	Level         string             `json:"level"`
	Message       string             `json:"message"`
	Raw           string             `json:"raw_line"`
	Format        Format             `json:"format_detected"`
	NumericFields map[string]float64 `json:"numeric_fields"`
	StringFields  map[string]string  `json:"string_fields"`
}

// AlertRule defines a threshold test over the windowed mean of a metric.
type AlertRule struct {
	ID            int64   `json:"id"`
	MetricName    string  `json:"metric_name"`
	Condition     string  `json:"condition"` // gt, lt, eq
	Threshold     float64 `json:"threshold"`
	WindowSeconds int     `json:"window_seconds"`
	WebhookURL    string  `json:"webhook_url,omitempty"`
	Email         string  `json:"email,omitempty"`
	Enabled       bool    `json:"enabled"`
}

// TriggerEvent records one instance of a rule's condition being satisfied.
// History is append-only; Notified reports whether at least one transport
// accepted the alert.
type TriggerEvent struct {
	ID          int64     `json:"id"`
	RuleID      int64     `json:"rule_id"`
	TriggeredAt time.Time `json:"triggered_at"`
	MetricValue float64   `json:"metric_value"`
	Notified    bool      `json:"notified"`
}

// AlertPayload is the JSON body handed to notification transports.
type AlertPayload struct {
	RuleID        int64   `json:"rule_id"`
	MetricName    string  `json:"metric_name"`
	Condition     string  `json:"condition"`
	Threshold     float64 `json:"threshold"`
	WindowSeconds int     `json:"window_seconds"`
	MetricValue   float64 `json:"metric_value"`
	TriggeredAt   string  `json:"triggered_at"`
}
