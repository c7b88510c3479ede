// Package alert evaluates threshold rules against windowed means of stored
// metric observations and dispatches notifications through webhook and
// email transports.
package alert

import (
	"context"
	"time"

	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/pkg/types"
)

const (
	// DefaultInterval is the scheduler tick between rule sweeps.
	DefaultInterval = 30 * time.Second

	// DefaultNotifyTimeout bounds each transport delivery so a hung
	// endpoint cannot stall the scheduler.
	DefaultNotifyTimeout = 8 * time.Second

	// minWindow floors rule windows so a misconfigured rule never
	// degenerates into an empty interval.
	minWindow = 5 * time.Second
)

// Storage is the slice of the store the engine consumes.
type Storage interface {
	ListEnabledRules(ctx context.Context) ([]types.AlertRule, error)
	MetricMean(ctx context.Context, name string, since time.Time) (float64, bool, error)
	InsertTrigger(ctx context.Context, ev types.TriggerEvent) error
}

// WebhookSender delivers a payload to a URL. Implementations return an
// error on any failure and never panic across the boundary.
type WebhookSender interface {
	Send(ctx context.Context, url string, payload types.AlertPayload) error
}

// EmailSender delivers a payload to a single recipient address.
type EmailSender interface {
	Send(ctx context.Context, recipient string, payload types.AlertPayload) error
}

// Config holds engine timing knobs. OnSweepDone, when set, runs after every
// completed sweep; liveness probes use it as a heartbeat.
type Config struct {
	Interval      time.Duration
	NotifyTimeout time.Duration
	OnSweepDone   func()
}

// Engine runs the periodic rule sweep.
type Engine struct {
	store         Storage
	webhook       WebhookSender
	email         EmailSender
	collector     *metrics.Collector
	logger        *logging.Logger
	interval      time.Duration
	notifyTimeout time.Duration
	onSweepDone   func()
}

// NewEngine wires an engine. Nil transports disable the corresponding
// delivery channel.
func NewEngine(cfg Config, store Storage, webhook WebhookSender, email EmailSender, collector *metrics.Collector, logger *logging.Logger) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	return &Engine{
		store:         store,
		webhook:       webhook,
		email:         email,
		collector:     collector,
		logger:        logger.WithComponent("alerts"),
		interval:      cfg.Interval,
		notifyTimeout: cfg.NotifyTimeout,
		onSweepDone:   cfg.OnSweepDone,
	}
}

// Run sweeps rules every tick until ctx is cancelled. It returns after the
// in-flight tick finishes or is abandoned between rules.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info().Dur("interval", e.interval).Msg("alert scheduler started")
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("alert scheduler stopped")
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// Sweep evaluates every enabled rule once against a single "now" snapshot
// and returns how many rules triggered. Per-rule failures are isolated: one
// failing rule never aborts the rest of the sweep.
func (e *Engine) Sweep(ctx context.Context) int {
	start := time.Now()
	now := start.UTC()

	rules, err := e.store.ListEnabledRules(ctx)
	if err != nil {
		e.collector.StorageErrors.Inc()
		e.logger.Error().Err(err).Msg("listing enabled rules failed")
		return 0
	}

	triggered := 0
	for _, rule := range rules {
		if ctx.Err() != nil {
			// Shutdown mid-sweep: abandon the remaining rules. Each rule's
			// test+dispatch+record sequence is independent, so stopping
			// between rules leaves nothing half-committed.
			break
		}
		if e.evaluateRule(ctx, rule, now) {
			triggered++
		}
	}

	e.collector.AlertSweeps.Inc()
	e.collector.AlertSweepDuration.Observe(time.Since(start).Seconds())
	if e.onSweepDone != nil {
		e.onSweepDone()
	}
	if triggered > 0 {
		e.logger.Warn().Int("triggered", triggered).Msg("alert sweep triggered rules")
	}
	return triggered
}

func (e *Engine) evaluateRule(ctx context.Context, rule types.AlertRule, now time.Time) bool {
	window := time.Duration(rule.WindowSeconds) * time.Second
	if window < minWindow {
		window = minWindow
	}

	mean, ok, err := e.store.MetricMean(ctx, rule.MetricName, now.Add(-window))
	if err != nil {
		e.collector.StorageErrors.Inc()
		e.logger.Error().Err(err).Int64("rule_id", rule.ID).Msg("metric query failed")
		return false
	}
	if !ok {
		// No observations in the window: skip, no trigger, no history row.
		return false
	}
	if !ConditionMet(mean, rule.Condition, rule.Threshold) {
		return false
	}

	payload := types.AlertPayload{
		RuleID:        rule.ID,
		MetricName:    rule.MetricName,
		Condition:     rule.Condition,
		Threshold:     rule.Threshold,
		WindowSeconds: rule.WindowSeconds,
		MetricValue:   mean,
		TriggeredAt:   now.Format(time.RFC3339Nano),
	}
	notified := e.dispatch(ctx, rule, payload)

	// The history write must survive a shutdown that lands mid-rule.
	ev := types.TriggerEvent{RuleID: rule.ID, TriggeredAt: now, MetricValue: mean, Notified: notified}
	if err := e.store.InsertTrigger(context.WithoutCancel(ctx), ev); err != nil {
		e.collector.StorageErrors.Inc()
		e.logger.Error().Err(err).Int64("rule_id", rule.ID).Msg("recording trigger failed")
	}

	e.collector.AlertTriggers.Inc()
	e.logger.Warn().
		Int64("rule_id", rule.ID).
		Str("metric", rule.MetricName).
		Float64("value", mean).
		Float64("threshold", rule.Threshold).
		Bool("notified", notified).
		Msg("alert triggered")
	return true
}

// dispatch attempts every configured transport exactly once and reports
// whether at least one accepted the payload. Failures degrade to
// notified=false; they are never escalated.
func (e *Engine) dispatch(ctx context.Context, rule types.AlertRule, payload types.AlertPayload) bool {
	notified := false

	if rule.WebhookURL != "" && e.webhook != nil {
		nctx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
		err := e.webhook.Send(nctx, rule.WebhookURL, payload)
		cancel()
		if err != nil {
			e.collector.NotifyFailures.WithLabelValues("webhook").Inc()
			e.logger.Warn().Err(err).Int64("rule_id", rule.ID).Msg("webhook delivery failed")
		} else {
			notified = true
		}
	}

	if rule.Email != "" && e.email != nil {
		nctx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
		err := e.email.Send(nctx, rule.Email, payload)
		cancel()
		if err != nil {
			e.collector.NotifyFailures.WithLabelValues("email").Inc()
			e.logger.Warn().Err(err).Int64("rule_id", rule.ID).Msg("email delivery failed")
		} else {
			notified = true
		}
	}

	return notified
}

// ConditionMet tests a windowed mean against a rule threshold. The eq
// comparison is exact float equality.
func ConditionMet(value float64, condition string, threshold float64) bool {
	switch condition {
	case "gt":
		return value > threshold
	case "lt":
		return value < threshold
	case "eq":
		return value == threshold
	default:
		return false
	}
}

// ValidCondition reports whether s is an accepted rule condition.
func ValidCondition(s string) bool {
	return s == "gt" || s == "lt" || s == "eq"
}
