// Package ingest runs the synchronous ingestion path: classify a raw
// payload, derive its metric and category summary, and persist the batch in
// one transaction.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/loglens/loglens/internal/detect"
	"github.com/loglens/loglens/internal/extract"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/internal/store"
	"github.com/loglens/loglens/pkg/types"
)

var (
	// ErrEmptyPayload rejects bodies that contain no non-blank text.
	ErrEmptyPayload = errors.New("ingest: empty payload")

	// ErrNoRecords rejects payloads that classified to zero records, such
	// as an empty JSON array.
	ErrNoRecords = errors.New("ingest: no records recognized")
)

// Recorder is the slice of the store the service writes batches through.
type Recorder interface {
	InsertBatch(ctx context.Context, records []*types.LogRecord) (*store.BatchResult, error)
}

// Result summarizes one accepted ingestion.
type Result struct {
	Ingested   int            `json:"ingested"`
	Formats    map[string]int `json:"formats_detected"`
	Metrics    map[string]int `json:"metrics_extracted"`
	Categories map[string]int `json:"categories_extracted"`
}

// Service ties the detection cascade, the extractor, and the store together.
type Service struct {
	store         Recorder
	collector     *metrics.Collector
	logger        *logging.Logger
	tracer        trace.Tracer
	defaultSource string
}

// NewService builds the ingestion pipeline. defaultSource labels payloads
// whose caller supplied no source; empty means the built-in label.
func NewService(st Recorder, collector *metrics.Collector, defaultSource string, logger *logging.Logger) *Service {
	if defaultSource == "" {
		defaultSource = detect.DefaultSource
	}
	return &Service{
		store:         st,
		collector:     collector,
		logger:        logger.WithComponent("ingest"),
		tracer:        otel.Tracer("loglens/ingest"),
		defaultSource: defaultSource,
	}
}

// Ingest classifies text, persists the resulting records, and returns the
// batch summary. An empty source falls back to the default label.
func (s *Service) Ingest(ctx context.Context, text, source string) (*Result, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ingest.process")
	defer span.End()

	s.collector.IngestRequests.Inc()

	if strings.TrimSpace(text) == "" {
		s.collector.IngestRejected.Inc()
		return nil, ErrEmptyPayload
	}
	if source == "" {
		source = s.defaultSource
	}

	records := detect.Detect(text, source)
	if len(records) == 0 {
		s.collector.IngestRejected.Inc()
		return nil, ErrNoRecords
	}

	// An explicit non-default label wins over whatever detection found in
	// the payload itself.
	if source != s.defaultSource {
		for _, rec := range records {
			rec.Source = source
		}
	}

	derived := extract.Derive(records)

	res, err := s.store.InsertBatch(ctx, records)
	if err != nil {
		s.collector.StorageErrors.Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("persisting batch: %w", err)
	}

	for format, n := range res.Formats {
		s.collector.RecordsIngested.WithLabelValues(format).Add(float64(n))
	}
	s.collector.IngestDuration.Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("ingest.source", source),
		attribute.Int("ingest.records", res.Ingested),
	)
	s.logger.Debug().
		Str("source", source).
		Int("records", res.Ingested).
		Int("metrics", len(derived.Metrics)).
		Msg("batch ingested")

	out := &Result{
		Ingested:   res.Ingested,
		Formats:    res.Formats,
		Metrics:    make(map[string]int, len(derived.Metrics)),
		Categories: make(map[string]int, len(derived.Categories)),
	}
	for name, values := range derived.Metrics {
		out.Metrics[name] = len(values)
	}
	for name, table := range derived.Categories {
		out.Categories[name] = len(table)
	}
	return out, nil
}
