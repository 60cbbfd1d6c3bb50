// Package pipeline buffers output records, drops repeated keys and hands batches to
// the configured writers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/cfscrape/config"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []Record) error
	Close() error
	Validate() error
}

// Pipeline batches records in arrival order. It is synchronous: Process returns once the
// record is buffered or flushed, so output order always equals input order.
type Pipeline struct {
	writer    OutputWriter
	batchSize int
	logger    *slog.Logger

	mu     sync.Mutex
	batch  []Record
	seen   *lru.Cache[string, struct{}]
	closed bool
	err    error

	metrics metrics
}

// NewPipeline builds a pipeline writing to writer.
func NewPipeline(writer OutputWriter, cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}

	return &Pipeline{
		writer:    writer,
		batchSize: batchSize,
		logger:    logger.With(slog.String("component", "pipeline")),
		batch:     make([]Record, 0, batchSize),
		seen:      seen,
		metrics:   newMetrics(),
	}, nil
}

// Process buffers records, flushing whenever a full batch is available.
func (p *Pipeline) Process(records ...Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	if p.closed {
		return ErrPipelineClosed
	}

	for _, record := range records {
		if record == nil {
			continue
		}
		if key := record.Key(); key != "" {
			if found, _ := p.seen.ContainsOrAdd(key, struct{}{}); found {
				p.metrics.addSkipped("duplicate_key")
				p.logger.Debug("duplicate record skipped", slog.String("key", key))
				continue
			}
		}
		p.batch = append(p.batch, record)
		if len(p.batch) >= p.batchSize {
			if err := p.flushLocked(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush writes any buffered records.
func (p *Pipeline) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	return p.flushLocked()
}

// Close flushes pending records and rejects further submissions. The writer itself
// stays open; its owner closes it.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.err
	}
	p.closed = true
	if p.err != nil {
		return p.err
	}
	return p.flushLocked()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// Written returns the number of records handed to the writer.
func (p *Pipeline) Written() int64 {
	return p.metrics.writtenCount()
}

// Skipped returns how many records were dropped for reason.
func (p *Pipeline) Skipped(reason string) int {
	return p.metrics.skippedCount(reason)
}

// StartMetricsReporting emits periodic progress logs until ctx ends.
func (p *Pipeline) StartMetricsReporting(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.logger.Info("pipeline progress",
					slog.Int64("written", p.Written()),
					slog.Int("duplicates", p.Skipped("duplicate_key")),
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *Pipeline) flushLocked() error {
	if len(p.batch) == 0 {
		return nil
	}
	if err := p.writer.Write(p.batch); err != nil {
		p.err = fmt.Errorf("write batch: %w", err)
		p.closed = true
		return p.err
	}
	p.metrics.addWritten(len(p.batch))
	p.batch = p.batch[:0]
	return nil
}

type metrics struct {
	mu      sync.Mutex
	written int64
	skipped map[string]int
}

func newMetrics() metrics {
	return metrics{
		skipped: make(map[string]int),
	}
}

func (m *metrics) addWritten(n int) {
	m.mu.Lock()
	m.written += int64(n)
	m.mu.Unlock()
}

func (m *metrics) addSkipped(reason string) {
	m.mu.Lock()
	m.skipped[reason]++
	m.mu.Unlock()
}

func (m *metrics) writtenCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written
}

func (m *metrics) skippedCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skipped[reason]
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copySkipped := make(map[string]int, len(m.skipped))
	for k, v := range m.skipped {
		copySkipped[k] = v
	}

	return map[string]interface{}{
		"written_records": m.written,
		"skipped_records": copySkipped,
	}
}
