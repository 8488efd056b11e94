package store

import (
	"context"

	"github.com/pulsegrid/sentinel/model"

	zlog "github.com/pulsegrid/sentinel/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Writer rate-limits and fans out CHECK#/LATENCY# writes coming off a
// region's probe loop, mirroring the teacher's bulk writer: callers hand
// off results on a channel, a fixed pool of workers drains it under a
// shared rate.Limiter so a burst of monitors on one tick can't open more
// ClickHouse connections worth of pressure than the server was sized for.
type Writer struct {
	store   *Store
	limiter *rate.Limiter
	workers int
	results chan model.CheckResult
	samples chan model.LatencyHistorySample
}

// WriterOptions configures a Writer's throughput and worker count.
type WriterOptions struct {
	// RatePerSecond caps combined CHECK#+LATENCY# writes per second.
	RatePerSecond float64
	// Burst is the limiter's burst allowance.
	Burst int
	// Workers is split evenly between the check and latency queues:
	// Workers/2 goroutines drain each, rounded down, with at least one each.
	Workers int
	// QueueSize bounds how many pending writes may queue before Submit blocks.
	QueueSize int
}

// NewWriter constructs a Writer against store, ready for Run.
func NewWriter(s *Store, opts WriterOptions) *Writer {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	return &Writer{
		store:   s,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		workers: opts.Workers,
		results: make(chan model.CheckResult, opts.QueueSize),
		samples: make(chan model.LatencyHistorySample, opts.QueueSize),
	}
}

// SubmitCheck enqueues a check result for writing. It blocks only if the
// queue is full, never on the network write itself.
func (w *Writer) SubmitCheck(r model.CheckResult) {
	w.results <- r
}

// SubmitLatency enqueues a latency sample for writing.
func (w *Writer) SubmitLatency(sample model.LatencyHistorySample) {
	w.samples <- sample
}

// Close signals that no more writes will be submitted. Run returns once
// both queues have drained.
func (w *Writer) Close() {
	close(w.results)
	close(w.samples)
}

// Run drains the write queues across a worker pool until Close is called
// and every pending write has been flushed or ctx is canceled. A single
// failing write is logged and skipped rather than aborting the batch,
// since one bad row must never block the rest of a tick's writes.
func (w *Writer) Run(ctx context.Context) error {
	log := zlog.GetLogger()
	g, ctx := errgroup.WithContext(ctx)

	writeResults := func() error {
		for r := range w.results {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
			if err := w.store.WriteCheck(r); err != nil {
				log.Err(err).Str("monitor_id", r.MonitorID).Str("region", r.Region).Msg("failed to write check result")
			}
		}
		return nil
	}
	writeSamples := func() error {
		for sample := range w.samples {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
			if err := w.store.WriteLatencySample(sample); err != nil {
				log.Err(err).Str("monitor_id", sample.MonitorID).Str("region", sample.Region).Msg("failed to write latency sample")
			}
		}
		return nil
	}

	half := w.workers / 2
	if half < 1 {
		half = 1
	}

	for i := 0; i < half; i++ {
		g.Go(writeResults)
	}
	for i := 0; i < half; i++ {
		g.Go(writeSamples)
	}

	return g.Wait()
}
