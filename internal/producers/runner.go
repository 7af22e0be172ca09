// Package producers runs extraction producers against a document and turns
// every outcome, including crashes and timeouts, into an ExtractionRecord.
package producers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/extractcompare/internal/record"
)

// Func extracts one record from a document
type Func func(ctx context.Context, doc Document) (record.ExtractionRecord, error)

// Producer is a named extraction capability with its own time budget
type Producer struct {
	ID      string
	Timeout time.Duration
	Run     Func
}

// Runner executes producers in parallel
type Runner struct {
	Concurrency    int
	DefaultTimeout time.Duration
}

// Run executes every producer against doc and returns one record per
// producer in input order. It returns once all of them have finished or
// timed out; a producer never aborts the others.
func (r Runner) Run(ctx context.Context, doc Document, producers []Producer) []record.ExtractionRecord {
	concurrency := r.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	slog.Info("Running producers", "document", doc.ID, "producers", len(producers), "concurrency", concurrency)

	records := make([]record.ExtractionRecord, len(producers))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, concurrency)

	for i, p := range producers {
		wg.Add(1)
		go func(idx int, p Producer) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				records[idx] = stamp(record.Failed(p.ID, "not started: "+ctx.Err().Error()), p, doc, 0)
				return
			}

			records[idx] = r.runOne(ctx, doc, p)
		}(i, p)
	}

	wg.Wait()
	return records
}

type outcome struct {
	rec record.ExtractionRecord
	err error
}

func (r Runner) runOne(ctx context.Context, doc Document, p Producer) record.ExtractionRecord {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				done <- outcome{err: fmt.Errorf("producer panicked: %v", v)}
			}
		}()
		rec, err := p.Run(ctx, doc)
		done <- outcome{rec: rec, err: err}
	}()

	var rec record.ExtractionRecord
	select {
	case out := <-done:
		rec = out.rec
		if out.err != nil {
			rec = record.Failed(p.ID, out.err.Error())
		}
	case <-ctx.Done():
		msg := ctx.Err().Error()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("timed out after %s", timeout)
		}
		rec = record.Failed(p.ID, msg)
	}
	elapsed := time.Since(start).Milliseconds()

	rec = stamp(rec, p, doc, elapsed)
	if err := rec.Validate(); err != nil {
		rec = stamp(record.Failed(p.ID, append(rec.ErrorMessages, err.Error())...), p, doc, elapsed)
	}

	if rec.IsFailed() {
		slog.Warn("Producer failed", "producer", p.ID, "document", doc.ID, "errors", rec.ErrorMessages)
	} else {
		slog.Info("Producer finished", "producer", p.ID, "document", doc.ID, "status", rec.Status, "ms", rec.ProcessingTimeMs)
	}
	return rec
}

// stamp fills in what the runner knows better than the producer
func stamp(rec record.ExtractionRecord, p Producer, doc Document, elapsed int64) record.ExtractionRecord {
	rec.ProducerID = p.ID
	if rec.DocumentID == "" {
		rec.DocumentID = doc.ID
	}
	if rec.ProcessingTimeMs <= 0 {
		rec.ProcessingTimeMs = elapsed
	}
	if rec.PageCountExpected == 0 {
		rec.PageCountExpected = doc.PageCount
	}
	return rec
}
