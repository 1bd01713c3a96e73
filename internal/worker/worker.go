package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/events"
	"github.com/dukerupert/freyja/internal/jobs"
	"github.com/dukerupert/freyja/internal/telemetry"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// MaxConcurrency is the maximum number of messages processed concurrently
	MaxConcurrency int

	// Queue is the NATS queue group shared by all workers, so each
	// orders.created message is handled once
	Queue string

	// JobTimeout bounds a single materialization
	JobTimeout time.Duration

	// ShutdownTimeout bounds the wait for in-flight jobs on shutdown
	ShutdownTimeout time.Duration
}

// Materializer issues an invoice for a committed order.
type Materializer interface {
	MaterializeInvoice(ctx context.Context, storeID, orderID string) (*domain.Invoice, error)
}

// Worker issues invoices for orders as orders.created events arrive.
type Worker struct {
	config   Config
	invoices Materializer
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewWorker creates a new invoice worker
func NewWorker(invoices Materializer, config Config, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *Worker {
	// Set defaults
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 5
	}
	if config.Queue == "" {
		config.Queue = "invoicing"
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		config:   config,
		invoices: invoices,
		metrics:  metrics,
		logger:   logger,
	}
}

// Start consumes orders.created from conn until ctx is cancelled, then
// drains in-flight jobs.
func (w *Worker) Start(ctx context.Context, conn *nats.Conn) error {
	w.logger.Info("worker starting",
		"worker_id", w.config.WorkerID,
		"queue", w.config.Queue,
		"subject", events.SubjectOrderCreated,
		"max_concurrency", w.config.MaxConcurrency,
	)

	msgs := make(chan *nats.Msg, w.config.MaxConcurrency*4)
	sub, err := conn.ChanQueueSubscribe(events.SubjectOrderCreated, w.config.Queue, msgs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.SubjectOrderCreated, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	return w.run(ctx, msgs)
}

// run dispatches message payloads to handle with bounded concurrency.
func (w *Worker) run(ctx context.Context, msgs <-chan *nats.Msg) error {
	sem := make(chan struct{}, w.config.MaxConcurrency)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down", "worker_id", w.config.WorkerID)
			w.drain(&wg)
			return ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				w.drain(&wg)
				return nil
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				w.drain(&wg)
				return ctx.Err()
			}

			wg.Add(1)
			go func(data []byte) {
				defer wg.Done()
				defer func() { <-sem }()
				// Jobs outlive the subscription context so shutdown lets
				// them finish within JobTimeout.
				_ = w.handle(context.WithoutCancel(ctx), data)
			}(msg.Data)
		}
	}
}

func (w *Worker) drain(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("worker shutdown timed out with jobs in flight", "worker_id", w.config.WorkerID)
	}
}

// handle processes one orders.created payload.
func (w *Worker) handle(ctx context.Context, data []byte) error {
	start := time.Now()

	payload, err := jobs.MaterializeInvoiceFromEvent(data)
	if err != nil {
		w.logger.Error("discarding malformed order event", "error", err)
		w.metrics.RecordJob(jobs.JobTypeMaterializeInvoice, time.Since(start).Seconds(), err)
		return err
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	inv, err := w.invoices.MaterializeInvoice(jobCtx, payload.StoreID, payload.OrderID)
	recorded := err
	if errors.Is(err, domain.ErrOrderCancelled) {
		recorded = nil
	}
	w.metrics.RecordJob(jobs.JobTypeMaterializeInvoice, time.Since(start).Seconds(), recorded)

	switch {
	case err == nil:
		w.logger.Info("job completed",
			"job_type", jobs.JobTypeMaterializeInvoice,
			"order_id", payload.OrderID,
			"invoice_number", inv.InvoiceNumber,
		)
		return nil
	case errors.Is(err, domain.ErrOrderCancelled):
		w.logger.Info("skipping invoice for cancelled order", "order_id", payload.OrderID)
		return nil
	default:
		w.logger.Error("job failed",
			"job_type", jobs.JobTypeMaterializeInvoice,
			"order_id", payload.OrderID,
			"store_id", payload.StoreID,
			"error", err,
		)
		return err
	}
}
