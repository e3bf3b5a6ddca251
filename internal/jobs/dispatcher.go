package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/voyager/models"
)

// ValidationError rejects a submission before any job is created.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// FlightPipeline runs a complete flight search: URL construction then
// agent extraction.
type FlightPipeline interface {
	Search(ctx context.Context, q models.FlightQuery) (json.RawMessage, error)
}

// HotelPipeline runs a complete hotel search through the external poll
// client.
type HotelPipeline interface {
	Search(ctx context.Context, q models.HotelQuery) (json.RawMessage, error)
}

// Dispatcher bridges the synchronous request boundary to the asynchronous
// pipelines: it validates, registers a Pending job, returns its id
// immediately and lets a dedicated worker goroutine carry the job to a
// terminal state. At most one worker runs per job id, and no error or panic
// escapes a worker.
type Dispatcher struct {
	registry Registry
	flights  FlightPipeline
	hotels   HotelPipeline
	logger   *log.Logger
	wg       sync.WaitGroup
}

// NewDispatcher wires the dispatcher to a registry and its two pipelines.
func NewDispatcher(registry Registry, flights FlightPipeline, hotels HotelPipeline, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(log.Writer(), "[DISPATCH] ", log.LstdFlags)
	}
	return &Dispatcher{registry: registry, flights: flights, hotels: hotels, logger: logger}
}

// SubmitFlightSearch validates the query and starts a flight search job.
func (d *Dispatcher) SubmitFlightSearch(ctx context.Context, q models.FlightQuery) (string, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return "", &ValidationError{Err: err}
	}
	return d.submit(ctx, models.JobKindFlightSearch, func(jctx context.Context) (json.RawMessage, error) {
		return d.flights.Search(jctx, q)
	})
}

// SubmitHotelSearch validates the query and starts a hotel search job.
func (d *Dispatcher) SubmitHotelSearch(ctx context.Context, q models.HotelQuery) (string, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return "", &ValidationError{Err: err}
	}
	return d.submit(ctx, models.JobKindHotelSearch, func(jctx context.Context) (json.RawMessage, error) {
		return d.hotels.Search(jctx, q)
	})
}

// GetJob reads a job's current state.
func (d *Dispatcher) GetJob(ctx context.Context, id string) (models.Job, error) {
	return d.registry.Get(ctx, id)
}

func (d *Dispatcher) submit(ctx context.Context, kind models.JobKind, run func(context.Context) (json.RawMessage, error)) (string, error) {
	id := uuid.NewString()
	if err := d.registry.Create(ctx, id, kind); err != nil {
		return "", err
	}
	jobsSubmitted.WithLabelValues(string(kind)).Inc()
	d.logger.Printf("job %s (%s) accepted", id, kind)

	d.wg.Add(1)
	go d.work(id, kind, run)
	return id, nil
}

// work drives one job to its terminal state. The job deliberately outlives
// the submitting request, so it runs on a background context; there is no
// caller-initiated cancellation.
func (d *Dispatcher) work(id string, kind models.JobKind, run func(context.Context) (json.RawMessage, error)) {
	defer d.wg.Done()
	jobsInFlight.Inc()
	defer jobsInFlight.Dec()

	ctx := context.Background()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Printf("job %s panicked: %v", id, r)
			d.fail(ctx, id, kind, fmt.Sprintf("worker panic: %v", r))
		}
	}()

	if err := d.registry.MarkProcessing(ctx, id); err != nil {
		d.fail(ctx, id, kind, fmt.Sprintf("could not start job: %v", err))
		return
	}

	result, err := run(ctx)
	if err != nil {
		d.logger.Printf("job %s failed: %v", id, err)
		d.fail(ctx, id, kind, err.Error())
		return
	}

	if err := d.registry.Complete(ctx, id, result); err != nil {
		d.logger.Printf("job %s: could not record completion: %v", id, err)
		return
	}
	jobsCompleted.WithLabelValues(string(kind)).Inc()
	d.logger.Printf("job %s completed", id)
}

func (d *Dispatcher) fail(ctx context.Context, id string, kind models.JobKind, cause string) {
	if err := d.registry.Fail(ctx, id, cause); err != nil {
		d.logger.Printf("job %s: could not record failure: %v", id, err)
		return
	}
	jobsFailed.WithLabelValues(string(kind)).Inc()
}

// Wait blocks until every in-flight worker has finished. Used on shutdown
// and in tests; new submissions during the wait are not prevented.
func (d *Dispatcher) Wait() { d.wg.Wait() }
