package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"leadgen-engine/internal/domain"
	"leadgen-engine/internal/events"
	"leadgen-engine/internal/store"
)

// ErrQueueFull is returned when the admission queue cannot take
// another job.
var ErrQueueFull = errors.New("job queue is full")

// Fetcher issues the rendered-HTML fetch for a target search URL.
// Satisfied by proxy.Client.
type Fetcher interface {
	FetchRenderedHTML(ctx context.Context, targetURL string) (string, error)
}

// Cache holds rendered documents keyed by composed query so identical
// searches inside the TTL skip the paid proxy call. May be nil.
type Cache interface {
	Get(ctx context.Context, query string) (string, bool)
	Set(ctx context.Context, query, html string)
}

// Status is the engine-level activity snapshot served to the UI.
type Status struct {
	Active    int    `json:"active"`
	Queued    int    `json:"queued"`
	LastJobID string `json:"last_job_id"`
	LastRunAt string `json:"last_run_at"`
	LastOkAt  string `json:"last_ok_at"`
	LastError string `json:"last_error"`
	LastLeads int    `json:"last_leads"`
}

type Deps struct {
	DB    *sql.DB
	Fetch Fetcher
	Cache Cache
	Hub   *events.Hub

	Workers     int
	QueueSize   int
	MaxQuantity int
	BatchPause  time.Duration
	// How often a runner re-reads job status while the job is paused.
	PausePoll time.Duration
}

// Orchestrator admits jobs through a bounded queue and drives each one
// through fetch, parse and batched persistence on a worker pool. The
// job store is the source of truth for control state; runners observe
// it cooperatively at every batch boundary.
type Orchestrator struct {
	db         *sql.DB
	fetch      Fetcher
	cache      Cache
	hub        *events.Hub
	queue      chan string
	batchPause time.Duration
	pausePoll  time.Duration
	maxQty     int
	workers    int

	mu       sync.Mutex
	inflight map[string]struct{}
	active   int32

	status atomic.Value // Status

	cancel context.CancelFunc
	group  *errgroup.Group
}

func New(d Deps) *Orchestrator {
	if d.Workers <= 0 {
		d.Workers = 3
	}
	if d.QueueSize <= 0 {
		d.QueueSize = 64
	}
	if d.PausePoll <= 0 {
		d.PausePoll = 2 * time.Second
	}
	o := &Orchestrator{
		db:         d.DB,
		fetch:      d.Fetch,
		cache:      d.Cache,
		hub:        d.Hub,
		queue:      make(chan string, d.QueueSize),
		batchPause: d.BatchPause,
		pausePoll:  d.PausePoll,
		maxQty:     d.MaxQuantity,
		workers:    d.Workers,
		inflight:   make(map[string]struct{}),
	}
	o.status.Store(Status{})
	return o
}

// Start launches the worker pool and re-enqueues work that survived a
// restart: queued jobs run from scratch, active jobs resume from the
// leads already committed.
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	o.group = g
	for i := 0; i < o.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case id := <-o.queue:
					o.run(gctx, id)
				}
			}
		})
	}

	for _, st := range []domain.JobStatus{domain.StatusQueued, domain.StatusActive} {
		jobs, err := store.ListJobsByStatus(ctx, o.db, st)
		if err != nil {
			return fmt.Errorf("requeue %s jobs: %w", st, err)
		}
		for _, j := range jobs {
			if !o.Enqueue(j.ID) {
				log.Printf("[orchestrator] queue full, cannot requeue job %s", j.ID)
			}
		}
	}
	return nil
}

// Stop cancels all runners and waits for them to exit. In-flight jobs
// stay active in the store; restart recovery picks them back up.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	if o.group != nil {
		_ = o.group.Wait()
	}
}

// Submit validates the criteria, creates the job record with
// status=queued and hands it to the worker pool. The caller gets the
// job back immediately; execution is detached.
func (o *Orchestrator) Submit(ctx context.Context, userID, name string, c domain.SearchCriteria) (domain.ScrapingJob, error) {
	if err := c.Validate(o.maxQty); err != nil {
		return domain.ScrapingJob{}, err
	}

	now := time.Now().UTC()
	job := domain.ScrapingJob{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          name,
		Status:        domain.StatusQueued,
		Progress:      0,
		TotalExpected: c.Quantity,
		TimeRemaining: "Queued",
		Industry:      c.Keywords,
		Location:      c.Location(),
		SearchQuery:   c.Query(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if job.Name == "" {
		job.Name = c.Query()
	}

	if err := store.CreateJob(ctx, o.db, job); err != nil {
		return domain.ScrapingJob{}, err
	}

	if !o.Enqueue(job.ID) {
		_, _ = store.SetJobStatus(ctx, o.db, job.ID, domain.StatusFailed, ErrQueueFull.Error())
		job.Status = domain.StatusFailed
		job.ErrorMessage = ErrQueueFull.Error()
		return job, ErrQueueFull
	}

	return job, nil
}

// Pause flips an active job to paused. The runner parks at its next
// batch boundary; already-persisted leads stay.
func (o *Orchestrator) Pause(ctx context.Context, id string) (bool, error) {
	return store.SetJobStatus(ctx, o.db, id, domain.StatusPaused, "", domain.StatusActive)
}

// Resume flips a paused job back to active. If no runner is parked on
// it (engine restarted while paused), the job is re-enqueued. A full
// queue rolls the job back to paused and reports ErrQueueFull, so the
// job never sits active with no runner attached.
func (o *Orchestrator) Resume(ctx context.Context, id string) (bool, error) {
	changed, err := store.SetJobStatus(ctx, o.db, id, domain.StatusActive, "", domain.StatusPaused)
	if err != nil || !changed {
		return changed, err
	}

	o.mu.Lock()
	_, running := o.inflight[id]
	o.mu.Unlock()
	if !running && !o.Enqueue(id) {
		_, _ = store.SetJobStatus(ctx, o.db, id, domain.StatusPaused, "", domain.StatusActive)
		return false, ErrQueueFull
	}
	return true, nil
}

// Delete removes the job and, through the FK cascade, its leads. A
// parked or running runner notices at the next batch boundary.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	return store.DeleteJob(ctx, o.db, id)
}

// Enqueue hands a job id to the pool without blocking.
func (o *Orchestrator) Enqueue(id string) bool {
	select {
	case o.queue <- id:
		return true
	default:
		return false
	}
}

// Status returns the latest activity snapshot.
func (o *Orchestrator) Status() Status {
	st := o.status.Load().(Status)
	st.Active = int(atomic.LoadInt32(&o.active))
	st.Queued = len(o.queue)
	return st
}

func (o *Orchestrator) markInflight(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, dup := o.inflight[id]; dup {
		return false
	}
	o.inflight[id] = struct{}{}
	return true
}

func (o *Orchestrator) clearInflight(id string) {
	o.mu.Lock()
	delete(o.inflight, id)
	o.mu.Unlock()
}

func (o *Orchestrator) recordRun(id string, leads int, err error) {
	st := o.status.Load().(Status)
	now := time.Now().UTC().Format(time.RFC3339)
	st.LastJobID = id
	st.LastRunAt = now
	st.LastLeads = leads
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = now
	}
	o.status.Store(st)
}

func (o *Orchestrator) publish(typ, jobID string, status domain.JobStatus, progress int) {
	if o.hub == nil {
		return
	}
	o.hub.Publish(events.MakeEvent("", typ, 1, events.JobEvent{
		JobID:    jobID,
		Status:   string(status),
		Progress: progress,
	}))
}
