package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"leadgen-engine/internal/domain"
	"leadgen-engine/internal/events"
	"leadgen-engine/internal/scrape"
	"leadgen-engine/internal/scrape/parser"
	"leadgen-engine/internal/store"
)

// errJobGone aborts a run without touching the store: the job was
// deleted, reached a terminal state through another path, or the
// engine is shutting down.
var errJobGone = errors.New("job gone")

const initializingLabel = "Initializing search..."

func (o *Orchestrator) run(ctx context.Context, id string) {
	if !o.markInflight(id) {
		return
	}
	defer o.clearInflight(id)

	atomic.AddInt32(&o.active, 1)
	defer atomic.AddInt32(&o.active, -1)

	defer func() {
		// A panic anywhere in a run must never take the engine down.
		if rec := recover(); rec != nil {
			log.Printf("[runner] panic job=%s: %v", id, rec)
			o.failJob(id, fmt.Sprintf("internal error: %v", rec))
			o.recordRun(id, 0, fmt.Errorf("panic: %v", rec))
		}
	}()

	leads, err := o.execute(ctx, id)
	switch {
	case err == nil:
		o.recordRun(id, leads, nil)
	case errors.Is(err, errJobGone) || errors.Is(err, context.Canceled):
		// nothing to record against the job
	default:
		log.Printf("[runner] job=%s failed: %v", id, err)
		o.failJob(id, err.Error())
		o.recordRun(id, leads, err)
	}
}

func (o *Orchestrator) execute(ctx context.Context, id string) (int, error) {
	job, err := store.GetJob(ctx, o.db, id)
	if err != nil {
		return 0, errJobGone
	}
	if job.Status.Terminal() {
		return 0, errJobGone
	}
	if job.Status == domain.StatusPaused {
		if err := o.waitWhilePaused(ctx, id); err != nil {
			return 0, err
		}
	}

	if changed, err := store.SetJobStatus(ctx, o.db, id, domain.StatusActive, "",
		domain.StatusQueued, domain.StatusActive); err != nil || !changed {
		return 0, errJobGone
	}

	// A run resumed after a restart keeps the progress already on the
	// row instead of snapping back to 5.
	lastProgress := job.Progress
	if lastProgress < 5 {
		lastProgress = 5
	}
	if err := store.UpdateJobProgress(ctx, o.db, id, lastProgress, initializingLabel, -1); err != nil {
		return 0, err
	}
	o.publish(events.TypeJobProgress, id, domain.StatusActive, lastProgress)

	crit := criteriaFromJob(job)
	html, err := o.fetchDocument(ctx, crit)
	if err != nil {
		if ctx.Err() != nil {
			return 0, errJobGone
		}
		return 0, err
	}

	candidates := parser.ParseLeads(html, crit)
	total := len(candidates)

	// An active job picked up after a restart resumes past the leads
	// already committed by the previous run.
	already, err := store.CountLeadsForJob(ctx, o.db, id)
	if err != nil {
		return 0, err
	}
	if already > total {
		already = total
	}

	if total == 0 {
		if changed, err := store.CompleteJob(ctx, o.db, id, 0); err != nil {
			return 0, err
		} else if changed {
			o.publish(events.TypeJobCompleted, id, domain.StatusCompleted, 100)
		}
		return 0, nil
	}

	batchSize := 5
	if job.TotalExpected < batchSize {
		batchSize = job.TotalExpected
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	persisted := already
	scrapedAt := time.Now().UTC()

	for persisted < total {
		if err := o.checkControl(ctx, id); err != nil {
			return persisted, err
		}

		end := persisted + batchSize
		if end > total {
			end = total
		}

		batch := make([]domain.Lead, 0, end-persisted)
		for _, l := range candidates[persisted:end] {
			l.ID = uuid.NewString()
			l.JobID = job.ID
			l.UserID = job.UserID
			l.ScrapedAt = scrapedAt
			batch = append(batch, l)
		}

		if err := store.InsertLeads(ctx, o.db, batch); err != nil {
			return persisted, err
		}
		persisted = end

		// Recorded progress must never decrease: with more than 100
		// candidates the first batches compute below the initial 5%
		// write, so floor at the last value written.
		progress := persisted * 100 / total
		if progress < lastProgress {
			progress = lastProgress
		}
		if progress >= 100 {
			progress = 99 // 100 is reserved for the terminal write
		}
		lastProgress = progress
		remainingBatches := (total - persisted + batchSize - 1) / batchSize
		if err := store.UpdateJobProgress(ctx, o.db, id, progress,
			remaining(remainingBatches, o.batchPause), persisted); err != nil {
			return persisted, err
		}
		o.publish(events.TypeJobProgress, id, domain.StatusActive, progress)

		if persisted < total && o.batchPause > 0 {
			select {
			case <-ctx.Done():
				return persisted, errJobGone
			case <-time.After(o.batchPause):
			}
		}
	}

	if changed, err := store.CompleteJob(ctx, o.db, id, persisted); err != nil {
		return persisted, err
	} else if changed {
		o.publish(events.TypeJobCompleted, id, domain.StatusCompleted, 100)
	}
	return persisted, nil
}

// checkControl is the cooperative cancellation point before each batch.
func (o *Orchestrator) checkControl(ctx context.Context, id string) error {
	job, err := store.GetJob(ctx, o.db, id)
	if err != nil {
		return errJobGone
	}
	switch job.Status {
	case domain.StatusPaused:
		return o.waitWhilePaused(ctx, id)
	case domain.StatusActive:
		return nil
	default:
		return errJobGone
	}
}

// waitWhilePaused parks the runner until the job is resumed or goes
// away. Progress does not move while parked.
func (o *Orchestrator) waitWhilePaused(ctx context.Context, id string) error {
	t := time.NewTicker(o.pausePoll)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return errJobGone
		case <-t.C:
			job, err := store.GetJob(ctx, o.db, id)
			if err != nil {
				return errJobGone
			}
			switch job.Status {
			case domain.StatusPaused:
				// keep waiting
			case domain.StatusActive:
				return nil
			default:
				return errJobGone
			}
		}
	}
}

func (o *Orchestrator) fetchDocument(ctx context.Context, c domain.SearchCriteria) (string, error) {
	query := c.Query()
	if o.cache != nil {
		if html, ok := o.cache.Get(ctx, query); ok {
			log.Printf("[runner] cache hit query=%q", query)
			return html, nil
		}
	}

	html, err := o.fetch.FetchRenderedHTML(ctx, scrape.TargetURL(c))
	if err != nil {
		return "", err
	}

	if o.cache != nil {
		o.cache.Set(ctx, query, html)
	}
	return html, nil
}

func (o *Orchestrator) failJob(id, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	changed, err := store.SetJobStatus(ctx, o.db, id, domain.StatusFailed, msg)
	if err != nil {
		log.Printf("[runner] could not mark job %s failed: %v", id, err)
		return
	}
	if changed {
		o.publish(events.TypeJobFailed, id, domain.StatusFailed, -1)
	}
}

// criteriaFromJob reconstructs parse criteria from the persisted job
// row. Location is already composed, so it rides in the country slot.
func criteriaFromJob(j domain.ScrapingJob) domain.SearchCriteria {
	return domain.SearchCriteria{
		Country:  j.Location,
		Keywords: j.Industry,
		Quantity: j.TotalExpected,
	}
}

// remaining turns a batch count into the coarse human estimate shown
// in the UI. The per-batch duration is an assumption, not a
// measurement.
func remaining(batches int, pause time.Duration) string {
	if batches <= 0 {
		return "Almost done"
	}
	perBatch := pause
	if perBatch <= 0 {
		perBatch = 2 * time.Second
	}
	d := time.Duration(batches) * perBatch
	if d < time.Minute {
		return fmt.Sprintf("~%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("~%dm", int((d + time.Minute - 1).Minutes()))
}
