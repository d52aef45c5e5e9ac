package orchestrator

import (
	"context"
	"log"
	"time"

	"leadgen-engine/internal/store"
)

// RunJanitor periodically fails active jobs whose last update is older
// than staleAfter. A job can only get that stale when the engine died
// mid-run and restart recovery could not reclaim it; failing it keeps
// the UI from showing a forever-spinning job. Blocks until ctx is done.
func (o *Orchestrator) RunJanitor(ctx context.Context, interval, staleAfter time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cutoff := time.Now().Add(-staleAfter)
			n, err := store.FailStaleActiveJobs(ctx, o.db, cutoff)
			if err != nil {
				log.Printf("[janitor] error: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[janitor] failed %d stale job(s)", n)
			}
		}
	}
}
