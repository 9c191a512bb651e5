// Package radar sequences one run: load state, fetch the directory, diff
// against the known set, deliver what's new, persist the outcome.
package radar

import (
	"context"
	"fmt"
	"log"
	"time"

	"ycradar/internal/detect"
	"ycradar/internal/domain"
	"ycradar/internal/state"
)

// Fetcher queries the upstream directory. Implemented by algolia.Client.
type Fetcher interface {
	Count(ctx context.Context) (int, error)
	FetchSince(ctx context.Context, ts int64) ([]domain.Company, error)
	FetchAll(ctx context.Context) ([]domain.Company, error)
}

// Deliverer forwards companies to the sink. Implemented by webhook.Sender.
type Deliverer interface {
	Deliver(ctx context.Context, pending map[string]domain.PendingDelivery, fresh []domain.Company) (delivered []string, failed map[string]domain.PendingDelivery)
}

type Runner struct {
	Fetcher Fetcher
	Sender  Deliverer
	Store   *state.Store
	RunID   string

	now func() time.Time
}

// Result summarizes a completed run for the CLI.
type Result struct {
	Mode         domain.RunMode
	New          []domain.Company
	Delivered    int
	StillPending int
	TotalKnown   int
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// Run executes one run-to-completion pass in the given mode. A fetch or
// state error aborts before any save, leaving the persisted files exactly
// as they were.
func (r *Runner) Run(ctx context.Context, mode domain.RunMode) (*Result, error) {
	if mode == domain.ModeSeed {
		return r.seed(ctx)
	}

	snap, pending, err := r.Store.Load()
	if err != nil {
		return nil, err
	}
	if snap == nil {
		if mode == domain.ModeDryRun {
			return nil, fmt.Errorf("no saved state to diff against; run with --seed first")
		}
		log.Printf("[radar] no state file — first run, seeding")
		return r.seed(ctx)
	}
	known := snap.KnownSet()
	log.Printf("[radar] loaded state: %d known IDs, %d pending, last run %s",
		len(known), len(pending), snap.LastRunAt.Format(time.RFC3339))

	count, err := r.Fetcher.Count(ctx)
	if err != nil {
		return nil, err
	}

	fetched, err := r.fetch(ctx, mode, snap, known, count)
	if err != nil {
		return nil, err
	}

	fresh := detect.NewCompanies(fetched, known)
	if len(fresh) > 0 {
		log.Printf("[radar] %d new companies detected", len(fresh))
	}

	if mode == domain.ModeDryRun {
		for _, c := range fresh {
			log.Printf("[radar] would deliver id=%s name=%q batch=%s", c.ID, c.Name, c.Batch)
		}
		return &Result{
			Mode:         mode,
			New:          fresh,
			StillPending: len(pending),
			TotalKnown:   len(known),
		}, nil
	}

	delivered, stillPending := r.Sender.Deliver(ctx, pending, fresh)

	// Every recognized-new ID enters the known set whether or not its
	// delivery succeeded; failures stay queued for the next run.
	ids := append([]string(nil), snap.KnownIDs...)
	for _, c := range fresh {
		ids = append(ids, c.ID)
	}

	now := r.clock().UTC()
	if err := r.Store.Save(&state.Snapshot{
		LastRunAt:        now,
		LastRunTimestamp: now.Unix(),
		LastRunID:        r.RunID,
		TotalCount:       count,
		KnownIDs:         ids,
	}, stillPending); err != nil {
		return nil, err
	}

	return &Result{
		Mode:         mode,
		New:          fresh,
		Delivered:    len(delivered),
		StillPending: len(stillPending),
		TotalKnown:   len(ids),
	}, nil
}

// fetch picks the candidate companies to diff. Incremental runs try the
// count short-circuit and the launch-timestamp query first; both are
// best-effort shortcuts that fall back to walking the full directory.
func (r *Runner) fetch(ctx context.Context, mode domain.RunMode, snap *state.Snapshot, known map[string]struct{}, count int) ([]domain.Company, error) {
	if mode != domain.ModeFullFetch {
		if count == snap.TotalCount {
			log.Printf("[radar] count unchanged (%d) — no new companies", count)
			return nil, nil
		}
		log.Printf("[radar] count changed: %d -> %d (delta %+d)", snap.TotalCount, count, count-snap.TotalCount)

		if snap.LastRunTimestamp > 0 {
			hits, err := r.Fetcher.FetchSince(ctx, snap.LastRunTimestamp)
			if err != nil {
				log.Printf("[radar] timestamp query failed, falling back to full fetch: %v", err)
			} else {
				if len(detect.NewCompanies(hits, known)) > 0 {
					return hits, nil
				}
				if count <= snap.TotalCount {
					return nil, nil
				}
				log.Printf("[radar] count increased but timestamp query found nothing new — full fetch")
			}
		}
	} else {
		log.Printf("[radar] full fetch forced")
	}

	return r.Fetcher.FetchAll(ctx)
}

// seed establishes the baseline: record every current company, deliver
// nothing, clear any stale retry queue.
func (r *Runner) seed(ctx context.Context) (*Result, error) {
	log.Printf("[radar] seeding — fetching all companies to establish baseline")

	all, err := r.Fetcher.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	count, err := r.Fetcher.Count(ctx)
	if err != nil {
		return nil, err
	}

	ids := detect.IDs(detect.NewCompanies(all, nil))

	now := r.clock().UTC()
	if err := r.Store.Save(&state.Snapshot{
		LastRunAt:        now,
		LastRunTimestamp: now.Unix(),
		LastRunID:        r.RunID,
		TotalCount:       count,
		KnownIDs:         ids,
	}, nil); err != nil {
		return nil, err
	}

	log.Printf("[radar] seed complete: %d unique companies stored", len(ids))
	return &Result{Mode: domain.ModeSeed, TotalKnown: len(ids)}, nil
}
