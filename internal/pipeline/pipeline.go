// Package pipeline orchestrates the full harvest run: every configured
// location crossed with every category, one browser session per search,
// results deduplicated into the store.
package pipeline

import (
	"context"
	"database/sql"
	"log"
	"time"

	"leadhunt-engine/internal/config"
	"leadhunt-engine/internal/domain"
	"leadhunt-engine/internal/harvest"
	"leadhunt-engine/internal/store"
)

type Pipeline struct {
	Drv   harvest.Driver
	Gate  *harvest.ChallengeGate
	DB    *sql.DB
	Cfg   config.Config
	Pacer *Pacer
}

// Summary is what one full run produced, for the closing log block.
type Summary struct {
	Searches  int
	NoResults int
	Failed    int
	Harvested int
	Added     int
	Skipped   int
	Elapsed   time.Duration
}

// Run walks every location/category pair. A blocked session or context
// cancellation aborts the rest of the run; everything harvested up to
// that point is already persisted.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var sum Summary
	defer func() {
		sum.Elapsed = time.Since(start).Round(time.Second)
		p.logSummary(sum)
	}()

	betweenSearches := time.Duration(p.Cfg.Search.DelaySeconds) * time.Second

	first := true
	for _, location := range p.Cfg.Search.Locations {
		for _, category := range p.Cfg.Search.Categories {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			if !first {
				if err := p.Pacer.Pause(ctx, betweenSearches); err != nil {
					return sum, err
				}
			}
			first = false

			if err := p.Pacer.WaitSearch(ctx); err != nil {
				return sum, err
			}

			q := domain.SearchQuery{
				Category:    category,
				Location:    location,
				TargetCount: p.Cfg.Search.MaxResultsPerCategory,
			}
			sum.Searches++

			stop, err := p.runSearch(ctx, q, &sum)
			if err != nil {
				return sum, err
			}
			if stop {
				return sum, nil
			}
		}
	}
	return sum, nil
}

// runSearch executes one search end to end. stop=true means the rest of
// the run should be abandoned (operator never cleared a challenge).
func (p *Pipeline) runSearch(ctx context.Context, q domain.SearchQuery, sum *Summary) (stop bool, err error) {
	log.Printf("[pipeline] searching %q in %q (target %d)", q.Category, q.Location, q.TargetCount)

	sess := harvest.NewSession(p.Drv, p.Gate)
	state, err := sess.Open(ctx, q)
	switch state {
	case harvest.StateBlocked:
		log.Printf("[pipeline] session blocked, abandoning run: %v", err)
		return true, nil
	case harvest.StateNoResults:
		sum.NoResults++
		return false, nil
	case harvest.StateFailed:
		if err != nil {
			return false, err
		}
		sum.Failed++
		return false, nil
	}

	leads, herr := harvest.NewHarvester(p.Drv).Harvest(ctx, q)
	cancelled := herr != nil && ctx.Err() != nil

	// Enrichment reopens the search, so it only runs on an intact run.
	if !cancelled && p.Cfg.Enrich.Enabled && len(leads) > 0 {
		leads = harvest.NewEnricher(p.Drv, sess).Enrich(ctx, leads, q, p.Cfg.Enrich.MaxClicks)
	}

	for i := range leads {
		leads[i].SearchLocation = q.Location
		leads[i].SearchCategory = q.Category
	}
	sum.Harvested += len(leads)

	if len(leads) > 0 {
		added, skipped, serr := p.saveLeads(leads)
		if serr != nil {
			return false, serr
		}
		sum.Added += added
		sum.Skipped += skipped
		log.Printf("[pipeline] %q in %q: %d harvested, %d new, %d duplicates",
			q.Category, q.Location, len(leads), added, skipped)
	}

	if cancelled {
		return false, herr
	}
	if herr != nil {
		// Harvest failed mid-feed; partials are saved, move on.
		log.Printf("[pipeline] harvest for %q in %q ended early: %v", q.Category, q.Location, herr)
		sum.Failed++
	}
	return false, nil
}

// saveLeads persists on its own context so a cancelled run still flushes
// what it collected.
func (p *Pipeline) saveLeads(leads []domain.Lead) (added, skipped int, err error) {
	saveCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return store.SaveLeads(saveCtx, p.DB, leads)
}

func (p *Pipeline) logSummary(sum Summary) {
	log.Printf("[pipeline] ---- run summary ----")
	log.Printf("[pipeline] searches:    %d", sum.Searches)
	log.Printf("[pipeline] no results:  %d", sum.NoResults)
	log.Printf("[pipeline] failed:      %d", sum.Failed)
	log.Printf("[pipeline] harvested:   %d", sum.Harvested)
	log.Printf("[pipeline] new leads:   %d", sum.Added)
	log.Printf("[pipeline] duplicates:  %d", sum.Skipped)
	log.Printf("[pipeline] elapsed:     %s", sum.Elapsed)
}
