package harvest

import (
	"context"
	"log"
	"time"

	"leadhunt-engine/internal/domain"
)

const (
	maxEmptyScrolls    = 5
	maxPagesWithoutNew = 15

	scrollPause = 2 * time.Second
)

// Harvester walks the result feed after a session reports StateLoaded,
// extracting a lead per unseen card and scrolling for more until the
// target count is reached or the feed stops producing.
type Harvester struct {
	Drv Driver

	sleep func(time.Duration)
}

func NewHarvester(drv Driver) *Harvester {
	return &Harvester{Drv: drv, sleep: time.Sleep}
}

// Harvest collects up to q.TargetCount leads. Cancellation returns the
// partial slice collected so far together with the context error, so the
// caller can persist what it has.
func (h *Harvester) Harvest(ctx context.Context, q domain.SearchQuery) ([]domain.Lead, error) {
	seen := make(map[string]struct{})
	var leads []domain.Lead

	emptyScrolls := 0
	pagesWithoutNew := 0
	renders := 0

	for len(leads) < q.TargetCount {
		if err := ctx.Err(); err != nil {
			return leads, err
		}

		cards, err := h.Drv.Cards(ctx)
		if err != nil {
			log.Printf("[harvest] card snapshot failed: %v", err)
			return leads, err
		}
		renders++

		if len(cards) == 0 {
			moved, err := h.Drv.ScrollFeed(ctx)
			if err != nil {
				log.Printf("[harvest] scroll failed: %v", err)
				break
			}
			if !moved {
				emptyScrolls++
				if emptyScrolls >= maxEmptyScrolls {
					log.Printf("[harvest] feed stopped scrolling, assuming end of results")
					break
				}
			} else {
				// The feed moved but rendered nothing yet: a
				// virtualization dry spell, not exhaustion.
				emptyScrolls = 0
				pagesWithoutNew++
				if pagesWithoutNew >= maxPagesWithoutNew {
					log.Printf("[harvest] %d passes without new results, feed exhausted", pagesWithoutNew)
					break
				}
			}
			h.sleep(scrollPause)
			continue
		}
		emptyScrolls = 0

		newThis := 0
		for _, c := range cards {
			id := Identify(c, renders)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			lead := Extract(c, q)
			if lead == nil {
				continue
			}
			leads = append(leads, *lead)
			newThis++
			if len(leads) >= q.TargetCount {
				break
			}
		}

		if len(leads) >= q.TargetCount {
			break
		}

		if newThis == 0 {
			pagesWithoutNew++
			if pagesWithoutNew >= maxPagesWithoutNew {
				log.Printf("[harvest] %d passes without new results, feed exhausted", pagesWithoutNew)
				break
			}
		} else {
			pagesWithoutNew = 0
		}

		if !h.scroll(ctx, &emptyScrolls) {
			break
		}
	}

	log.Printf("[harvest] collected %d/%d leads for %q in %q", len(leads), q.TargetCount, q.Category, q.Location)
	return leads, nil
}

// scroll advances the feed once. Returns false when the feed cannot move
// any further, which ends the harvest.
func (h *Harvester) scroll(ctx context.Context, emptyScrolls *int) bool {
	moved, err := h.Drv.ScrollFeed(ctx)
	if err != nil {
		log.Printf("[harvest] scroll failed: %v", err)
		return false
	}
	if !moved {
		*emptyScrolls++
		if *emptyScrolls >= maxEmptyScrolls {
			log.Printf("[harvest] feed stopped scrolling, assuming end of results")
			return false
		}
	}
	h.sleep(scrollPause)
	return true
}
