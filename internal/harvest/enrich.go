package harvest

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"leadhunt-engine/internal/domain"
)

const (
	maxNoClickIters = 4
	detailTimeout   = 10 * time.Second

	clickPause  = 2 * time.Second
	detailPause = 1500 * time.Millisecond
)

// Enricher re-opens a finished search and clicks into detail panes to
// recover phone numbers and websites the card snapshots did not carry.
type Enricher struct {
	Drv     Driver
	Session *Session

	sleep func(time.Duration)
}

func NewEnricher(drv Driver, sess *Session) *Enricher {
	return &Enricher{Drv: drv, Session: sess, sleep: time.Sleep}
}

// Enrich mutates leads in place and returns the same slice. Fields are
// only ever filled, never overwritten: a value mined from a detail pane
// lands only where the card extraction left Unknown. maxClicks bounds the
// number of detail panes opened per search.
func (e *Enricher) Enrich(ctx context.Context, leads []domain.Lead, q domain.SearchQuery, maxClicks int) []domain.Lead {
	// First lead wins per name; duplicates in the feed point at the same
	// detail pane anyway.
	pending := make(map[string]*domain.Lead)
	for i := range leads {
		if !leads[i].NeedsEnrichment() {
			continue
		}
		key := strings.ToLower(leads[i].Name)
		if _, ok := pending[key]; !ok {
			pending[key] = &leads[i]
		}
	}
	if len(pending) == 0 {
		return leads
	}
	log.Printf("[enrich] %d leads missing contact fields for %q in %q", len(pending), q.Category, q.Location)

	state, err := e.Session.Open(ctx, q)
	if err != nil || state != StateLoaded {
		log.Printf("[enrich] could not reopen search (%s), skipping enrichment", state)
		return leads
	}

	clicks := 0
	noClickIters := 0
	for clicks < maxClicks && noClickIters < maxNoClickIters && len(pending) > 0 {
		if ctx.Err() != nil {
			return leads
		}

		cards, err := e.Drv.Cards(ctx)
		if err != nil {
			log.Printf("[enrich] card snapshot failed: %v", err)
			return leads
		}

		clicked := false
		for _, c := range cards {
			name := firstLine(c.Text)
			lead, ok := pending[strings.ToLower(name)]
			if !ok {
				continue
			}
			if err := e.Drv.OpenCard(ctx, c); err != nil {
				log.Printf("[enrich] click failed on %q: %v", lead.Name, err)
				continue
			}
			clicks++
			clicked = true
			if e.enrichOne(ctx, lead) {
				delete(pending, strings.ToLower(name))
			}
			if !e.returnToFeed(ctx) {
				log.Printf("[enrich] could not return to result feed, stopping with %d pending", len(pending))
				return leads
			}
			if clicks >= maxClicks {
				break
			}
		}

		if clicked {
			noClickIters = 0
		} else {
			noClickIters++
			if _, err := e.Drv.ScrollFeed(ctx); err != nil {
				break
			}
			e.sleep(detailPause)
		}
	}

	log.Printf("[enrich] opened %d detail panes, %d leads still incomplete", clicks, len(pending))
	return leads
}

// enrichOne waits for the just-opened detail pane and fills the lead's
// missing fields. Reports whether the lead now has both phone and
// website.
func (e *Enricher) enrichOne(ctx context.Context, lead *domain.Lead) bool {
	e.sleep(clickPause)

	if err := e.Drv.WaitDetail(ctx, detailTimeout); err != nil {
		log.Printf("[enrich] detail pane never rendered for %q", lead.Name)
		return false
	}
	e.sleep(detailPause)

	html, err := e.Drv.DetailHTML(ctx)
	if err != nil {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	if !lead.HasPhone() {
		if phone := mineDetailPhone(doc); domain.Known(phone) {
			lead.Phone = phone
			log.Printf("[enrich] phone for %q: %s", lead.Name, phone)
		}
	}
	if !lead.HasWebsite() {
		if site := mineDetailWebsite(doc); domain.Known(site) {
			lead.Website = site
			log.Printf("[enrich] website for %q: %s", lead.Name, site)
		}
	}

	return lead.HasPhone() && lead.HasWebsite()
}

func (e *Enricher) returnToFeed(ctx context.Context) bool {
	if err := e.Drv.Back(ctx); err != nil {
		return false
	}
	e.sleep(detailPause)
	if err := e.Drv.WaitFeed(ctx, detailTimeout); err != nil {
		// The feed sometimes survives behind the pane; one scroll probe
		// settles whether it is still live.
		if _, serr := e.Drv.ScrollFeed(ctx); serr != nil {
			return false
		}
	}
	return true
}
