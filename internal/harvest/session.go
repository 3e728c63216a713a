package harvest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"leadhunt-engine/internal/domain"
)

// MapsHomeURL is where every search starts; submitting through the search
// box is more reliable than URL navigation against the result feed.
const MapsHomeURL = "https://www.google.com/maps"

// State is the outcome of opening a search session.
type State int

const (
	StateLoaded State = iota
	StateNoResults
	StateBlocked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateNoResults:
		return "no_results"
	case StateBlocked:
		return "blocked"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	defaultFeedTimeout = 20 * time.Second
	submitRetries      = 2
	primeScrolls       = 6

	consentPause = 2 * time.Second
	submitPause  = 4 * time.Second
	retryPause   = 3 * time.Second
	primePause   = 1500 * time.Millisecond
)

// Session drives one search against the maps surface: fresh navigation,
// consent dismissal, challenge gate, query submission, and retries when
// the result feed fails to render.
type Session struct {
	Drv  Driver
	Gate *ChallengeGate

	FeedTimeout time.Duration

	sleep func(time.Duration)
}

func NewSession(drv Driver, gate *ChallengeGate) *Session {
	return &Session{
		Drv:         drv,
		Gate:        gate,
		FeedTimeout: defaultFeedTimeout,
		sleep:       time.Sleep,
	}
}

// Open loads the search surface and submits the query. StateNoResults is
// a clean outcome, not an error: an empty result set must not trigger
// retry storms. Only a session that cannot be established at all returns
// a non-nil error alongside StateFailed.
func (s *Session) Open(ctx context.Context, q domain.SearchQuery) (State, error) {
	if err := s.Drv.Navigate(ctx, MapsHomeURL); err != nil {
		return StateFailed, fmt.Errorf("open search surface: %w", err)
	}
	s.sleep(consentPause)

	if s.Drv.DismissConsent(ctx) {
		log.Printf("[session] dismissed consent dialog")
		s.sleep(consentPause)
	}

	if s.Gate != nil {
		if err := s.Gate.Clear(ctx, s.Drv); err != nil {
			return StateBlocked, err
		}
	}

	if err := s.Drv.SubmitSearch(ctx, q.Text()); err != nil {
		log.Printf("[session] search submission failed for %q: %v", q.Text(), err)
		return StateFailed, nil
	}
	s.sleep(submitPause)

	for attempt := 0; attempt < submitRetries; attempt++ {
		loaded, noResults := s.loadResults(ctx)
		if noResults {
			log.Printf("[session] no results for %q in %q", q.Category, q.Location)
			return StateNoResults, nil
		}
		if loaded {
			return StateLoaded, nil
		}
		if attempt < submitRetries-1 {
			log.Printf("[session] retry %d/%d: results did not render for %q", attempt+1, submitRetries, q.Text())
			s.sleep(retryPause)
			if err := s.Drv.SubmitSearch(ctx, q.Text()); err != nil {
				log.Printf("[session] resubmission failed: %v", err)
			}
			s.sleep(submitPause)
		}
	}

	// Last resort before giving up: a completely fresh page load.
	log.Printf("[session] results never rendered for %q, reloading page", q.Text())
	if err := s.Drv.Reload(ctx); err != nil {
		return StateFailed, nil
	}
	s.sleep(submitPause)
	s.Drv.DismissConsent(ctx)
	if err := s.Drv.SubmitSearch(ctx, q.Text()); err != nil {
		return StateFailed, nil
	}
	s.sleep(submitPause)

	loaded, noResults := s.loadResults(ctx)
	switch {
	case noResults:
		return StateNoResults, nil
	case loaded:
		log.Printf("[session] fresh page load recovered %q", q.Text())
		return StateLoaded, nil
	default:
		return StateFailed, nil
	}
}

// loadResults waits for the feed container and scrolls until cards render.
// The second return value reports an explicit empty result set.
func (s *Session) loadResults(ctx context.Context) (loaded, noResults bool) {
	if err := s.Drv.WaitFeed(ctx, s.FeedTimeout); err != nil {
		if body, berr := s.Drv.BodyText(ctx); berr == nil {
			lower := strings.ToLower(body)
			for _, phrase := range noResultsPhrases {
				if strings.Contains(lower, phrase) {
					return false, true
				}
			}
		}
		return false, false
	}

	// The feed virtualizes: scroll a few times to force the first cards in.
	for i := 0; i < primeScrolls; i++ {
		if cards, err := s.Drv.Cards(ctx); err == nil && len(cards) > 0 {
			return true, false
		}
		if _, err := s.Drv.ScrollFeed(ctx); err != nil {
			break
		}
		s.sleep(primePause)
	}
	cards, err := s.Drv.Cards(ctx)
	return err == nil && len(cards) > 0, false
}
