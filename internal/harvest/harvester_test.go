package harvest

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadhunt-engine/internal/domain"
)

func newTestHarvester(drv *fakeDriver) *Harvester {
	h := NewHarvester(drv)
	h.sleep = noSleep
	return h
}

func TestHarvestStopsAtTarget(t *testing.T) {
	t.Parallel()

	drv := &fakeDriver{
		cardPages: [][]Card{{
			card("Joe's Bar", "123 Main St, Queens, NY 11368", "(718) 555-0199"),
			card("Corner Deli", "45 Oak Ave, Queens, NY 11368", "(718) 555-0142"),
			card("Third Place", "9 Elm St, Queens, NY 11368"),
		}},
	}
	q := domain.SearchQuery{Category: "bars", Location: "Queens, NY", TargetCount: 2}

	leads, err := newTestHarvester(drv).Harvest(context.Background(), q)
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("got %d leads, want 2", len(leads))
	}
	if leads[0].Name != "Joe's Bar" || leads[1].Name != "Corner Deli" {
		t.Errorf("leads out of order: %v, %v", leads[0].Name, leads[1].Name)
	}
	if drv.scrolls != 0 {
		t.Errorf("scrolled %d times after reaching target", drv.scrolls)
	}
}

func TestHarvestDeduplicatesAcrossRenders(t *testing.T) {
	t.Parallel()

	joe := card("Joe's Bar", "123 Main St, Queens, NY 11368")
	drv := &fakeDriver{
		// The same card re-renders on every pass and the feed never moves.
		cardPages:   [][]Card{{joe}, {joe}},
		scrollMoves: 0,
	}
	q := domain.SearchQuery{Category: "bars", Location: "Queens, NY", TargetCount: 10}

	leads, err := newTestHarvester(drv).Harvest(context.Background(), q)
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("got %d leads, want 1 despite duplicate renders", len(leads))
	}
}

func TestHarvestTerminatesOnDeadFeed(t *testing.T) {
	t.Parallel()

	drv := &fakeDriver{scrollMoves: 100} // scrolls move but nothing ever renders
	q := domain.SearchQuery{Category: "bars", Location: "Nowhere", TargetCount: 10}

	done := make(chan struct{})
	var leads []domain.Lead
	var err error
	go func() {
		leads, err = newTestHarvester(drv).Harvest(context.Background(), q)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Harvest() did not terminate on a feed that never renders")
	}
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(leads) != 0 {
		t.Errorf("got %d leads from an empty feed", len(leads))
	}
}

func TestHarvestSurvivesVirtualizationDrySpells(t *testing.T) {
	t.Parallel()

	// The feed keeps scrolling but renders nothing for several passes
	// before the next card materializes. That is throttled rendering,
	// not exhaustion.
	empty := []Card{}
	drv := &fakeDriver{
		cardPages: [][]Card{
			empty, empty, empty, empty, empty, empty,
			{card("Joe's Bar", "123 Main St, Queens, NY 11368")},
		},
		scrollMoves: 100,
	}
	q := domain.SearchQuery{Category: "bars", Location: "Queens, NY", TargetCount: 1}

	leads, err := newTestHarvester(drv).Harvest(context.Background(), q)
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(leads) != 1 || leads[0].Name != "Joe's Bar" {
		t.Fatalf("leads = %+v, want Joe's Bar after the dry spell", leads)
	}
}

func TestHarvestStopsWhenFeedWillNotScroll(t *testing.T) {
	t.Parallel()

	// Nothing rendered and the scroll position never moves.
	drv := &fakeDriver{scrollMoves: 0}
	q := domain.SearchQuery{Category: "bars", Location: "Nowhere", TargetCount: 10}

	leads, err := newTestHarvester(drv).Harvest(context.Background(), q)
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(leads) != 0 {
		t.Errorf("got %d leads from an empty feed", len(leads))
	}
	if drv.scrolls != maxEmptyScrolls {
		t.Errorf("scrolled %d times, want %d before giving up", drv.scrolls, maxEmptyScrolls)
	}
}

func TestHarvestTerminatesWithoutNewResults(t *testing.T) {
	t.Parallel()

	joe := card("Joe's Bar", "123 Main St, Queens, NY 11368")
	drv := &fakeDriver{
		cardPages:   [][]Card{{joe}},
		scrollMoves: 1000, // feed keeps moving, content never changes
	}
	q := domain.SearchQuery{Category: "bars", Location: "Queens, NY", TargetCount: 50}

	leads, err := newTestHarvester(drv).Harvest(context.Background(), q)
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("got %d leads, want 1", len(leads))
	}
	if drv.cardCalls > maxPagesWithoutNew+2 {
		t.Errorf("took %d render passes, want bounded by %d", drv.cardCalls, maxPagesWithoutNew)
	}
}

func TestHarvestReturnsPartialsOnCancel(t *testing.T) {
	t.Parallel()

	drv := &fakeDriver{
		cardPages: [][]Card{
			{card("Joe's Bar", "123 Main St, Queens, NY 11368")},
			{card("Corner Deli", "45 Oak Ave, Queens, NY 11368")},
		},
		scrollMoves: 100,
	}
	q := domain.SearchQuery{Category: "bars", Location: "Queens, NY", TargetCount: 10}

	ctx, cancel := context.WithCancel(context.Background())
	h := NewHarvester(drv)
	h.sleep = func(time.Duration) { cancel() } // cancel mid-harvest, after the first pass

	leads, err := h.Harvest(ctx, q)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Harvest() error = %v, want context.Canceled", err)
	}
	if len(leads) != 1 {
		t.Errorf("got %d partial leads, want 1", len(leads))
	}
}

func TestHarvestSkipsMalformedCards(t *testing.T) {
	t.Parallel()

	drv := &fakeDriver{
		cardPages: [][]Card{{
			{Text: "   ", Index: 0},
			card("Joe's Bar", "123 Main St, Queens, NY 11368"),
		}},
	}
	q := domain.SearchQuery{Category: "bars", Location: "Queens, NY", TargetCount: 1}

	leads, err := newTestHarvester(drv).Harvest(context.Background(), q)
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(leads) != 1 || leads[0].Name != "Joe's Bar" {
		t.Fatalf("leads = %+v, want only Joe's Bar", leads)
	}
}
