package harvest

import (
	"context"
	"time"
)

// Card is the ephemeral snapshot of one rendered result item. It is owned
// by the harvesting iteration that discovered it; only the identifier
// derived from it outlives the iteration.
type Card struct {
	ResultID string // platform result identifier attribute, if rendered
	Label    string // accessible label attribute, if rendered
	Text     string // visible text, newline-separated lines
	HTML     string // outer HTML, used for anchor/button field mining
	Index    int    // render position within this snapshot
}

// Driver is the narrow surface the harvesting engine needs from an
// automated browser: load a URL, wait for and snapshot elements, scroll
// the result feed, click into a card, navigate back. Implementations own
// all markup-level mechanics; the engine never sees selectors for
// navigation, only for field mining.
type Driver interface {
	// Navigate loads a URL fresh.
	Navigate(ctx context.Context, url string) error
	// Reload performs a full page reload.
	Reload(ctx context.Context) error
	// DismissConsent clicks through a consent dialog if one is present.
	// Best effort; reports whether anything was dismissed.
	DismissConsent(ctx context.Context) bool
	// SubmitSearch types the query into the search box and submits it.
	SubmitSearch(ctx context.Context, query string) error
	// WaitFeed blocks until the result feed container is present, or the
	// timeout elapses.
	WaitFeed(ctx context.Context, timeout time.Duration) error
	// PageHTML returns the full page source.
	PageHTML(ctx context.Context) (string, error)
	// BodyText returns the rendered visible text of the page body.
	BodyText(ctx context.Context) (string, error)
	// Cards snapshots the currently rendered result items.
	Cards(ctx context.Context) ([]Card, error)
	// ScrollFeed scrolls the result feed once and reports whether the
	// scroll position actually moved.
	ScrollFeed(ctx context.Context) (bool, error)
	// OpenCard scrolls the card at the given render position into view
	// and clicks it.
	OpenCard(ctx context.Context, c Card) error
	// WaitDetail blocks until the item detail heading is rendered.
	WaitDetail(ctx context.Context, timeout time.Duration) error
	// DetailHTML returns the page source of the open detail view.
	DetailHTML(ctx context.Context) (string, error)
	// Back navigates back to the result feed.
	Back(ctx context.Context) error
}
