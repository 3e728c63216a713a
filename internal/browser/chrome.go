// Package browser drives a real Chrome instance against the maps surface.
// It is the only package that knows navigation-level markup; everything
// above it works through the harvest.Driver interface.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"leadhunt-engine/internal/harvest"
)

const (
	feedSelector      = `div[role="feed"]`
	searchBoxSelector = `#searchboxinput`
	detailHeading     = `h1.DUwDvf, h1.fontHeadlineLarge`
)

// cardSelectors is the cascade of result-item selectors; layout updates
// usually break only the first entry.
var cardSelectors = []string{
	`div[role="article"]`,
	`div[class*="Nv2PK"]`,
	`div[jsaction*="mouseover:pane"]`,
}

var consentSelectors = []string{
	`button[aria-label="Accept all"]`,
	`button[aria-label="I agree"]`,
	`button[aria-label="Accept all cookies"]`,
	`button[jsname="b3VHJd"]`,
}

var consentTexts = []string{
	"Accept all",
	"I agree",
	"Agree to all",
}

// Chrome implements harvest.Driver on a chromedp-managed browser tab.
type Chrome struct {
	ctx    context.Context
	cancel context.CancelFunc
}

type Options struct {
	Headless   bool
	ChromePath string
}

// New launches Chrome and opens the tab every session reuses. The tab
// keeps its cookies and local storage for the process lifetime, which is
// what keeps consent dismissals from recurring per search.
func New(parent context.Context, opts Options) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) "+
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	} else if path := os.Getenv("CHROME_PATH"); path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		ctx: ctx,
		cancel: func() {
			cancel()
			allocCancel()
		},
	}

	// Hide the automation marker before any page script runs.
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(
			`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`,
		).Do(ctx)
		return err
	}))
	if err != nil {
		c.cancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return c, nil
}

func (c *Chrome) Close() {
	c.cancel()
}

func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	// The tab context carries the browser; the caller context carries
	// cancellation and deadlines.
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		runCtx, dcancel = context.WithDeadline(runCtx, deadline)
		defer dcancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	return err
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (c *Chrome) Reload(ctx context.Context) error {
	return c.run(ctx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (c *Chrome) DismissConsent(ctx context.Context) bool {
	for _, sel := range consentSelectors {
		clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.run(clickCtx, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
		cancel()
		if err == nil {
			return true
		}
	}
	for _, text := range consentTexts {
		xp := fmt.Sprintf(`//button[contains(., "%s")]`, text)
		clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.run(clickCtx, chromedp.Click(xp, chromedp.BySearch, chromedp.NodeVisible))
		cancel()
		if err == nil {
			return true
		}
	}
	return false
}

func (c *Chrome) SubmitSearch(ctx context.Context, query string) error {
	return c.run(ctx,
		chromedp.WaitVisible(searchBoxSelector, chromedp.ByQuery),
		chromedp.Clear(searchBoxSelector, chromedp.ByQuery),
		chromedp.SendKeys(searchBoxSelector, query+kb.Enter, chromedp.ByQuery),
	)
}

func (c *Chrome) WaitFeed(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.run(waitCtx, chromedp.WaitVisible(feedSelector, chromedp.ByQuery))
}

func (c *Chrome) PageHTML(ctx context.Context) (string, error) {
	var html string
	err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (c *Chrome) BodyText(ctx context.Context) (string, error) {
	var text string
	err := c.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery))
	return text, err
}

// cardSnapshot mirrors the JSON shape produced by snapshotScript.
type cardSnapshot struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Text  string `json:"text"`
	HTML  string `json:"html"`
}

func (c *Chrome) Cards(ctx context.Context) ([]harvest.Card, error) {
	var raw string
	if err := c.run(ctx, chromedp.Evaluate(snapshotScript(), &raw)); err != nil {
		return nil, fmt.Errorf("snapshot result cards: %w", err)
	}
	var snaps []cardSnapshot
	if err := json.Unmarshal([]byte(raw), &snaps); err != nil {
		return nil, fmt.Errorf("decode card snapshot: %w", err)
	}
	cards := make([]harvest.Card, 0, len(snaps))
	for i, s := range snaps {
		cards = append(cards, harvest.Card{
			ResultID: s.ID,
			Label:    s.Label,
			Text:     s.Text,
			HTML:     s.HTML,
			Index:    i,
		})
	}
	return cards, nil
}

func (c *Chrome) ScrollFeed(ctx context.Context) (bool, error) {
	var moved bool
	err := c.run(ctx, chromedp.Evaluate(scrollScript, &moved))
	if err != nil {
		return false, fmt.Errorf("scroll result feed: %w", err)
	}
	return moved, nil
}

func (c *Chrome) OpenCard(ctx context.Context, card harvest.Card) error {
	var clicked bool
	if err := c.run(ctx, chromedp.Evaluate(clickScript(card.Index), &clicked)); err != nil {
		return fmt.Errorf("click result card: %w", err)
	}
	if !clicked {
		return fmt.Errorf("result card %d no longer rendered", card.Index)
	}
	return nil
}

func (c *Chrome) WaitDetail(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.run(waitCtx, chromedp.WaitVisible(detailHeading, chromedp.ByQuery))
}

func (c *Chrome) DetailHTML(ctx context.Context) (string, error) {
	return c.PageHTML(ctx)
}

func (c *Chrome) Back(ctx context.Context) error {
	return c.run(ctx,
		chromedp.NavigateBack(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// snapshotScript serializes the rendered result cards to JSON. It runs
// the selector cascade in the page so one round trip covers all layouts.
func snapshotScript() string {
	quoted := make([]string, len(cardSelectors))
	for i, sel := range cardSelectors {
		quoted[i] = fmt.Sprintf("%q", sel)
	}
	return fmt.Sprintf(`(function () {
  const selectors = [%s];
  let cards = [];
  for (const sel of selectors) {
    cards = Array.from(document.querySelectorAll(sel));
    if (cards.length > 0) break;
  }
  return JSON.stringify(cards.map(card => {
    const link = card.querySelector('a[href*="/maps/place/"]');
    const href = link ? (link.href || '') : '';
    const m = href.match(/!1s([^!]+)/);
    return {
      id: m ? m[1] : '',
      label: link ? (link.getAttribute('aria-label') || '') : '',
      text: card.innerText || '',
      html: card.outerHTML || ''
    };
  }));
})()`, strings.Join(quoted, ", "))
}

const scrollScript = `(function () {
  const feed = document.querySelector('div[role="feed"]');
  if (!feed) {
    window.scrollBy(0, 1000);
    return false;
  }
  const before = feed.scrollTop;
  feed.scrollTop = feed.scrollHeight;
  return feed.scrollTop !== before;
})()`

func clickScript(index int) string {
	quoted := make([]string, len(cardSelectors))
	for i, sel := range cardSelectors {
		quoted[i] = fmt.Sprintf("%q", sel)
	}
	return fmt.Sprintf(`(function () {
  const selectors = [%s];
  let cards = [];
  for (const sel of selectors) {
    cards = Array.from(document.querySelectorAll(sel));
    if (cards.length > 0) break;
  }
  const card = cards[%d];
  if (!card) return false;
  card.scrollIntoView({block: 'center'});
  const link = card.querySelector('a[href*="/maps/place/"]');
  (link || card).click();
  return true;
})()`, strings.Join(quoted, ", "), index)
}
