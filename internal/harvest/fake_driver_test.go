package harvest

import (
	"context"
	"errors"
	"time"
)

// fakeDriver serves scripted card snapshots and records calls. Each call
// to Cards advances through cardPages; the last page repeats.
type fakeDriver struct {
	cardPages [][]Card
	cardCalls int

	bodyText   string
	pageHTML   string
	detailHTML map[string]string // keyed by last clicked card's first text line
	lastDetail string

	feedErr      error
	feedErrTimes int // fail WaitFeed this many times, then succeed
	submitErr    error
	navigateErr  error
	scrollMoves  int // ScrollFeed reports moved while > 0 calls remain
	backErr      error
	detailErr    error
	openErr      map[string]error // OpenCard fails for these first-line names

	navigates []string
	reloads   int
	submits   []string
	scrolls   int
	opened    []string
	backs     int
	consents  int
}

func (f *fakeDriver) Navigate(ctx context.Context, url string) error {
	f.navigates = append(f.navigates, url)
	return f.navigateErr
}

func (f *fakeDriver) Reload(ctx context.Context) error {
	f.reloads++
	return nil
}

func (f *fakeDriver) DismissConsent(ctx context.Context) bool {
	f.consents++
	return false
}

func (f *fakeDriver) SubmitSearch(ctx context.Context, query string) error {
	f.submits = append(f.submits, query)
	return f.submitErr
}

func (f *fakeDriver) WaitFeed(ctx context.Context, timeout time.Duration) error {
	if f.feedErrTimes > 0 {
		f.feedErrTimes--
		if f.feedErr != nil {
			return f.feedErr
		}
		return errors.New("feed timeout")
	}
	return nil
}

func (f *fakeDriver) PageHTML(ctx context.Context) (string, error) {
	return f.pageHTML, nil
}

func (f *fakeDriver) BodyText(ctx context.Context) (string, error) {
	return f.bodyText, nil
}

func (f *fakeDriver) Cards(ctx context.Context) ([]Card, error) {
	if len(f.cardPages) == 0 {
		return nil, nil
	}
	i := f.cardCalls
	if i >= len(f.cardPages) {
		i = len(f.cardPages) - 1
	}
	f.cardCalls++
	return f.cardPages[i], nil
}

func (f *fakeDriver) ScrollFeed(ctx context.Context) (bool, error) {
	f.scrolls++
	if f.scrollMoves > 0 {
		f.scrollMoves--
		return true, nil
	}
	return false, nil
}

func (f *fakeDriver) OpenCard(ctx context.Context, c Card) error {
	name := firstLine(c.Text)
	if err := f.openErr[name]; err != nil {
		return err
	}
	f.opened = append(f.opened, name)
	f.lastDetail = name
	return nil
}

func (f *fakeDriver) WaitDetail(ctx context.Context, timeout time.Duration) error {
	return f.detailErr
}

func (f *fakeDriver) DetailHTML(ctx context.Context) (string, error) {
	return f.detailHTML[f.lastDetail], nil
}

func (f *fakeDriver) Back(ctx context.Context) error {
	f.backs++
	return f.backErr
}

// noSleep replaces time.Sleep in tests so scripted loops run instantly.
func noSleep(time.Duration) {}

func card(lines ...string) Card {
	text := ""
	for i, l := range lines {
		if i > 0 {
			text += "\n"
		}
		text += l
	}
	return Card{Text: text}
}
