package harvest

import (
	"bufio"
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ChallengeGate detects anti-automation verification screens and blocks
// the pipeline until an operator resolves them out-of-band. There is no
// automated solve: the wait has no timeout beyond context cancellation.
type ChallengeGate struct {
	// Resume blocks until the operator signals the challenge is solved.
	// Nil disables the gate (detection still logs).
	Resume func(ctx context.Context) error
	// Settle is how long to wait after the resume signal before driving
	// the page again.
	Settle time.Duration

	sleep func(time.Duration)
}

// NewChallengeGate builds a gate with the given resume hook and a short
// post-resolution settle delay.
func NewChallengeGate(resume func(ctx context.Context) error) *ChallengeGate {
	return &ChallengeGate{Resume: resume, Settle: 3 * time.Second, sleep: time.Sleep}
}

// Detect reports whether the page source shows a challenge: structural
// probes first, then a raw substring scan as a catch-all.
func Detect(pageHTML string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err == nil {
		for _, sel := range challengeSelectors {
			if doc.Find(sel).Length() > 0 {
				return true
			}
		}
		bodyText := strings.ToLower(doc.Text())
		for _, hint := range challengeTextHints {
			if strings.Contains(bodyText, hint) {
				return true
			}
		}
	}
	lower := strings.ToLower(pageHTML)
	for _, hint := range challengeSourceHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// Clear checks the current page for a challenge and, if one is present,
// blocks on the operator resume signal before returning. Returns the
// resume error (typically context cancellation) if the wait was aborted.
func (g *ChallengeGate) Clear(ctx context.Context, drv Driver) error {
	html, err := drv.PageHTML(ctx)
	if err != nil {
		return err
	}
	if !Detect(html) {
		return nil
	}
	log.Printf("[gate] challenge detected, waiting for manual resolution")
	if g.Resume == nil {
		return nil
	}
	if err := g.Resume(ctx); err != nil {
		return err
	}
	if g.Settle > 0 {
		sleep := g.sleep
		if sleep == nil {
			sleep = time.Sleep
		}
		sleep(g.Settle)
	}
	return nil
}

// ConsoleResume returns a resume hook that waits for the operator to
// press Enter, honoring context cancellation.
func ConsoleResume(in io.Reader, out io.Writer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if out != nil {
			io.WriteString(out, "Solve the challenge in the browser, then press Enter to continue...\n")
		}
		done := make(chan error, 1)
		go func() {
			r := bufio.NewReader(in)
			_, err := r.ReadString('\n')
			done <- err
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			if err != nil && err != io.EOF {
				return err
			}
			return nil
		}
	}
}
