// Package sms dispatches outreach texts to harvested leads through the
// Twilio REST API.
package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://api.twilio.com"

// Target is one lead to message.
type Target struct {
	LeadID int64
	Name   string
	Phone  string
}

type Sender struct {
	AccountSID string
	AuthToken  string
	From       string

	// BaseURL lets tests point at a local server.
	BaseURL string
	Client  *http.Client

	Workers int
	Delay   time.Duration
}

func NewSender(accountSID, authToken, from string) *Sender {
	return &Sender{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		BaseURL:    defaultBaseURL,
		Client:     &http.Client{Timeout: 30 * time.Second},
		Workers:    2,
		Delay:      5 * time.Second,
	}
}

// apiError is the error shape Twilio returns on non-2xx responses.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send delivers one message. to must already be in +E.164 form.
func (s *Sender) Send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.BaseURL, s.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.From)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.AccountSID, s.AuthToken)

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms to %s: %w", to, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr apiError
	if json.Unmarshal(b, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("send sms to %s: %s (code %d)", to, apiErr.Message, apiErr.Code)
	}
	return fmt.Errorf("send sms to %s: status %d", to, resp.StatusCode)
}

// SendBulk messages every target, rendering template per lead. onSent
// runs after each successful delivery (the caller records dispatch state
// there). Individual failures are logged and counted, not fatal; only
// context cancellation stops the batch early.
func (s *Sender) SendBulk(ctx context.Context, targets []Target, template string, onSent func(Target)) (sent, failed int) {
	if len(targets) == 0 {
		return 0, 0
	}

	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}

	var okCount, failCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, tgt := range targets {
		tgt := tgt
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			to, err := FormatE164(tgt.Phone)
			if err != nil {
				log.Printf("[sms] skipping %q: %v", tgt.Name, err)
				failCount.Add(1)
				return nil
			}

			body := RenderTemplate(template, tgt.Name)
			if err := s.Send(gctx, to, body); err != nil {
				log.Printf("[sms] %v", err)
				failCount.Add(1)
				return nil
			}

			okCount.Add(1)
			log.Printf("[sms] sent to %q (%s)", tgt.Name, to)
			if onSent != nil {
				onSent(tgt)
			}

			if s.Delay > 0 {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(s.Delay):
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(okCount.Load()), int(failCount.Load())
}

// RenderTemplate fills the {business_name} placeholder.
func RenderTemplate(template, businessName string) string {
	return strings.ReplaceAll(template, "{business_name}", businessName)
}

// FormatE164 normalizes a scraped US phone value to +E.164. Values that
// cannot be normalized are rejected rather than guessed at.
func FormatE164(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	hadPlus := strings.HasPrefix(trimmed, "+")

	var b strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case hadPlus && len(digits) >= 8:
		return "+" + digits, nil
	case len(digits) == 10:
		return "+1" + digits, nil
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, nil
	default:
		return "", fmt.Errorf("phone %q is not a dialable number", phone)
	}
}
