// Package webhook delivers newly detected companies to the configured sink,
// one POST per company, with per-entry retry and a persisted queue for
// companies that still fail after retries.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"ycradar/internal/domain"
	"ycradar/internal/netutil"
)

// EventType is the constant event field of every payload.
const EventType = "new_yc_company"

type Sender struct {
	url        string
	hc         *http.Client
	limiter    *netutil.HostLimiter
	maxRetries int
	sleep      func(time.Duration)
	now        func() time.Time
}

func NewSender(url string, timeout time.Duration, maxRetries int, limiter *netutil.HostLimiter) *Sender {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Sender{
		url:        url,
		hc:         &http.Client{Timeout: timeout},
		limiter:    limiter,
		maxRetries: maxRetries,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// payload is the wire shape: the company record plus the event envelope.
type payload struct {
	domain.Company
	Event      string `json:"event"`
	DetectedAt string `json:"detected_at"`
}

// Deliver POSTs every queued-then-fresh company to the webhook, in that
// order. One failure never aborts the rest. It returns the IDs delivered
// and the updated retry queue: a fresh company that fails is added with
// attempt count 1, an already-pending one keeps its first-failure time and
// gains an attempt.
func (s *Sender) Deliver(ctx context.Context, pending map[string]domain.PendingDelivery, fresh []domain.Company) (delivered []string, failed map[string]domain.PendingDelivery) {
	failed = make(map[string]domain.PendingDelivery)

	for _, pd := range inQueueOrder(pending) {
		if err := s.sendOne(ctx, pd.Company); err != nil {
			pd.Attempts++
			pd.LastError = err.Error()
			failed[pd.Company.ID] = pd
			log.Printf("[webhook] retry failed id=%s name=%q attempts=%d: %v",
				pd.Company.ID, pd.Company.Name, pd.Attempts, err)
			continue
		}
		delivered = append(delivered, pd.Company.ID)
		log.Printf("[webhook] retried and delivered id=%s name=%q", pd.Company.ID, pd.Company.Name)
	}

	for _, c := range fresh {
		if _, already := pending[c.ID]; already {
			// retried above; don't send twice in one run
			continue
		}
		if err := s.sendOne(ctx, c); err != nil {
			failed[c.ID] = domain.PendingDelivery{
				Company:       c,
				Attempts:      1,
				FirstFailedAt: s.now().UTC(),
				LastError:     err.Error(),
			}
			log.Printf("[webhook] delivery failed id=%s name=%q: %v", c.ID, c.Name, err)
			continue
		}
		delivered = append(delivered, c.ID)
		log.Printf("[webhook] delivered id=%s name=%q", c.ID, c.Name)
	}

	return delivered, failed
}

// sendOne POSTs a single company, retrying with exponential backoff.
// Success is any 2xx.
func (s *Sender) sendOne(ctx context.Context, c domain.Company) error {
	body, err := json.Marshal(payload{
		Company:    c,
		Event:      EventType,
		DetectedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.WaitURL(ctx, s.url); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := s.hc.Do(req)
		if err == nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
			res.Body.Close()
			if res.StatusCode >= 200 && res.StatusCode <= 299 {
				return nil
			}
			lastErr = fmt.Errorf("webhook status %d", res.StatusCode)
		} else {
			lastErr = err
		}

		if attempt == s.maxRetries {
			break
		}
		wait := time.Duration(1<<attempt) * time.Second
		log.Printf("[webhook] attempt %d/%d for id=%s failed: %v — retrying in %s",
			attempt, s.maxRetries, c.ID, lastErr, wait)
		s.sleep(wait)
	}
	return lastErr
}

// inQueueOrder flattens the retry map into first-failed-first order so
// retries keep the order the companies were originally detected in.
func inQueueOrder(pending map[string]domain.PendingDelivery) []domain.PendingDelivery {
	out := make([]domain.PendingDelivery, 0, len(pending))
	for _, pd := range pending {
		out = append(out, pd)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FirstFailedAt.Equal(out[j].FirstFailedAt) {
			return out[i].FirstFailedAt.Before(out[j].FirstFailedAt)
		}
		return out[i].Company.ID < out[j].Company.ID
	})
	return out
}
