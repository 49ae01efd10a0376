// Package webhook delivers signed JSON events about freshly scraped companies.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/orgscope/models"
)

// EventCompanyScraped is sent after a record has been extracted and stored.
const EventCompanyScraped = "company.scraped"

// SignatureHeader carries "sha256=<hex>" when a secret is configured.
const SignatureHeader = "X-Orgscope-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string                `json:"type"`
	PageID    string                `json:"page_id"`
	Timestamp int64                 `json:"timestamp"`
	Data      *models.CompanyRecord `json:"data"`
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends a webhook event synchronously.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Orgscope-Webhook/1.0")

	if secret != "" {
		req.Header.Set(SignatureHeader, Sign(secret, body))
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Notifier sends company.scraped events to one endpoint. A nil Notifier or
// one without a URL does nothing.
type Notifier struct {
	URL    string
	Secret string

	// Delays between attempts; the first entry is usually 0.
	Delays []time.Duration
}

// NewNotifier returns a Notifier retrying at 1s, 5s and 30s, or nil when
// url is empty.
func NewNotifier(url, secret string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		URL:    url,
		Secret: secret,
		Delays: []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// CompanyScraped delivers rec asynchronously.
func (n *Notifier) CompanyScraped(rec *models.CompanyRecord) {
	if n == nil || n.URL == "" {
		return
	}
	n.DeliverAsync(&Event{
		Type:      EventCompanyScraped,
		PageID:    rec.PageID,
		Timestamp: time.Now().Unix(),
		Data:      rec,
	})
}

// DeliverAsync sends event in the background, retrying on failure.
func (n *Notifier) DeliverAsync(event *Event) {
	go func() {
		for attempt, delay := range n.Delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := Deliver(ctx, n.URL, n.Secret, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered",
					"url", n.URL,
					"event", event.Type,
					"pageID", event.PageID,
					"attempt", attempt+1,
				)
				return
			}
			slog.Warn("webhook delivery failed",
				"url", n.URL,
				"event", event.Type,
				"pageID", event.PageID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		slog.Error("webhook delivery exhausted all retries",
			"url", n.URL,
			"event", event.Type,
			"pageID", event.PageID,
		)
	}()
}
