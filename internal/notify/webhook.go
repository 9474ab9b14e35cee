package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/resilience"
)

// Webhook posts emitted events to a back-office endpoint, signed so the
// receiver can verify origin. Delivery is best effort: the sale is already
// committed by the time this runs. An optional breaker stops deliveries
// while the endpoint is down.
type Webhook struct {
	URL     string
	Secret  string
	Topics  map[string]bool
	Client  *http.Client
	Breaker *resilience.Breaker
}

// Notify implements events.Notifier.
func (w *Webhook) Notify(ctx context.Context, event events.Event) error {
	if w == nil || w.URL == "" {
		return nil
	}
	if len(w.Topics) > 0 && !w.Topics[event.Topic] {
		return nil
	}
	if w.Breaker != nil {
		return w.Breaker.Do(ctx, func(ctx context.Context) error {
			return w.deliver(ctx, event)
		})
	}
	return w.deliver(ctx, event)
}

func (w *Webhook) deliver(ctx context.Context, event events.Event) error {
	if err := validateURL(w.URL); err != nil {
		return err
	}
	client := w.Client
	if client == nil {
		client = HTTPClient(5000)
	}

	payload := struct {
		EventID    string          `json:"eventId"`
		Topic      string          `json:"topic"`
		Data       json.RawMessage `json:"data"`
		OccurredAt time.Time       `json:"occurredAt"`
	}{
		EventID:    event.ID.String(),
		Topic:      event.Topic,
		Data:       event.Payload,
		OccurredAt: event.OccurredAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ts := time.Now().Unix()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pos-engine-webhooks/1.0")
	req.Header.Set("X-Event-ID", payload.EventID)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Signature", ComputeSignature(w.Secret, ts, payload.EventID, body))

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook delivery status %d", resp.StatusCode)
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("webhook url must be http or https")
	}
	if parsed.Scheme == "http" {
		host := parsed.Hostname()
		if host != "localhost" && host != "127.0.0.1" {
			return errors.New("http webhook only allowed for localhost")
		}
	}
	if parsed.Host == "" {
		return errors.New("webhook url must include host")
	}
	return nil
}

// ComputeSignature calculates the webhook signature for the provided payload.
// The format is HMAC-SHA256 over "<ts>.<eventID>.<body>" using the endpoint
// secret.
func ComputeSignature(secret string, ts int64, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HTTPClient returns an HTTP client configured for webhook delivery.
func HTTPClient(timeoutMs int) *http.Client {
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	return &http.Client{
		Timeout:   time.Duration(timeoutMs) * time.Millisecond,
		Transport: otelhttp.NewTransport(&http.Transport{}),
	}
}
