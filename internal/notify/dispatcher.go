// Package notify dispatches guardian alerts through an external SMS
// gateway. Every failure mode degrades into a Result; nothing in this
// package panics or propagates an error that could abort a scan.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/your-org/mpf/internal/config"
	"github.com/your-org/mpf/internal/models"
	"github.com/your-org/mpf/internal/observability"
)

// Delivery statuses reported by CheckStatus.
const (
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusSent      = "sent"
	StatusUnknown   = "unknown"
)

// Result is the outcome of one dispatch attempt. Success means the gateway
// accepted the request, not that the guardian received the SMS.
type Result struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	MessageID string    `json:"message_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Dispatcher struct {
	cfg    config.SMSConfig
	client *http.Client
}

func NewDispatcher(cfg config.SMSConfig) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.SendTimeout},
	}
}

// Notify normalizes the guardian phone, composes the alert message and
// sends it through the gateway. An unusable phone number is reported as a
// failed Result without touching the network.
func (d *Dispatcher) Notify(ctx context.Context, guardianPhone, personName string, loc models.Location, person PersonContext) Result {
	recipient, err := NormalizePhone(guardianPhone)
	if err != nil {
		observability.NotificationsSent.WithLabelValues("invalid_phone").Inc()
		return Result{Success: false, Message: err.Error(), Timestamp: time.Now()}
	}

	message := ComposeMessage(person, personName, loc)
	return d.Send(ctx, recipient, message)
}

// Send delivers one message to the gateway, retrying transient failures a
// bounded number of times with backoff.
func (d *Dispatcher) Send(ctx context.Context, recipient, message string) Result {
	reqURL, err := d.sendURL(recipient, message)
	if err != nil {
		observability.NotificationsSent.WithLabelValues("error").Inc()
		return Result{Success: false, Message: fmt.Sprintf("build gateway url: %v", err), Timestamp: time.Now()}
	}

	var lastErr string
	attempts := d.cfg.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		status, err := d.doSend(ctx, reqURL)
		if err == nil && status >= 200 && status < 300 {
			// The gateway returns no id of its own; generate one locally so
			// a dispatch attempt can always be correlated.
			id := fmt.Sprintf("MSG_%d_%s", time.Now().Unix(), recipient)
			observability.NotificationsSent.WithLabelValues("sent").Inc()
			return Result{Success: true, Message: "message accepted by gateway", MessageID: id, Timestamp: time.Now()}
		}

		if err != nil {
			lastErr = err.Error()
		} else {
			lastErr = fmt.Sprintf("gateway returned status %d", status)
		}
		slog.Warn("sms dispatch attempt failed", "attempt", attempt, "recipient", recipient, "error", lastErr)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				observability.NotificationsSent.WithLabelValues("error").Inc()
				return Result{Success: false, Message: ctx.Err().Error(), Timestamp: time.Now()}
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
	}

	observability.NotificationsSent.WithLabelValues("error").Inc()
	return Result{Success: false, Message: lastErr, Timestamp: time.Now()}
}

func (d *Dispatcher) doSend(ctx context.Context, reqURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func (d *Dispatcher) sendURL(recipient, message string) (string, error) {
	u, err := url.Parse(d.cfg.GatewayURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("user", d.cfg.Username)
	q.Set("pass", d.cfg.Password)
	q.Set("cont", message)
	q.Set("rec", recipient)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CheckStatus queries the gateway for the delivery status of a previously
// dispatched message. It is best-effort: any failure yields StatusUnknown
// with details, never an error.
func (d *Dispatcher) CheckStatus(ctx context.Context, messageID string) (status, details string) {
	u, err := url.Parse(d.cfg.GatewayURL + "/status")
	if err != nil {
		return StatusUnknown, err.Error()
	}
	q := u.Query()
	q.Set("user", d.cfg.Username)
	q.Set("pass", d.cfg.Password)
	q.Set("msgid", messageID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return StatusUnknown, err.Error()
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return StatusUnknown, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return StatusUnknown, fmt.Sprintf("status check returned %d", resp.StatusCode)
	}

	var payload struct {
		Status  string `json:"status"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return StatusUnknown, fmt.Sprintf("decode status response: %v", err)
	}

	switch payload.Status {
	case "DELIVERED":
		return StatusDelivered, payload.Details
	case "FAILED":
		return StatusFailed, payload.Details
	case "PENDING", "SENT":
		return StatusSent, payload.Details
	default:
		return StatusUnknown, payload.Details
	}
}
