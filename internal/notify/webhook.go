package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Webhook posts a Discord-compatible message for each event. An empty URL
// makes Send a silent no-op.
type Webhook struct {
	url string
	hc  *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url: strings.TrimSpace(url),
		hc:  &http.Client{Timeout: timeout},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Enabled() bool { return w.url != "" }

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []webhookField `json:"fields"`
	Timestamp string         `json:"timestamp"`
}

type webhookBody struct {
	Content string         `json:"content"`
	Embeds  []webhookEmbed `json:"embeds"`
	Booking Event          `json:"booking"`
}

const (
	colorStandard = 0x5865F2
	colorRush     = 0xED4245
)

func buildWebhookBody(ev Event) webhookBody {
	when := ev.Date + " at " + ev.Time
	color := colorStandard
	rush := "No"
	if ev.IsRush {
		when = "ASAP (rush, booked " + ev.Date + ")"
		color = colorRush
		rush = "Yes"
	}

	return webhookBody{
		Content: fmt.Sprintf("New booking: %s for %s (%s)", ev.ServiceLabel, ev.Contact.Handle, ev.Total),
		Embeds: []webhookEmbed{{
			Title: "New Booking Confirmed",
			Color: color,
			Fields: []webhookField{
				{Name: "Service", Value: ev.ServiceLabel, Inline: true},
				{Name: "Price", Value: ev.Total, Inline: true},
				{Name: "Rush", Value: rush, Inline: true},
				{Name: "Customer", Value: ev.Contact.Handle, Inline: true},
				{Name: "Email", Value: ev.Contact.Email, Inline: true},
				{Name: "When", Value: when},
				{Name: "Booking ID", Value: ev.BookingID},
			},
			Timestamp: ev.Timestamp.Format(time.RFC3339),
		}},
		Booking: ev,
	}
}

func (w *Webhook) Send(ctx context.Context, ev Event) error {
	if !w.Enabled() {
		return nil
	}

	payload, err := json.Marshal(buildWebhookBody(ev))
	if err != nil {
		return fmt.Errorf("webhook: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.hc.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook: status=%d body=%q", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
