package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSink POSTs a JSON envelope to an external automation endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{},
	}
}

func (w *WebhookSink) Name() string { return "webhook" }

func (w *WebhookSink) IsConfigured() bool {
	return w.url != ""
}

type webhookEnvelope struct {
	Event     string          `json:"event"`
	Timestamp string          `json:"timestamp"`
	Data      webhookData     `json:"data"`
	Metadata  webhookMetadata `json:"metadata"`
}

type webhookData struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	AccountEmail string    `json:"accountEmail"`
	Category     string    `json:"category"`
	Date         time.Time `json:"date"`
	Folder       string    `json:"folder"`
	Preview      string    `json:"preview"`
	MessageID    string    `json:"messageId"`
}

type webhookMetadata struct {
	Source      string `json:"source"`
	Version     string `json:"version"`
	ProcessedAt string `json:"processed_at"`
}

func (w *WebhookSink) Deliver(ctx context.Context, p Payload) error {
	now := time.Now().UTC().Format(time.RFC3339)
	envelope := webhookEnvelope{
		Event:     p.Event,
		Timestamp: now,
		Data: webhookData{
			ID:           p.ID,
			Subject:      p.Subject,
			From:         p.From,
			To:           p.To,
			AccountEmail: p.AccountEmail,
			Category:     p.Category,
			Date:         p.Date,
			Folder:       p.Folder,
			Preview:      p.Preview,
			MessageID:    p.MessageID,
		},
		Metadata: webhookMetadata{
			Source:      "cisoinbox",
			Version:     "1.0.0",
			ProcessedAt: now,
		},
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "cisoinbox-webhook/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
