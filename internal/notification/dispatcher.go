package notification

import (
	"context"
	"log"
	"sync"
	"time"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
)

const previewLimit = 200

// Payload is the normalized notification content shared by all sinks.
type Payload struct {
	Event        string    `json:"event"`
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

// PayloadFromRecord builds a Payload with the body cut to a short preview.
func PayloadFromRecord(event string, rec *emaildomain.EmailRecord) Payload {
	preview := rec.Body
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	return Payload{
		Event:        event,
		ID:           rec.ID,
		Subject:      rec.Subject,
		From:         rec.From,
		To:           rec.To,
		AccountEmail: rec.AccountEmail,
		Category:     string(rec.Category),
		Date:         rec.Date,
		Folder:       rec.Folder,
		Preview:      preview,
		MessageID:    rec.MessageID,
	}
}

// Sink delivers one notification to an external channel.
type Sink interface {
	Name() string
	IsConfigured() bool
	Deliver(ctx context.Context, p Payload) error
}

// Dispatcher fans a payload out to all sinks, retrying each sink
// independently. Delivery is best-effort: after the retry budget is
// spent the payload is logged and dropped.
type Dispatcher struct {
	sinks       []Sink
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
	wg          sync.WaitGroup
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:       sinks,
		maxAttempts: 3,
		baseDelay:   time.Second,
		timeout:     10 * time.Second,
	}
}

// Notify delivers the payload to every sink in the background.
func (d *Dispatcher) Notify(p Payload) {
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(s Sink) {
			defer d.wg.Done()
			d.deliver(s, p)
		}(sink)
	}
}

func (d *Dispatcher) deliver(s Sink, p Payload) {
	if !s.IsConfigured() {
		return
	}

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := s.Deliver(ctx, p)
		cancel()
		if err == nil {
			log.Printf("[Notify] %s delivered %s (attempt %d)", s.Name(), p.ID, attempt)
			return
		}

		log.Printf("[Notify] %s attempt %d failed: %v", s.Name(), attempt, err)
		if attempt < d.maxAttempts {
			time.Sleep(time.Duration(attempt) * d.baseDelay)
		}
	}
	log.Printf("[Notify] %s giving up on %s after %d attempts", s.Name(), p.ID, d.maxAttempts)
}

// Wait blocks until all in-flight deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
