package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
	"github.com/Photon3009/cisoinbox/internal/email/repository"
	"github.com/Photon3009/cisoinbox/internal/notification"
)

// Classifier labels an email with one of the canonical categories.
type Classifier interface {
	Classify(ctx context.Context, from, subject, body string) emaildomain.Category
}

// Broadcaster pushes events to live subscribers.
type Broadcaster interface {
	Broadcast(name string, data interface{})
}

// Notifier fans a payload out to the external notification sinks.
type Notifier interface {
	Notify(p notification.Payload)
}

// Pipeline processes fetched messages: parse, persist, classify,
// broadcast, notify. Failures are confined to the message that caused
// them; a bad message never aborts the rest of a batch.
type Pipeline struct {
	repo        repository.EmailRepository
	classifier  Classifier
	broadcaster Broadcaster
	notifier    Notifier

	actionable  emaildomain.Category
	folder      string
	concurrency int
	stepTimeout time.Duration
}

func NewPipeline(repo repository.EmailRepository, classifier Classifier, broadcaster Broadcaster, notifier Notifier, actionable emaildomain.Category, folder string) *Pipeline {
	if folder == "" {
		folder = "INBOX"
	}
	return &Pipeline{
		repo:        repo,
		classifier:  classifier,
		broadcaster: broadcaster,
		notifier:    notifier,
		actionable:  actionable,
		folder:      folder,
		concurrency: 4,
		stepTimeout: 15 * time.Second,
	}
}

// ProcessBatch runs the pipeline over each UID with bounded parallelism.
func (p *Pipeline) ProcessBatch(ctx context.Context, account emaildomain.MailAccount, fetcher emaildomain.MessageFetcher, uids []uint32) {
	if len(uids) == 0 {
		return
	}
	log.Printf("[Pipeline] %s: processing %d messages", account.Email, len(uids))

	sem := make(chan struct{}, p.concurrency)
	var wg sync.WaitGroup
	for _, uid := range uids {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(uid uint32) {
			defer wg.Done()
			defer func() { <-sem }()
			p.processOne(ctx, account, fetcher, uid)
		}(uid)
	}
	wg.Wait()
}

func (p *Pipeline) processOne(ctx context.Context, account emaildomain.MailAccount, fetcher emaildomain.MessageFetcher, uid uint32) {
	raw, err := fetcher.FetchRaw(uid)
	if err != nil {
		log.Printf("[Pipeline] %s uid %d: fetch failed: %v", account.Email, uid, err)
		return
	}

	parsed, err := ParseRawMessage(raw)
	if err != nil {
		log.Printf("[Pipeline] %s uid %d: parse failed, skipping: %v", account.Email, uid, err)
		return
	}

	record := &emaildomain.EmailRecord{
		ID:           uuid.New().String(),
		UID:          uid,
		Account:      account.ID,
		AccountEmail: account.Email,
		Subject:      parsed.Subject,
		From:         parsed.From,
		To:           parsed.To,
		Date:         parsed.Date,
		Folder:       p.folder,
		Body:         parsed.Body,
		MessageID:    parsed.MessageID,
	}

	persistCtx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	err = p.repo.Persist(persistCtx, record)
	cancel()
	if err != nil {
		log.Printf("[Pipeline] %s uid %d: persist failed: %v", account.Email, uid, err)
		return
	}

	classifyCtx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	category := p.classifier.Classify(classifyCtx, parsed.From, parsed.Subject, parsed.Body)
	cancel()

	updateCtx, cancel := context.WithTimeout(ctx, p.stepTimeout)
	err = p.repo.UpdateCategory(updateCtx, record.ID, category)
	cancel()
	if err != nil {
		log.Printf("[Pipeline] %s uid %d: category update failed: %v", account.Email, uid, err)
		return
	}
	record.Category = category
	record.Processed = true

	log.Printf("[Pipeline] %s uid %d: %q classified as %s", account.Email, uid, parsed.Subject, category)

	if p.broadcaster != nil {
		p.broadcaster.Broadcast("new_email", record)
	}

	if p.notifier != nil && category == p.actionable {
		p.notifier.Notify(notification.PayloadFromRecord("interested_email", record))
	}
}
