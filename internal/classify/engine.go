package classify

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
	"github.com/Photon3009/cisoinbox/pkg/ai"
)

const systemPrompt = `You are an AI assistant that categorizes emails based on their content.

You must categorize emails into exactly one of these categories:
- "Interested": Emails showing positive interest, engagement, or potential for business/opportunities
- "Meeting Booked": Emails about scheduling, confirming, or booking meetings/calls/interviews
- "Not Interested": Emails showing disinterest, rejection, or declining offers
- "Spam": Promotional emails, advertisements, automated marketing emails, or irrelevant content
- "Out of Office": Auto-reply messages indicating the person is away or unavailable

Analyze the email content including subject and body, then respond with only the category name (exact match required).

Examples:
- "Thanks for reaching out, this looks interesting" → Interested
- "Let's schedule a call for next week" → Meeting Booked
- "Not interested at this time" → Not Interested
- "I'm currently out of office until..." → Out of Office
- "Buy now! Limited time offer!" → Spam`

const (
	classifyMaxTokens   = 50
	classifyTemperature = 0.1
	threadContextLimit  = 3
	threadBodyPreview   = 200
)

var (
	categoryLine  = regexp.MustCompile(`Category:\s*(.+)`)
	sentimentLine = regexp.MustCompile(`Sentiment:\s*(\d+)`)
)

// ThreadMessage is a prior message from the same conversation, used as
// extra context when classifying a reply.
type ThreadMessage struct {
	Subject string
	Body    string
}

// Engine labels incoming emails with a category. Model failures and
// out-of-set answers fall back to keyword matching, so Classify never
// returns an error.
type Engine struct {
	completer ai.Completer
}

func NewEngine(completer ai.Completer) *Engine {
	return &Engine{completer: completer}
}

// Classify returns the category for one email.
func (e *Engine) Classify(ctx context.Context, from, subject, body string) emaildomain.Category {
	prompt := fmt.Sprintf("%s\n\nEmail to categorize:\n%s", systemPrompt, emailContent(from, subject, body))
	return e.classifyPrompt(ctx, prompt, subject, body)
}

// ClassifyWithThread classifies an email with up to the last three
// prior messages of its thread appended as context.
func (e *Engine) ClassifyWithThread(ctx context.Context, from, subject, body string, thread []ThreadMessage) emaildomain.Category {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\nEmail to categorize:\n")
	sb.WriteString(emailContent(from, subject, body))

	if len(thread) > 0 {
		if len(thread) > threadContextLimit {
			thread = thread[len(thread)-threadContextLimit:]
		}
		sb.WriteString("\n\nPrevious emails in thread:\n")
		for i, msg := range thread {
			sb.WriteString(fmt.Sprintf("%d. Subject: %s\nBody: %s...\n\n", i+1, msg.Subject, truncate(msg.Body, threadBodyPreview)))
		}
	}

	return e.classifyPrompt(ctx, sb.String(), subject, body)
}

// ClassifyWithSentiment also extracts a 1-10 sentiment score.
func (e *Engine) ClassifyWithSentiment(ctx context.Context, from, subject, body string) (emaildomain.Category, int) {
	prompt := fmt.Sprintf(`%s

Additionally, provide a sentiment score from 1-10 where:
1-3 = Negative sentiment
4-6 = Neutral sentiment
7-10 = Positive sentiment

Respond in this exact format:
Category: [CATEGORY_NAME]
Sentiment: [NUMBER]

Email to categorize:
%s`, systemPrompt, emailContent(from, subject, body))

	text, err := e.completer.Complete(ctx, prompt, classifyMaxTokens, classifyTemperature)
	if err != nil {
		log.Printf("[Classify] sentiment completion failed: %v", err)
		return FallbackCategory(subject, body), 5
	}
	text = strings.TrimSpace(text)

	category := emaildomain.Category("")
	if m := categoryLine.FindStringSubmatch(text); m != nil {
		category = emaildomain.Category(strings.TrimSpace(m[1]))
	}
	if !category.Valid() {
		log.Printf("[Classify] sentiment response had unknown category %q, using keyword fallback", category)
		category = FallbackCategory(subject, body)
	}

	sentiment := 5
	if m := sentimentLine.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			sentiment = n
		}
	}
	if sentiment < 1 {
		sentiment = 1
	}
	if sentiment > 10 {
		sentiment = 10
	}
	return category, sentiment
}

func (e *Engine) classifyPrompt(ctx context.Context, prompt, subject, body string) emaildomain.Category {
	text, err := e.completer.Complete(ctx, prompt, classifyMaxTokens, classifyTemperature)
	if err != nil {
		log.Printf("[Classify] completion failed, using keyword fallback: %v", err)
		return FallbackCategory(subject, body)
	}

	category := emaildomain.Category(strings.TrimSpace(text))
	if !category.Valid() {
		log.Printf("[Classify] model returned unknown category %q, using keyword fallback", text)
		return FallbackCategory(subject, body)
	}
	return category
}

func emailContent(from, subject, body string) string {
	return fmt.Sprintf("From: %s\nSubject: %s\nBody: %s", from, subject, truncateWithEllipsis(body, bodyPreviewLimit))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncateWithEllipsis(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
