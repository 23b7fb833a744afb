package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const slackDefaultBaseURL = "https://slack.com/api"

// SlackSink posts a block-formatted message to a Slack channel via the
// chat.postMessage Web API.
type SlackSink struct {
	token     string
	channelID string
	baseURL   string
	client    *http.Client
}

func NewSlackSink(token, channelID string) *SlackSink {
	return &SlackSink{
		token:     token,
		channelID: channelID,
		baseURL:   slackDefaultBaseURL,
		client:    &http.Client{},
	}
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) IsConfigured() bool {
	return s.token != "" && s.channelID != ""
}

type slackBlock map[string]interface{}

type slackMessage struct {
	Channel string       `json:"channel"`
	Text    string       `json:"text"`
	Blocks  []slackBlock `json:"blocks"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (s *SlackSink) Deliver(ctx context.Context, p Payload) error {
	msg := slackMessage{
		Channel: s.channelID,
		Text:    "🎯 New Interested Email Received!",
		Blocks: []slackBlock{
			{
				"type": "header",
				"text": map[string]string{"type": "plain_text", "text": "🎯 New Interested Email!"},
			},
			{
				"type": "section",
				"fields": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("*From:*\n%s", p.From)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Account:*\n%s", p.AccountEmail)},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Date:*\n%s", p.Date.Format("Jan 2, 2006 3:04 PM"))},
					{"type": "mrkdwn", "text": fmt.Sprintf("*Category:*\n%s", p.Category)},
				},
			},
			{
				"type": "section",
				"text": map[string]string{"type": "mrkdwn", "text": fmt.Sprintf("*Subject:*\n%s", p.Subject)},
			},
			{
				"type": "section",
				"text": map[string]string{"type": "mrkdwn", "text": fmt.Sprintf("*Preview:*\n%s", p.Preview)},
			},
			{"type": "divider"},
			{
				"type": "context",
				"elements": []map[string]string{
					{"type": "mrkdwn", "text": fmt.Sprintf("Email ID: %s | Folder: %s", p.ID, p.Folder)},
				},
			},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat.postMessage", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack api status %d: %s", resp.StatusCode, string(respBody))
	}

	var result slackResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("slack response decode: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("slack api error: %s", result.Error)
	}
	return nil
}
