package classify

import (
	"strings"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
)

// bodyPreviewLimit caps how much body text goes into prompts.
const bodyPreviewLimit = 2000

var outOfOfficeKeywords = []string{
	"out of office", "away from office", "currently unavailable",
	"automatic reply", "auto reply", "vacation", "holiday",
	"will be back", "returning on", "away until",
}

var meetingKeywords = []string{
	"schedule", "meeting", "call", "appointment", "interview",
	"book", "available", "calendar", "time slot", "zoom",
	"teams meeting", "conference call",
}

var interestedKeywords = []string{
	"interested", "looks good", "sounds great", "tell me more",
	"learn more", "discuss", "explore", "potential", "opportunity",
	"impressed", "exciting", "perfect timing", "exactly what",
}

var notInterestedKeywords = []string{
	"not interested", "no thanks", "not right now", "pass",
	"decline", "reject", "not suitable", "not looking",
	"remove me", "unsubscribe", "stop sending",
}

var spamKeywords = []string{
	"buy now", "limited time", "free", "offer expires",
	"click here", "act now", "special deal", "discount",
	"winner", "congratulations", "claim your", "urgent",
}

// FallbackCategory assigns a category from keyword matches when the
// model is unavailable. Lists are checked in a fixed priority order and
// the first hit wins.
func FallbackCategory(subject, body string) emaildomain.Category {
	content := strings.ToLower(subject + " " + body)

	if containsAny(content, outOfOfficeKeywords) {
		return emaildomain.CategoryOutOfOffice
	}
	if containsAny(content, meetingKeywords) {
		return emaildomain.CategoryMeetingBooked
	}
	if containsAny(content, interestedKeywords) {
		return emaildomain.CategoryInterested
	}
	if containsAny(content, notInterestedKeywords) {
		return emaildomain.CategoryNotInterested
	}
	if containsAny(content, spamKeywords) {
		return emaildomain.CategorySpam
	}
	return emaildomain.CategorySpam
}

func containsAny(content string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}
