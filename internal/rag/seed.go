package rag

import "fmt"

// seedExamples returns the built-in email/reply pairs the index is
// bootstrapped with. The meeting link is substituted at startup.
func seedExamples(meetingLink string) []ExampleDocument {
	return []ExampleDocument{
		{
			ID:      "interested_response_1",
			Context: "Job application - interested response",
			Email:   "Hi, Your resume has been shortlisted. When will be a good time for you to attend the technical interview?",
			Reply:   fmt.Sprintf("Thank you for shortlisting my profile! I'm available for a technical interview. You can book a slot here: %s", meetingLink),
		},
		{
			ID:      "interested_response_2",
			Context: "Meeting request - positive response",
			Email:   "We would like to schedule a call to discuss the opportunity further.",
			Reply:   fmt.Sprintf("I'd be happy to discuss the opportunity! Please feel free to book a convenient time slot: %s", meetingLink),
		},
		{
			ID:      "interested_response_3",
			Context: "Follow-up - interested",
			Email:   "Thanks for your application. We are interested in learning more about your background.",
			Reply:   fmt.Sprintf("Thank you for your interest! I'd be glad to share more about my background. You can schedule a call at your convenience: %s", meetingLink),
		},
		{
			ID:      "interested_response_4",
			Context: "Business opportunity - interested",
			Email:   "Your profile looks interesting for our project. Can we set up a time to chat?",
			Reply:   fmt.Sprintf("I'm excited about the opportunity to contribute to your project! Please book a suitable time for our conversation: %s", meetingLink),
		},
		{
			ID:      "interested_response_5",
			Context: "Interview invitation",
			Email:   "We would like to invite you for an interview next week.",
			Reply:   fmt.Sprintf("Thank you for the interview invitation! I'm available next week. You can choose a convenient time slot: %s", meetingLink),
		},
	}
}
