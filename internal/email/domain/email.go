package domain

import "time"

// Category is the closed set of labels the classification engine may assign.
// The string values are persisted verbatim and returned over the API.
type Category string

const (
	CategoryInterested    Category = "Interested"
	CategoryMeetingBooked Category = "Meeting Booked"
	CategoryNotInterested Category = "Not Interested"
	CategorySpam          Category = "Spam"
	CategoryOutOfOffice   Category = "Out of Office"
)

// AllCategories returns the five canonical labels in display order.
func AllCategories() []Category {
	return []Category{
		CategoryInterested,
		CategoryMeetingBooked,
		CategoryNotInterested,
		CategorySpam,
		CategoryOutOfOffice,
	}
}

// Valid reports whether c is one of the five canonical labels.
// Matching is exact and case-sensitive.
func (c Category) Valid() bool {
	switch c {
	case CategoryInterested, CategoryMeetingBooked, CategoryNotInterested, CategorySpam, CategoryOutOfOffice:
		return true
	}
	return false
}

// MailAccount is one configured remote mailbox. Accounts are loaded once at
// startup and never mutated afterwards.
type MailAccount struct {
	ID            string
	Email         string
	Password      string
	Host          string
	Port          int
	TLS           bool
	TLSSkipVerify bool
}

// EmailRecord is the canonical persisted email entity. It is created with
// Processed=false and mutated exactly once, by the classification step,
// which sets Category and Processed=true together.
type EmailRecord struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UID          uint32    `json:"uid" gorm:"index:idx_account_uid"`
	Account      string    `json:"account" gorm:"index:idx_account_uid;not null"`
	AccountEmail string    `json:"account_email"`
	Subject      string    `json:"subject"`
	From         string    `json:"from" gorm:"column:from_addr"`
	To           string    `json:"to" gorm:"column:to_addr"`
	Date         time.Time `json:"date" gorm:"index"`
	Folder       string    `json:"folder" gorm:"index"`
	Body         string    `json:"body"`
	MessageID    string    `json:"message_id"`
	Category     Category  `json:"category" gorm:"index"`
	Processed    bool      `json:"processed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RawMessage is the transient unit produced by one IMAP fetch: the
// server-assigned UID, envelope fields, and the raw RFC 822 body. It is
// consumed by the parser and discarded.
type RawMessage struct {
	UID       uint32
	Subject   string
	From      string
	To        string
	Date      time.Time
	MessageID string
	Raw       []byte
}

// ParsedMail holds the normalized fields extracted from a RawMessage.
type ParsedMail struct {
	Subject   string
	From      string
	To        string
	Date      time.Time
	Body      string
	MessageID string
}

// MessageFetcher fetches one raw message by its server-assigned UID.
// An open IMAP connection implements this for the ingestion pipeline.
type MessageFetcher interface {
	FetchRaw(uid uint32) (*RawMessage, error)
}
