package repository

import (
	"context"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"
)

// SearchFilter narrows email listing. Zero values mean "no filter".
type SearchFilter struct {
	Query    string
	Account  string
	Folder   string
	Category string
	Limit    int
	Offset   int
}

// EmailRepository defines the interface for email persistence
type EmailRepository interface {
	// Persist stores a newly parsed email with processed=false
	Persist(ctx context.Context, record *emaildomain.EmailRecord) error
	// UpdateCategory sets the category and marks the record processed
	UpdateCategory(ctx context.Context, id string, category emaildomain.Category) error
	// FetchByID returns one record or domain.ErrNotFound
	FetchByID(ctx context.Context, id string) (*emaildomain.EmailRecord, error)
	// Search lists records matching the filter, newest first
	Search(ctx context.Context, filter SearchFilter) ([]emaildomain.EmailRecord, int64, error)
}
