package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	emaildomain "github.com/Photon3009/cisoinbox/internal/email/domain"

	"gorm.io/gorm"
)

const defaultSearchLimit = 20

// emailRepository implements EmailRepository interface
type emailRepository struct {
	db *gorm.DB
}

// NewEmailRepository creates a new instance of emailRepository
func NewEmailRepository(db *gorm.DB) EmailRepository {
	return &emailRepository{
		db: db,
	}
}

func (r *emailRepository) Persist(ctx context.Context, record *emaildomain.EmailRecord) error {
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now
	record.Processed = false

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("persist email: %w", err)
	}
	return nil
}

func (r *emailRepository) UpdateCategory(ctx context.Context, id string, category emaildomain.Category) error {
	if !category.Valid() {
		return fmt.Errorf("%w: unknown category %q", emaildomain.ErrInvalidInput, category)
	}

	result := r.db.WithContext(ctx).
		Model(&emaildomain.EmailRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"category":   string(category),
			"processed":  true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("update category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return emaildomain.ErrNotFound
	}
	return nil
}

func (r *emailRepository) FetchByID(ctx context.Context, id string) (*emaildomain.EmailRecord, error) {
	var record emaildomain.EmailRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, emaildomain.ErrNotFound
		}
		return nil, fmt.Errorf("fetch email %s: %w", id, err)
	}
	return &record, nil
}

func (r *emailRepository) Search(ctx context.Context, filter SearchFilter) ([]emaildomain.EmailRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&emaildomain.EmailRecord{})

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query = query.Where("subject ILIKE ? OR body ILIKE ? OR from_addr ILIKE ?", pattern, pattern, pattern)
	}
	if filter.Account != "" {
		query = query.Where("account_email = ?", filter.Account)
	}
	if filter.Folder != "" {
		query = query.Where("folder = ?", filter.Folder)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count emails: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var records []emaildomain.EmailRecord
	err := query.
		Order("date DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("search emails: %w", err)
	}
	return records, total, nil
}
