package store

import (
	"context"

	"esign/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditStore struct{ db *gorm.DB }

func (s *Store) Audit() *AuditStore { return &AuditStore{db: s.DB} }

// Append is the only write; audit rows are never updated.
func (a *AuditStore) Append(ctx context.Context, entry *domain.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return a.db.WithContext(ctx).Create(entry).Error
}

func (a *AuditStore) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.AuditLog, error) {
	var entries []domain.AuditLog
	err := a.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (a *AuditStore) CountByAction(ctx context.Context, documentID uuid.UUID, action domain.AuditAction) (int64, error) {
	var n int64
	err := a.db.WithContext(ctx).Model(&domain.AuditLog{}).
		Where("document_id = ? AND action = ?", documentID, action).
		Count(&n).Error
	return n, err
}
