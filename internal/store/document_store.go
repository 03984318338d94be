package store

import (
	"context"
	"errors"

	"esign/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentStore struct{ db *gorm.DB }

func (s *Store) Documents() *DocumentStore { return &DocumentStore{db: s.DB} }

func (d *DocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	return d.db.WithContext(ctx).Create(doc).Error
}

func (d *DocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	if err := d.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("document %s not found", id)
		}
		return nil, err
	}
	return &doc, nil
}

// GetByIDForUpdate loads the document under a row lock held for the rest of
// the transaction. Concurrent submissions for the same document queue here,
// so each one observes the signer rows committed by the one before it.
func (d *DocumentStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := d.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&doc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("document %s not found", id)
		}
		return nil, err
	}
	return &doc, nil
}

func (d *DocumentStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Document, error) {
	var docs []domain.Document
	err := d.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (d *DocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	return d.db.WithContext(ctx).Save(doc).Error
}

// SetStatus updates the status only when the document is still in the
// expected state, reporting whether the guard held. This is the idempotency
// guard for concurrent completion paths.
func (d *DocumentStore) SetStatus(ctx context.Context, id uuid.UUID, from, to domain.DocumentStatus) (bool, error) {
	res := d.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
