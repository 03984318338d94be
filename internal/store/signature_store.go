package store

import (
	"context"

	"esign/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SignatureStore struct{ db *gorm.DB }

func (s *Store) Signatures() *SignatureStore { return &SignatureStore{db: s.DB} }

func (s *SignatureStore) Create(ctx context.Context, sig *domain.Signature) error {
	if sig.ID == uuid.Nil {
		sig.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(sig).Error
}

func (s *SignatureStore) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Signature, error) {
	var sigs []domain.Signature
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("signed_at ASC").
		Find(&sigs).Error
	return sigs, err
}

func (s *SignatureStore) CountBySigner(ctx context.Context, signerID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Signature{}).
		Where("signer_id = ?", signerID).
		Count(&n).Error
	return n, err
}
