package store

import (
	"context"
	"errors"
	"time"

	"esign/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SignerStore struct{ db *gorm.DB }

func (s *Store) Signers() *SignerStore { return &SignerStore{db: s.DB} }

func (s *SignerStore) Create(ctx context.Context, sg *domain.Signer) error {
	if sg.ID == uuid.Nil {
		sg.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(sg).Error
}

func (s *SignerStore) GetByToken(ctx context.Context, token string) (*domain.Signer, error) {
	var sg domain.Signer
	if err := s.db.WithContext(ctx).First(&sg, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("unknown signing token")
		}
		return nil, err
	}
	return &sg, nil
}

// GetByTokenPrefix is the legacy shim for pre-existing longer tokens that an
// external routing layer truncated. It refuses to guess when the prefix is
// ambiguous. New tokens are fixed-length and never hit this path.
func (s *SignerStore) GetByTokenPrefix(ctx context.Context, prefix string) (*domain.Signer, error) {
	var matches []domain.Signer
	if err := s.db.WithContext(ctx).
		Where("token LIKE ?", prefix+"%").
		Limit(2).
		Find(&matches).Error; err != nil {
		return nil, err
	}
	switch len(matches) {
	case 1:
		return &matches[0], nil
	case 0:
		return nil, domain.NotFound("unknown signing token")
	default:
		return nil, domain.NotFound("ambiguous signing token")
	}
}

func (s *SignerStore) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Signer, error) {
	var signers []domain.Signer
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("sign_order ASC, created_at ASC").
		Find(&signers).Error
	return signers, err
}

func (s *SignerStore) Save(ctx context.Context, sg *domain.Signer) error {
	return s.db.WithContext(ctx).Save(sg).Error
}

// MarkSigned sets signed_at only when the signer has not signed yet; the
// returned flag is false when another submission won the race.
func (s *SignerStore) MarkSigned(ctx context.Context, id uuid.UUID, at time.Time, ip, ua string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&domain.Signer{}).
		Where("id = ? AND signed_at IS NULL", id).
		Updates(map[string]any{"signed_at": at, "ip": ip, "user_agent": ua})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
