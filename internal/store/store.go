package store

import (
	"context"

	"esign/internal/domain"

	"gorm.io/gorm"
)

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// AutoMigrate creates the schema, including the unique index on
// signers.token that the token protocol relies on.
func (s *Store) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&domain.Document{},
		&domain.Signer{},
		&domain.Signature{},
		&domain.AuditLog{},
	)
}
