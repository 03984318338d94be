package impl

import (
	"context"
	"errors"
	"time"

	"esign/internal/domain"
	"esign/internal/store"

	"github.com/google/uuid"
)

// The services are written against these narrow interfaces so tests can
// substitute an in-memory store; the gorm adapter below is the production
// binding.

type dataStore interface {
	WithTx(ctx context.Context, fn func(tx storeTx) error) error
}

type storeTx interface {
	Documents() documentStore
	Signers() signerStore
	Signatures() signatureStore
	Audit() auditStore

	// DeleteDocument cascades signatures, signers, and audit rows inside the
	// enclosing transaction, returning per-table counts.
	DeleteDocument(ctx context.Context, documentID uuid.UUID) (map[string]int64, error)
}

type documentStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Document, error)
	Save(ctx context.Context, doc *domain.Document) error
	SetStatus(ctx context.Context, id uuid.UUID, from, to domain.DocumentStatus) (bool, error)
}

type signerStore interface {
	Create(ctx context.Context, sg *domain.Signer) error
	GetByToken(ctx context.Context, token string) (*domain.Signer, error)
	GetByTokenPrefix(ctx context.Context, prefix string) (*domain.Signer, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Signer, error)
	Save(ctx context.Context, sg *domain.Signer) error
	MarkSigned(ctx context.Context, id uuid.UUID, at time.Time, ip, ua string) (bool, error)
}

type signatureStore interface {
	Create(ctx context.Context, sig *domain.Signature) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.Signature, error)
}

type auditStore interface {
	Append(ctx context.Context, entry *domain.AuditLog) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]domain.AuditLog, error)
	CountByAction(ctx context.Context, documentID uuid.UUID, action domain.AuditAction) (int64, error)
}

type gormStoreAdapter struct {
	store *store.Store
}

func (g gormStoreAdapter) WithTx(ctx context.Context, fn func(tx storeTx) error) error {
	if g.store == nil {
		return errors.New("nil store")
	}
	return g.store.WithTx(ctx, func(tx *store.Store) error {
		return fn(gormTxAdapter{tx: tx})
	})
}

type gormTxAdapter struct {
	tx *store.Store
}

func (g gormTxAdapter) Documents() documentStore   { return g.tx.Documents() }
func (g gormTxAdapter) Signers() signerStore       { return g.tx.Signers() }
func (g gormTxAdapter) Signatures() signatureStore { return g.tx.Signatures() }
func (g gormTxAdapter) Audit() auditStore          { return g.tx.Audit() }

func (g gormTxAdapter) DeleteDocument(ctx context.Context, documentID uuid.UUID) (map[string]int64, error) {
	return g.tx.DeleteDocumentData(ctx, documentID)
}
