package service

import (
	"context"

	"esign/internal/domain"
	"esign/internal/dto"

	"github.com/google/uuid"
)

// DocumentService owns the document lifecycle: all status transitions happen
// here and nowhere else.
type DocumentService interface {
	Create(ctx context.Context, ownerID uuid.UUID, req dto.CreateDocumentRequest, cap dto.Capture) (*domain.Document, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*domain.Document, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]domain.Document, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, patch dto.DocumentPatch, cap dto.Capture) (*domain.Document, error)
	SendForSignature(ctx context.Context, ownerID, id uuid.UUID, req dto.SendRequest, cap dto.Capture) (*dto.SendResponse, error)
	Cancel(ctx context.Context, ownerID, id uuid.UUID, cap dto.Capture) error
	Delete(ctx context.Context, ownerID, id uuid.UUID, cap dto.Capture) (*dto.DeleteResponse, error)
	Duplicate(ctx context.Context, ownerID, id uuid.UUID, cap dto.Capture) (*domain.Document, error)
	Download(ctx context.Context, ownerID, id uuid.UUID, cap dto.Capture) (*dto.DownloadResponse, error)
	AuditTrail(ctx context.Context, ownerID, id uuid.UUID) ([]domain.AuditLog, error)
	Signers(ctx context.Context, ownerID, id uuid.UUID) ([]domain.Signer, error)
}
