package service

import (
	"context"

	"esign/internal/domain"
)

// Notifier delivers email. Failures are logged by callers and never fail the
// signing flow.
type Notifier interface {
	Send(ctx context.Context, to, subject, bodyHTML string, attachments ...Attachment) error
}

type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// BlobStore persists binary artifacts and hands back opaque locations.
type BlobStore interface {
	Write(ctx context.Context, data []byte) (string, error)
	Read(ctx context.Context, location string) ([]byte, error)
	Delete(ctx context.Context, location string) error
}

// ComposeInput is everything the composition engine needs to build the final
// signed artifact.
type ComposeInput struct {
	Document   *domain.Document
	Original   []byte // imported source bytes; nil for template documents
	Signers    []domain.Signer
	Signatures []domain.Signature
	Trail      []domain.AuditLog
}

// Composer merges original content, signature overlays, and audit data into
// the final artifact bytes.
type Composer interface {
	Compose(ctx context.Context, in ComposeInput) ([]byte, error)
}
