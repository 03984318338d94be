package dto

import (
	"time"

	"esign/internal/domain"
)

type CreateDocumentRequest struct {
	Title     string            `json:"title"`
	Source    string            `json:"source"` // template | imported
	Content   string            `json:"content,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
	// OriginalPDF carries the imported file as base64 when source is imported.
	OriginalPDF string     `json:"originalPdf,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// DocumentPatch enumerates exactly the fields mutable while a document is
// draft. Nil means "leave unchanged".
type DocumentPatch struct {
	Title     *string            `json:"title,omitempty"`
	Content   *string            `json:"content,omitempty"`
	Variables *map[string]string `json:"variables,omitempty"`
	ExpiresAt *time.Time         `json:"expiresAt,omitempty"`
}

type SignerInput struct {
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Role      string            `json:"role,omitempty"`
	SignOrder int               `json:"signOrder,omitempty"`
	Position  *domain.Placement `json:"position,omitempty"`
}

type SendRequest struct {
	Signers []SignerInput `json:"signers"`
}

type SendResponse struct {
	DocumentID string    `json:"documentId"`
	Status     string    `json:"status"`
	Signers    []SentOut `json:"signers"`
}

type SentOut struct {
	SignerID       string    `json:"signerId"`
	Email          string    `json:"email"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt"`
}

type DeleteResponse struct {
	Deleted map[string]int64 `json:"deleted"`
}

type DownloadResponse struct {
	FileName string `json:"fileName"`
	Hash     string `json:"hash"`
	Data     []byte `json:"-"`
}
