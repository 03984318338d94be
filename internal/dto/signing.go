package dto

import (
	"time"

	"esign/internal/domain"
)

// Capture carries the request-level metadata recorded with signer actions.
type Capture struct {
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

type SigningPageState struct {
	DocumentID    string            `json:"documentId"`
	Title         string            `json:"title"`
	Status        string            `json:"status"`
	Content       string            `json:"content,omitempty"`
	SignerName    string            `json:"signerName"`
	SignerEmail   string            `json:"signerEmail"`
	Role          string            `json:"role"`
	Verified      bool              `json:"verified"`
	AlreadySigned bool              `json:"alreadySigned"`
	Position      *domain.Placement `json:"position,omitempty"`
	ExpiresAt     time.Time         `json:"expiresAt"`
}

type SubmitRequest struct {
	Type     string            `json:"type"` // canvas | upload | typed
	Payload  string            `json:"payload"`
	Position *domain.Placement `json:"position,omitempty"`
}

type SubmitResponse struct {
	SignatureID       string    `json:"signatureId"`
	SignedAt          time.Time `json:"signedAt"`
	DocumentStatus    string    `json:"documentStatus"`
	DocumentCompleted bool      `json:"documentCompleted"`
}

type VerifyCodeRequest struct {
	Code string `json:"code"`
}

type SignerStatus struct {
	DocumentID     string     `json:"documentId"`
	DocumentStatus string     `json:"documentStatus"`
	SignedAt       *time.Time `json:"signedAt,omitempty"`
	Verified       bool       `json:"verified"`
}
