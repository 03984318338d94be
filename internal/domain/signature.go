package domain

import (
	"time"

	"github.com/google/uuid"
)

type SignatureType string

const (
	SignatureCanvas SignatureType = "canvas"
	SignatureUpload SignatureType = "upload"
	SignatureTyped  SignatureType = "typed"
)

// Signature is a signer's captured mark. Rows are immutable once created.
type Signature struct {
	ID         uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	SignerID   uuid.UUID     `gorm:"type:uuid;uniqueIndex:ux_signatures_signer" json:"signerId"`
	DocumentID uuid.UUID     `gorm:"type:uuid;index;not null" json:"documentId"`
	Type       SignatureType `gorm:"type:text;not null" json:"type"`
	Payload    string        `gorm:"type:text;not null" json:"-"`
	Position   Placement     `gorm:"embedded;embeddedPrefix:pos_" json:"position,omitempty"`
	IP         string        `gorm:"type:text" json:"-"`
	UserAgent  string        `gorm:"type:text" json:"-"`
	SignedAt   time.Time     `gorm:"not null" json:"signedAt"`
	CreatedAt  time.Time     `gorm:"not null" json:"createdAt"`
}

func (Signature) TableName() string { return "signatures" }
