package domain

import (
	"time"

	"github.com/google/uuid"
)

type SignerRole string

const (
	RoleSigner  SignerRole = "signer"
	RoleWitness SignerRole = "witness"
	RoleOwner   SignerRole = "owner"
)

// Placement is an optional stamp rectangle in capture coordinates
// (top-left origin). Page is nil when the signer has no stamped position.
type Placement struct {
	Page *int     `gorm:"column:page" json:"page,omitempty"`
	X    *float64 `gorm:"column:x" json:"x,omitempty"`
	Y    *float64 `gorm:"column:y" json:"y,omitempty"`
	W    *float64 `gorm:"column:w" json:"w,omitempty"`
	H    *float64 `gorm:"column:h" json:"h,omitempty"`
}

func (p Placement) Present() bool { return p.Page != nil }

type Signer struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID  `gorm:"type:uuid;index;not null" json:"documentId"`
	Name       string     `gorm:"type:text;not null" json:"name"`
	Email      string     `gorm:"type:text;not null" json:"email"`
	Role       SignerRole `gorm:"type:text;not null;default:'signer'" json:"role"`
	SignOrder  int        `gorm:"not null;default:0" json:"signOrder"`

	Token          string    `gorm:"type:text;uniqueIndex:ux_signers_token" json:"-"`
	TokenExpiresAt time.Time `gorm:"not null" json:"tokenExpiresAt"`

	VerifyCode          string     `gorm:"type:text" json:"-"`
	VerifyCodeExpiresAt *time.Time `json:"-"`
	VerifyAttempts      int        `gorm:"not null;default:0" json:"-"`
	Verified            bool       `gorm:"not null;default:false" json:"verified"`

	SignedAt *time.Time `json:"signedAt,omitempty"`
	Position Placement  `gorm:"embedded;embeddedPrefix:pos_" json:"position,omitempty"`

	IP        string    `gorm:"type:text" json:"-"`
	UserAgent string    `gorm:"type:text" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Signer) TableName() string { return "signers" }

func (s *Signer) Signed() bool { return s.SignedAt != nil }
