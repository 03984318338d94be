package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	ActionCreated    AuditAction = "created"
	ActionEdited     AuditAction = "edited"
	ActionSent       AuditAction = "sent"
	ActionViewed     AuditAction = "viewed"
	ActionSigned     AuditAction = "signed"
	ActionFinalized  AuditAction = "finalized"
	ActionDownloaded AuditAction = "downloaded"
	ActionCancelled  AuditAction = "cancelled"
	ActionDuplicated AuditAction = "duplicated"
)

// AuditLog rows are append-only; they are never updated, and removed only by
// the cascading delete of their document.
type AuditLog struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID uuid.UUID   `gorm:"type:uuid;index;not null" json:"documentId"`
	ActorID    *uuid.UUID  `gorm:"type:uuid" json:"actorId,omitempty"`
	Action     AuditAction `gorm:"type:text;not null" json:"action"`
	Details    string      `gorm:"type:text" json:"details,omitempty"`
	IP         string      `gorm:"type:text" json:"-"`
	UserAgent  string      `gorm:"type:text" json:"-"`
	CreatedAt  time.Time   `gorm:"not null" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_logs" }
