package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusSent      DocumentStatus = "sent"
	StatusCompleted DocumentStatus = "completed"
	StatusCancelled DocumentStatus = "cancelled"
)

// transitions is the full lifecycle graph. completed and cancelled are
// terminal.
var transitions = map[DocumentStatus][]DocumentStatus{
	StatusDraft:     {StatusSent, StatusCancelled},
	StatusSent:      {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s DocumentStatus) AllowedTransitions() []DocumentStatus {
	return append([]DocumentStatus(nil), transitions[s]...)
}

func (s DocumentStatus) Terminal() bool { return len(transitions[s]) == 0 }

type DocumentSource string

const (
	SourceTemplate DocumentSource = "template"
	SourceImported DocumentSource = "imported"
)

// VariableMap holds template substitution values, persisted as jsonb.
type VariableMap map[string]string

func (m VariableMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *VariableMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported variable map source %T", src)
	}
	return json.Unmarshal(data, m)
}

type Document struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID          uuid.UUID      `gorm:"type:uuid;index;not null" json:"ownerId"`
	Title            string         `gorm:"type:text;not null" json:"title"`
	Status           DocumentStatus `gorm:"type:text;not null;default:'draft'" json:"status"`
	Source           DocumentSource `gorm:"type:text;not null" json:"source"`
	Content          string         `gorm:"type:text" json:"content"`
	Variables        VariableMap    `gorm:"type:jsonb" json:"variables,omitempty"`
	OriginalHash     string         `gorm:"type:text" json:"originalHash,omitempty"`
	OriginalLocation string         `gorm:"type:text" json:"-"`
	FinalHash        string         `gorm:"type:text" json:"finalHash,omitempty"`
	FinalLocation    string         `gorm:"type:text" json:"-"`
	ExpiresAt        *time.Time     `json:"expiresAt,omitempty"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updatedAt"`
}

func (Document) TableName() string { return "documents" }
