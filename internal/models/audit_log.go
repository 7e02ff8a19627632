package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEntityType identifies the kind of entity an audit entry refers to.
type AuditEntityType string

const (
	AuditEntityRequest          AuditEntityType = "PAR_REQUEST"
	AuditEntityApprovalStep     AuditEntityType = "APPROVAL_STEP"
	AuditEntityApprover         AuditEntityType = "APPROVER"
	AuditEntityApproverDelegate AuditEntityType = "APPROVER_DELEGATE"
	AuditEntityDropdownCategory AuditEntityType = "DROPDOWN_CATEGORY"
	AuditEntityDropdownOption   AuditEntityType = "DROPDOWN_OPTION"
)

// AuditAction identifies what happened to the entity.
type AuditAction string

const (
	AuditActionCreated     AuditAction = "CREATED"
	AuditActionUpdated     AuditAction = "UPDATED"
	AuditActionDeleted     AuditAction = "DELETED"
	AuditActionSubmitted   AuditAction = "SUBMITTED"
	AuditActionResubmitted AuditAction = "RESUBMITTED"
	AuditActionApproved    AuditAction = "APPROVED"
	AuditActionKickedBack  AuditAction = "KICKED_BACK"
	AuditActionCancelled   AuditAction = "CANCELLED"
)

// AuditLog is an append-only record of entity changes. Changes holds a
// field-level old/new diff, Metadata holds free-form event context; both are
// serialized JSON stored as text so the model works unchanged on Postgres and
// the sqlite test driver.
type AuditLog struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	EntityType AuditEntityType `gorm:"type:varchar(40);not null;index" json:"entity_type"`
	EntityID   string          `gorm:"size:64;not null;index" json:"entity_id"`
	Action     AuditAction     `gorm:"type:varchar(20);not null;index" json:"action"`
	ChangedBy  string          `gorm:"size:200" json:"changed_by"`
	Changes    string          `gorm:"type:text" json:"changes,omitempty"`
	Metadata   string          `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (l *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
