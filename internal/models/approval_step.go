package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StepStatus defines completion states for a single approval step.
type StepStatus string

const (
	StepStatusPending    StepStatus = "PENDING"
	StepStatusApproved   StepStatus = "APPROVED"
	StepStatusKickedBack StepStatus = "KICKED_BACK"
)

// ApprovalStep is one link in a request's materialized approval chain.
// Chain membership (RequestID, ApproverID, StepOrder) is immutable after
// materialization; only the completion fields change. The Approver reference
// is live (name/title/delegates resolve at query time) while ApprovedBy and
// KickBackReason are frozen strings recorded at the moment of action.
type ApprovalStep struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	RequestID  string `gorm:"size:36;not null;uniqueIndex:idx_request_step_order;index" json:"request_id"`
	ApproverID string `gorm:"size:36;not null;index" json:"approver_id"`
	StepOrder  int    `gorm:"not null;uniqueIndex:idx_request_step_order" json:"step_order"`

	Status     StepStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ApprovedBy *string    `gorm:"size:200" json:"approved_by"`
	ApprovedAt *time.Time `json:"approved_at"`

	KickBackReason *string `gorm:"type:text" json:"kick_back_reason"`
	KickBackToStep *int    `json:"kick_back_to_step"`

	Approver *Approver `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Request  *Request  `gorm:"foreignKey:RequestID" json:"request,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (s *ApprovalStep) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
