package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestStatus defines lifecycle states for a position authorization request.
type RequestStatus string

const (
	// RequestStatusDraft indicates the request has not been submitted yet.
	RequestStatusDraft RequestStatus = "DRAFT"
	// RequestStatusPendingApproval indicates the request is moving through its chain.
	RequestStatusPendingApproval RequestStatus = "PENDING_APPROVAL"
	// RequestStatusApproved indicates every step in the chain approved the request.
	RequestStatusApproved RequestStatus = "APPROVED"
	// RequestStatusKickedBack indicates an approver sent the request back for rework.
	RequestStatusKickedBack RequestStatus = "KICKED_BACK"
	// RequestStatusCancelled is terminal; set by explicit cancellation only.
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// RequestType distinguishes a brand-new position from a backfill.
type RequestType string

const (
	RequestTypeNew         RequestType = "NEW"
	RequestTypeReplacement RequestType = "REPLACEMENT"
)

// EmploymentType is the employment basis for the requested position.
type EmploymentType string

const (
	EmploymentTypeFullTime EmploymentType = "FULL_TIME"
	EmploymentTypePartTime EmploymentType = "PART_TIME"
)

// PositionDuration indicates whether the position is temporary or regular.
type PositionDuration string

const (
	PositionDurationTemporary PositionDuration = "TEMPORARY"
	PositionDurationRegular   PositionDuration = "REGULAR"
)

// Request is a position authorization request (PAR) working its way through
// the approval chain. Descriptive fields are freely editable while the
// workflow fields (Status, SubmittedBy, SubmittedAt, Steps) are owned by the
// workflow engine.
type Request struct {
	ID     string        `gorm:"primaryKey;size:36" json:"id"`
	JobID  string        `gorm:"size:20;uniqueIndex;not null" json:"job_id"`
	Status RequestStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`

	RequestType      RequestType      `gorm:"type:varchar(20);not null" json:"request_type"`
	EmploymentType   EmploymentType   `gorm:"type:varchar(20);not null" json:"employment_type"`
	PositionDuration PositionDuration `gorm:"type:varchar(20);not null" json:"position_duration"`

	PositionID *string         `gorm:"size:36" json:"position_id"`
	Position   *DropdownOption `gorm:"foreignKey:PositionID" json:"position,omitempty"`
	LocationID *string         `gorm:"size:36" json:"location_id"`
	Location   *DropdownOption `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	FundLineID *string         `gorm:"size:36" json:"fund_line_id"`
	FundLine   *DropdownOption `gorm:"foreignKey:FundLineID" json:"fund_line,omitempty"`

	NewEmployeeName string     `gorm:"size:200" json:"new_employee_name"`
	StartDate       *time.Time `json:"start_date"`
	ReplacedPerson  string     `gorm:"size:200" json:"replaced_person"`
	Notes           string     `gorm:"type:text" json:"notes"`

	SubmittedBy string     `gorm:"size:200" json:"submitted_by"`
	SubmittedAt *time.Time `json:"submitted_at"`

	Steps []ApprovalStep `gorm:"foreignKey:RequestID" json:"steps,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (r *Request) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// CanSubmit reports whether the request may enter the approval chain.
func (r *Request) CanSubmit() bool {
	return r.Status == RequestStatusDraft || r.Status == RequestStatusKickedBack
}

// CanCancel reports whether the request may still be cancelled.
func (r *Request) CanCancel() bool {
	switch r.Status {
	case RequestStatusDraft, RequestStatusPendingApproval, RequestStatusKickedBack:
		return true
	}
	return false
}

// CurrentStep returns the lowest-order step still pending, or nil when the
// chain is complete or not materialized. "Current step" is always derived,
// never stored, so it cannot go stale.
func (r *Request) CurrentStep() *ApprovalStep {
	var current *ApprovalStep
	for i := range r.Steps {
		s := &r.Steps[i]
		if s.Status != StepStatusPending {
			continue
		}
		if current == nil || s.StepOrder < current.StepOrder {
			current = s
		}
	}
	return current
}
