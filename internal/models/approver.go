package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Approver is a named role in the global, ordered approval chain. The roster
// is configuration: deactivating an approver removes them from future chain
// materializations but never from chains already bound to a request.
type Approver struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	Name      string  `gorm:"size:200;not null" json:"name"`
	Title     string  `gorm:"size:200;not null" json:"title"`
	Email     *string `gorm:"size:200" json:"email"`
	SortOrder int     `gorm:"not null;index" json:"sort_order"`
	IsActive  bool    `gorm:"not null;default:true;index" json:"is_active"`

	Delegates []ApproverDelegate `gorm:"foreignKey:ApproverID" json:"delegates,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (a *Approver) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AuthorizesActingAs reports whether actingAs may act on this approver's
// behalf: either the approver's own name or an active delegate's name,
// compared exactly. Proof of who acted is frozen as a string on the step, so
// removing a delegate later never corrupts history.
func (a *Approver) AuthorizesActingAs(actingAs string) bool {
	if actingAs == a.Name {
		return true
	}
	for _, d := range a.Delegates {
		if d.IsActive && d.DelegateName == actingAs {
			return true
		}
	}
	return false
}

// ApproverDelegate is an alternate identity empowered to act in the
// approver's place on any step assigned to that approver. Delegates are hard
// deleted; steps only ever store the acting display name.
type ApproverDelegate struct {
	ID            string  `gorm:"primaryKey;size:36" json:"id"`
	ApproverID    string  `gorm:"size:36;not null;index" json:"approver_id"`
	DelegateName  string  `gorm:"size:200;not null" json:"delegate_name"`
	DelegateEmail *string `gorm:"size:200" json:"delegate_email"`
	IsActive      bool    `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (d *ApproverDelegate) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
