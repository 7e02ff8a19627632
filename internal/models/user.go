package models

import "time"

// User is a local account for the tracker. Authentication only establishes a
// display identity; workflow authorization is driven by approver and delegate
// names, not user rows.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"size:200;uniqueIndex;not null" json:"email"`
	DisplayName string    `gorm:"size:200;not null" json:"display_name"`
	Password    string    `gorm:"size:200;not null" json:"-"`
	IsAdmin     bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
