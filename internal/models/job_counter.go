package models

// JobIDCounterID is the fixed primary key of the single counter row.
const JobIDCounterID = 1

// JobIDCounter is the global sequence register backing job identifier
// allocation. Exactly one row exists. It is only ever read and written under
// a row-locking transaction; computing the next id by counting requests would
// race and reuse numbers after deletion.
type JobIDCounter struct {
	ID              int `gorm:"primaryKey" json:"id"`
	CurrentYear     int `gorm:"not null" json:"current_year"`
	CurrentSequence int `gorm:"not null" json:"current_sequence"`
}
