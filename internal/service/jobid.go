package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"partrack/internal/middleware"
	"partrack/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobIDAllocator hands out human-readable job identifiers of the form
// PREFIX-YYYY-NNNN. Allocation locks the single counter row for update so
// concurrent submissions serialize and no identifier is handed out twice.
// The sequence resets to 1 when the calendar year rolls over.
type JobIDAllocator struct {
	db     *gorm.DB
	prefix string
	now    func() time.Time
}

// NewJobIDAllocator returns an allocator using the given prefix.
func NewJobIDAllocator(db *gorm.DB, prefix string) *JobIDAllocator {
	return &JobIDAllocator{db: db, prefix: prefix, now: time.Now}
}

// Allocate reserves and returns the next job identifier.
func (a *JobIDAllocator) Allocate(ctx context.Context) (string, error) {
	year := a.now().Year()
	var sequence int

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row locking needs Postgres; sqlite serializes writers on its own
		// and rejects FOR UPDATE.
		query := tx
		if tx.Dialector.Name() == "postgres" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var counter models.JobIDCounter
		err := query.First(&counter, models.JobIDCounterID).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			counter = models.JobIDCounter{
				ID:              models.JobIDCounterID,
				CurrentYear:     year,
				CurrentSequence: 1,
			}
			if err := tx.Create(&counter).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case counter.CurrentYear != year:
			counter.CurrentYear = year
			counter.CurrentSequence = 1
			if err := tx.Save(&counter).Error; err != nil {
				return err
			}
		default:
			counter.CurrentSequence++
			if err := tx.Save(&counter).Error; err != nil {
				return err
			}
		}

		sequence = counter.CurrentSequence
		return nil
	})
	if err != nil {
		return "", models.NewInternalError(err)
	}

	middleware.JobIDAllocations.Inc()
	// %04d zero-pads to four digits and widens naturally past 9999.
	return fmt.Sprintf("%s-%d-%04d", a.prefix, year, sequence), nil
}
