package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"partrack/internal/models"
	"partrack/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// randomOption picks one active option from a category, or nil when the
// category is empty.
func (s *Seeder) randomOption(slug string) (*string, error) {
	var category models.DropdownCategory
	if err := s.db.Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	var options []models.DropdownOption
	if err := s.db.Where("category_id = ? AND is_active = ?", category.ID, true).
		Find(&options).Error; err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, nil
	}
	id := options[gofakeit.Number(0, len(options)-1)].ID
	return &id, nil
}

// SeedRequests creates n requests in a mix of lifecycle states by driving the
// real workflow engine, so the seeded data obeys the same invariants as
// production data.
func (s *Seeder) SeedRequests(n int, workflow *service.WorkflowService, allocator *service.JobIDAllocator) error {
	log.Printf("Seeding %d requests...", n)
	ctx := context.Background()

	for i := 0; i < n; i++ {
		jobID, err := allocator.Allocate(ctx)
		if err != nil {
			return fmt.Errorf("allocate job id: %w", err)
		}

		requestType := models.RequestTypeNew
		replacedPerson := ""
		if gofakeit.Bool() {
			requestType = models.RequestTypeReplacement
			replacedPerson = gofakeit.Name()
		}
		employmentType := models.EmploymentTypeFullTime
		if gofakeit.Number(0, 3) == 0 {
			employmentType = models.EmploymentTypePartTime
		}
		duration := models.PositionDurationRegular
		if gofakeit.Number(0, 4) == 0 {
			duration = models.PositionDurationTemporary
		}

		positionID, err := s.randomOption(models.DropdownCategoryPosition)
		if err != nil {
			return err
		}
		locationID, err := s.randomOption(models.DropdownCategoryLocation)
		if err != nil {
			return err
		}
		fundLineID, err := s.randomOption(models.DropdownCategoryFundLine)
		if err != nil {
			return err
		}

		startDate := gofakeit.DateRange(time.Now(), time.Now().AddDate(0, 6, 0))
		request := models.Request{
			JobID:            jobID,
			Status:           models.RequestStatusDraft,
			RequestType:      requestType,
			EmploymentType:   employmentType,
			PositionDuration: duration,
			PositionID:       positionID,
			LocationID:       locationID,
			FundLineID:       fundLineID,
			NewEmployeeName:  gofakeit.Name(),
			StartDate:        &startDate,
			ReplacedPerson:   replacedPerson,
			Notes:            gofakeit.Sentence(8),
		}
		if err := s.db.Create(&request).Error; err != nil {
			return err
		}

		// Roughly: a third stay draft, the rest enter the chain and some
		// advance partway through it.
		if gofakeit.Number(0, 2) == 0 {
			continue
		}
		submitted, err := workflow.Submit(ctx, request.ID, gofakeit.Name())
		if err != nil {
			return fmt.Errorf("submit seeded request: %w", err)
		}

		approvals := gofakeit.Number(0, len(submitted.Steps))
		for j := 0; j < approvals; j++ {
			step := submitted.Steps[j]
			if _, err := workflow.Approve(ctx, service.ApproveInput{
				RequestID:  request.ID,
				ApproverID: step.ApproverID,
			}); err != nil {
				return fmt.Errorf("approve seeded step: %w", err)
			}
		}
	}
	return nil
}
