package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"partrack/internal/middleware"
	"partrack/internal/models"

	"gorm.io/gorm"
)

// WorkflowEvent is published after a successful workflow transition commits.
type WorkflowEvent struct {
	Action    string `json:"action"`
	RequestID string `json:"request_id"`
	JobID     string `json:"job_id"`
	ActedBy   string `json:"acted_by"`
	StepOrder int    `json:"step_order,omitempty"`
}

// EventPublisher fans workflow events out to interested listeners. Publishing
// is best-effort and happens only after the transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, event WorkflowEvent)
}

// WorkflowService drives the approval lifecycle of a request: submission
// (chain materialization), step approval, kick-back and cancellation. Every
// transition runs in a single transaction so the request status, its steps
// and the audit entry move together or not at all. Request status is always
// derived from the steps, never counted separately.
type WorkflowService struct {
	db     *gorm.DB
	audit  *AuditRecorder
	events EventPublisher
}

// NewWorkflowService returns a WorkflowService. events may be nil.
func NewWorkflowService(db *gorm.DB, audit *AuditRecorder, events EventPublisher) *WorkflowService {
	return &WorkflowService{db: db, audit: audit, events: events}
}

func (s *WorkflowService) publish(ctx context.Context, event WorkflowEvent) {
	if s.events != nil {
		s.events.Publish(ctx, event)
	}
}

// loadRequest fetches a request for update inside the given transaction.
func loadRequest(tx *gorm.DB, id string) (*models.Request, error) {
	var request models.Request
	if err := tx.First(&request, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}

// wrapErr keeps domain errors intact and wraps anything else as internal.
func wrapErr(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

// Submit moves a DRAFT or KICKED_BACK request into PENDING_APPROVAL,
// rebuilding its approval chain from the currently active roster. Any steps
// from a previous materialization are discarded wholesale, so resubmission
// after a kick-back restarts the chain from step one against the roster as it
// stands now.
func (s *WorkflowService) Submit(ctx context.Context, requestID, submittedBy string) (*models.Request, error) {
	var (
		action models.AuditAction
		jobID  string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := loadRequest(tx, requestID)
		if err != nil {
			return err
		}
		if !request.CanSubmit() {
			return models.NewInvalidStateError("Request cannot be submitted from status " + string(request.Status))
		}

		// Roster read happens inside the transaction, never through the
		// cache, so the snapshot is consistent with the write.
		var roster []models.Approver
		if err := tx.
			Where("is_active = ?", true).
			Order("sort_order ASC").
			Find(&roster).Error; err != nil {
			return models.NewInternalError(err)
		}
		if len(roster) == 0 {
			return models.NewNoApproversConfiguredError()
		}

		if err := tx.Where("request_id = ?", request.ID).
			Delete(&models.ApprovalStep{}).Error; err != nil {
			return models.NewInternalError(err)
		}

		steps := make([]models.ApprovalStep, len(roster))
		names := make([]string, len(roster))
		for i, approver := range roster {
			steps[i] = models.ApprovalStep{
				RequestID:  request.ID,
				ApproverID: approver.ID,
				StepOrder:  i + 1,
				Status:     models.StepStatusPending,
			}
			names[i] = approver.Name
		}
		if err := tx.Create(&steps).Error; err != nil {
			return models.NewInternalError(err)
		}

		action = models.AuditActionSubmitted
		if request.Status == models.RequestStatusKickedBack {
			action = models.AuditActionResubmitted
		}

		now := time.Now()
		request.Status = models.RequestStatusPendingApproval
		request.SubmittedBy = submittedBy
		request.SubmittedAt = &now
		if err := tx.Save(request).Error; err != nil {
			return models.NewInternalError(err)
		}
		jobID = request.JobID

		return s.audit.RecordTx(ctx, tx, AuditEntry{
			EntityType: models.AuditEntityRequest,
			EntityID:   request.ID,
			Action:     action,
			ChangedBy:  submittedBy,
			Metadata: map[string]any{
				"approver_count": len(steps),
				"approvers":      names,
			},
		})
	})
	middleware.RecordTransition("submit", err)
	if err != nil {
		return nil, wrapErr(err)
	}

	s.publish(ctx, WorkflowEvent{
		Action:    string(action),
		RequestID: requestID,
		JobID:     jobID,
		ActedBy:   submittedBy,
	})
	return s.reload(ctx, requestID)
}

// ApproveInput identifies the step being approved and who is acting.
type ApproveInput struct {
	RequestID  string
	ApproverID string
	// ActingAs is the display name of the person acting. Empty means the
	// approver themselves; otherwise it must match the approver's name or
	// one of their active delegates exactly.
	ActingAs string
}

// Approve marks the approver's pending step approved and advances the chain.
// Only the current step (the lowest-order pending one) may be approved; when
// the last pending step completes the request becomes APPROVED.
func (s *WorkflowService) Approve(ctx context.Context, in ApproveInput) (*models.Request, error) {
	var (
		jobID      string
		approvedBy string
		stepOrder  int
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := loadRequest(tx, in.RequestID)
		if err != nil {
			return err
		}
		if request.Status != models.RequestStatusPendingApproval {
			return models.NewInvalidStateError("Request is not pending approval")
		}

		var step models.ApprovalStep
		err = tx.Preload("Approver.Delegates").
			Where("request_id = ? AND approver_id = ? AND status = ?",
				request.ID, in.ApproverID, models.StepStatusPending).
			First(&step).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNoPendingStepError()
		}
		if err != nil {
			return models.NewInternalError(err)
		}

		var current models.ApprovalStep
		if err := tx.
			Where("request_id = ? AND status = ?", request.ID, models.StepStatusPending).
			Order("step_order ASC").
			First(&current).Error; err != nil {
			return models.NewInternalError(err)
		}
		if current.ID != step.ID {
			return models.NewNotCurrentStepError()
		}

		approvedBy = step.Approver.Name
		if in.ActingAs != "" {
			if !step.Approver.AuthorizesActingAs(in.ActingAs) {
				return models.NewNotAuthorizedError()
			}
			approvedBy = in.ActingAs
		}

		now := time.Now()
		step.Status = models.StepStatusApproved
		step.ApprovedBy = &approvedBy
		step.ApprovedAt = &now
		if err := tx.Save(&step).Error; err != nil {
			return models.NewInternalError(err)
		}

		var remaining int64
		if err := tx.Model(&models.ApprovalStep{}).
			Where("request_id = ? AND status = ?", request.ID, models.StepStatusPending).
			Count(&remaining).Error; err != nil {
			return models.NewInternalError(err)
		}
		if remaining == 0 {
			request.Status = models.RequestStatusApproved
			if err := tx.Save(request).Error; err != nil {
				return models.NewInternalError(err)
			}
		}

		jobID = request.JobID
		stepOrder = step.StepOrder

		return s.audit.RecordTx(ctx, tx, AuditEntry{
			EntityType: models.AuditEntityRequest,
			EntityID:   request.ID,
			Action:     models.AuditActionApproved,
			ChangedBy:  approvedBy,
			Metadata: map[string]any{
				"step_order":      step.StepOrder,
				"approver":        step.Approver.Name,
				"remaining_steps": remaining,
			},
		})
	})
	middleware.RecordTransition("approve", err)
	if err != nil {
		return nil, wrapErr(err)
	}

	s.publish(ctx, WorkflowEvent{
		Action:    string(models.AuditActionApproved),
		RequestID: in.RequestID,
		JobID:     jobID,
		ActedBy:   approvedBy,
		StepOrder: stepOrder,
	})
	return s.reload(ctx, in.RequestID)
}

// KickBackInput identifies who is sending the request back, and to where.
type KickBackInput struct {
	RequestID  string
	ApproverID string
	// ToStepOrder is the step the chain rewinds to; it and every later step
	// return to PENDING.
	ToStepOrder int
	Reason      string
	ActingAs    string
}

// KickBack sends a pending request back for rework. Any approver holding a
// step in the chain may kick back regardless of that step's status, including
// one who already approved. Steps at or after the target order are reset to
// PENDING with their completion markers cleared; the reason is recorded on
// the kicker's own step.
func (s *WorkflowService) KickBack(ctx context.Context, in KickBackInput) (*models.Request, error) {
	var (
		jobID    string
		kickedBy string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := loadRequest(tx, in.RequestID)
		if err != nil {
			return err
		}
		if request.Status != models.RequestStatusPendingApproval {
			return models.NewInvalidStateError("Request is not pending approval")
		}

		var kickerStep models.ApprovalStep
		err = tx.Preload("Approver.Delegates").
			Where("request_id = ? AND approver_id = ?", request.ID, in.ApproverID).
			First(&kickerStep).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewApproverNotInChainError()
		}
		if err != nil {
			return models.NewInternalError(err)
		}

		kickedBy = kickerStep.Approver.Name
		if in.ActingAs != "" {
			if !kickerStep.Approver.AuthorizesActingAs(in.ActingAs) {
				return models.NewNotAuthorizedError()
			}
			kickedBy = in.ActingAs
		}

		var target models.ApprovalStep
		err = tx.Where("request_id = ? AND step_order = ?", request.ID, in.ToStepOrder).
			First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Step", in.ToStepOrder)
		}
		if err != nil {
			return models.NewInternalError(err)
		}

		// Rewind: the target step and everything after it go back to
		// PENDING with completion markers cleared.
		if err := tx.Model(&models.ApprovalStep{}).
			Where("request_id = ? AND step_order >= ?", request.ID, in.ToStepOrder).
			Updates(map[string]any{
				"status":            models.StepStatusPending,
				"approved_by":       nil,
				"approved_at":       nil,
				"kick_back_reason":  nil,
				"kick_back_to_step": nil,
			}).Error; err != nil {
			return models.NewInternalError(err)
		}

		// The kicker's step records the reason and target but keeps its
		// status: PENDING when the rewind covered it, APPROVED when the
		// kicker sits before the target and their sign-off survives.
		updates := map[string]any{
			"kick_back_to_step": in.ToStepOrder,
		}
		if reason := strings.TrimSpace(in.Reason); reason != "" {
			updates["kick_back_reason"] = reason
		}
		if err := tx.Model(&models.ApprovalStep{}).
			Where("id = ?", kickerStep.ID).
			Updates(updates).Error; err != nil {
			return models.NewInternalError(err)
		}

		request.Status = models.RequestStatusKickedBack
		if err := tx.Save(request).Error; err != nil {
			return models.NewInternalError(err)
		}
		jobID = request.JobID

		return s.audit.RecordTx(ctx, tx, AuditEntry{
			EntityType: models.AuditEntityRequest,
			EntityID:   request.ID,
			Action:     models.AuditActionKickedBack,
			ChangedBy:  kickedBy,
			Metadata: map[string]any{
				"kicked_back_by":    kickerStep.Approver.Name,
				"kick_back_to_step": in.ToStepOrder,
				"reason":            strings.TrimSpace(in.Reason),
			},
		})
	})
	middleware.RecordTransition("kick_back", err)
	if err != nil {
		return nil, wrapErr(err)
	}

	s.publish(ctx, WorkflowEvent{
		Action:    string(models.AuditActionKickedBack),
		RequestID: in.RequestID,
		JobID:     jobID,
		ActedBy:   kickedBy,
		StepOrder: in.ToStepOrder,
	})
	return s.reload(ctx, in.RequestID)
}

// Cancel terminates a request that has not been fully approved. CANCELLED is
// terminal; steps are left as they stand for the record.
func (s *WorkflowService) Cancel(ctx context.Context, requestID, cancelledBy string) (*models.Request, error) {
	var jobID string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		request, err := loadRequest(tx, requestID)
		if err != nil {
			return err
		}
		if !request.CanCancel() {
			return models.NewInvalidStateError("Request cannot be cancelled from status " + string(request.Status))
		}

		request.Status = models.RequestStatusCancelled
		if err := tx.Save(request).Error; err != nil {
			return models.NewInternalError(err)
		}
		jobID = request.JobID

		return s.audit.RecordTx(ctx, tx, AuditEntry{
			EntityType: models.AuditEntityRequest,
			EntityID:   request.ID,
			Action:     models.AuditActionCancelled,
			ChangedBy:  cancelledBy,
		})
	})
	middleware.RecordTransition("cancel", err)
	if err != nil {
		return nil, wrapErr(err)
	}

	s.publish(ctx, WorkflowEvent{
		Action:    string(models.AuditActionCancelled),
		RequestID: requestID,
		JobID:     jobID,
		ActedBy:   cancelledBy,
	})
	return s.reload(ctx, requestID)
}

// QueueItem is one actionable entry in an approver's queue.
type QueueItem struct {
	Step    models.ApprovalStep `json:"step"`
	Request models.Request      `json:"request"`
}

// QueueFor projects the approver's work queue: their pending steps on
// PENDING_APPROVAL requests, filtered to steps that are actually current,
// oldest request first. The projection is computed from live data on every
// call and is deliberately never cached.
func (s *WorkflowService) QueueFor(ctx context.Context, approverID string) ([]QueueItem, error) {
	var steps []models.ApprovalStep
	err := s.db.WithContext(ctx).
		Joins("JOIN requests ON requests.id = approval_steps.request_id").
		Where("approval_steps.approver_id = ? AND approval_steps.status = ? AND requests.status = ?",
			approverID, models.StepStatusPending, models.RequestStatusPendingApproval).
		Order("requests.created_at ASC").
		Preload("Request.Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Preload("Request.Steps.Approver").
		Preload("Request.Position").
		Preload("Request.Location").
		Preload("Request.FundLine").
		Find(&steps).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	queue := make([]QueueItem, 0, len(steps))
	for _, step := range steps {
		if step.Request == nil {
			continue
		}
		current := step.Request.CurrentStep()
		if current == nil || current.ID != step.ID {
			continue
		}
		request := *step.Request
		step.Request = nil
		queue = append(queue, QueueItem{Step: step, Request: request})
	}
	return queue, nil
}

// reload returns the request with its full chain for API responses.
func (s *WorkflowService) reload(ctx context.Context, id string) (*models.Request, error) {
	var request models.Request
	err := s.db.WithContext(ctx).
		Preload("Position").
		Preload("Location").
		Preload("FundLine").
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Preload("Steps.Approver").
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &request, nil
}
