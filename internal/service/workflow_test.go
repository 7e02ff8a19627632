package service

import (
	"context"
	"testing"

	"partrack/internal/database"
	"partrack/internal/models"
	"partrack/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupWorkflowTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

func newTestWorkflow(t *testing.T, db *gorm.DB) *WorkflowService {
	t.Helper()
	audit := NewAuditRecorder(repository.NewAuditRepository(db))
	return NewWorkflowService(db, audit, nil)
}

// seedChain creates three active approvers in order and returns them.
func seedChain(t *testing.T, db *gorm.DB) []models.Approver {
	t.Helper()
	approvers := []models.Approver{
		{Name: "Dana Whitfield", Title: "Department Head", SortOrder: 1, IsActive: true},
		{Name: "Chris Okafor", Title: "HR Director", SortOrder: 2, IsActive: true},
		{Name: "Priya Nair", Title: "Finance Director", SortOrder: 3, IsActive: true},
	}
	for i := range approvers {
		require.NoError(t, db.Create(&approvers[i]).Error)
	}
	return approvers
}

func seedDraft(t *testing.T, db *gorm.DB, jobID string) *models.Request {
	t.Helper()
	request := &models.Request{
		JobID:            jobID,
		Status:           models.RequestStatusDraft,
		RequestType:      models.RequestTypeNew,
		EmploymentType:   models.EmploymentTypeFullTime,
		PositionDuration: models.PositionDurationRegular,
		NewEmployeeName:  "Jordan Fields",
	}
	require.NoError(t, db.Create(request).Error)
	return request
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok, "expected *models.AppError, got %T: %v", err, err)
	return appErr.Code
}

func TestSubmitMaterializesChain(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)
	request := seedDraft(t, db, "PAR-2026-0001")

	got, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusPendingApproval, got.Status)
	assert.Equal(t, "Jamie Park", got.SubmittedBy)
	require.NotNil(t, got.SubmittedAt)

	require.Len(t, got.Steps, 3)
	for i, step := range got.Steps {
		assert.Equal(t, i+1, step.StepOrder)
		assert.Equal(t, approvers[i].ID, step.ApproverID)
		assert.Equal(t, models.StepStatusPending, step.Status)
		assert.Nil(t, step.ApprovedBy)
	}

	var entry models.AuditLog
	require.NoError(t, db.Where("entity_id = ? AND action = ?",
		request.ID, models.AuditActionSubmitted).First(&entry).Error)
	assert.Equal(t, "Jamie Park", entry.ChangedBy)
}

func TestSubmitSkipsInactiveApprovers(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)
	require.NoError(t, db.Model(&approvers[1]).Update("is_active", false).Error)
	request := seedDraft(t, db, "PAR-2026-0001")

	got, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	require.Len(t, got.Steps, 2)
	assert.Equal(t, approvers[0].ID, got.Steps[0].ApproverID)
	assert.Equal(t, approvers[2].ID, got.Steps[1].ApproverID)
	// Step orders are dense positions in the snapshot, not roster sort orders.
	assert.Equal(t, 1, got.Steps[0].StepOrder)
	assert.Equal(t, 2, got.Steps[1].StepOrder)
}

func TestSubmitWithoutApprovers(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	request := seedDraft(t, db, "PAR-2026-0001")

	_, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	assert.Equal(t, models.CodeNoApproversConfigured, appCode(t, err))

	// Request is untouched.
	var reloaded models.Request
	require.NoError(t, db.First(&reloaded, "id = ?", request.ID).Error)
	assert.Equal(t, models.RequestStatusDraft, reloaded.Status)
}

func TestSubmitFromInvalidStatus(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	seedChain(t, db)
	request := seedDraft(t, db, "PAR-2026-0001")

	_, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), request.ID, "Jamie Park")
	assert.Equal(t, models.CodeInvalidState, appCode(t, err))
}

func TestApproveAdvancesInOrder(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)
	request := seedDraft(t, db, "PAR-2026-0001")
	_, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	// Approving out of order is rejected.
	_, err = svc.Approve(context.Background(), ApproveInput{
		RequestID:  request.ID,
		ApproverID: approvers[1].ID,
	})
	assert.Equal(t, models.CodeNotCurrentStep, appCode(t, err))

	// First approver approves; chain advances, request still pending.
	got, err := svc.Approve(context.Background(), ApproveInput{
		RequestID:  request.ID,
		ApproverID: approvers[0].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPendingApproval, got.Status)
	assert.Equal(t, models.StepStatusApproved, got.Steps[0].Status)
	require.NotNil(t, got.Steps[0].ApprovedBy)
	assert.Equal(t, "Dana Whitfield", *got.Steps[0].ApprovedBy)
	require.NotNil(t, got.Steps[0].ApprovedAt)

	// The same approver cannot approve twice.
	_, err = svc.Approve(context.Background(), ApproveInput{
		RequestID:  request.ID,
		ApproverID: approvers[0].ID,
	})
	assert.Equal(t, models.CodeNoPendingStep, appCode(t, err))
}

func TestApproveLastStepCompletesRequest(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)
	request := seedDraft(t, db, "PAR-2026-0001")
	_, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	var got *models.Request
	for _, approver := range approvers {
		got, err = svc.Approve(context.Background(), ApproveInput{
			RequestID:  request.ID,
			ApproverID: approver.ID,
		})
		require.NoError(t, err)
	}

	assert.Equal(t, models.RequestStatusApproved, got.Status)
	for _, step := range got.Steps {
		assert.Equal(t, models.StepStatusApproved, step.Status)
	}

	// Nothing further may be approved.
	_, err = svc.Approve(context.Background(), ApproveInput{
		RequestID:  request.ID,
		ApproverID: approvers[0].ID,
	})
	assert.Equal(t, models.CodeInvalidState, appCode(t, err))
}

func TestApproveAsDelegate(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)
	require.NoError(t, db.Create(&models.ApproverDelegate{
		ApproverID:   approvers[0].ID,
		DelegateName: "Morgan Reyes",
		IsActive:     true,
	}).Error)
	request := seedDraft(t, db, "PAR-2026-0001")
	_, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	// A stranger cannot act for the approver.
	_, err = svc.Approve(context.Background(), ApproveInput{
		RequestID:  request.ID,
		ApproverID: approvers[0].ID,
		ActingAs:   "Someone Else",
	})
	assert.Equal(t, models.CodeNotAuthorized, appCode(t, err))

	// The delegate can, and the acting name is frozen on the step.
	got, err := svc.Approve(context.Background(), ApproveInput{
		RequestID:  request.ID,
		ApproverID: approvers[0].ID,
		ActingAs:   "Morgan Reyes",
	})
	require.NoError(t, err)
	require.NotNil(t, got.Steps[0].ApprovedBy)
	assert.Equal(t, "Morgan Reyes", *got.Steps[0].ApprovedBy)
}

func TestApproveAsInactiveDelegate(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)
	require.NoError(t, db.Create(&models.ApproverDelegate{
		ApproverID:   approvers[0].ID,
		DelegateName: "Morgan Reyes",
		IsActive:     false,
	}).Error)
	request := seedDraft(t, db, "PAR-2026-0001")
	_, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), ApproveInput{
		RequestID:  request.ID,
		ApproverID: approvers[0].ID,
		ActingAs:   "Morgan Reyes",
	})
	assert.Equal(t, models.CodeNotAuthorized, appCode(t, err))
}

func TestKickBackRewindsChain(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)
	request := seedDraft(t, db, "PAR-2026-0001")
	_, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	for _, approver := range approvers[:2] {
		_, err = svc.Approve(context.Background(), ApproveInput{
			RequestID:  request.ID,
			ApproverID: approver.ID,
		})
		require.NoError(t, err)
	}

	// Third approver sends the request back to step 1.
	got, err := svc.KickBack(context.Background(), KickBackInput{
		RequestID:   request.ID,
		ApproverID:  approvers[2].ID,
		ToStepOrder: 1,
		Reason:      "Fund line is wrong",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusKickedBack, got.Status)

	// Steps 1 and 2 are reset with their completion markers cleared.
	for _, step := range got.Steps[:2] {
		assert.Equal(t, models.StepStatusPending, step.Status)
		assert.Nil(t, step.ApprovedBy)
		assert.Nil(t, step.ApprovedAt)
	}

	// The kicker's own step is part of the rewind too; it records the
	// reason and target but goes back to PENDING like the rest.
	kicker := got.Steps[2]
	assert.Equal(t, models.StepStatusPending, kicker.Status)
	require.NotNil(t, kicker.KickBackReason)
	assert.Equal(t, "Fund line is wrong", *kicker.KickBackReason)
	require.NotNil(t, kicker.KickBackToStep)
	assert.Equal(t, 1, *kicker.KickBackToStep)
}

func TestKickBackPartialRewind(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)
	request := seedDraft(t, db, "PAR-2026-0001")
	_, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	for _, approver := range approvers[:2] {
		_, err = svc.Approve(context.Background(), ApproveInput{
			RequestID:  request.ID,
			ApproverID: approver.ID,
		})
		require.NoError(t, err)
	}

	// Kick back to step 2: step 1's approval survives.
	got, err := svc.KickBack(context.Background(), KickBackInput{
		RequestID:   request.ID,
		ApproverID:  approvers[2].ID,
		ToStepOrder: 2,
		Reason:      "HR sign-off needs a second look",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StepStatusApproved, got.Steps[0].Status)
	assert.NotNil(t, got.Steps[0].ApprovedBy)
	assert.Equal(t, models.StepStatusPending, got.Steps[1].Status)
}

func TestKickBackFromApprovedStepKeepsApproval(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)
	request := seedDraft(t, db, "PAR-2026-0001")
	_, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	for _, approver := range approvers[:2] {
		_, err = svc.Approve(context.Background(), ApproveInput{
			RequestID:  request.ID,
			ApproverID: approver.ID,
		})
		require.NoError(t, err)
	}

	// The first approver, already done, kicks the request back to step 3.
	// Their own sign-off sits before the target and must survive untouched.
	got, err := svc.KickBack(context.Background(), KickBackInput{
		RequestID:   request.ID,
		ApproverID:  approvers[0].ID,
		ToStepOrder: 3,
		Reason:      "Budget office flagged the fund line",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusKickedBack, got.Status)

	kicker := got.Steps[0]
	assert.Equal(t, models.StepStatusApproved, kicker.Status)
	require.NotNil(t, kicker.ApprovedBy)
	assert.Equal(t, approvers[0].Name, *kicker.ApprovedBy)
	require.NotNil(t, kicker.KickBackReason)
	assert.Equal(t, "Budget office flagged the fund line", *kicker.KickBackReason)
	require.NotNil(t, kicker.KickBackToStep)
	assert.Equal(t, 3, *kicker.KickBackToStep)

	assert.Equal(t, models.StepStatusApproved, got.Steps[1].Status)
	assert.Equal(t, models.StepStatusPending, got.Steps[2].Status)
}

func TestKickBackGuards(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)
	outsider := models.Approver{Name: "Robin Vale", Title: "Consultant", SortOrder: 9, IsActive: false}
	require.NoError(t, db.Create(&outsider).Error)

	request := seedDraft(t, db, "PAR-2026-0001")
	_, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	// Approver with no step in the chain.
	_, err = svc.KickBack(context.Background(), KickBackInput{
		RequestID:   request.ID,
		ApproverID:  outsider.ID,
		ToStepOrder: 1,
	})
	assert.Equal(t, models.CodeApproverNotInChain, appCode(t, err))

	// Target step does not exist.
	_, err = svc.KickBack(context.Background(), KickBackInput{
		RequestID:   request.ID,
		ApproverID:  approvers[0].ID,
		ToStepOrder: 9,
	})
	assert.Equal(t, models.CodeNotFound, appCode(t, err))
}

func TestResubmitAfterKickBackRestartsChain(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)
	request := seedDraft(t, db, "PAR-2026-0001")
	_, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), ApproveInput{
		RequestID:  request.ID,
		ApproverID: approvers[0].ID,
	})
	require.NoError(t, err)

	_, err = svc.KickBack(context.Background(), KickBackInput{
		RequestID:   request.ID,
		ApproverID:  approvers[1].ID,
		ToStepOrder: 1,
		Reason:      "Start over",
	})
	require.NoError(t, err)

	// Roster changes between submissions are picked up by the rebuild.
	newcomer := models.Approver{Name: "Alex Tran", Title: "Executive Director", SortOrder: 4, IsActive: true}
	require.NoError(t, db.Create(&newcomer).Error)

	got, err := svc.Submit(context.Background(), request.ID, "Jamie Park")
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusPendingApproval, got.Status)
	require.Len(t, got.Steps, 4)
	for i, step := range got.Steps {
		assert.Equal(t, i+1, step.StepOrder)
		assert.Equal(t, models.StepStatusPending, step.Status)
		assert.Nil(t, step.KickBackReason)
	}
	assert.Equal(t, newcomer.ID, got.Steps[3].ApproverID)

	var entry models.AuditLog
	require.NoError(t, db.Where("entity_id = ? AND action = ?",
		request.ID, models.AuditActionResubmitted).First(&entry).Error)
}

func TestCancelLifecycle(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)

	pending := seedDraft(t, db, "PAR-2026-0001")
	_, err := svc.Submit(context.Background(), pending.ID, "Jamie Park")
	require.NoError(t, err)

	got, err := svc.Cancel(context.Background(), pending.ID, "Jamie Park")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, got.Status)

	// Cancellation is terminal.
	_, err = svc.Cancel(context.Background(), pending.ID, "Jamie Park")
	assert.Equal(t, models.CodeInvalidState, appCode(t, err))
	_, err = svc.Submit(context.Background(), pending.ID, "Jamie Park")
	assert.Equal(t, models.CodeInvalidState, appCode(t, err))

	// A fully approved request cannot be cancelled.
	approved := seedDraft(t, db, "PAR-2026-0002")
	_, err = svc.Submit(context.Background(), approved.ID, "Jamie Park")
	require.NoError(t, err)
	for _, approver := range approvers {
		_, err = svc.Approve(context.Background(), ApproveInput{
			RequestID:  approved.ID,
			ApproverID: approver.ID,
		})
		require.NoError(t, err)
	}
	_, err = svc.Cancel(context.Background(), approved.ID, "Jamie Park")
	assert.Equal(t, models.CodeInvalidState, appCode(t, err))
}

func TestQueueProjection(t *testing.T) {
	db := setupWorkflowTestDB(t)
	svc := newTestWorkflow(t, db)
	approvers := seedChain(t, db)

	first := seedDraft(t, db, "PAR-2026-0001")
	second := seedDraft(t, db, "PAR-2026-0002")
	third := seedDraft(t, db, "PAR-2026-0003")

	for _, r := range []*models.Request{first, second, third} {
		_, err := svc.Submit(context.Background(), r.ID, "Jamie Park")
		require.NoError(t, err)
	}

	// Advance the second request past step 1.
	_, err := svc.Approve(context.Background(), ApproveInput{
		RequestID:  second.ID,
		ApproverID: approvers[0].ID,
	})
	require.NoError(t, err)

	// First approver sees the two requests still waiting on step 1, FIFO.
	queue, err := svc.QueueFor(context.Background(), approvers[0].ID)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, first.ID, queue[0].Request.ID)
	assert.Equal(t, third.ID, queue[1].Request.ID)

	// Chain steps come back with their approvers resolved for rendering.
	require.Len(t, queue[0].Request.Steps, 3)
	for i, step := range queue[0].Request.Steps {
		require.NotNil(t, step.Approver)
		assert.Equal(t, approvers[i].Name, step.Approver.Name)
	}

	// Second approver only sees the request whose current step is theirs.
	queue, err = svc.QueueFor(context.Background(), approvers[1].ID)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, second.ID, queue[0].Request.ID)

	// Third approver holds pending steps everywhere but none are current.
	queue, err = svc.QueueFor(context.Background(), approvers[2].ID)
	require.NoError(t, err)
	assert.Empty(t, queue)

	// Kicked-back requests leave every queue.
	_, err = svc.KickBack(context.Background(), KickBackInput{
		RequestID:   second.ID,
		ApproverID:  approvers[1].ID,
		ToStepOrder: 1,
		Reason:      "Rework",
	})
	require.NoError(t, err)
	queue, err = svc.QueueFor(context.Background(), approvers[1].ID)
	require.NoError(t, err)
	assert.Empty(t, queue)
}
