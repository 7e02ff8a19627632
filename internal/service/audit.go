// Package service holds the business rules of the PAR tracker, including the
// approval workflow engine.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"partrack/internal/middleware"
	"partrack/internal/models"
	"partrack/internal/repository"

	"gorm.io/gorm"
)

// FieldChange is one entry in a field-level audit diff.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ComputeChanges produces a field-level old/new diff of two snapshots,
// keeping only fields that actually changed. Values are compared by their
// JSON encoding so times and pointers diff cleanly. Returns nil when nothing
// changed.
func ComputeChanges(oldVals, newVals map[string]any) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	for field, newVal := range newVals {
		oldVal := oldVals[field]
		oldJSON, _ := json.Marshal(oldVal)
		newJSON, _ := json.Marshal(newVal)
		if string(oldJSON) != string(newJSON) {
			changes[field] = FieldChange{Old: oldVal, New: newVal}
		}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}

// AuditEntry describes one audit log event before serialization.
type AuditEntry struct {
	EntityType models.AuditEntityType
	EntityID   string
	Action     models.AuditAction
	ChangedBy  string
	Changes    map[string]FieldChange
	Metadata   map[string]any
}

// AuditRecorder writes audit log entries. The workflow engine writes entries
// inside its own transactions via RecordTx; everything else records
// best-effort via Record, where a sink failure is logged and never fails the
// calling operation.
type AuditRecorder struct {
	repo repository.AuditRepository
}

// NewAuditRecorder returns an AuditRecorder backed by the given repository.
func NewAuditRecorder(repo repository.AuditRepository) *AuditRecorder {
	return &AuditRecorder{repo: repo}
}

func toModel(e AuditEntry) *models.AuditLog {
	entry := &models.AuditLog{
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		ChangedBy:  e.ChangedBy,
	}
	if len(e.Changes) > 0 {
		if b, err := json.Marshal(e.Changes); err == nil {
			entry.Changes = string(b)
		}
	}
	if len(e.Metadata) > 0 {
		if b, err := json.Marshal(e.Metadata); err == nil {
			entry.Metadata = string(b)
		}
	}
	return entry
}

// RecordTx writes the entry using the caller's transaction handle.
func (a *AuditRecorder) RecordTx(ctx context.Context, tx *gorm.DB, e AuditEntry) error {
	return tx.WithContext(ctx).Create(toModel(e)).Error
}

// Record writes the entry best-effort outside any transaction.
func (a *AuditRecorder) Record(ctx context.Context, e AuditEntry) {
	if err := a.repo.Create(ctx, toModel(e)); err != nil {
		middleware.Logger.ErrorContext(ctx, "audit record failed",
			slog.String("entity_type", string(e.EntityType)),
			slog.String("entity_id", e.EntityID),
			slog.String("action", string(e.Action)),
			slog.String("error", err.Error()),
		)
	}
}

// List returns audit entries matching the filter.
func (a *AuditRecorder) List(ctx context.Context, filter repository.AuditFilter) ([]models.AuditLog, int64, error) {
	return a.repo.List(ctx, filter)
}
