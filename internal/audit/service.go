package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
)

// Service records audit entries. A failed append must abort the enclosing
// transaction, so transactional callers use RecordTx and propagate the error.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*models.AuditLogEntry, error)
	RecordTx(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.AuditLogEntry, error)
	ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]models.AuditLogEntry, error)
}

type service struct {
	repo Repository
}

// RecordInput captures the immutable data an audit entry requires.
type RecordInput struct {
	ActorID  uuid.UUID
	Action   enums.AuditAction
	TargetID uuid.UUID
	Snapshot any
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.AuditLogEntry, error) {
	return s.record(ctx, s.repo, input)
}

// RecordTx appends the entry inside the caller's transaction so that an
// audit failure rolls back the mutation it describes.
func (s *service) RecordTx(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.AuditLogEntry, error) {
	return s.record(ctx, s.repo.WithTx(tx), input)
}

func (s *service) record(ctx context.Context, repo Repository, input RecordInput) (*models.AuditLogEntry, error) {
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if input.TargetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target id required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid audit action %q", input.Action))
	}

	var snapshot json.RawMessage
	if input.Snapshot != nil {
		raw, err := json.Marshal(input.Snapshot)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal audit snapshot")
		}
		snapshot = raw
	}

	entry := &models.AuditLogEntry{
		ID:       uuid.New(),
		ActorID:  input.ActorID,
		Action:   input.Action,
		TargetID: input.TargetID,
		Snapshot: snapshot,
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append audit entry")
	}
	return entry, nil
}

func (s *service) ListByTarget(ctx context.Context, targetID uuid.UUID, limit int) ([]models.AuditLogEntry, error) {
	if targetID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target id required")
	}
	entries, err := s.repo.ListByTarget(ctx, targetID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	return entries, nil
}
