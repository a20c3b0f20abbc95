package passes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nocturne-labs/ghostpass-backend/internal/audit"
	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
	"github.com/nocturne-labs/ghostpass-backend/pkg/outbox"
	"github.com/nocturne-labs/ghostpass-backend/pkg/outbox/payloads"
)

// Sentinel errors for the pass lifecycle.
var (
	ErrPassNotFound      = pkgerrors.New(pkgerrors.CodeNotFound, "pass not found")
	ErrInvalidTransition = pkgerrors.New(pkgerrors.CodeStateConflict, "pass is already terminal")
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type auditRecorder interface {
	RecordTx(ctx context.Context, tx *gorm.DB, input audit.RecordInput) (*models.AuditLogEntry, error)
}

// PassStatusView is the read model returned to callers. Status is derived at
// read time, never persisted for expiry.
type PassStatusView struct {
	PassID    uuid.UUID        `json:"pass_id"`
	Status    enums.PassStatus `json:"status"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// Service exposes the pass lifecycle operations beyond purchase, which is
// owned by the transaction coordinator.
type Service interface {
	GetStatusByOwner(ctx context.Context, ownerID uuid.UUID) (*PassStatusView, error)
	GetPass(ctx context.Context, passID uuid.UUID) (*models.GhostPass, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.GhostPass, error)
	Revoke(ctx context.Context, input RevokeInput) (*models.GhostPass, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	audit  auditRecorder
	outbox outboxPublisher
	now    func() time.Time
}

// RevokeInput identifies the pass and the administrator revoking it.
type RevokeInput struct {
	PassID  uuid.UUID
	ActorID uuid.UUID
	Reason  string
}

// NewService wires a pass service with its dependencies.
func NewService(repo Repository, tx txRunner, auditSvc auditRecorder, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pass repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if auditSvc == nil {
		return nil, fmt.Errorf("audit service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		audit:  auditSvc,
		outbox: outboxSvc,
		now:    time.Now,
	}, nil
}

// GetStatusByOwner returns the owner's most recent pass with its derived
// status, or ErrPassNotFound when the owner never purchased one.
func (s *service) GetStatusByOwner(ctx context.Context, ownerID uuid.UUID) (*PassStatusView, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	pass, err := s.repo.FindLatestByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPassNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pass")
	}
	return &PassStatusView{
		PassID:    pass.ID,
		Status:    pass.DerivedStatus(s.now()),
		ExpiresAt: pass.ExpiresAt,
	}, nil
}

func (s *service) GetPass(ctx context.Context, passID uuid.UUID) (*models.GhostPass, error) {
	if passID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pass id required")
	}
	pass, err := s.repo.FindByID(ctx, passID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPassNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pass")
	}
	return pass, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.GhostPass, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	out, err := s.repo.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list passes")
	}
	return out, nil
}

// Revoke performs the explicit ACTIVE -> REVOKED transition. A pass whose
// derived status is already EXPIRED or REVOKED cannot be revoked.
func (s *service) Revoke(ctx context.Context, input RevokeInput) (*models.GhostPass, error) {
	if input.PassID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pass id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	var revoked *models.GhostPass
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pass, err := repo.FindByID(ctx, input.PassID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPassNotFound
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pass")
		}

		now := s.now()
		if pass.DerivedStatus(now).IsTerminal() {
			return ErrInvalidTransition
		}

		if err := repo.MarkRevoked(ctx, pass.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke pass")
		}
		pass.Status = enums.PassStatusRevoked
		pass.RevokedAt = &now

		if _, err := s.audit.RecordTx(ctx, tx, audit.RecordInput{
			ActorID:  input.ActorID,
			Action:   enums.AuditActionPassRevoke,
			TargetID: pass.ID,
			Snapshot: map[string]any{
				"owner_id":   pass.OwnerID,
				"revoked_at": now,
				"reason":     input.Reason,
			},
		}); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPassRevoked,
			AggregateType: enums.AggregateGhostPass,
			AggregateID:   pass.ID,
			Actor:         &outbox.ActorRef{ActorID: input.ActorID},
			Data: payloads.PassRevokedEvent{
				PassID:    pass.ID,
				OwnerID:   pass.OwnerID,
				RevokedAt: now,
				Reason:    input.Reason,
			},
		}); err != nil {
			return err
		}

		revoked = pass
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revoked, nil
}
