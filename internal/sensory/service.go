package sensory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/nocturne-labs/ghostpass-backend/internal/audit"
	"github.com/nocturne-labs/ghostpass-backend/pkg/db/models"
	"github.com/nocturne-labs/ghostpass-backend/pkg/enums"
	pkgerrors "github.com/nocturne-labs/ghostpass-backend/pkg/errors"
	"github.com/nocturne-labs/ghostpass-backend/pkg/logger"
)

// ChannelState is the evaluated position of one sensory channel.
type ChannelState string

const (
	StateAvailable         ChannelState = "available"
	StateAuthorityRequired ChannelState = "authority_required"
	StateLocked            ChannelState = "locked"
)

// ChannelView is what the status endpoints return per channel.
type ChannelView struct {
	Channel           enums.SensoryChannel `json:"channel"`
	State             ChannelState         `json:"state"`
	AuthorityRequired bool                 `json:"authority_required"`
	Locked            bool                 `json:"locked"`
}

// policyTableID is the stable audit target for whole-table operations.
var policyTableID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("authority_policies"))

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	RecordTx(ctx context.Context, tx *gorm.DB, input audit.RecordInput) (*models.AuditLogEntry, error)
}

// Service evaluates authority policy per sensory channel under the configured
// environment mode. Evaluation is read-only and never errors; the policy
// snapshot is swapped whole on load and reload so no reader observes a torn
// table.
type Service interface {
	Mode() enums.EnvironmentMode
	ShouldBlockSignal(ctx context.Context, channel string) bool
	ChannelStatus(ctx context.Context, channel string) ChannelView
	AllChannelStatuses(ctx context.Context) []ChannelView
	Load(ctx context.Context) error
	Reload(ctx context.Context, actorID uuid.UUID) error
	SetPolicy(ctx context.Context, input SetPolicyInput) error
}

// SetPolicyInput replaces one channel's authority rule and refreshes the
// snapshot.
type SetPolicyInput struct {
	Channel           enums.SensoryChannel
	Required          bool
	HasAuthorityToken bool
	ActorID           uuid.UUID
}

type policyEntry struct {
	required bool
	hasToken bool
}

type snapshot map[enums.SensoryChannel]policyEntry

type Params struct {
	Repo   Repository
	Mode   enums.EnvironmentMode
	Tx     txRunner
	Audit  auditRecorder
	Logger *logger.Logger
}

type service struct {
	repo     Repository
	mode     enums.EnvironmentMode
	tx       txRunner
	audit    auditRecorder
	logg     *logger.Logger
	policies atomic.Pointer[snapshot]
}

// NewService wires the evaluator. Call Load before serving traffic; until
// then every channel evaluates as if no policy row exists.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("policy repository required")
	}
	if !params.Mode.IsValid() {
		return nil, fmt.Errorf("invalid environment mode %q", params.Mode)
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit service required")
	}
	svc := &service{
		repo:  params.Repo,
		mode:  params.Mode,
		tx:    params.Tx,
		audit: params.Audit,
		logg:  params.Logger,
	}
	empty := snapshot{}
	svc.policies.Store(&empty)
	return svc, nil
}

func (s *service) Mode() enums.EnvironmentMode {
	return s.mode
}

// Load reads the whole policy table and swaps it in as one unit. Rows that
// fail validation reject the entire load; the previous snapshot stays in
// effect.
func (s *service) Load(ctx context.Context) error {
	next, err := s.fetchSnapshot(ctx)
	if err != nil {
		return err
	}
	s.policies.Store(&next)
	return nil
}

// Reload is the administrative refresh path: same full-table swap as Load,
// plus an audit entry naming who triggered it.
func (s *service) Reload(ctx context.Context, actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	next, err := s.fetchSnapshot(ctx)
	if err != nil {
		return err
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, auditErr := s.audit.RecordTx(ctx, tx, audit.RecordInput{
			ActorID:  actorID,
			Action:   enums.AuditActionPolicyReload,
			TargetID: policyTableID,
			Snapshot: map[string]any{
				"mode":         s.mode,
				"policy_count": len(next),
			},
		})
		return auditErr
	})
	if err != nil {
		return err
	}
	s.policies.Store(&next)
	return nil
}

// SetPolicy persists one channel's rule and refreshes the snapshot. The write
// and its audit entry commit together; the swap happens only after commit.
func (s *service) SetPolicy(ctx context.Context, input SetPolicyInput) error {
	if !input.Channel.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid sensory channel")
	}
	if input.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Upsert(ctx, &models.AuthorityPolicy{
			Channel:           input.Channel,
			Required:          input.Required,
			HasAuthorityToken: input.HasAuthorityToken,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert authority policy")
		}
		_, auditErr := s.audit.RecordTx(ctx, tx, audit.RecordInput{
			ActorID:  input.ActorID,
			Action:   enums.AuditActionPolicyReload,
			TargetID: policyTableID,
			Snapshot: map[string]any{
				"channel":             input.Channel,
				"required":            input.Required,
				"has_authority_token": input.HasAuthorityToken,
			},
		})
		return auditErr
	})
	if err != nil {
		return err
	}
	return s.Load(ctx)
}

// ShouldBlockSignal reports whether a signal on the channel must be blocked.
// SANDBOX never blocks. An unrecognized channel identifier evaluates as
// available rather than erroring, with a warning so a typo in configuration
// does not pass silently.
func (s *service) ShouldBlockSignal(ctx context.Context, channel string) bool {
	if !s.mode.IsProduction() {
		return false
	}
	parsed, err := enums.ParseSensoryChannel(channel)
	if err != nil {
		s.warnUnknownChannel(ctx, channel)
		return false
	}
	entry := s.lookup(parsed)
	return entry.required && !entry.hasToken
}

// ChannelStatus evaluates one channel. Unknown identifiers report available.
func (s *service) ChannelStatus(ctx context.Context, channel string) ChannelView {
	parsed, err := enums.ParseSensoryChannel(channel)
	if err != nil {
		s.warnUnknownChannel(ctx, channel)
		return ChannelView{
			Channel: enums.SensoryChannel(channel),
			State:   StateAvailable,
		}
	}
	return s.evaluate(parsed)
}

// AllChannelStatuses evaluates the six fixed channels in canonical order. The
// result always has exactly six entries regardless of how many policy rows
// exist.
func (s *service) AllChannelStatuses(ctx context.Context) []ChannelView {
	views := make([]ChannelView, 0, len(enums.AllSensoryChannels))
	for _, channel := range enums.AllSensoryChannels {
		views = append(views, s.evaluate(channel))
	}
	return views
}

func (s *service) evaluate(channel enums.SensoryChannel) ChannelView {
	view := ChannelView{Channel: channel, State: StateAvailable}
	if !s.mode.IsProduction() {
		return view
	}
	entry := s.lookup(channel)
	view.AuthorityRequired = entry.required
	switch {
	case entry.required && !entry.hasToken:
		view.State = StateLocked
		view.Locked = true
	case entry.required:
		view.State = StateAuthorityRequired
	}
	return view
}

// lookup falls back to an open policy when no row exists for the channel.
func (s *service) lookup(channel enums.SensoryChannel) policyEntry {
	table := *s.policies.Load()
	return table[channel]
}

func (s *service) fetchSnapshot(ctx context.Context) (snapshot, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load authority policies")
	}
	next := make(snapshot, len(rows))
	var invalid error
	for _, row := range rows {
		if !row.Channel.IsValid() {
			invalid = multierr.Append(invalid, fmt.Errorf("unknown channel %q in policy table", row.Channel))
			continue
		}
		if _, dup := next[row.Channel]; dup {
			invalid = multierr.Append(invalid, fmt.Errorf("duplicate policy row for channel %q", row.Channel))
			continue
		}
		next[row.Channel] = policyEntry{
			required: row.Required,
			hasToken: row.HasAuthorityToken,
		}
	}
	if invalid != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, invalid, "authority policy table invalid")
	}
	return next, nil
}

func (s *service) warnUnknownChannel(ctx context.Context, channel string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "channel", channel), "unknown sensory channel evaluated as available")
}
