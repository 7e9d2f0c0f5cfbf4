package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"captable/internal/captable/models"
	ledgermodels "captable/internal/ledger/models"
	"captable/internal/vesting"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
	"captable/pkg/requestcontext"
)

// CreateVestingSchedule grants a schedule whose total is escrowed to the
// beneficiary and locked until released.
func (s *Service) CreateVestingSchedule(ctx context.Context, tokenID id.TokenID, grant models.VestingGrant) (id.ScheduleID, error) {
	if err := requireRole(ctx, requestcontext.RoleAdmin, requestcontext.RoleSystem); err != nil {
		return id.ScheduleID{}, err
	}
	if err := parseWallets(grant.Beneficiary); err != nil {
		return id.ScheduleID{}, err
	}
	scheduleID := id.ScheduleID(uuid.New())
	sched := vesting.Schedule{
		ID:              scheduleID,
		Beneficiary:     grant.Beneficiary,
		Total:           grant.Total,
		StartTime:       grant.StartTime.Unix(),
		CliffSeconds:    grant.CliffSeconds,
		DurationSeconds: grant.DurationSeconds,
		Interval:        grant.Interval,
		Revocable:       grant.Revocable,
	}
	if err := sched.Validate(); err != nil {
		return id.ScheduleID{}, translate(err)
	}

	err := s.write(ctx, "create_vesting_schedule", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		if err := s.checkAllowed(ctx, w, grant.Beneficiary); err != nil {
			return err
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeVestingScheduleCreate,
			Slot:        w.slot,
			Wallet:      grant.Beneficiary,
			Amount:      grant.Total,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.VestingSchedulePayload{
			ScheduleID:      scheduleID.String(),
			StartTime:       sched.StartTime,
			CliffSeconds:    sched.CliffSeconds,
			DurationSeconds: sched.DurationSeconds,
			Interval:        string(sched.Interval),
			Revocable:       sched.Revocable,
		})
		if err != nil {
			return err
		}
		_, err = w.append(ctx, draft)
		return err
	})
	if err != nil {
		return id.ScheduleID{}, err
	}
	s.logAudit(ctx, "vesting_schedule_created",
		"token_id", tokenID.String(),
		"schedule_id", scheduleID.String(),
		"wallet", grant.Beneficiary,
		"total", grant.Total,
	)
	return scheduleID, nil
}

// ReleaseVested releases amount from the schedule, or everything releasable
// when amount is 0. Vesting is evaluated at asOf, which defaults to now and
// may not lie in the future. Asking for more than is releasable fails with
// ErrInsufficientVestedBalance; nothing is clamped.
func (s *Service) ReleaseVested(ctx context.Context, tokenID id.TokenID, scheduleID id.ScheduleID, asOf time.Time, amount int64) (models.Release, error) {
	if amount < 0 {
		return models.Release{}, dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	}
	var out models.Release
	err := s.write(ctx, "release_vested", tokenID, func(ctx context.Context, w *work) error {
		if err := requireToken(w.view); err != nil {
			return err
		}
		sched, ok := w.view.state.Schedules[scheduleID.String()]
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "vesting schedule not found")
		}
		if err := actsFor(ctx, sched.Beneficiary); err != nil {
			return err
		}
		if w.view.state.Paused {
			return models.ErrPaused
		}
		at := asOf
		if at.IsZero() {
			at = w.now
		}
		if at.After(w.now) {
			return dErrors.New(dErrors.CodeValidation, "as_of must not be in the future")
		}
		releasable := vesting.Releasable(*sched, at)
		if amount == 0 {
			amount = releasable
		}
		if amount == 0 || amount > releasable {
			return fmt.Errorf("%w: %d requested, %d releasable", models.ErrInsufficientVestedBalance, amount, releasable)
		}
		draft, err := ledgermodels.Record{
			Type:        ledgermodels.TypeVestingRelease,
			Slot:        w.slot,
			Wallet:      sched.Beneficiary,
			Amount:      amount,
			TriggeredBy: triggeredBy(ctx),
		}.WithPayload(ledgermodels.VestingReleasePayload{ScheduleID: scheduleID.String()})
		if err != nil {
			return err
		}
		rec, err := w.append(ctx, draft)
		if err != nil {
			return err
		}
		out = models.Release{
			ScheduleID: scheduleID,
			Amount:     amount,
			Released:   w.view.state.Schedules[scheduleID.String()].Released,
			Record:     rec,
		}
		return nil
	})
	if err != nil {
		return models.Release{}, err
	}
	s.logAudit(ctx, "vesting_released",
		"token_id", tokenID.String(),
		"schedule_id", scheduleID.String(),
		"amount", out.Amount,
	)
	return out, nil
}
