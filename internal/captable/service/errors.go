package service

import (
	"context"
	"errors"

	"captable/internal/captable/models"
	"captable/internal/corpaction"
	ledgermodels "captable/internal/ledger/models"
	msmodels "captable/internal/multisig/models"
	"captable/internal/projector"
	"captable/internal/vesting"
	dErrors "captable/pkg/domain-errors"
	"captable/pkg/platform/sentinel"
)

func (s *Service) reject(op string, err error) error {
	err = translate(err)
	s.metrics.IncrementRejected(op, string(dErrors.CodeOf(err)))
	return err
}

// translate maps infrastructure and workflow errors onto domain codes.
// Errors that already carry a code pass through.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, projector.ErrCorruptLog), errors.Is(err, models.ErrTokenHalted):
		return dErrors.Tag(err, dErrors.CodeInvariantViolation)
	case errors.Is(err, ledgermodels.ErrInvalidRecord):
		return dErrors.Tag(err, dErrors.CodeValidation)
	case errors.Is(err, msmodels.ErrNotASigner), errors.Is(err, models.ErrNotAllowlisted):
		return dErrors.Tag(err, dErrors.CodeForbidden)
	case errors.Is(err, msmodels.ErrStaleNonce),
		errors.Is(err, msmodels.ErrExpired),
		errors.Is(err, msmodels.ErrAlreadyApproved),
		errors.Is(err, msmodels.ErrNotExecutable),
		errors.Is(err, msmodels.ErrNotCancellable),
		errors.Is(err, models.ErrPaused):
		return dErrors.Tag(err, dErrors.CodeConflict)
	case errors.Is(err, msmodels.ErrInvalidThreshold),
		errors.Is(err, msmodels.ErrInvalidInstruction),
		errors.Is(err, models.ErrInsufficientVestedBalance),
		errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, vesting.ErrInvalidSchedule),
		errors.Is(err, corpaction.ErrInvalidRatio),
		errors.Is(err, corpaction.ErrInvalidSymbol),
		errors.Is(err, corpaction.ErrOverflow),
		errors.Is(err, projector.ErrUnsupportedAction):
		return dErrors.Tag(err, dErrors.CodeValidation)
	case errors.Is(err, msmodels.ErrTxNotFound), errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Tag(err, dErrors.CodeNotFound)
	case errors.Is(err, msmodels.ErrNotInitialized):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "token not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Tag(err, dErrors.CodeConflict)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "backend unavailable")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request cancelled")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
}
