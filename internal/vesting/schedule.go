// Package vesting computes how much of a grant has vested at a point in time.
// Every function is pure: schedules carry unix-second times so results depend
// only on their inputs.
package vesting

import (
	"errors"
	"fmt"
	"time"

	id "captable/pkg/domain"
)

// Interval is the granularity of the vesting grid.
type Interval string

const (
	IntervalMinute Interval = "minute"
	IntervalHour   Interval = "hour"
	IntervalDay    Interval = "day"
	IntervalMonth  Interval = "month"
)

// Seconds returns the interval length. A month is a fixed 30 days.
func (i Interval) Seconds() (int64, bool) {
	switch i {
	case IntervalMinute:
		return 60, true
	case IntervalHour:
		return 3600, true
	case IntervalDay:
		return 86400, true
	case IntervalMonth:
		return 30 * 86400, true
	}
	return 0, false
}

// TerminationType selects how termination treats the unvested remainder.
type TerminationType string

const (
	TerminationStandard    TerminationType = "standard"
	TerminationForCause    TerminationType = "for_cause"
	TerminationAccelerated TerminationType = "accelerated"
)

func (t TerminationType) IsValid() bool {
	return t == TerminationStandard || t == TerminationForCause || t == TerminationAccelerated
}

// Schedule is a vesting grant as seen by the projector. Released and Forfeited
// are bookkeeping folded from VESTING_RELEASE and VESTING_TERMINATE records.
type Schedule struct {
	ID              id.ScheduleID   `json:"id"`
	Beneficiary     string          `json:"beneficiary"`
	Total           int64           `json:"total"`
	StartTime       int64           `json:"start_time"`
	CliffSeconds    int64           `json:"cliff_seconds"`
	DurationSeconds int64           `json:"duration_seconds"`
	Interval        Interval        `json:"interval"`
	Revocable       bool            `json:"revocable"`
	ShareClassID    int64           `json:"share_class_id,omitempty"`
	Terminated      bool            `json:"terminated"`
	TerminationType TerminationType `json:"termination_type,omitempty"`
	TerminatedAt    int64           `json:"terminated_at,omitempty"`
	Released        int64           `json:"released"`
	Forfeited       int64           `json:"forfeited"`
}

var ErrInvalidSchedule = errors.New("invalid vesting schedule")

// Validate checks the schedule parameters, not its bookkeeping.
func (s Schedule) Validate() error {
	if s.Total <= 0 {
		return fmt.Errorf("%w: total must be positive", ErrInvalidSchedule)
	}
	if _, ok := s.Interval.Seconds(); !ok {
		return fmt.Errorf("%w: unknown interval %q", ErrInvalidSchedule, s.Interval)
	}
	if s.DurationSeconds <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidSchedule)
	}
	if s.CliffSeconds < 0 || s.CliffSeconds > s.DurationSeconds {
		return fmt.Errorf("%w: cliff must be within the duration", ErrInvalidSchedule)
	}
	if s.StartTime < 0 {
		return fmt.Errorf("%w: start time must not be negative", ErrInvalidSchedule)
	}
	return nil
}

// TotalIntervals is ceil(duration / interval length).
func (s Schedule) TotalIntervals() int64 {
	length, ok := s.Interval.Seconds()
	if !ok || s.DurationSeconds <= 0 {
		return 0
	}
	return (s.DurationSeconds + length - 1) / length
}

// AmountPerInterval is floor(total / total intervals); the final interval
// absorbs the remainder.
func (s Schedule) AmountPerInterval() int64 {
	n := s.TotalIntervals()
	if n == 0 {
		return 0
	}
	return s.Total / n
}

// IntervalsElapsed counts whole intervals since start, capped at the total.
// The grid is anchored at start; the cliff does not shift it.
func (s Schedule) IntervalsElapsed(asOf time.Time) int64 {
	length, ok := s.Interval.Seconds()
	if !ok {
		return 0
	}
	elapsed := asOf.Unix() - s.StartTime
	if elapsed <= 0 {
		return 0
	}
	return min(elapsed/length, s.TotalIntervals())
}

// linearVested ignores termination.
func (s Schedule) linearVested(at int64) int64 {
	elapsed := at - s.StartTime
	if elapsed < 0 || elapsed < s.CliffSeconds {
		return 0
	}
	if elapsed >= s.DurationSeconds {
		return s.Total
	}
	n := s.IntervalsElapsed(time.Unix(at, 0))
	if n >= s.TotalIntervals() {
		return s.Total
	}
	return min(s.AmountPerInterval()*n, s.Total)
}

// VestedAmount returns the amount vested at asOf.
//
// for_cause freezes at what vested strictly before TerminatedAt, standard
// clamps the clock at TerminatedAt, and accelerated vests everything from
// TerminatedAt on. A terminated schedule never reports more than
// Total - Forfeited.
func VestedAmount(s Schedule, asOf time.Time) int64 {
	at := asOf.Unix()
	if !s.Terminated {
		return s.linearVested(at)
	}

	var vested int64
	switch s.TerminationType {
	case TerminationForCause:
		vested = s.linearVested(min(at, s.TerminatedAt-1))
	case TerminationAccelerated:
		if at >= s.TerminatedAt {
			vested = s.Total
		} else {
			vested = s.linearVested(at)
		}
	default:
		vested = s.linearVested(min(at, s.TerminatedAt))
	}
	return min(vested, s.Total-s.Forfeited)
}

// VestedAtTermination is the amount the beneficiary keeps when the schedule
// is terminated at terminatedAt with the given type.
func VestedAtTermination(s Schedule, terminationType TerminationType, terminatedAt int64) int64 {
	s.Terminated = true
	s.TerminationType = terminationType
	s.TerminatedAt = terminatedAt
	s.Forfeited = 0
	return VestedAmount(s, time.Unix(terminatedAt, 0))
}

// Releasable is vested minus already released, never negative.
func Releasable(s Schedule, asOf time.Time) int64 {
	return max(VestedAmount(s, asOf)-s.Released, 0)
}

// Unvested is the part of the entitlement not yet vested at asOf.
func Unvested(s Schedule, asOf time.Time) int64 {
	return max(s.Total-s.Forfeited-VestedAmount(s, asOf), 0)
}

// Locked is the part of the beneficiary's balance that cannot be transferred:
// the entitlement not yet released.
func Locked(s Schedule) int64 {
	return max(s.Total-s.Forfeited-s.Released, 0)
}

// Terminate returns the schedule frozen at terminatedAt along with the
// forfeited amount.
func Terminate(s Schedule, terminationType TerminationType, terminatedAt int64) (Schedule, int64, error) {
	if s.Terminated {
		return s, 0, fmt.Errorf("%w: schedule already terminated", ErrInvalidSchedule)
	}
	if !terminationType.IsValid() {
		return s, 0, fmt.Errorf("%w: unknown termination type %q", ErrInvalidSchedule, terminationType)
	}
	kept := VestedAtTermination(s, terminationType, terminatedAt)
	kept = max(kept, s.Released)
	forfeited := s.Total - kept
	s.Terminated = true
	s.TerminationType = terminationType
	s.TerminatedAt = terminatedAt
	s.Forfeited = forfeited
	return s, forfeited, nil
}
