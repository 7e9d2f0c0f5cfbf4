//go:build property

package vesting

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genSchedule() gopter.Gen {
	return gopter.CombineGens(
		gen.Int64Range(1, 1_000_000_000),
		gen.Int64Range(1, 4*365*86400),
		gen.Float64Range(0, 1),
		gen.OneConstOf(IntervalMinute, IntervalHour, IntervalDay, IntervalMonth),
	).Map(func(v []any) Schedule {
		duration := v[1].(int64)
		return Schedule{
			Total:           v[0].(int64),
			StartTime:       start,
			DurationSeconds: duration,
			CliffSeconds:    int64(float64(duration) * v[2].(float64)),
			Interval:        v[3].(Interval),
		}
	})
}

func TestVestingProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 500
	properties := gopter.NewProperties(params)

	properties.Property("vested is bounded by zero and total", prop.ForAll(
		func(s Schedule, offset int64) bool {
			v := VestedAmount(s, at(offset))
			return v >= 0 && v <= s.Total
		},
		genSchedule(), gen.Int64Range(-86400, 5*365*86400),
	))

	properties.Property("vested is monotonic in time", prop.ForAll(
		func(s Schedule, a, b int64) bool {
			if a > b {
				a, b = b, a
			}
			return VestedAmount(s, at(a)) <= VestedAmount(s, at(b))
		},
		genSchedule(), gen.Int64Range(0, 5*365*86400), gen.Int64Range(0, 5*365*86400),
	))

	properties.Property("fully vested once the duration elapses", prop.ForAll(
		func(s Schedule) bool {
			return VestedAmount(s, time.Unix(s.StartTime+s.DurationSeconds, 0)) == s.Total
		},
		genSchedule(),
	))

	properties.Property("termination conserves the grant", prop.ForAll(
		func(s Schedule, offset int64, kind TerminationType) bool {
			terminated, forfeited, err := Terminate(s, kind, s.StartTime+offset)
			if err != nil {
				return false
			}
			kept := VestedAmount(terminated, at(10*365*86400))
			return forfeited >= 0 && kept+forfeited == s.Total
		},
		genSchedule(), gen.Int64Range(0, 5*365*86400),
		gen.OneConstOf(TerminationStandard, TerminationForCause, TerminationAccelerated),
	))

	properties.TestingRun(t)
}
