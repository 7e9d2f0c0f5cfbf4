package projector

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"captable/internal/vesting"
	id "captable/pkg/domain"
)

// HolderStatus summarizes how much of a holder's balance can move.
type HolderStatus string

const (
	StatusActive  HolderStatus = "active"
	StatusVesting HolderStatus = "vesting"
	StatusLocked  HolderStatus = "locked"
)

// pctPlaces is the precision of OwnershipPct.
const pctPlaces = 6

type Holder struct {
	Wallet       string          `json:"wallet"`
	Balance      int64           `json:"balance"`
	OwnershipPct decimal.Decimal `json:"ownership_pct"`
	Vested       int64           `json:"vested"`
	Unvested     int64           `json:"unvested"`
	Released     int64           `json:"released"`
	Transferable int64           `json:"transferable"`
	Status       HolderStatus    `json:"status"`
	Classes      []ClassPosition `json:"classes"`
}

// ClassPosition is a holder's shares in one share class.
type ClassPosition struct {
	ShareClassID int64 `json:"share_class_id"`
	Shares       int64 `json:"shares"`
}

// ShareClass totals one class across holders.
type ShareClass struct {
	ShareClassID int64           `json:"share_class_id"`
	Shares       int64           `json:"shares"`
	HolderCount  int             `json:"holder_count"`
	OwnershipPct decimal.Decimal `json:"ownership_pct"`
}

// Snapshot is the cap table at a slot.
type Snapshot struct {
	TokenID id.TokenID `json:"token_id"`
	// Slot is the slot of the last folded record, -1 when none qualified.
	Slot int64 `json:"slot"`
	// RequestedSlot is -1 for live reads.
	RequestedSlot int64     `json:"requested_slot"`
	Live          bool      `json:"live"`
	AsOf          time.Time `json:"as_of"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Decimals      int       `json:"decimals"`
	Paused        bool      `json:"paused"`
	TotalSupply   int64     `json:"total_supply"`
	HolderCount   int       `json:"holder_count"`
	Holders       []Holder  `json:"holders"`
	// ShareClasses is ordered by class id.
	ShareClasses []ShareClass `json:"share_classes"`
	RecordCount  int64        `json:"record_count"`
	LastSeq      int64        `json:"last_seq"`
	LastHash     string       `json:"last_hash,omitempty"`
}

// Balance returns the wallet's balance in the snapshot.
func (s Snapshot) Balance(wallet string) int64 {
	for _, h := range s.Holders {
		if h.Wallet == wallet {
			return h.Balance
		}
	}
	return 0
}

// Snapshot renders the state with vesting evaluated at asOf. Historical
// reads pass the last folded block time so the result depends only on the
// log.
func (s *State) Snapshot(requestedSlot int64, asOf time.Time) Snapshot {
	snap := Snapshot{
		TokenID:       s.TokenID,
		Slot:          s.LastSlot,
		RequestedSlot: requestedSlot,
		Live:          requestedSlot < 0,
		AsOf:          asOf.UTC(),
		Symbol:        s.Symbol,
		Name:          s.Name,
		Decimals:      s.Decimals,
		Paused:        s.Paused,
		TotalSupply:   s.TotalSupply,
		RecordCount:   s.RecordCount,
		LastSeq:       s.LastSeq,
		LastHash:      s.LastHash,
		Holders:       make([]Holder, 0, len(s.Balances)),
	}

	byWallet := make(map[string][]*vesting.Schedule)
	for _, sched := range s.Schedules {
		byWallet[sched.Beneficiary] = append(byWallet[sched.Beneficiary], sched)
	}

	for wallet, balance := range s.Balances {
		if balance <= 0 {
			continue
		}
		h := Holder{Wallet: wallet, Balance: balance, OwnershipPct: ownership(balance, s.TotalSupply)}
		var locked int64
		for _, sched := range byWallet[wallet] {
			vested := vesting.VestedAmount(*sched, asOf)
			h.Vested += vested
			h.Unvested += vesting.Unvested(*sched, asOf)
			// Floored split rescaling can leave released a unit above vested.
			h.Released += min(sched.Released, vested)
			locked += vesting.Locked(*sched)
		}
		h.Transferable = max(balance-locked, 0)
		for _, class := range sortedClasses(s.Classes[wallet]) {
			h.Classes = append(h.Classes, ClassPosition{ShareClassID: class, Shares: s.Classes[wallet][class]})
		}
		switch {
		case h.Transferable == 0 && locked > 0:
			h.Status = StatusLocked
		case h.Unvested > 0:
			h.Status = StatusVesting
		default:
			h.Status = StatusActive
		}
		snap.Holders = append(snap.Holders, h)
	}

	sort.Slice(snap.Holders, func(i, j int) bool {
		a, b := snap.Holders[i], snap.Holders[j]
		if a.Balance != b.Balance {
			return a.Balance > b.Balance
		}
		return a.Wallet < b.Wallet
	})
	snap.HolderCount = len(snap.Holders)
	snap.ShareClasses = s.shareClasses()
	return snap
}

func (s *State) shareClasses() []ShareClass {
	byClass := make(map[int64]*ShareClass)
	for _, classes := range s.Classes {
		for class, shares := range classes {
			if shares <= 0 {
				continue
			}
			sc := byClass[class]
			if sc == nil {
				sc = &ShareClass{ShareClassID: class}
				byClass[class] = sc
			}
			sc.Shares += shares
			sc.HolderCount++
		}
	}
	out := make([]ShareClass, 0, len(byClass))
	for _, sc := range byClass {
		sc.OwnershipPct = ownership(sc.Shares, s.TotalSupply)
		out = append(out, *sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShareClassID < out[j].ShareClassID })
	return out
}

// ClassBalance returns the wallet's shares in one class.
func (s Snapshot) ClassBalance(wallet string, class int64) int64 {
	for _, h := range s.Holders {
		if h.Wallet != wallet {
			continue
		}
		for _, c := range h.Classes {
			if c.ShareClassID == class {
				return c.Shares
			}
		}
	}
	return 0
}

func ownership(balance, supply int64) decimal.Decimal {
	if supply <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(balance).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(supply), pctPlaces)
}

// VestingStatus is one schedule evaluated at a point in time.
type VestingStatus struct {
	Schedule          vesting.Schedule `json:"schedule"`
	AsOf              time.Time        `json:"as_of"`
	Vested            int64            `json:"vested"`
	Unvested          int64            `json:"unvested"`
	Released          int64            `json:"released"`
	Releasable        int64            `json:"releasable"`
	IntervalsElapsed  int64            `json:"intervals_elapsed"`
	TotalIntervals    int64            `json:"total_intervals"`
	AmountPerInterval int64            `json:"amount_per_interval"`
}

// Vesting evaluates a schedule; ok is false when it does not exist.
func (s *State) Vesting(scheduleID string, asOf time.Time) (VestingStatus, bool) {
	sched, ok := s.Schedules[scheduleID]
	if !ok {
		return VestingStatus{}, false
	}
	vested := vesting.VestedAmount(*sched, asOf)
	return VestingStatus{
		Schedule:          *sched,
		AsOf:              asOf.UTC(),
		Vested:            vested,
		Unvested:          vesting.Unvested(*sched, asOf),
		Released:          min(sched.Released, vested),
		Releasable:        vesting.Releasable(*sched, asOf),
		IntervalsElapsed:  sched.IntervalsElapsed(asOf),
		TotalIntervals:    sched.TotalIntervals(),
		AmountPerInterval: sched.AmountPerInterval(),
	}, true
}

// SchedulesOf lists a wallet's schedules ordered by start time then id.
func (s *State) SchedulesOf(wallet string) []vesting.Schedule {
	var out []vesting.Schedule
	for _, sched := range s.Schedules {
		if sched.Beneficiary == wallet {
			out = append(out, *sched)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// DividendStatus is a wallet's position in one round.
type DividendStatus struct {
	RoundID      id.RoundID `json:"round_id"`
	PaymentToken string     `json:"payment_token"`
	Entitlement  int64      `json:"entitlement"`
	Claimed      bool       `json:"claimed"`
	ExpiresAt    int64      `json:"expires_at,omitempty"`
}

// Dividend reports the wallet's entitlement; ok is false for unknown rounds.
func (s *State) Dividend(roundID, wallet string) (DividendStatus, bool) {
	round, ok := s.Dividends[roundID]
	if !ok {
		return DividendStatus{}, false
	}
	_, claimed := round.Claimed[wallet]
	return DividendStatus{
		RoundID:      round.ID,
		PaymentToken: round.PaymentToken,
		Entitlement:  round.Entitlements[wallet],
		Claimed:      claimed,
		ExpiresAt:    round.ExpiresAt,
	}, true
}
