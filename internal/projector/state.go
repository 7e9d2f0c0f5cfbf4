package projector

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"sort"
	"time"

	"captable/internal/corpaction"
	"captable/internal/ledger/hashchain"
	"captable/internal/ledger/models"
	"captable/internal/vesting"
	id "captable/pkg/domain"
)

// ErrCorruptLog means an accepted record contradicts state folded so far.
// Projections past such a record cannot be trusted.
var ErrCorruptLog = errors.New("corrupt log")

func corrupt(rec models.Record, format string, args ...any) error {
	return fmt.Errorf("%w: seq %d slot %d %s: %s", ErrCorruptLog, rec.Seq, rec.Slot, rec.Type, fmt.Sprintf(format, args...))
}

// DividendScale is the fixed-point scale of AmountPerShare.
const DividendScale = 1_000_000

// DividendRound is a record-date entitlement snapshot.
type DividendRound struct {
	ID             id.RoundID       `json:"id"`
	Slot           int64            `json:"slot"`
	PaymentToken   string           `json:"payment_token"`
	Pool           int64            `json:"pool"`
	SupplyAtRecord int64            `json:"supply_at_record"`
	AmountPerShare int64            `json:"amount_per_share"`
	ExpiresAt      int64            `json:"expires_at,omitempty"`
	Entitlements   map[string]int64 `json:"entitlements"`
	Claimed        map[string]int64 `json:"claimed"`
}

// Split records one corporate action epoch boundary.
type Split struct {
	Slot  int64            `json:"slot"`
	Ratio corpaction.Ratio `json:"ratio"`
}

// CommonClass is the share class of records that name none.
const CommonClass int64 = 0

// State is the cap table folded up to a cursor. It serializes to JSON so
// checkpoints can live outside the process.
type State struct {
	TokenID     id.TokenID `json:"token_id"`
	Created     bool       `json:"created"`
	Symbol      string     `json:"symbol"`
	Name        string     `json:"name"`
	Decimals    int        `json:"decimals"`
	Paused      bool       `json:"paused"`
	PauseReason string     `json:"pause_reason,omitempty"`
	TotalSupply int64      `json:"total_supply"`

	Balances map[string]int64 `json:"balances"`
	// Classes splits each balance by share class; a wallet's classes sum
	// to its balance.
	Classes   map[string]map[int64]int64   `json:"classes"`
	Schedules map[string]*vesting.Schedule `json:"schedules"`
	Allowlist map[string]bool              `json:"allowlist"`
	Dividends map[string]*DividendRound    `json:"dividends"`
	Proposals map[string]*Proposal         `json:"proposals"`
	Splits    []Split                      `json:"splits,omitempty"`

	LastSlot      int64     `json:"last_slot"`
	LastSeq       int64     `json:"last_seq"`
	LastHash      string    `json:"last_hash"`
	LastBlockTime time.Time `json:"last_block_time"`
	RecordCount   int64     `json:"record_count"`
}

// NewState returns the empty state that precedes a token's first record.
func NewState(tokenID id.TokenID) *State {
	return &State{
		TokenID:   tokenID,
		Balances:  make(map[string]int64),
		Classes:   make(map[string]map[int64]int64),
		Schedules: make(map[string]*vesting.Schedule),
		Allowlist: make(map[string]bool),
		Dividends: make(map[string]*DividendRound),
		Proposals: make(map[string]*Proposal),
		LastSlot:  -1,
	}
}

// Position is the cursor of the last folded record.
func (s *State) Position() models.Position {
	return models.Position{Slot: s.LastSlot, Seq: s.LastSeq}
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := *s
	out.Balances = maps.Clone(s.Balances)
	out.Allowlist = maps.Clone(s.Allowlist)
	out.Classes = make(map[string]map[int64]int64, len(s.Classes))
	for wallet, classes := range s.Classes {
		out.Classes[wallet] = maps.Clone(classes)
	}
	out.Schedules = make(map[string]*vesting.Schedule, len(s.Schedules))
	for k, v := range s.Schedules {
		c := *v
		out.Schedules[k] = &c
	}
	out.Dividends = make(map[string]*DividendRound, len(s.Dividends))
	for k, v := range s.Dividends {
		c := *v
		c.Entitlements = maps.Clone(v.Entitlements)
		c.Claimed = maps.Clone(v.Claimed)
		out.Dividends[k] = &c
	}
	out.Proposals = make(map[string]*Proposal, len(s.Proposals))
	for k, v := range s.Proposals {
		out.Proposals[k] = v.Clone()
	}
	out.Splits = append([]Split(nil), s.Splits...)
	return &out
}

// Apply folds one record. Records must arrive in log order and link to the
// previous hash. On error the state must be discarded.
func (s *State) Apply(rec models.Record) error {
	if rec.TokenID != s.TokenID {
		return corrupt(rec, "record belongs to token %s", rec.TokenID)
	}
	if rec.Seq != s.LastSeq+1 {
		return corrupt(rec, "expected seq %d", s.LastSeq+1)
	}
	if rec.Slot < s.LastSlot {
		return corrupt(rec, "slot moves backwards from %d", s.LastSlot)
	}
	if err := hashchain.Verify(s.LastHash, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptLog, err)
	}
	if !s.Created && rec.Type != models.TypeTokenCreate {
		return corrupt(rec, "token not created")
	}

	if err := s.apply(rec); err != nil {
		return err
	}

	s.LastSlot = rec.Slot
	s.LastSeq = rec.Seq
	s.LastHash = rec.Hash
	s.LastBlockTime = rec.BlockTime.UTC()
	s.RecordCount++
	return nil
}

func (s *State) apply(rec models.Record) error {
	switch rec.Type {
	case models.TypeTokenCreate:
		if s.Created {
			return corrupt(rec, "token already created")
		}
		var p models.TokenCreatePayload
		if err := rec.DecodePayload(&p); err != nil {
			return corrupt(rec, "payload: %v", err)
		}
		s.Created = true
		s.Symbol, s.Name, s.Decimals = p.Symbol, p.Name, p.Decimals

	case models.TypeApproval:
		s.Allowlist[rec.Wallet] = true
	case models.TypeRevocation:
		delete(s.Allowlist, rec.Wallet)

	case models.TypeShareGrant, models.TypeMint:
		return s.credit(rec, rec.Wallet, map[int64]int64{classOf(rec): rec.Amount}, true)
	case models.TypeBurn:
		_, err := s.debit(rec, rec.Wallet, rec.Amount, rec.ShareClassID, true)
		return err
	case models.TypeTransfer:
		moved, err := s.debit(rec, rec.Wallet, rec.Amount, rec.ShareClassID, false)
		if err != nil {
			return err
		}
		return s.credit(rec, rec.WalletTo, moved, false)

	case models.TypeVestingScheduleCreate:
		return s.createSchedule(rec)
	case models.TypeVestingRelease:
		return s.release(rec)
	case models.TypeVestingTerminate:
		return s.terminate(rec)

	case models.TypeStockSplit:
		var p models.StockSplitPayload
		if err := rec.DecodePayload(&p); err != nil {
			return corrupt(rec, "payload: %v", err)
		}
		return s.split(rec, corpaction.Ratio{Numerator: p.Numerator, Denominator: p.Denominator})

	case models.TypeSymbolChange:
		var p models.SymbolChangePayload
		if err := rec.DecodePayload(&p); err != nil {
			return corrupt(rec, "payload: %v", err)
		}
		s.Symbol = p.NewSymbol
	case models.TypePause:
		var p models.PausePayload
		if err := rec.DecodePayload(&p); err != nil {
			return corrupt(rec, "payload: %v", err)
		}
		s.Paused, s.PauseReason = true, p.Reason
	case models.TypeResume:
		s.Paused, s.PauseReason = false, ""

	case models.TypeDividendRoundCreate:
		return s.createRound(rec)
	case models.TypeDividendClaim:
		return s.claim(rec)

	case models.TypeGovernancePropose:
		return s.propose(rec)
	case models.TypeGovernanceVote:
		return s.vote(rec)
	case models.TypeGovernanceFinalize:
		return s.finalize(rec)
	case models.TypeGovernanceCancel:
		return s.cancelProposal(rec)
	case models.TypeGovernanceExecute:
		return s.executeProposal(rec)

	case models.TypeThresholdUpdate, models.TypeMultisigPropose, models.TypeMultisigApprove,
		models.TypeMultisigExecute, models.TypeMultisigCancel:
		// Gate bookkeeping; no cap table effect.
	default:
		return corrupt(rec, "unknown record type")
	}
	return nil
}

func classOf(rec models.Record) int64 {
	if rec.ShareClassID != nil {
		return *rec.ShareClassID
	}
	return CommonClass
}

// credit adds parts, keyed by share class, to wallet.
func (s *State) credit(rec models.Record, wallet string, parts map[int64]int64, supply bool) error {
	var amount int64
	for class, n := range parts {
		if n < 0 {
			return corrupt(rec, "negative amount %d in class %d", n, class)
		}
		if amount > math.MaxInt64-n {
			return corrupt(rec, "amount overflows")
		}
		amount += n
	}
	if s.Balances[wallet] > math.MaxInt64-amount || (supply && s.TotalSupply > math.MaxInt64-amount) {
		return corrupt(rec, "amount overflows")
	}
	if amount == 0 {
		return nil
	}
	if s.Classes == nil {
		s.Classes = make(map[string]map[int64]int64)
	}
	classes := s.Classes[wallet]
	if classes == nil {
		classes = make(map[int64]int64, len(parts))
		s.Classes[wallet] = classes
	}
	for class, n := range parts {
		if n > 0 {
			classes[class] += n
		}
	}
	s.Balances[wallet] += amount
	if supply {
		s.TotalSupply += amount
	}
	return nil
}

// debit removes amount from wallet and reports what it took per class. A
// named class must cover the whole amount; otherwise classes are drawn in
// ascending id order.
func (s *State) debit(rec models.Record, wallet string, amount int64, class *int64, supply bool) (map[int64]int64, error) {
	if amount < 0 {
		return nil, corrupt(rec, "negative amount %d", amount)
	}
	if s.Balances[wallet] < amount {
		return nil, corrupt(rec, "balance of %s would go negative (%d < %d)", wallet, s.Balances[wallet], amount)
	}
	classes := s.Classes[wallet]
	var order []int64
	if class != nil {
		if classes[*class] < amount {
			return nil, corrupt(rec, "class %d position of %s would go negative (%d < %d)", *class, wallet, classes[*class], amount)
		}
		order = []int64{*class}
	} else {
		order = sortedClasses(classes)
	}

	taken := make(map[int64]int64)
	remaining := amount
	for _, c := range order {
		if remaining == 0 {
			break
		}
		n := min(classes[c], remaining)
		if n == 0 {
			continue
		}
		taken[c] = n
		remaining -= n
	}
	if remaining > 0 {
		return nil, corrupt(rec, "class positions of %s do not cover %d", wallet, amount)
	}
	for c, n := range taken {
		classes[c] -= n
		if classes[c] == 0 {
			delete(classes, c)
		}
	}
	if len(classes) == 0 {
		delete(s.Classes, wallet)
	}
	s.Balances[wallet] -= amount
	if s.Balances[wallet] == 0 {
		delete(s.Balances, wallet)
	}
	if supply {
		s.TotalSupply -= amount
	}
	return taken, nil
}

func sortedClasses(classes map[int64]int64) []int64 {
	ids := make([]int64, 0, len(classes))
	for c := range classes {
		ids = append(ids, c)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *State) createSchedule(rec models.Record) error {
	var p models.VestingSchedulePayload
	if err := rec.DecodePayload(&p); err != nil {
		return corrupt(rec, "payload: %v", err)
	}
	scheduleID, err := id.ParseScheduleID(p.ScheduleID)
	if err != nil {
		return corrupt(rec, "schedule id: %v", err)
	}
	if _, exists := s.Schedules[p.ScheduleID]; exists {
		return corrupt(rec, "schedule %s already exists", p.ScheduleID)
	}
	sched := vesting.Schedule{
		ID:              scheduleID,
		Beneficiary:     rec.Wallet,
		Total:           rec.Amount,
		StartTime:       p.StartTime,
		CliffSeconds:    p.CliffSeconds,
		DurationSeconds: p.DurationSeconds,
		Interval:        vesting.Interval(p.Interval),
		Revocable:       p.Revocable,
		ShareClassID:    classOf(rec),
	}
	if err := sched.Validate(); err != nil {
		return corrupt(rec, "%v", err)
	}
	if err := s.credit(rec, rec.Wallet, map[int64]int64{sched.ShareClassID: rec.Amount}, true); err != nil {
		return err
	}
	s.Schedules[p.ScheduleID] = &sched
	return nil
}

func (s *State) schedule(rec models.Record, scheduleID string) (*vesting.Schedule, error) {
	sched, ok := s.Schedules[scheduleID]
	if !ok {
		return nil, corrupt(rec, "unknown schedule %s", scheduleID)
	}
	return sched, nil
}

func (s *State) release(rec models.Record) error {
	var p models.VestingReleasePayload
	if err := rec.DecodePayload(&p); err != nil {
		return corrupt(rec, "payload: %v", err)
	}
	sched, err := s.schedule(rec, p.ScheduleID)
	if err != nil {
		return err
	}
	if sched.Beneficiary != rec.Wallet {
		return corrupt(rec, "release by %s for schedule of %s", rec.Wallet, sched.Beneficiary)
	}
	if sched.Released+rec.Amount > sched.Total-sched.Forfeited {
		return corrupt(rec, "release exceeds entitlement")
	}
	sched.Released += rec.Amount
	return nil
}

func (s *State) terminate(rec models.Record) error {
	var p models.VestingTerminatePayload
	if err := rec.DecodePayload(&p); err != nil {
		return corrupt(rec, "payload: %v", err)
	}
	sched, err := s.schedule(rec, p.ScheduleID)
	if err != nil {
		return err
	}
	terminated, forfeited, err := vesting.Terminate(*sched, vesting.TerminationType(p.TerminationType), p.TerminatedAt)
	if err != nil {
		return corrupt(rec, "%v", err)
	}
	if forfeited > 0 {
		taken, err := s.forfeit(rec, sched, forfeited, p.TreasuryWallet == "")
		if err != nil {
			return err
		}
		if p.TreasuryWallet != "" {
			if err := s.credit(rec, p.TreasuryWallet, taken, false); err != nil {
				return err
			}
		}
	}
	*sched = terminated
	return nil
}

// forfeit takes forfeited shares from the schedule's class first and the
// beneficiary's other classes after that.
func (s *State) forfeit(rec models.Record, sched *vesting.Schedule, amount int64, burn bool) (map[int64]int64, error) {
	class := sched.ShareClassID
	own := min(s.Classes[sched.Beneficiary][class], amount)
	taken := make(map[int64]int64)
	if own > 0 {
		if _, err := s.debit(rec, sched.Beneficiary, own, &class, burn); err != nil {
			return nil, err
		}
		taken[class] = own
	}
	if rest := amount - own; rest > 0 {
		more, err := s.debit(rec, sched.Beneficiary, rest, nil, burn)
		if err != nil {
			return nil, err
		}
		for c, n := range more {
			taken[c] += n
		}
	}
	return taken, nil
}

// split rescales every accrued amount. Balances keep the exact total via
// remainder distribution and each wallet's classes are apportioned to its
// new balance. A schedule's locked remainder is scaled once and clamped to
// what the beneficiary holds, so vested shares never shrink below their
// floor and locked never exceeds the balance. Records share a slot in seq
// order, so a split rescales same-slot records sequenced before it.
func (s *State) split(rec models.Record, r corpaction.Ratio) error {
	scaled, err := corpaction.ApplySplit(s.Balances, r)
	if err != nil {
		return corrupt(rec, "%v", err)
	}
	classes := make(map[string]map[int64]int64, len(s.Classes))
	var total int64
	for wallet, b := range scaled {
		if b == 0 {
			delete(scaled, wallet)
			continue
		}
		total += b
		c, err := corpaction.ScaleClasses(s.Classes[wallet], r, b)
		if err != nil {
			return corrupt(rec, "%s: %v", wallet, err)
		}
		for class, n := range c {
			if n == 0 {
				delete(c, class)
			}
		}
		classes[wallet] = c
	}

	keys := make([]string, 0, len(s.Schedules))
	for key := range s.Schedules {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	lockable := maps.Clone(scaled)
	for _, key := range keys {
		sched := s.Schedules[key]
		c := *sched
		locked := vesting.Locked(c)
		for _, f := range []*int64{&c.Total, &c.Forfeited, &locked} {
			v, err := corpaction.ScaleAmount(*f, r)
			if err != nil {
				return corrupt(rec, "schedule %s: %v", key, err)
			}
			*f = v
		}
		locked = min(locked, lockable[c.Beneficiary], c.Total-c.Forfeited)
		lockable[c.Beneficiary] -= locked
		c.Released = c.Total - c.Forfeited - locked
		*sched = c
	}
	s.Balances = scaled
	s.Classes = classes
	s.TotalSupply = total
	s.Splits = append(s.Splits, Split{Slot: rec.Slot, Ratio: r})
	return nil
}

func (s *State) createRound(rec models.Record) error {
	var p models.DividendRoundPayload
	if err := rec.DecodePayload(&p); err != nil {
		return corrupt(rec, "payload: %v", err)
	}
	roundID, err := id.ParseRoundID(p.RoundID)
	if err != nil {
		return corrupt(rec, "round id: %v", err)
	}
	if _, exists := s.Dividends[p.RoundID]; exists {
		return corrupt(rec, "dividend round %s already exists", p.RoundID)
	}
	if s.TotalSupply <= 0 {
		return corrupt(rec, "dividend round with zero supply")
	}
	aps, err := corpaction.ScaleAmount(rec.Amount, corpaction.Ratio{Numerator: DividendScale, Denominator: s.TotalSupply})
	if err != nil {
		return corrupt(rec, "amount per share: %v", err)
	}
	entitlements := make(map[string]int64, len(s.Balances))
	for wallet, balance := range s.Balances {
		e, err := corpaction.ScaleAmount(balance, corpaction.Ratio{Numerator: aps, Denominator: DividendScale})
		if err != nil {
			return corrupt(rec, "entitlement: %v", err)
		}
		if e > 0 {
			entitlements[wallet] = e
		}
	}
	s.Dividends[p.RoundID] = &DividendRound{
		ID:             roundID,
		Slot:           rec.Slot,
		PaymentToken:   p.PaymentToken,
		Pool:           rec.Amount,
		SupplyAtRecord: s.TotalSupply,
		AmountPerShare: aps,
		ExpiresAt:      p.ExpiresAt,
		Entitlements:   entitlements,
		Claimed:        make(map[string]int64),
	}
	return nil
}

func (s *State) claim(rec models.Record) error {
	var p models.DividendClaimPayload
	if err := rec.DecodePayload(&p); err != nil {
		return corrupt(rec, "payload: %v", err)
	}
	round, ok := s.Dividends[p.RoundID]
	if !ok {
		return corrupt(rec, "unknown dividend round %s", p.RoundID)
	}
	entitled := round.Entitlements[rec.Wallet]
	if entitled == 0 {
		return corrupt(rec, "%s has no entitlement", rec.Wallet)
	}
	if _, done := round.Claimed[rec.Wallet]; done {
		return corrupt(rec, "%s already claimed", rec.Wallet)
	}
	if rec.Amount != 0 && rec.Amount != entitled {
		return corrupt(rec, "claim of %d does not match entitlement %d", rec.Amount, entitled)
	}
	if round.ExpiresAt > 0 && rec.BlockTime.Unix() > round.ExpiresAt {
		return corrupt(rec, "claim after round expiry")
	}
	round.Claimed[rec.Wallet] = entitled
	return nil
}

// Locked sums the unreleased entitlement of the wallet's schedules.
func (s *State) Locked(wallet string) int64 {
	var locked int64
	for _, sched := range s.Schedules {
		if sched.Beneficiary == wallet {
			locked += vesting.Locked(*sched)
		}
	}
	return locked
}

// Transferable is the balance not held back by vesting.
func (s *State) Transferable(wallet string) int64 {
	return max(s.Balances[wallet]-s.Locked(wallet), 0)
}
