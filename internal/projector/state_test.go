package projector

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"captable/internal/ledger/hashchain"
	"captable/internal/ledger/models"
	id "captable/pkg/domain"
	"captable/pkg/testutil"
)

const t0 = int64(1_700_000_000)

const day = int64(86400)

// chain seals records in order without a store so State.Apply can be driven
// directly, including with records the log would never accept.
type chain struct {
	token id.TokenID
	seq   int64
	prev  string
}

func (c *chain) seal(s *suite.Suite, rec models.Record) models.Record {
	c.seq++
	rec.TokenID = c.token
	rec.Seq = c.seq
	rec.ID = c.seq
	if rec.BlockTime.IsZero() {
		rec.BlockTime = time.Unix(t0+rec.Slot, 0).UTC()
	}
	if rec.TriggeredBy == "" {
		rec.TriggeredBy = models.TriggeredByAdmin
	}
	sealed, err := hashchain.Seal(c.prev, rec)
	s.Require().NoError(err)
	c.prev = sealed.Hash
	return sealed
}

func payload(s *suite.Suite, v any) json.RawMessage {
	raw, err := json.Marshal(v)
	s.Require().NoError(err)
	return raw
}

type StateSuite struct {
	suite.Suite
	chain *chain
	state *State
}

func TestStateSuite(t *testing.T) {
	suite.Run(t, new(StateSuite))
}

func (s *StateSuite) SetupTest() {
	token := id.TokenID(uuid.New())
	s.chain = &chain{token: token}
	s.state = NewState(token)
	s.apply(models.Record{Slot: 1, Type: models.TypeTokenCreate, Payload: payload(&s.Suite, models.TokenCreatePayload{
		Symbol: "ACME", Name: "Acme Corp", Signers: []string{testutil.WalletA}, Threshold: 1,
	})})
}

func (s *StateSuite) apply(rec models.Record) models.Record {
	sealed := s.chain.seal(&s.Suite, rec)
	s.Require().NoError(s.state.Apply(sealed))
	return sealed
}

func (s *StateSuite) applyErr(rec models.Record) error {
	return s.state.Apply(s.chain.seal(&s.Suite, rec))
}

func (s *StateSuite) grant(slot int64, wallet string, amount int64) {
	s.apply(models.Record{Slot: slot, Type: models.TypeShareGrant, Wallet: wallet, Amount: amount})
}

func (s *StateSuite) schedule(slot int64, wallet string, total, days int64) string {
	scheduleID := uuid.NewString()
	s.apply(models.Record{
		Slot: slot, Type: models.TypeVestingScheduleCreate, Wallet: wallet, Amount: total,
		Payload: payload(&s.Suite, models.VestingSchedulePayload{
			ScheduleID: scheduleID, StartTime: t0, DurationSeconds: days * day, Interval: "day",
		}),
	})
	return scheduleID
}

func (s *StateSuite) TestTokenCreate() {
	s.True(s.state.Created)
	s.Equal("ACME", s.state.Symbol)
	s.Equal(int64(1), s.state.RecordCount)

	s.Run("second create is corrupt", func() {
		err := s.applyErr(models.Record{Slot: 2, Type: models.TypeTokenCreate, Payload: payload(&s.Suite, models.TokenCreatePayload{Symbol: "X"})})
		s.ErrorIs(err, ErrCorruptLog)
	})
}

func (s *StateSuite) TestBalancesAndSupply() {
	s.grant(10, testutil.WalletA, 1000)
	s.apply(models.Record{Slot: 11, Type: models.TypeMint, Wallet: testutil.WalletB, Amount: 500})
	s.apply(models.Record{Slot: 12, Type: models.TypeTransfer, Wallet: testutil.WalletA, WalletTo: testutil.WalletC, Amount: 300})
	s.apply(models.Record{Slot: 13, Type: models.TypeBurn, Wallet: testutil.WalletB, Amount: 500})

	s.Equal(map[string]int64{testutil.WalletA: 700, testutil.WalletC: 300}, s.state.Balances)
	s.Equal(int64(1000), s.state.TotalSupply)
	s.Equal(int64(13), s.state.LastSlot)
	s.Equal(int64(5), s.state.LastSeq)
}

func (s *StateSuite) TestCorruption() {
	s.grant(10, testutil.WalletA, 100)

	s.Run("negative balance", func() {
		st := s.state.Clone()
		c := *s.chain
		rec := c.seal(&s.Suite, models.Record{Slot: 11, Type: models.TypeBurn, Wallet: testutil.WalletA, Amount: 101})
		err := st.Apply(rec)
		s.ErrorIs(err, ErrCorruptLog)
		s.ErrorContains(err, "would go negative")
	})

	s.Run("broken hash chain", func() {
		st := s.state.Clone()
		c := *s.chain
		rec := c.seal(&s.Suite, models.Record{Slot: 11, Type: models.TypeMint, Wallet: testutil.WalletA, Amount: 1})
		rec.Amount = 1_000_000
		s.ErrorIs(st.Apply(rec), ErrCorruptLog)
	})

	s.Run("sequence gap", func() {
		st := s.state.Clone()
		c := *s.chain
		c.seq++
		rec := c.seal(&s.Suite, models.Record{Slot: 11, Type: models.TypeMint, Wallet: testutil.WalletA, Amount: 1})
		s.ErrorIs(st.Apply(rec), ErrCorruptLog)
	})

	s.Run("unknown type", func() {
		st := s.state.Clone()
		c := *s.chain
		rec := c.seal(&s.Suite, models.Record{Slot: 11, Type: "AIRDROP", Wallet: testutil.WalletA})
		s.ErrorIs(st.Apply(rec), ErrCorruptLog)
	})

	s.Run("malformed pause payload", func() {
		st := s.state.Clone()
		c := *s.chain
		rec := c.seal(&s.Suite, models.Record{Slot: 11, Type: models.TypePause, Payload: []byte(`{"reason":7}`)})
		err := st.Apply(rec)
		s.ErrorIs(err, ErrCorruptLog)
		s.ErrorContains(err, "payload")
		s.False(st.Paused)
	})

	s.Run("record before token create", func() {
		token := id.TokenID(uuid.New())
		st := NewState(token)
		c := &chain{token: token}
		rec := c.seal(&s.Suite, models.Record{Slot: 1, Type: models.TypeMint, Wallet: testutil.WalletA, Amount: 1})
		s.ErrorIs(st.Apply(rec), ErrCorruptLog)
	})

	s.Equal(map[string]int64{testutil.WalletA: 100}, s.state.Balances, "clones isolate failed folds")
}

func (s *StateSuite) TestSplitRescalesBalancesAndSchedules() {
	s.grant(10, testutil.WalletA, 1001)
	s.grant(10, testutil.WalletB, 1000)
	scheduleID := s.schedule(11, testutil.WalletC, 999, 10)

	s.apply(models.Record{Slot: 20, Type: models.TypeStockSplit, Payload: payload(&s.Suite, models.StockSplitPayload{Numerator: 3, Denominator: 2})})

	// floor(3000 * 3 / 2) = 4500; floors sum to 1501+1500+1498 = 4499.
	s.Equal(int64(4500), s.state.TotalSupply)
	s.Equal(int64(1502), s.state.Balances[testutil.WalletA], "largest holder absorbs the remainder")
	s.Equal(int64(1500), s.state.Balances[testutil.WalletB])
	s.Equal(int64(1498), s.state.Balances[testutil.WalletC])
	s.Equal(int64(1498), s.state.Schedules[scheduleID].Total)
	s.Len(s.state.Splits, 1)
}

func (s *StateSuite) TestSplitKeepsLockedWithinBalance() {
	scheduleID := s.schedule(10, testutil.WalletA, 3, 3)
	s.apply(models.Record{
		Slot: 11, Type: models.TypeVestingRelease, Wallet: testutil.WalletA, Amount: 1,
		BlockTime: time.Unix(t0+day, 0),
		Payload:   payload(&s.Suite, models.VestingReleasePayload{ScheduleID: scheduleID}),
	})
	s.apply(models.Record{Slot: 12, Type: models.TypeTransfer, Wallet: testutil.WalletA, WalletTo: testutil.WalletC, Amount: 1})
	s.grant(13, testutil.WalletB, 100)

	s.apply(models.Record{Slot: 20, Type: models.TypeStockSplit, Payload: payload(&s.Suite, models.StockSplitPayload{Numerator: 2, Denominator: 3})})

	sched := s.state.Schedules[scheduleID]
	s.Equal(int64(1), s.state.Balances[testutil.WalletA])
	s.Equal(int64(2), sched.Total)
	s.Equal(int64(1), sched.Released, "released keeps pace with the scaled locked remainder")
	s.LessOrEqual(s.state.Locked(testutil.WalletA), s.state.Balances[testutil.WalletA])
	s.Equal(int64(68), s.state.TotalSupply)

	s.apply(models.Record{
		Slot: 21, Type: models.TypeVestingTerminate,
		Payload: payload(&s.Suite, models.VestingTerminatePayload{
			ScheduleID: scheduleID, TerminationType: "standard", TerminatedAt: t0 + day,
		}),
	})
	s.Zero(s.state.Balances[testutil.WalletA])
	s.Equal(int64(1), s.state.Schedules[scheduleID].Forfeited)
	s.Equal(int64(67), s.state.TotalSupply)
}

func (s *StateSuite) TestSplitInSameSlotRescalesEarlierRecords() {
	s.grant(10, testutil.WalletA, 100)
	s.grant(20, testutil.WalletB, 10)
	s.apply(models.Record{Slot: 20, Type: models.TypeStockSplit, Payload: payload(&s.Suite, models.StockSplitPayload{Numerator: 2, Denominator: 1})})
	s.grant(20, testutil.WalletC, 10)

	s.Equal(int64(200), s.state.Balances[testutil.WalletA])
	s.Equal(int64(20), s.state.Balances[testutil.WalletB], "grant sequenced before the split is rescaled")
	s.Equal(int64(10), s.state.Balances[testutil.WalletC], "grant sequenced after the split is in post-split units")
	s.Equal(int64(230), s.state.TotalSupply)
}

func (s *StateSuite) TestShareClasses() {
	preferred := int64(1)
	s.grant(10, testutil.WalletA, 600)
	s.apply(models.Record{Slot: 10, Type: models.TypeShareGrant, Wallet: testutil.WalletA, Amount: 400, ShareClassID: &preferred})

	s.Equal(map[int64]int64{0: 600, 1: 400}, s.state.Classes[testutil.WalletA])

	s.Run("unnamed transfer draws the lowest class first", func() {
		s.apply(models.Record{Slot: 11, Type: models.TypeTransfer, Wallet: testutil.WalletA, WalletTo: testutil.WalletB, Amount: 500})
		s.Equal(map[int64]int64{0: 100, 1: 400}, s.state.Classes[testutil.WalletA])
		s.Equal(map[int64]int64{0: 500}, s.state.Classes[testutil.WalletB])
	})

	s.Run("named transfer moves only that class", func() {
		s.apply(models.Record{Slot: 12, Type: models.TypeTransfer, Wallet: testutil.WalletA, WalletTo: testutil.WalletC, Amount: 100, ShareClassID: &preferred})
		s.Equal(map[int64]int64{0: 100, 1: 300}, s.state.Classes[testutil.WalletA])
		s.Equal(map[int64]int64{1: 100}, s.state.Classes[testutil.WalletC])
	})

	s.Run("named class must cover the amount", func() {
		st := s.state.Clone()
		c := *s.chain
		rec := c.seal(&s.Suite, models.Record{Slot: 13, Type: models.TypeBurn, Wallet: testutil.WalletA, Amount: 301, ShareClassID: &preferred})
		err := st.Apply(rec)
		s.ErrorIs(err, ErrCorruptLog)
		s.ErrorContains(err, "class 1")
	})

	s.Run("split apportions classes to each new balance", func() {
		s.apply(models.Record{Slot: 20, Type: models.TypeStockSplit, Payload: payload(&s.Suite, models.StockSplitPayload{Numerator: 1, Denominator: 3})})

		// floor(1000/3) = 333 against floors 133+166+33; B absorbs the unit.
		s.Equal(int64(333), s.state.TotalSupply)
		s.Equal(map[int64]int64{0: 33, 1: 100}, s.state.Classes[testutil.WalletA])
		s.Equal(map[int64]int64{0: 167}, s.state.Classes[testutil.WalletB])
		s.Equal(map[int64]int64{1: 33}, s.state.Classes[testutil.WalletC])
		for wallet, balance := range s.state.Balances {
			var sum int64
			for _, n := range s.state.Classes[wallet] {
				sum += n
			}
			s.Equal(balance, sum, wallet)
		}
	})

	s.Run("snapshot breaks the table down by class", func() {
		snap := s.state.Snapshot(-1, time.Unix(t0, 0))
		s.Require().Len(snap.ShareClasses, 2)
		common, pref := snap.ShareClasses[0], snap.ShareClasses[1]
		s.Equal(ShareClass{ShareClassID: 0, Shares: 200, HolderCount: 2, OwnershipPct: common.OwnershipPct}, common)
		s.Equal(int64(133), pref.Shares)
		s.Equal(2, pref.HolderCount)
		s.True(decimal.RequireFromString("39.939940").Equal(pref.OwnershipPct))
		s.Equal(int64(100), snap.ClassBalance(testutil.WalletA, 1))
		s.Zero(snap.ClassBalance(testutil.WalletB, 1))
	})
}

func (s *StateSuite) TestTerminationForfeitsFromScheduleClass() {
	preferred := int64(1)
	s.grant(10, testutil.WalletA, 50)
	scheduleID := uuid.NewString()
	s.apply(models.Record{
		Slot: 11, Type: models.TypeVestingScheduleCreate, Wallet: testutil.WalletA, Amount: 100, ShareClassID: &preferred,
		Payload: payload(&s.Suite, models.VestingSchedulePayload{
			ScheduleID: scheduleID, StartTime: t0, DurationSeconds: 10 * day, Interval: "day",
		}),
	})
	s.Equal(preferred, s.state.Schedules[scheduleID].ShareClassID)

	s.apply(models.Record{
		Slot: 12, Type: models.TypeVestingTerminate,
		Payload: payload(&s.Suite, models.VestingTerminatePayload{
			ScheduleID: scheduleID, TerminationType: "standard", TerminatedAt: t0 + 4*day,
			TreasuryWallet: testutil.WalletG,
		}),
	})
	s.Equal(map[int64]int64{0: 50, 1: 40}, s.state.Classes[testutil.WalletA])
	s.Equal(map[int64]int64{1: 60}, s.state.Classes[testutil.WalletG])
}

func (s *StateSuite) TestVestingLifecycle() {
	scheduleID := s.schedule(10, testutil.WalletA, 1000, 100)
	s.Equal(int64(1000), s.state.Balances[testutil.WalletA])
	s.Equal(int64(0), s.state.Transferable(testutil.WalletA))

	s.apply(models.Record{
		Slot: 20, Type: models.TypeVestingRelease, Wallet: testutil.WalletA, Amount: 100,
		BlockTime: time.Unix(t0+10*day, 0),
		Payload:   payload(&s.Suite, models.VestingReleasePayload{ScheduleID: scheduleID}),
	})
	s.Equal(int64(100), s.state.Transferable(testutil.WalletA))

	s.Run("release by another wallet is corrupt", func() {
		st := s.state.Clone()
		c := *s.chain
		rec := c.seal(&s.Suite, models.Record{
			Slot: 21, Type: models.TypeVestingRelease, Wallet: testutil.WalletB, Amount: 1,
			Payload: payload(&s.Suite, models.VestingReleasePayload{ScheduleID: scheduleID}),
		})
		s.ErrorIs(st.Apply(rec), ErrCorruptLog)
	})

	s.Run("standard termination burns the unvested part", func() {
		st := s.state.Clone()
		c := *s.chain
		rec := c.seal(&s.Suite, models.Record{
			Slot: 30, Type: models.TypeVestingTerminate,
			Payload: payload(&s.Suite, models.VestingTerminatePayload{
				ScheduleID: scheduleID, TerminationType: "standard", TerminatedAt: t0 + 25*day,
			}),
		})
		s.Require().NoError(st.Apply(rec))
		s.Equal(int64(250), st.Balances[testutil.WalletA])
		s.Equal(int64(250), st.TotalSupply)
		s.Equal(int64(750), st.Schedules[scheduleID].Forfeited)
		s.Equal(int64(250), st.Transferable(testutil.WalletA)+st.Locked(testutil.WalletA))
	})

	s.Run("treasury receives forfeited shares", func() {
		st := s.state.Clone()
		c := *s.chain
		rec := c.seal(&s.Suite, models.Record{
			Slot: 30, Type: models.TypeVestingTerminate,
			Payload: payload(&s.Suite, models.VestingTerminatePayload{
				ScheduleID: scheduleID, TerminationType: "for_cause", TerminatedAt: t0 + 25*day,
				TreasuryWallet: testutil.WalletG,
			}),
		})
		s.Require().NoError(st.Apply(rec))
		// for_cause keeps only what vested strictly before termination.
		s.Equal(int64(240), st.Balances[testutil.WalletA])
		s.Equal(int64(760), st.Balances[testutil.WalletG])
		s.Equal(int64(1000), st.TotalSupply)
	})

	s.Run("terminating twice is corrupt", func() {
		st := s.state.Clone()
		c := *s.chain
		terminate := models.Record{
			Slot: 30, Type: models.TypeVestingTerminate,
			Payload: payload(&s.Suite, models.VestingTerminatePayload{
				ScheduleID: scheduleID, TerminationType: "accelerated", TerminatedAt: t0 + 25*day,
			}),
		}
		s.Require().NoError(st.Apply(c.seal(&s.Suite, terminate)))
		s.ErrorIs(st.Apply(c.seal(&s.Suite, terminate)), ErrCorruptLog)
	})
}

func (s *StateSuite) TestDividends() {
	s.grant(10, testutil.WalletA, 600)
	s.grant(10, testutil.WalletB, 400)
	roundID := uuid.NewString()
	s.apply(models.Record{
		Slot: 20, Type: models.TypeDividendRoundCreate, Amount: 333,
		Payload: payload(&s.Suite, models.DividendRoundPayload{RoundID: roundID, PaymentToken: "USDC", ExpiresAt: t0 + 100}),
	})

	round := s.state.Dividends[roundID]
	s.Require().NotNil(round)
	s.Equal(int64(333_000), round.AmountPerShare)
	s.Equal(map[string]int64{testutil.WalletA: 199, testutil.WalletB: 133}, round.Entitlements)

	s.Run("transfers after the record date do not move entitlements", func() {
		s.apply(models.Record{Slot: 21, Type: models.TypeTransfer, Wallet: testutil.WalletA, WalletTo: testutil.WalletC, Amount: 600})
		status, ok := s.state.Dividend(roundID, testutil.WalletC)
		s.True(ok)
		s.Zero(status.Entitlement)
	})

	s.Run("claim once", func() {
		s.apply(models.Record{Slot: 22, Type: models.TypeDividendClaim, Wallet: testutil.WalletA,
			Payload: payload(&s.Suite, models.DividendClaimPayload{RoundID: roundID})})
		status, _ := s.state.Dividend(roundID, testutil.WalletA)
		s.True(status.Claimed)

		err := s.applyErr(models.Record{Slot: 23, Type: models.TypeDividendClaim, Wallet: testutil.WalletA,
			Payload: payload(&s.Suite, models.DividendClaimPayload{RoundID: roundID})})
		s.ErrorIs(err, ErrCorruptLog)
	})
}

func (s *StateSuite) TestDividendClaimAfterExpiry() {
	s.grant(10, testutil.WalletA, 10)
	roundID := uuid.NewString()
	s.apply(models.Record{
		Slot: 20, Type: models.TypeDividendRoundCreate, Amount: 10,
		Payload: payload(&s.Suite, models.DividendRoundPayload{RoundID: roundID, PaymentToken: "USDC", ExpiresAt: t0 + 50}),
	})
	err := s.applyErr(models.Record{Slot: 60, Type: models.TypeDividendClaim, Wallet: testutil.WalletA,
		Payload: payload(&s.Suite, models.DividendClaimPayload{RoundID: roundID})})
	s.ErrorIs(err, ErrCorruptLog)
	s.ErrorContains(err, "expiry")
}

func (s *StateSuite) TestPauseSymbolAndAllowlist() {
	s.apply(models.Record{Slot: 10, Type: models.TypeApproval, Wallet: testutil.WalletA})
	s.apply(models.Record{Slot: 10, Type: models.TypeApproval, Wallet: testutil.WalletB})
	s.apply(models.Record{Slot: 11, Type: models.TypeRevocation, Wallet: testutil.WalletB})
	s.apply(models.Record{Slot: 12, Type: models.TypePause, Payload: payload(&s.Suite, models.PausePayload{Reason: "audit"})})
	s.apply(models.Record{Slot: 13, Type: models.TypeSymbolChange, Payload: payload(&s.Suite, models.SymbolChangePayload{NewSymbol: "ACM2"})})

	s.Equal(map[string]bool{testutil.WalletA: true}, s.state.Allowlist)
	s.True(s.state.Paused)
	s.Equal("audit", s.state.PauseReason)
	s.Equal("ACM2", s.state.Symbol)

	s.apply(models.Record{Slot: 14, Type: models.TypeResume, Payload: payload(&s.Suite, models.PausePayload{})})
	s.False(s.state.Paused)
}

func (s *StateSuite) TestSnapshot() {
	s.grant(10, testutil.WalletB, 300)
	s.grant(10, testutil.WalletA, 300)
	s.schedule(11, testutil.WalletC, 400, 100)

	snap := s.state.Snapshot(11, time.Unix(t0+10*day, 0))

	s.Equal(int64(1000), snap.TotalSupply)
	s.Equal(3, snap.HolderCount)
	s.Equal(testutil.WalletC, snap.Holders[0].Wallet)
	// Equal balances order by wallet ascending.
	s.Less(snap.Holders[1].Wallet, snap.Holders[2].Wallet)

	c := snap.Holders[0]
	s.True(decimal.RequireFromString("40").Equal(c.OwnershipPct))
	s.Equal(int64(40), c.Vested)
	s.Equal(int64(360), c.Unvested)
	s.Equal(int64(0), c.Transferable)
	s.Equal(StatusLocked, c.Status)
	s.Equal(StatusActive, snap.Holders[1].Status)

	total := decimal.Zero
	for _, h := range snap.Holders {
		total = total.Add(h.OwnershipPct)
	}
	s.True(decimal.NewFromInt(100).Equal(total))
}

func (s *StateSuite) TestCloneAndJSONRoundTripPreserveFolding() {
	s.grant(10, testutil.WalletA, 100)
	s.schedule(11, testutil.WalletB, 50, 10)

	raw, err := json.Marshal(s.state)
	s.Require().NoError(err)
	var decoded State
	s.Require().NoError(json.Unmarshal(raw, &decoded))

	next := s.chain.seal(&s.Suite, models.Record{Slot: 12, Type: models.TypeMint, Wallet: testutil.WalletA, Amount: 1})
	clone := s.state.Clone()
	s.Require().NoError(s.state.Apply(next))
	s.Require().NoError(decoded.Apply(next))
	s.Require().NoError(clone.Apply(next))

	want, err := json.Marshal(s.state)
	s.Require().NoError(err)
	got, err := json.Marshal(&decoded)
	s.Require().NoError(err)
	s.JSONEq(string(want), string(got))
	s.Equal(s.state.Balances, clone.Balances)
}

func TestCorruptErrorWraps(t *testing.T) {
	err := corrupt(models.Record{Seq: 3, Slot: 9, Type: models.TypeBurn}, "balance of %s", "w")
	if !errors.Is(err, ErrCorruptLog) {
		t.Fatalf("expected ErrCorruptLog, got %v", err)
	}
}
