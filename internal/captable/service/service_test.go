package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"captable/internal/captable/metrics"
	"captable/internal/captable/models"
	ledgermodels "captable/internal/ledger/models"
	ledger "captable/internal/ledger/service"
	"captable/internal/ledger/store"
	msmodels "captable/internal/multisig/models"
	"captable/internal/projector"
	"captable/internal/snapshotcache"
	"captable/internal/vesting"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
	"captable/pkg/requestcontext"
	"captable/pkg/testutil"
)

type fixedSlots struct {
	slot int64
}

func (f *fixedSlots) CurrentSlot(context.Context) (int64, error) {
	return f.slot, nil
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	log     *ledger.Log
	slots   *fixedSlots
	metrics *metrics.Metrics
	svc     *Service
	token   id.TokenID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.slots = &fixedSlots{slot: 100}

	var err error
	s.log, err = ledger.New(store.NewInMemory())
	s.Require().NoError(err)
	proj, err := projector.New(s.log, projector.WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
	cache, err := snapshotcache.New(proj, snapshotcache.NewInMemory(), snapshotcache.WithInterval(2))
	s.Require().NoError(err)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.svc, err = New(s.log, cache, s.slots,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)

	rec, err := s.svc.CreateToken(s.ctx, models.CreateToken{
		Symbol:    "ACME",
		Name:      "Acme Corp",
		Signers:   []string{testutil.WalletA, testutil.WalletB, testutil.WalletC},
		Threshold: 2,
	})
	s.Require().NoError(err)
	s.token = rec.TokenID
	for _, w := range []string{testutil.WalletA, testutil.WalletB, testutil.WalletD} {
		_, err := s.svc.ApproveWallet(s.ctx, s.token, w)
		s.Require().NoError(err)
	}
	_, err = s.svc.GrantShares(s.ctx, s.token, testutil.WalletA, 1_000_000)
	s.Require().NoError(err)
}

func (s *ServiceSuite) as(role requestcontext.Role, wallet string) context.Context {
	ctx := requestcontext.WithRole(s.ctx, role)
	return requestcontext.WithWallet(ctx, wallet)
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Require().Truef(dErrors.HasCode(err, code), "want %s, got %s: %v", code, dErrors.CodeOf(err), err)
}

func (s *ServiceSuite) live() projector.Snapshot {
	snap, err := s.svc.ProjectCapTable(s.ctx, s.token, models.Live())
	s.Require().NoError(err)
	return snap
}

func (s *ServiceSuite) recordCount() int {
	page, err := s.svc.Transactions(s.ctx, models.HistoryQuery{TokenID: s.token, ToSlot: -1, Limit: 1000})
	s.Require().NoError(err)
	return len(page.Records)
}

func pause(reason string) msmodels.Instruction {
	return msmodels.Instruction{Kind: string(msmodels.KindPause), Pause: &ledgermodels.PausePayload{Reason: reason}}
}

// passGate proposes as A, approves as B and executes.
func (s *ServiceSuite) passGate(ins msmodels.Instruction) msmodels.ExecutionResult {
	txID, err := s.svc.ProposeAdminAction(s.as(requestcontext.RoleAdmin, testutil.WalletA), s.token, ins, testutil.WalletA)
	s.Require().NoError(err)
	_, err = s.svc.Approve(s.as(requestcontext.RoleWallet, testutil.WalletB), s.token, txID, testutil.WalletB)
	s.Require().NoError(err)
	res, err := s.svc.Execute(s.ctx, s.token, txID)
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) TestCreateToken() {
	s.Run("duplicate token id conflicts", func() {
		_, err := s.svc.CreateToken(s.ctx, models.CreateToken{
			TokenID: s.token, Symbol: "ACME", Name: "Again",
			Signers: []string{testutil.WalletA}, Threshold: 1,
		})
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("threshold above signer count is rejected", func() {
		_, err := s.svc.CreateToken(s.ctx, models.CreateToken{
			Symbol: "NEW", Name: "New", Signers: []string{testutil.WalletA}, Threshold: 2,
		})
		s.requireCode(err, dErrors.CodeValidation)
		s.ErrorIs(err, msmodels.ErrInvalidThreshold)
	})

	s.Run("lowercase symbol is rejected", func() {
		_, err := s.svc.CreateToken(s.ctx, models.CreateToken{
			Symbol: "acme", Name: "New", Signers: []string{testutil.WalletA}, Threshold: 1,
		})
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("wallet callers may not create tokens", func() {
		_, err := s.svc.CreateToken(s.as(requestcontext.RoleWallet, testutil.WalletA), models.CreateToken{
			Symbol: "NEW", Name: "New", Signers: []string{testutil.WalletA}, Threshold: 1,
		})
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("config reflects creation", func() {
		cfg, err := s.svc.MultiSigConfig(s.ctx, s.token)
		s.Require().NoError(err)
		s.Equal(2, cfg.Threshold)
		s.Equal(uint64(0), cfg.Nonce)
		s.Len(cfg.Signers, 3)
	})

	s.Run("unknown token is not found", func() {
		_, err := s.svc.MultiSigConfig(s.ctx, id.TokenID(uuid.New()))
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestMultiSigThreshold() {
	admin := s.as(requestcontext.RoleAdmin, testutil.WalletA)
	txID, err := s.svc.ProposeAdminAction(admin, s.token, pause("audit"), testutil.WalletA)
	s.Require().NoError(err)

	s.Run("one approval of two is not executable", func() {
		_, err := s.svc.Execute(s.ctx, s.token, txID)
		s.requireCode(err, dErrors.CodeConflict)
		s.ErrorIs(err, msmodels.ErrNotExecutable)
	})

	s.Run("non-signer approval is forbidden", func() {
		_, err := s.svc.Approve(s.as(requestcontext.RoleWallet, testutil.WalletD), s.token, txID, testutil.WalletD)
		s.requireCode(err, dErrors.CodeForbidden)
		s.ErrorIs(err, msmodels.ErrNotASigner)
	})

	s.Run("signing as another wallet is forbidden", func() {
		_, err := s.svc.Approve(s.as(requestcontext.RoleWallet, testutil.WalletD), s.token, txID, testutil.WalletB)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("proposer cannot approve twice", func() {
		_, err := s.svc.Approve(admin, s.token, txID, testutil.WalletA)
		s.requireCode(err, dErrors.CodeConflict)
		s.ErrorIs(err, msmodels.ErrAlreadyApproved)
	})

	s.Run("second approval makes it executable", func() {
		st, err := s.svc.Approve(s.as(requestcontext.RoleWallet, testutil.WalletB), s.token, txID, testutil.WalletB)
		s.Require().NoError(err)
		s.Equal(msmodels.StateExecutable, st.State)
		s.Equal(2, st.ApprovalsCount)
		s.ElementsMatch([]string{testutil.WalletC}, st.Pending)
	})

	s.Run("execute applies the admin record once", func() {
		first, err := s.svc.Execute(s.ctx, s.token, txID)
		s.Require().NoError(err)
		s.Equal(ledgermodels.TypePause, first.RecordType)
		s.Equal(txID, first.TxID)
		s.True(s.live().Paused)

		count := s.recordCount()
		again, err := s.svc.Execute(s.ctx, s.token, txID)
		s.Require().NoError(err)
		s.Equal(first, again)
		s.Equal(count, s.recordCount())
	})

	s.Run("executed proposal cannot be cancelled", func() {
		_, err := s.svc.CancelAdminAction(admin, s.token, txID, testutil.WalletA, "too late")
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("pending list drops executed proposals", func() {
		active, err := s.svc.PendingTransactions(s.ctx, s.token, true)
		s.Require().NoError(err)
		s.Empty(active)
		all, err := s.svc.PendingTransactions(s.ctx, s.token, false)
		s.Require().NoError(err)
		s.Require().Len(all, 1)
		s.Equal(msmodels.StateExecuted, all[0].State)
	})
}

func (s *ServiceSuite) TestThresholdUpdateStrandsProposals() {
	txID, err := s.svc.ProposeAdminAction(s.as(requestcontext.RoleAdmin, testutil.WalletA), s.token, pause(""), testutil.WalletA)
	s.Require().NoError(err)

	cfg, err := s.svc.UpdateThreshold(s.ctx, s.token, 3, 0)
	s.Require().NoError(err)
	s.Equal(3, cfg.Threshold)
	s.Equal(uint64(1), cfg.Nonce)

	s.Run("approval under the old nonce is stale", func() {
		_, err := s.svc.Approve(s.as(requestcontext.RoleWallet, testutil.WalletB), s.token, txID, testutil.WalletB)
		s.requireCode(err, dErrors.CodeConflict)
		s.ErrorIs(err, msmodels.ErrStaleNonce)
	})

	s.Run("reusing the old nonce is stale", func() {
		_, err := s.svc.UpdateThreshold(s.ctx, s.token, 2, 0)
		s.requireCode(err, dErrors.CodeConflict)
		s.ErrorIs(err, msmodels.ErrStaleNonce)
	})

	s.Run("threshold above signer count is rejected", func() {
		_, err := s.svc.UpdateThreshold(s.ctx, s.token, 4, 1)
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("wallet callers may not update directly", func() {
		_, err := s.svc.UpdateThreshold(s.as(requestcontext.RoleWallet, testutil.WalletA), s.token, 2, 1)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("any signer may clear a stale proposal", func() {
		st, err := s.svc.CancelAdminAction(s.as(requestcontext.RoleWallet, testutil.WalletC), s.token, txID, testutil.WalletC, "stale")
		s.Require().NoError(err)
		s.Equal(msmodels.StateRejected, st.State)
	})
}

func (s *ServiceSuite) TestSplitAcrossSlots() {
	s.slots.slot = 200
	res := s.passGate(msmodels.Instruction{
		Kind:       string(msmodels.KindStockSplit),
		StockSplit: &ledgermodels.StockSplitPayload{Numerator: 2, Denominator: 1},
	})
	s.Equal(ledgermodels.TypeStockSplit, res.RecordType)
	s.Equal(int64(200), res.Slot)

	s.slots.slot = 300
	_, err := s.svc.GrantShares(s.ctx, s.token, testutil.WalletB, 500_000)
	s.Require().NoError(err)

	s.Run("before the split", func() {
		snap, err := s.svc.ProjectCapTable(s.ctx, s.token, models.AtSlot(150))
		s.Require().NoError(err)
		s.Equal(int64(1_000_000), snap.Balance(testutil.WalletA))
		s.Equal(int64(1_000_000), snap.TotalSupply)
	})

	s.Run("after the split", func() {
		snap, err := s.svc.ProjectCapTable(s.ctx, s.token, models.AtSlot(250))
		s.Require().NoError(err)
		s.Equal(int64(2_000_000), snap.Balance(testutil.WalletA))
		s.Zero(snap.Balance(testutil.WalletB))
	})

	s.Run("live", func() {
		snap := s.live()
		s.True(snap.Live)
		s.Equal(int64(2_000_000), snap.Balance(testutil.WalletA))
		s.Equal(int64(500_000), snap.Balance(testutil.WalletB))
		s.Equal(int64(2_500_000), snap.TotalSupply)
	})

	s.Run("negative slot is rejected", func() {
		_, err := s.svc.ProjectCapTable(s.ctx, s.token, models.AtSlot(-5))
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("unknown token is not found", func() {
		_, err := s.svc.ProjectCapTable(s.ctx, id.TokenID(uuid.New()), models.Live())
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestTransfer() {
	wallet := s.as(requestcontext.RoleWallet, testutil.WalletA)

	s.Run("moves shares between allowlisted wallets", func() {
		_, err := s.svc.Transfer(wallet, s.token, testutil.WalletA, testutil.WalletB, 100)
		s.Require().NoError(err)
		snap := s.live()
		s.Equal(int64(999_900), snap.Balance(testutil.WalletA))
		s.Equal(int64(100), snap.Balance(testutil.WalletB))
	})

	s.Run("destination outside the allowlist is forbidden", func() {
		_, err := s.svc.Transfer(wallet, s.token, testutil.WalletA, testutil.WalletE, 1)
		s.requireCode(err, dErrors.CodeForbidden)
		s.ErrorIs(err, models.ErrNotAllowlisted)
	})

	s.Run("wallet callers move only their own shares", func() {
		_, err := s.svc.Transfer(s.as(requestcontext.RoleWallet, testutil.WalletB), s.token, testutil.WalletA, testutil.WalletB, 1)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("more than the balance is rejected", func() {
		_, err := s.svc.Transfer(wallet, s.token, testutil.WalletA, testutil.WalletB, 2_000_000)
		s.requireCode(err, dErrors.CodeValidation)
		s.ErrorIs(err, models.ErrInsufficientBalance)
	})

	s.Run("revoked wallets cannot send", func() {
		_, err := s.svc.RevokeWallet(s.ctx, s.token, testutil.WalletB)
		s.Require().NoError(err)
		_, err = s.svc.Transfer(s.as(requestcontext.RoleWallet, testutil.WalletB), s.token, testutil.WalletB, testutil.WalletA, 1)
		s.requireCode(err, dErrors.CodeForbidden)
		_, err = s.svc.RevokeWallet(s.ctx, s.token, testutil.WalletB)
		s.requireCode(err, dErrors.CodeConflict)
	})

	s.Run("paused token blocks transfers", func() {
		s.passGate(pause("incident"))
		_, err := s.svc.Transfer(wallet, s.token, testutil.WalletA, testutil.WalletD, 1)
		s.requireCode(err, dErrors.CodeConflict)
		s.ErrorIs(err, models.ErrPaused)
	})
}

func (s *ServiceSuite) TestVesting() {
	scheduleID, err := s.svc.CreateVestingSchedule(s.ctx, s.token, models.VestingGrant{
		Beneficiary:     testutil.WalletB,
		Total:           1000,
		StartTime:       s.now.Add(-48 * time.Hour),
		DurationSeconds: 4 * 86400,
		Interval:        vesting.IntervalDay,
		Revocable:       true,
	})
	s.Require().NoError(err)
	beneficiary := s.as(requestcontext.RoleWallet, testutil.WalletB)

	s.Run("unvested shares are locked", func() {
		_, err := s.svc.Transfer(beneficiary, s.token, testutil.WalletB, testutil.WalletA, 1)
		s.requireCode(err, dErrors.CodeValidation)
		s.ErrorIs(err, models.ErrInsufficientBalance)
	})

	s.Run("status at now", func() {
		st, err := s.svc.VestingStatus(s.ctx, s.token, scheduleID, time.Time{})
		s.Require().NoError(err)
		s.Equal(int64(500), st.Vested)
		s.Equal(int64(500), st.Releasable)
		s.Equal(int64(2), st.IntervalsElapsed)
	})

	s.Run("asking for more than vested fails", func() {
		_, err := s.svc.ReleaseVested(beneficiary, s.token, scheduleID, time.Time{}, 600)
		s.requireCode(err, dErrors.CodeValidation)
		s.ErrorIs(err, models.ErrInsufficientVestedBalance)
	})

	s.Run("future as-of is rejected", func() {
		_, err := s.svc.ReleaseVested(beneficiary, s.token, scheduleID, s.now.Add(time.Hour), 0)
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("other wallets cannot release", func() {
		_, err := s.svc.ReleaseVested(s.as(requestcontext.RoleWallet, testutil.WalletA), s.token, scheduleID, time.Time{}, 0)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("zero releases everything releasable", func() {
		rel, err := s.svc.ReleaseVested(beneficiary, s.token, scheduleID, time.Time{}, 0)
		s.Require().NoError(err)
		s.Equal(int64(500), rel.Amount)
		s.Equal(int64(500), rel.Released)
		s.Equal(ledgermodels.TypeVestingRelease, rel.Record.Type)

		_, err = s.svc.ReleaseVested(beneficiary, s.token, scheduleID, time.Time{}, 0)
		s.ErrorIs(err, models.ErrInsufficientVestedBalance)
	})

	s.Run("released shares transfer", func() {
		_, err := s.svc.Transfer(beneficiary, s.token, testutil.WalletB, testutil.WalletA, 500)
		s.Require().NoError(err)
	})

	s.Run("schedules of wallet", func() {
		list, err := s.svc.SchedulesOf(s.ctx, s.token, testutil.WalletB)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(scheduleID, list[0].ID)
		none, err := s.svc.SchedulesOf(s.ctx, s.token, testutil.WalletD)
		s.Require().NoError(err)
		s.NotNil(none)
		s.Empty(none)
	})

	s.Run("termination passes the gate", func() {
		res := s.passGate(msmodels.Instruction{
			Kind: string(msmodels.KindVestingTerminate),
			VestingTerminate: &ledgermodels.VestingTerminatePayload{
				ScheduleID:      scheduleID.String(),
				TerminationType: string(vesting.TerminationStandard),
			},
		})
		s.Equal(ledgermodels.TypeVestingTerminate, res.RecordType)
		_, err := s.svc.ProposeAdminAction(s.as(requestcontext.RoleAdmin, testutil.WalletA), s.token, msmodels.Instruction{
			Kind: string(msmodels.KindVestingTerminate),
			VestingTerminate: &ledgermodels.VestingTerminatePayload{
				ScheduleID:      scheduleID.String(),
				TerminationType: string(vesting.TerminationStandard),
			},
		}, testutil.WalletA)
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *ServiceSuite) TestDividends() {
	round, err := s.svc.CreateDividendRound(s.ctx, s.token, models.DividendRound{
		PaymentToken: "USDC",
		Pool:         10_000,
		ExpiresAt:    s.now.Add(24 * time.Hour),
	})
	s.Require().NoError(err)
	s.Equal(int64(1_000_000), round.SupplyAtRecord)
	s.Equal(int64(10_000), round.Entitlements[testutil.WalletA])

	s.Run("claim pays the entitlement once", func() {
		amount, err := s.svc.ClaimDividend(s.as(requestcontext.RoleWallet, testutil.WalletA), s.token, round.ID, testutil.WalletA)
		s.Require().NoError(err)
		s.Equal(int64(10_000), amount)

		_, err = s.svc.ClaimDividend(s.as(requestcontext.RoleWallet, testutil.WalletA), s.token, round.ID, testutil.WalletA)
		s.requireCode(err, dErrors.CodeConflict)

		st, err := s.svc.DividendStatus(s.ctx, s.token, round.ID, testutil.WalletA)
		s.Require().NoError(err)
		s.True(st.Claimed)
	})

	s.Run("wallets without shares have nothing to claim", func() {
		_, err := s.svc.ClaimDividend(s.ctx, s.token, round.ID, testutil.WalletD)
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("unknown round", func() {
		_, err := s.svc.ClaimDividend(s.ctx, s.token, id.RoundID(uuid.New()), testutil.WalletA)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("expiry in the past is rejected", func() {
		_, err := s.svc.CreateDividendRound(s.ctx, s.token, models.DividendRound{
			PaymentToken: "USDC", Pool: 1, ExpiresAt: s.now.Add(-time.Hour),
		})
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *ServiceSuite) TestAppendTransaction() {
	s.Run("gate records are never accepted", func() {
		_, err := s.svc.AppendTransaction(s.ctx, ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypeMultisigPropose,
		})
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("gated types need a system caller", func() {
		_, err := s.svc.AppendTransaction(s.as(requestcontext.RoleAdmin, testutil.WalletA), ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypePause, Slot: 100,
			Payload: json.RawMessage(`{}`),
		})
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("indexer may append gated types", func() {
		recordID, err := s.svc.AppendTransaction(s.ctx, ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypePause, Slot: 100,
			Payload: json.RawMessage(`{"reason":"halted on chain"}`), TxSignature: "5VfYm1xSig",
		})
		s.Require().NoError(err)
		s.Positive(recordID)
		s.True(s.live().Paused)
	})

	s.Run("mint to an unlisted wallet is forbidden", func() {
		_, err := s.svc.AppendTransaction(s.ctx, ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypeMint, Slot: 100,
			Wallet: testutil.WalletE, Amount: 10,
		})
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("slot behind the head is invalid", func() {
		_, err := s.svc.AppendTransaction(s.ctx, ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypeMint, Slot: 50,
			Wallet: testutil.WalletA, Amount: 10,
		})
		s.requireCode(err, dErrors.CodeValidation)
		s.ErrorIs(err, ledgermodels.ErrInvalidRecord)
	})

	s.Run("burn beyond the balance conflicts with state", func() {
		_, err := s.svc.AppendTransaction(s.ctx, ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypeBurn, Slot: 100,
			Wallet: testutil.WalletD, Amount: 10,
		})
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *ServiceSuite) TestAppendTransactionAuthorization() {
	holderD := s.as(requestcontext.RoleWallet, testutil.WalletD)
	holderB := s.as(requestcontext.RoleWallet, testutil.WalletB)

	s.Run("wallet callers cannot issue shares", func() {
		for _, t := range []ledgermodels.RecordType{ledgermodels.TypeMint, ledgermodels.TypeShareGrant} {
			_, err := s.svc.AppendTransaction(holderD, ledgermodels.Record{
				TokenID: s.token, Type: t, Slot: 100, Wallet: testutil.WalletD, Amount: 1_000_000,
			})
			s.requireCode(err, dErrors.CodeForbidden)
		}
		s.Zero(s.live().Balance(testutil.WalletD))
	})

	s.Run("wallet callers cannot burn or change the allowlist", func() {
		_, err := s.svc.AppendTransaction(holderD, ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypeBurn, Slot: 100, Wallet: testutil.WalletA, Amount: 1,
		})
		s.requireCode(err, dErrors.CodeForbidden)
		_, err = s.svc.AppendTransaction(holderD, ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypeApproval, Slot: 100, Wallet: testutil.WalletE,
		})
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("wallet callers cannot move another holder's shares", func() {
		_, err := s.svc.AppendTransaction(holderD, ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypeTransfer, Slot: 100,
			Wallet: testutil.WalletA, WalletTo: testutil.WalletD, Amount: 500_000,
		})
		s.requireCode(err, dErrors.CodeForbidden)
		s.Equal(int64(1_000_000), s.live().Balance(testutil.WalletA))
	})

	s.Run("holders may feed their own transfers", func() {
		_, err := s.svc.AppendTransaction(s.as(requestcontext.RoleWallet, testutil.WalletA), ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypeTransfer, Slot: 100,
			Wallet: testutil.WalletA, WalletTo: testutil.WalletD, Amount: 10,
		})
		s.Require().NoError(err)
		s.Equal(int64(10), s.live().Balance(testutil.WalletD))
	})

	scheduleID, err := s.svc.CreateVestingSchedule(s.ctx, s.token, models.VestingGrant{
		Beneficiary:     testutil.WalletB,
		Total:           1000,
		StartTime:       s.now.Add(24 * time.Hour),
		DurationSeconds: 4 * 86400,
		Interval:        vesting.IntervalDay,
	})
	s.Require().NoError(err)
	release := func(amount int64) ledgermodels.Record {
		raw, err := json.Marshal(ledgermodels.VestingReleasePayload{ScheduleID: scheduleID.String()})
		s.Require().NoError(err)
		return ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypeVestingRelease, Slot: 100,
			Wallet: testutil.WalletB, Amount: amount, Payload: raw,
		}
	}

	s.Run("escrowed shares cannot be fed out", func() {
		_, err := s.svc.AppendTransaction(holderB, ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypeTransfer, Slot: 100,
			Wallet: testutil.WalletB, WalletTo: testutil.WalletA, Amount: 1,
		})
		s.requireCode(err, dErrors.CodeValidation)
		s.ErrorIs(err, models.ErrInsufficientBalance)
	})

	s.Run("release before vesting starts is rejected", func() {
		for _, ctx := range []context.Context{holderB, s.ctx} {
			_, err := s.svc.AppendTransaction(ctx, release(1000))
			s.requireCode(err, dErrors.CodeValidation)
			s.ErrorIs(err, models.ErrInsufficientVestedBalance)
		}
		st, err := s.svc.VestingStatus(s.ctx, s.token, scheduleID, time.Time{})
		s.Require().NoError(err)
		s.Zero(st.Released)
	})

	s.Run("release for another beneficiary is forbidden", func() {
		_, err := s.svc.AppendTransaction(holderD, release(1))
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("vested release is accepted", func() {
		later := requestcontext.WithTime(holderB, s.now.Add(72*time.Hour))
		_, err := s.svc.AppendTransaction(later, release(500))
		s.Require().NoError(err)
		st, err := s.svc.VestingStatus(later, s.token, scheduleID, time.Time{})
		s.Require().NoError(err)
		s.Equal(int64(500), st.Released)

		_, err = s.svc.AppendTransaction(later, release(1))
		s.ErrorIs(err, models.ErrInsufficientVestedBalance)
	})

	s.Run("governance records need the governance operations", func() {
		_, err := s.svc.AppendTransaction(s.ctx, ledgermodels.Record{
			TokenID: s.token, Type: ledgermodels.TypeGovernanceVote, Slot: 100, Wallet: testutil.WalletA,
		})
		s.requireCode(err, dErrors.CodeForbidden)
	})
}

func (s *ServiceSuite) TestTransactionsPaging() {
	// create, three approvals and one grant
	var (
		seen  []ledgermodels.Record
		after ledgermodels.Position
	)
	for range 3 {
		page, err := s.svc.Transactions(s.ctx, models.HistoryQuery{TokenID: s.token, ToSlot: -1, After: after, Limit: 2})
		s.Require().NoError(err)
		seen = append(seen, page.Records...)
		if page.Next == nil {
			break
		}
		after = *page.Next
	}
	s.Require().Len(seen, 5)
	for i, rec := range seen {
		s.Equal(int64(i+1), rec.Seq)
	}

	s.Run("type filter", func() {
		page, err := s.svc.Transactions(s.ctx, models.HistoryQuery{
			TokenID: s.token, ToSlot: -1, Types: []ledgermodels.RecordType{ledgermodels.TypeApproval},
		})
		s.Require().NoError(err)
		s.Len(page.Records, 3)
		s.Nil(page.Next)
	})

	s.Run("unknown type is rejected", func() {
		_, err := s.svc.Transactions(s.ctx, models.HistoryQuery{
			TokenID: s.token, ToSlot: -1, Types: []ledgermodels.RecordType{"BOGUS"},
		})
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *ServiceSuite) TestCorruptLogHaltsWrites() {
	// Written behind the service: D has no shares to send.
	_, err := s.log.Append(s.ctx, ledgermodels.Record{
		TokenID:     s.token,
		Slot:        100,
		BlockTime:   s.now,
		Type:        ledgermodels.TypeTransfer,
		Wallet:      testutil.WalletD,
		WalletTo:    testutil.WalletA,
		Amount:      5,
		TriggeredBy: ledgermodels.TriggeredBySystem,
	})
	s.Require().NoError(err)

	_, err = s.svc.GrantShares(s.ctx, s.token, testutil.WalletA, 1)
	s.requireCode(err, dErrors.CodeInvariantViolation)
	s.ErrorIs(err, projector.ErrCorruptLog)

	_, err = s.svc.GrantShares(s.ctx, s.token, testutil.WalletA, 1)
	s.requireCode(err, dErrors.CodeInvariantViolation)
	s.ErrorIs(err, models.ErrTokenHalted)

	_, err = s.svc.ProjectCapTable(s.ctx, s.token, models.Live())
	s.requireCode(err, dErrors.CodeInvariantViolation)
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.HaltedTokens))
}

func (s *ServiceSuite) TestMetrics() {
	s.Equal(float64(3), promtest.ToFloat64(s.metrics.RecordsAppended.WithLabelValues("APPROVAL")))

	txID, err := s.svc.ProposeAdminAction(s.as(requestcontext.RoleAdmin, testutil.WalletA), s.token, pause(""), testutil.WalletA)
	s.Require().NoError(err)
	_, err = s.svc.Execute(s.ctx, s.token, txID)
	s.Require().Error(err)

	s.Equal(float64(1), promtest.ToFloat64(s.metrics.GateTransitions.WithLabelValues("propose")))
	s.Equal(float64(1), promtest.ToFloat64(s.metrics.Rejections.WithLabelValues("execute", string(dErrors.CodeConflict))))
}

func (s *ServiceSuite) TestTranslate() {
	cases := []struct {
		err  error
		code dErrors.Code
	}{
		{ledgermodels.ErrInvalidRecord, dErrors.CodeValidation},
		{msmodels.ErrTxNotFound, dErrors.CodeNotFound},
		{msmodels.ErrNotInitialized, dErrors.CodeNotFound},
		{context.DeadlineExceeded, dErrors.CodeTimeout},
		{errors.New("boom"), dErrors.CodeInternal},
		{dErrors.New(dErrors.CodeConflict, "kept"), dErrors.CodeConflict},
	}
	for _, tc := range cases {
		s.Run(tc.err.Error(), func() {
			s.Equal(tc.code, dErrors.CodeOf(translate(tc.err)))
		})
	}
}
