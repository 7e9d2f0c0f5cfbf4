package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"captable/internal/captable/mocks"
	"captable/internal/captable/models"
	ledgermodels "captable/internal/ledger/models"
	ledger "captable/internal/ledger/service"
	"captable/internal/ledger/store"
	"captable/internal/outbox"
	"captable/internal/platform/kafka/consumer"
	"captable/internal/projector"
	"captable/internal/snapshotcache"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
	"captable/pkg/platform/sentinel"
	"captable/pkg/requestcontext"
	"captable/pkg/testutil"
)

type harness struct {
	svc *Service
	ctx context.Context
}

func newHarness(t *testing.T, slots *mocks.MockSlotSource, opts ...Option) harness {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log, err := ledger.New(store.NewInMemory())
	require.NoError(t, err)
	proj, err := projector.New(log, projector.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	cache, err := snapshotcache.New(proj, snapshotcache.NewInMemory())
	require.NoError(t, err)
	opts = append(opts, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	svc, err := New(log, cache, slots, opts...)
	require.NoError(t, err)
	return harness{svc: svc, ctx: requestcontext.WithTime(context.Background(), now)}
}

func singleSigner() models.CreateToken {
	return models.CreateToken{Symbol: "ACME", Name: "Acme", Signers: []string{testutil.WalletA}, Threshold: 1}
}

func TestSlotSourceFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	slots := mocks.NewMockSlotSource(ctrl)
	h := newHarness(t, slots)

	slots.EXPECT().CurrentSlot(gomock.Any()).Return(int64(0), sentinel.ErrUnavailable)
	rec, err := h.svc.CreateToken(h.ctx, singleSigner())
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Slot)

	slots.EXPECT().CurrentSlot(gomock.Any()).Return(int64(42), nil)
	approval, err := h.svc.ApproveWallet(h.ctx, rec.TokenID, testutil.WalletA)
	require.NoError(t, err)
	assert.Equal(t, int64(42), approval.Slot)

	t.Run("slot never runs behind the log head", func(t *testing.T) {
		slots.EXPECT().CurrentSlot(gomock.Any()).Return(int64(7), nil)
		grant, err := h.svc.GrantShares(h.ctx, rec.TokenID, testutil.WalletA, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(42), grant.Slot)
	})
}

func TestOutboxFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	slots := mocks.NewMockSlotSource(ctrl)
	slots.EXPECT().CurrentSlot(gomock.Any()).Return(int64(10), nil).AnyTimes()
	writer := mocks.NewMockOutboxWriter(ctrl)
	h := newHarness(t, slots, WithOutbox(writer))

	var entries []outbox.Entry
	writer.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e outbox.Entry) error {
		entries = append(entries, e)
		return nil
	}).Times(2)
	rec, err := h.svc.CreateToken(h.ctx, singleSigner())
	require.NoError(t, err)
	_, err = h.svc.ApproveWallet(h.ctx, rec.TokenID, testutil.WalletA)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, rec.TokenID.String(), entries[0].AggregateID)
	assert.Equal(t, "APPROVAL", entries[1].EventType)

	writer.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("outbox table missing"))
	_, err = h.svc.GrantShares(h.ctx, rec.TokenID, testutil.WalletA, 10)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	t.Run("without a transaction the record stays and the book reloads", func(t *testing.T) {
		writer.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		_, err := h.svc.GrantShares(h.ctx, rec.TokenID, testutil.WalletA, 10)
		require.NoError(t, err)
		snap, err := h.svc.ProjectCapTable(h.ctx, rec.TokenID, models.Live())
		require.NoError(t, err)
		assert.Equal(t, int64(20), snap.Balance(testutil.WalletA))
	})
}

func TestTxRunner(t *testing.T) {
	ctrl := gomock.NewController(t)
	slots := mocks.NewMockSlotSource(ctrl)
	slots.EXPECT().CurrentSlot(gomock.Any()).Return(int64(10), nil).AnyTimes()
	runner := mocks.NewMockTxRunner(ctrl)
	h := newHarness(t, slots, WithTxRunner(runner))

	t.Run("writes run inside the runner", func(t *testing.T) {
		runner.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, fn func(context.Context) error) error {
				return fn(ctx)
			})
		_, err := h.svc.CreateToken(h.ctx, singleSigner())
		require.NoError(t, err)
	})

	t.Run("backend failure is unavailable", func(t *testing.T) {
		runner.EXPECT().RunInTx(gomock.Any(), gomock.Any()).Return(sentinel.ErrUnavailable)
		_, err := h.svc.CreateToken(h.ctx, singleSigner())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func TestExternalAllowlist(t *testing.T) {
	ctrl := gomock.NewController(t)
	slots := mocks.NewMockSlotSource(ctrl)
	slots.EXPECT().CurrentSlot(gomock.Any()).Return(int64(10), nil).AnyTimes()
	checker := mocks.NewMockAllowlistChecker(ctrl)
	h := newHarness(t, slots, WithAllowlist(checker))

	rec, err := h.svc.CreateToken(h.ctx, singleSigner())
	require.NoError(t, err)
	_, err = h.svc.ApproveWallet(h.ctx, rec.TokenID, testutil.WalletA)
	require.NoError(t, err)

	t.Run("on-log approval without clearance is forbidden", func(t *testing.T) {
		checker.EXPECT().IsAllowed(gomock.Any(), rec.TokenID, testutil.WalletA).Return(false, nil)
		_, err := h.svc.GrantShares(h.ctx, rec.TokenID, testutil.WalletA, 10)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		assert.ErrorIs(t, err, models.ErrNotAllowlisted)
	})

	t.Run("cleared wallet is granted", func(t *testing.T) {
		checker.EXPECT().IsAllowed(gomock.Any(), rec.TokenID, testutil.WalletA).Return(true, nil)
		_, err := h.svc.GrantShares(h.ctx, rec.TokenID, testutil.WalletA, 10)
		require.NoError(t, err)
	})

	t.Run("unlisted wallet never reaches the checker", func(t *testing.T) {
		_, err := h.svc.GrantShares(h.ctx, rec.TokenID, testutil.WalletB, 10)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestLogConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	slots := mocks.NewMockSlotSource(ctrl)
	slots.EXPECT().CurrentSlot(gomock.Any()).Return(int64(10), nil).AnyTimes()
	eventLog := mocks.NewMockEventLog(ctrl)
	snapshots := mocks.NewMockSnapshots(ctrl)
	svc, err := New(eventLog, snapshots, slots, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	empty, err := ledger.New(store.NewInMemory())
	require.NoError(t, err)
	ctx := context.Background()
	eventLog.EXPECT().Scan(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, q ledger.RangeQuery) *ledger.Iterator {
			return empty.Scan(ctx, q)
		}).AnyTimes()
	eventLog.EXPECT().Append(gomock.Any(), gomock.Any()).Return(ledgermodels.Record{}, sentinel.ErrConflict)

	_, err = svc.CreateToken(ctx, singleSigner())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRecordEventHandlerForgetsLiveSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	snapshots := mocks.NewMockSnapshots(ctrl)
	log, err := ledger.New(store.NewInMemory())
	require.NoError(t, err)
	svc, err := New(log, snapshots, mocks.NewMockSlotSource(ctrl),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)
	handler := svc.RecordEventHandler()
	ctx := context.Background()

	t.Run("record event for a token", func(t *testing.T) {
		tokenID := id.TokenID(uuid.New())
		entry, err := outbox.NewRecordEntry(ledgermodels.Record{
			TokenID: tokenID,
			Seq:     3,
			Slot:    120,
			Type:    ledgermodels.TypeShareGrant,
			Amount:  10,
		}, time.Now())
		require.NoError(t, err)

		snapshots.EXPECT().Forget(tokenID)
		require.NoError(t, handler.Handle(ctx, &consumer.Message{Topic: "captable.records", Value: entry.Payload}))
	})

	t.Run("undecodable payload is skipped", func(t *testing.T) {
		require.NoError(t, handler.Handle(ctx, &consumer.Message{Value: []byte("{")}))
	})

	t.Run("invalid token id is skipped", func(t *testing.T) {
		require.NoError(t, handler.Handle(ctx, &consumer.Message{Value: []byte(`{"token_id":"nope"}`)}))
	})
}
