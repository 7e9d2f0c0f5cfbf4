package validation

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"captable/internal/ledger/models"
	id "captable/pkg/domain"
	"captable/pkg/testutil"
)

type ValidatorSuite struct {
	suite.Suite
	v     *Validator
	token id.TokenID
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) SetupSuite() {
	v, err := New()
	s.Require().NoError(err)
	s.v = v
	s.token = id.TokenID(uuid.New())
}

func (s *ValidatorSuite) record(t models.RecordType, payload any) models.Record {
	rec := models.Record{
		TokenID:     s.token,
		Slot:        100,
		BlockTime:   time.Unix(1_700_000_000, 0).UTC(),
		Type:        t,
		TriggeredBy: models.TriggeredByAdmin,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		s.Require().NoError(err)
		rec.Payload = raw
	}
	return rec
}

func (s *ValidatorSuite) assertInvalid(rec models.Record, contains string) {
	err := s.v.Validate(rec)
	s.Require().Error(err)
	s.True(errors.Is(err, models.ErrInvalidRecord))
	s.Contains(err.Error(), contains)
}

func (s *ValidatorSuite) TestStructuralRules() {
	s.Run("negative slot", func() {
		rec := s.record(models.TypeShareGrant, nil)
		rec.Wallet, rec.Amount, rec.Slot = testutil.WalletA, 10, -1
		s.assertInvalid(rec, "slot must be non-negative")
	})

	s.Run("grant without amount", func() {
		rec := s.record(models.TypeShareGrant, nil)
		rec.Wallet = testutil.WalletA
		s.assertInvalid(rec, "requires a positive amount")
	})

	s.Run("negative amount", func() {
		rec := s.record(models.TypeShareGrant, nil)
		rec.Wallet, rec.Amount = testutil.WalletA, -5
		s.assertInvalid(rec, "must not be negative")
	})

	s.Run("unknown type", func() {
		s.assertInvalid(s.record("AIRDROP", nil), "unknown tx_type")
	})

	s.Run("transfer to self", func() {
		rec := s.record(models.TypeTransfer, nil)
		rec.Wallet, rec.WalletTo, rec.Amount = testutil.WalletA, testutil.WalletA, 1
		s.assertInvalid(rec, "must differ")
	})

	s.Run("payload on payload-free type", func() {
		rec := s.record(models.TypeShareGrant, map[string]any{"x": 1})
		rec.Wallet, rec.Amount = testutil.WalletA, 10
		s.assertInvalid(rec, "carries no payload")
	})

	s.Run("valid grant", func() {
		rec := s.record(models.TypeShareGrant, nil)
		rec.Wallet, rec.Amount = testutil.WalletA, 1_000_000
		s.NoError(s.v.Validate(rec))
	})
}

func (s *ValidatorSuite) TestPayloadSchemas() {
	s.Run("split requires both terms", func() {
		s.assertInvalid(s.record(models.TypeStockSplit, map[string]any{"numerator": 2}), "STOCK_SPLIT payload")
	})

	s.Run("split rejects zero denominator", func() {
		rec := s.record(models.TypeStockSplit, models.StockSplitPayload{Numerator: 2, Denominator: 0})
		s.assertInvalid(rec, "STOCK_SPLIT payload")
	})

	s.Run("valid split", func() {
		rec := s.record(models.TypeStockSplit, models.StockSplitPayload{Numerator: 2, Denominator: 1})
		s.NoError(s.v.Validate(rec))
	})

	s.Run("symbol must be upper alnum up to ten chars", func() {
		s.assertInvalid(s.record(models.TypeSymbolChange, models.SymbolChangePayload{NewSymbol: "lower"}), "SYMBOL_CHANGE")
		s.assertInvalid(s.record(models.TypeSymbolChange, models.SymbolChangePayload{NewSymbol: "ABCDEFGHIJK"}), "SYMBOL_CHANGE")
		s.NoError(s.v.Validate(s.record(models.TypeSymbolChange, models.SymbolChangePayload{NewSymbol: "ACME2"})))
	})

	s.Run("vesting schedule needs uuid and known interval", func() {
		rec := s.record(models.TypeVestingScheduleCreate, models.VestingSchedulePayload{
			ScheduleID: "not-a-uuid", StartTime: 1, DurationSeconds: 10, Interval: "day",
		})
		rec.Wallet, rec.Amount = testutil.WalletA, 1000
		s.assertInvalid(rec, "VESTING_SCHEDULE_CREATE")

		rec = s.record(models.TypeVestingScheduleCreate, models.VestingSchedulePayload{
			ScheduleID: uuid.NewString(), StartTime: 1, DurationSeconds: 10, Interval: "fortnight",
		})
		rec.Wallet, rec.Amount = testutil.WalletA, 1000
		s.assertInvalid(rec, "VESTING_SCHEDULE_CREATE")
	})

	s.Run("instruction union carries exactly one variant", func() {
		payload := map[string]any{
			"tx_id": "0-1", "nonce": 0, "created_at": 1,
			"instruction": map[string]any{
				"kind":        "stock_split",
				"stock_split": map[string]any{"numerator": 2, "denominator": 1},
				"pause":       map[string]any{},
			},
		}
		rec := s.record(models.TypeMultisigPropose, payload)
		rec.Wallet = testutil.WalletA
		s.assertInvalid(rec, "MULTISIG_PROPOSE")
	})

	s.Run("valid proposal", func() {
		rec := s.record(models.TypeMultisigPropose, models.MultisigProposePayload{
			TxID: "0-1", Nonce: 0, CreatedAt: 1,
			Instruction: models.InstructionPayload{
				Kind:       "stock_split",
				StockSplit: &models.StockSplitPayload{Numerator: 2, Denominator: 1},
			},
		})
		rec.Wallet = testutil.WalletA
		s.NoError(s.v.Validate(rec))
	})

	s.Run("governance actions are limited to token-level kinds", func() {
		propose := models.GovernanceProposePayload{
			ProposalID: uuid.NewString(), Description: "pause trading",
			VotingStarts: 10, VotingEnds: 20, QuorumPct: 10, ApprovalPct: 66, ExecutionDelay: 5,
			Action: &models.InstructionPayload{Kind: "pause", Pause: &models.PausePayload{Reason: "vote"}},
		}
		rec := s.record(models.TypeGovernancePropose, propose)
		rec.Wallet = testutil.WalletA
		s.NoError(s.v.Validate(rec))

		propose.Action = &models.InstructionPayload{Kind: "threshold_update", ThresholdUpdate: &models.ThresholdChange{Threshold: 1}}
		rec = s.record(models.TypeGovernancePropose, propose)
		rec.Wallet = testutil.WalletA
		s.assertInvalid(rec, "GOVERNANCE_PROPOSE")
	})

	s.Run("vote choice and voter", func() {
		rec := s.record(models.TypeGovernanceVote, models.GovernanceVotePayload{ProposalID: uuid.NewString(), Choice: "maybe"})
		rec.Wallet = testutil.WalletA
		s.assertInvalid(rec, "GOVERNANCE_VOTE")

		rec = s.record(models.TypeGovernanceVote, models.GovernanceVotePayload{ProposalID: uuid.NewString(), Choice: "for"})
		s.assertInvalid(rec, "requires wallet")
		rec.Wallet = testutil.WalletA
		s.NoError(s.v.Validate(rec))
	})

	s.Run("token create rejects malformed signer", func() {
		rec := s.record(models.TypeTokenCreate, models.TokenCreatePayload{
			Symbol: "ACME", Name: "Acme", Signers: []string{"0xdeadbeef"}, Threshold: 1,
		})
		s.assertInvalid(rec, "TOKEN_CREATE")
	})
}

func TestEveryTypeHasSchemaEntry(t *testing.T) {
	for _, recordType := range models.AllTypes {
		_, ok := schemas[recordType]
		assert.True(t, ok, "missing schema entry for %s", recordType)
	}
	_, err := New()
	require.NoError(t, err)
}
