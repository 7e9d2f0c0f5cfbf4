// Package handler exposes the token service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"captable/internal/captable/models"
	ledgermodels "captable/internal/ledger/models"
	msmodels "captable/internal/multisig/models"
	"captable/internal/projector"
	"captable/internal/vesting"
	id "captable/pkg/domain"
	dErrors "captable/pkg/domain-errors"
	"captable/pkg/platform/httputil"
	"captable/pkg/requestcontext"
)

// Service defines the token operations the handler serves.
type Service interface {
	CreateToken(ctx context.Context, cmd models.CreateToken) (ledgermodels.Record, error)
	AppendTransaction(ctx context.Context, rec ledgermodels.Record) (int64, error)
	ApproveWallet(ctx context.Context, tokenID id.TokenID, wallet string) (ledgermodels.Record, error)
	RevokeWallet(ctx context.Context, tokenID id.TokenID, wallet string) (ledgermodels.Record, error)
	GrantShares(ctx context.Context, tokenID id.TokenID, wallet string, amount int64) (ledgermodels.Record, error)
	Transfer(ctx context.Context, tokenID id.TokenID, from, to string, amount int64) (ledgermodels.Record, error)

	ProjectCapTable(ctx context.Context, tokenID id.TokenID, q models.SlotQuery) (projector.Snapshot, error)
	Transactions(ctx context.Context, q models.HistoryQuery) (models.HistoryPage, error)

	CreateVestingSchedule(ctx context.Context, tokenID id.TokenID, grant models.VestingGrant) (id.ScheduleID, error)
	ReleaseVested(ctx context.Context, tokenID id.TokenID, scheduleID id.ScheduleID, asOf time.Time, amount int64) (models.Release, error)
	VestingStatus(ctx context.Context, tokenID id.TokenID, scheduleID id.ScheduleID, asOf time.Time) (projector.VestingStatus, error)
	SchedulesOf(ctx context.Context, tokenID id.TokenID, wallet string) ([]vesting.Schedule, error)

	CreateDividendRound(ctx context.Context, tokenID id.TokenID, round models.DividendRound) (projector.DividendRound, error)
	ClaimDividend(ctx context.Context, tokenID id.TokenID, roundID id.RoundID, wallet string) (int64, error)
	DividendStatus(ctx context.Context, tokenID id.TokenID, roundID id.RoundID, wallet string) (projector.DividendStatus, error)

	MultiSigConfig(ctx context.Context, tokenID id.TokenID) (msmodels.Config, error)
	UpdateThreshold(ctx context.Context, tokenID id.TokenID, newThreshold int, nonce uint64) (msmodels.Config, error)
	ProposeAdminAction(ctx context.Context, tokenID id.TokenID, ins msmodels.Instruction, proposer string) (string, error)
	Approve(ctx context.Context, tokenID id.TokenID, txID, signer string) (msmodels.GateState, error)
	Execute(ctx context.Context, tokenID id.TokenID, txID string) (msmodels.ExecutionResult, error)
	CancelAdminAction(ctx context.Context, tokenID id.TokenID, txID, caller, reason string) (msmodels.GateState, error)
	PendingTransactions(ctx context.Context, tokenID id.TokenID, activeOnly bool) ([]msmodels.PendingTx, error)
	PendingTransaction(ctx context.Context, tokenID id.TokenID, txID string) (msmodels.PendingTx, error)

	CreateGovernanceProposal(ctx context.Context, tokenID id.TokenID, prop models.GovernanceProposal) (projector.Proposal, error)
	CastVote(ctx context.Context, tokenID id.TokenID, proposalID id.ProposalID, voter string, choice projector.VoteChoice) (projector.Proposal, error)
	FinalizeGovernanceProposal(ctx context.Context, tokenID id.TokenID, proposalID id.ProposalID) (projector.Proposal, error)
	CancelGovernanceProposal(ctx context.Context, tokenID id.TokenID, proposalID id.ProposalID, caller, reason string) (projector.Proposal, error)
	ExecuteGovernanceProposal(ctx context.Context, tokenID id.TokenID, proposalID id.ProposalID) (projector.Proposal, error)
	GovernanceProposal(ctx context.Context, tokenID id.TokenID, proposalID id.ProposalID) (projector.Proposal, error)
	GovernanceProposals(ctx context.Context, tokenID id.TokenID) ([]projector.Proposal, error)
	VotingPower(ctx context.Context, tokenID id.TokenID, wallet string) (int64, error)
}

// Handler wires token endpoints to the token service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a token handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts token endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/tokens", h.HandleCreateToken)
	r.Route("/tokens/{tokenID}", func(r chi.Router) {
		r.Get("/cap-table", h.HandleCapTable)
		r.Get("/transactions", h.HandleTransactions)
		r.Post("/transactions", h.HandleAppendTransaction)

		r.Post("/allowlist", h.HandleApproveWallet)
		r.Delete("/allowlist/{wallet}", h.HandleRevokeWallet)
		r.Post("/grants", h.HandleGrant)
		r.Post("/transfers", h.HandleTransfer)

		r.Post("/vesting", h.HandleCreateSchedule)
		r.Get("/vesting/{scheduleID}", h.HandleVestingStatus)
		r.Post("/vesting/{scheduleID}/release", h.HandleRelease)
		r.Get("/wallets/{wallet}/vesting", h.HandleWalletSchedules)

		r.Post("/dividends", h.HandleCreateDividend)
		r.Post("/dividends/{roundID}/claims", h.HandleClaimDividend)
		r.Get("/dividends/{roundID}/wallets/{wallet}", h.HandleDividendStatus)

		r.Route("/multisig", func(r chi.Router) {
			r.Get("/", h.HandleMultiSigConfig)
			r.Put("/threshold", h.HandleUpdateThreshold)
			r.Get("/proposals", h.HandleListProposals)
			r.Post("/proposals", h.HandlePropose)
			r.Get("/proposals/{txID}", h.HandleGetProposal)
			r.Post("/proposals/{txID}/approvals", h.HandleApprove)
			r.Post("/proposals/{txID}/execute", h.HandleExecute)
			r.Post("/proposals/{txID}/cancel", h.HandleCancel)
		})

		r.Route("/governance", func(r chi.Router) {
			r.Get("/proposals", h.HandleListGovernanceProposals)
			r.Post("/proposals", h.HandleCreateGovernanceProposal)
			r.Get("/proposals/{proposalID}", h.HandleGetGovernanceProposal)
			r.Post("/proposals/{proposalID}/votes", h.HandleCastVote)
			r.Post("/proposals/{proposalID}/finalize", h.HandleFinalizeGovernanceProposal)
			r.Post("/proposals/{proposalID}/cancel", h.HandleCancelGovernanceProposal)
			r.Post("/proposals/{proposalID}/execute", h.HandleExecuteGovernanceProposal)
			r.Get("/voting-power/{wallet}", h.HandleVotingPower)
		})
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error, attrs ...any) {
	ctx := r.Context()
	attrs = append(attrs,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	// Rejections are the caller's problem; everything else is ours.
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		h.logger.ErrorContext(ctx, op+" failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, op+" rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

func tokenParam(r *http.Request) (id.TokenID, error) {
	return id.ParseTokenID(chi.URLParam(r, "tokenID"))
}

func walletParam(r *http.Request) (string, error) {
	w, err := id.ParseWallet(chi.URLParam(r, "wallet"))
	return w.String(), err
}

// orCaller defaults an omitted wallet to the authenticated caller's.
func orCaller(ctx context.Context, wallet string) string {
	if wallet != "" {
		return wallet
	}
	return requestcontext.Wallet(ctx)
}

func queryInt(r *http.Request, key string, def int64) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, key+" must be an integer")
	}
	return v, nil
}

func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, key+" must be an RFC 3339 time")
	}
	return t, nil
}

// HandleCreateToken handles POST /tokens.
func (h *Handler) HandleCreateToken(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[CreateTokenRequest](w, r, h.logger)
	if !ok {
		return
	}
	rec, err := h.service.CreateToken(r.Context(), req.toModel())
	if err != nil {
		h.fail(w, r, "create token", err, "symbol", req.Symbol)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, TokenResponse{TokenID: rec.TokenID, Record: rec})
}

// HandleCapTable handles GET /tokens/{tokenID}/cap-table. Without ?slot the
// live table is returned.
func (h *Handler) HandleCapTable(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q := models.Live()
	if raw := r.URL.Query().Get("slot"); raw != "" && raw != "live" {
		slot, err := queryInt(r, "slot", 0)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		q = models.AtSlot(slot)
	}
	snap, err := h.service.ProjectCapTable(r.Context(), tokenID, q)
	if err != nil {
		h.fail(w, r, "project cap table", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// HandleTransactions handles GET /tokens/{tokenID}/transactions.
func (h *Handler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q := models.HistoryQuery{TokenID: tokenID}
	var limit int64
	for _, p := range []struct {
		key string
		def int64
		dst *int64
	}{
		{"from_slot", 0, &q.FromSlot},
		{"to_slot", -1, &q.ToSlot},
		{"after_slot", 0, &q.After.Slot},
		{"after_seq", 0, &q.After.Seq},
		{"limit", 0, &limit},
	} {
		if *p.dst, err = queryInt(r, p.key, p.def); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	q.Limit = int(limit)
	for _, raw := range r.URL.Query()["type"] {
		for t := range strings.SplitSeq(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Types = append(q.Types, ledgermodels.RecordType(strings.ToUpper(t)))
			}
		}
	}

	page, err := h.service.Transactions(r.Context(), q)
	if err != nil {
		h.fail(w, r, "list transactions", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// HandleAppendTransaction handles POST /tokens/{tokenID}/transactions.
func (h *Handler) HandleAppendTransaction(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AppendTransactionRequest](w, r, h.logger)
	if !ok {
		return
	}
	recordID, err := h.service.AppendTransaction(r.Context(), req.toRecord(tokenID))
	if err != nil {
		h.fail(w, r, "append transaction", err, "token_id", tokenID.String(), "tx_type", req.Type)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, AppendResponse{ID: recordID})
}

// HandleApproveWallet handles POST /tokens/{tokenID}/allowlist.
func (h *Handler) HandleApproveWallet(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[WalletRequest](w, r, h.logger)
	if !ok {
		return
	}
	rec, err := h.service.ApproveWallet(r.Context(), tokenID, req.Wallet)
	if err != nil {
		h.fail(w, r, "approve wallet", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, RecordResponse{Record: rec})
}

// HandleRevokeWallet handles DELETE /tokens/{tokenID}/allowlist/{wallet}.
func (h *Handler) HandleRevokeWallet(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	wallet, err := walletParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.RevokeWallet(r.Context(), tokenID, wallet)
	if err != nil {
		h.fail(w, r, "revoke wallet", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RecordResponse{Record: rec})
}

// HandleGrant handles POST /tokens/{tokenID}/grants.
func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[GrantRequest](w, r, h.logger)
	if !ok {
		return
	}
	rec, err := h.service.GrantShares(r.Context(), tokenID, req.Wallet, req.Amount)
	if err != nil {
		h.fail(w, r, "grant shares", err, "token_id", tokenID.String(), "amount", req.Amount)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, RecordResponse{Record: rec})
}

// HandleTransfer handles POST /tokens/{tokenID}/transfers.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger)
	if !ok {
		return
	}
	rec, err := h.service.Transfer(ctx, tokenID, orCaller(ctx, req.From), req.To, req.Amount)
	if err != nil {
		h.fail(w, r, "transfer", err, "token_id", tokenID.String(), "amount", req.Amount)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, RecordResponse{Record: rec})
}

// HandleCreateSchedule handles POST /tokens/{tokenID}/vesting.
func (h *Handler) HandleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[VestingScheduleRequest](w, r, h.logger)
	if !ok {
		return
	}
	scheduleID, err := h.service.CreateVestingSchedule(r.Context(), tokenID, req.toModel())
	if err != nil {
		h.fail(w, r, "create vesting schedule", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ScheduleResponse{ScheduleID: scheduleID})
}

// HandleVestingStatus handles GET /tokens/{tokenID}/vesting/{scheduleID}.
func (h *Handler) HandleVestingStatus(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	asOf, err := queryTime(r, "as_of")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.service.VestingStatus(r.Context(), tokenID, scheduleID, asOf)
	if err != nil {
		h.fail(w, r, "vesting status", err, "token_id", tokenID.String(), "schedule_id", scheduleID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleRelease handles POST /tokens/{tokenID}/vesting/{scheduleID}/release.
func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReleaseRequest](w, r, h.logger)
	if !ok {
		return
	}
	release, err := h.service.ReleaseVested(r.Context(), tokenID, scheduleID, req.asOf(), req.Amount)
	if err != nil {
		h.fail(w, r, "release vested", err, "token_id", tokenID.String(), "schedule_id", scheduleID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, release)
}

// HandleWalletSchedules handles GET /tokens/{tokenID}/wallets/{wallet}/vesting.
func (h *Handler) HandleWalletSchedules(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	wallet, err := walletParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	schedules, err := h.service.SchedulesOf(r.Context(), tokenID, wallet)
	if err != nil {
		h.fail(w, r, "list schedules", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}

// HandleCreateDividend handles POST /tokens/{tokenID}/dividends.
func (h *Handler) HandleCreateDividend(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[DividendRoundRequest](w, r, h.logger)
	if !ok {
		return
	}
	round, err := h.service.CreateDividendRound(r.Context(), tokenID, req.toModel())
	if err != nil {
		h.fail(w, r, "create dividend round", err, "token_id", tokenID.String(), "pool", req.Pool)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, round)
}

// HandleClaimDividend handles POST /tokens/{tokenID}/dividends/{roundID}/claims.
func (h *Handler) HandleClaimDividend(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	roundID, err := id.ParseRoundID(chi.URLParam(r, "roundID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[WalletRequest](w, r, h.logger)
	if !ok {
		return
	}
	amount, err := h.service.ClaimDividend(r.Context(), tokenID, roundID, req.Wallet)
	if err != nil {
		h.fail(w, r, "claim dividend", err, "token_id", tokenID.String(), "round_id", roundID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ClaimResponse{RoundID: roundID, Wallet: req.Wallet, Amount: amount})
}

// HandleDividendStatus handles GET /tokens/{tokenID}/dividends/{roundID}/wallets/{wallet}.
func (h *Handler) HandleDividendStatus(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	roundID, err := id.ParseRoundID(chi.URLParam(r, "roundID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	wallet, err := walletParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := h.service.DividendStatus(r.Context(), tokenID, roundID, wallet)
	if err != nil {
		h.fail(w, r, "dividend status", err, "token_id", tokenID.String(), "round_id", roundID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, status)
}

// HandleMultiSigConfig handles GET /tokens/{tokenID}/multisig.
func (h *Handler) HandleMultiSigConfig(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cfg, err := h.service.MultiSigConfig(r.Context(), tokenID)
	if err != nil {
		h.fail(w, r, "multisig config", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

// HandleUpdateThreshold handles PUT /tokens/{tokenID}/multisig/threshold.
func (h *Handler) HandleUpdateThreshold(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ThresholdRequest](w, r, h.logger)
	if !ok {
		return
	}
	cfg, err := h.service.UpdateThreshold(r.Context(), tokenID, req.Threshold, req.Nonce)
	if err != nil {
		h.fail(w, r, "update threshold", err, "token_id", tokenID.String(), "threshold", req.Threshold)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

// HandleListProposals handles GET /tokens/{tokenID}/multisig/proposals.
func (h *Handler) HandleListProposals(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		if activeOnly, err = strconv.ParseBool(raw); err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "active must be a boolean"))
			return
		}
	}
	pending, err := h.service.PendingTransactions(r.Context(), tokenID, activeOnly)
	if err != nil {
		h.fail(w, r, "list proposals", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"proposals": pending})
}

// HandlePropose handles POST /tokens/{tokenID}/multisig/proposals.
func (h *Handler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ProposeRequest](w, r, h.logger)
	if !ok {
		return
	}
	txID, err := h.service.ProposeAdminAction(ctx, tokenID, req.Instruction, orCaller(ctx, req.Proposer))
	if err != nil {
		h.fail(w, r, "propose", err, "token_id", tokenID.String(), "kind", req.Instruction.Kind)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ProposalResponse{TxID: txID})
}

// HandleGetProposal handles GET /tokens/{tokenID}/multisig/proposals/{txID}.
func (h *Handler) HandleGetProposal(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pending, err := h.service.PendingTransaction(r.Context(), tokenID, chi.URLParam(r, "txID"))
	if err != nil {
		h.fail(w, r, "get proposal", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pending)
}

// HandleApprove handles POST .../multisig/proposals/{txID}/approvals.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SignerRequest](w, r, h.logger)
	if !ok {
		return
	}
	txID := chi.URLParam(r, "txID")
	state, err := h.service.Approve(ctx, tokenID, txID, orCaller(ctx, req.Signer))
	if err != nil {
		h.fail(w, r, "approve", err, "token_id", tokenID.String(), "tx_id", txID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

// HandleExecute handles POST .../multisig/proposals/{txID}/execute.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	txID := chi.URLParam(r, "txID")
	result, err := h.service.Execute(r.Context(), tokenID, txID)
	if err != nil {
		h.fail(w, r, "execute", err, "token_id", tokenID.String(), "tx_id", txID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleCancel handles POST .../multisig/proposals/{txID}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SignerRequest](w, r, h.logger)
	if !ok {
		return
	}
	txID := chi.URLParam(r, "txID")
	state, err := h.service.CancelAdminAction(ctx, tokenID, txID, orCaller(ctx, req.Signer), req.Reason)
	if err != nil {
		h.fail(w, r, "cancel", err, "token_id", tokenID.String(), "tx_id", txID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

func proposalParam(r *http.Request) (id.ProposalID, error) {
	return id.ParseProposalID(chi.URLParam(r, "proposalID"))
}

// HandleListGovernanceProposals handles GET /tokens/{tokenID}/governance/proposals.
func (h *Handler) HandleListGovernanceProposals(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proposals, err := h.service.GovernanceProposals(r.Context(), tokenID)
	if err != nil {
		h.fail(w, r, "list governance proposals", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, proposals)
}

// HandleCreateGovernanceProposal handles POST /tokens/{tokenID}/governance/proposals.
func (h *Handler) HandleCreateGovernanceProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[GovernanceProposalRequest](w, r, h.logger)
	if !ok {
		return
	}
	proposal, err := h.service.CreateGovernanceProposal(ctx, tokenID, req.toModel(orCaller(ctx, req.Proposer)))
	if err != nil {
		h.fail(w, r, "create governance proposal", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, proposal)
}

// HandleGetGovernanceProposal handles GET .../governance/proposals/{proposalID}.
func (h *Handler) HandleGetGovernanceProposal(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proposalID, err := proposalParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proposal, err := h.service.GovernanceProposal(r.Context(), tokenID, proposalID)
	if err != nil {
		h.fail(w, r, "get governance proposal", err, "token_id", tokenID.String(), "proposal_id", proposalID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, proposal)
}

// HandleCastVote handles POST .../governance/proposals/{proposalID}/votes.
func (h *Handler) HandleCastVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proposalID, err := proposalParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[VoteRequest](w, r, h.logger)
	if !ok {
		return
	}
	proposal, err := h.service.CastVote(ctx, tokenID, proposalID, orCaller(ctx, req.Voter), projector.VoteChoice(req.Choice))
	if err != nil {
		h.fail(w, r, "cast vote", err, "token_id", tokenID.String(), "proposal_id", proposalID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, proposal)
}

// HandleFinalizeGovernanceProposal handles POST .../governance/proposals/{proposalID}/finalize.
func (h *Handler) HandleFinalizeGovernanceProposal(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proposalID, err := proposalParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proposal, err := h.service.FinalizeGovernanceProposal(r.Context(), tokenID, proposalID)
	if err != nil {
		h.fail(w, r, "finalize governance proposal", err, "token_id", tokenID.String(), "proposal_id", proposalID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, proposal)
}

// HandleCancelGovernanceProposal handles POST .../governance/proposals/{proposalID}/cancel.
func (h *Handler) HandleCancelGovernanceProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proposalID, err := proposalParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SignerRequest](w, r, h.logger)
	if !ok {
		return
	}
	proposal, err := h.service.CancelGovernanceProposal(ctx, tokenID, proposalID, orCaller(ctx, req.Signer), req.Reason)
	if err != nil {
		h.fail(w, r, "cancel governance proposal", err, "token_id", tokenID.String(), "proposal_id", proposalID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, proposal)
}

// HandleExecuteGovernanceProposal handles POST .../governance/proposals/{proposalID}/execute.
func (h *Handler) HandleExecuteGovernanceProposal(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proposalID, err := proposalParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	proposal, err := h.service.ExecuteGovernanceProposal(r.Context(), tokenID, proposalID)
	if err != nil {
		h.fail(w, r, "execute governance proposal", err, "token_id", tokenID.String(), "proposal_id", proposalID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, proposal)
}

// HandleVotingPower handles GET /tokens/{tokenID}/governance/voting-power/{wallet}.
func (h *Handler) HandleVotingPower(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	wallet, err := walletParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	power, err := h.service.VotingPower(r.Context(), tokenID, wallet)
	if err != nil {
		h.fail(w, r, "voting power", err, "token_id", tokenID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VotingPowerResponse{Wallet: wallet, Power: power})
}
