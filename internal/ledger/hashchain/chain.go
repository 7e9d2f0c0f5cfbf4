// Package hashchain links each token's records into a tamper-evident chain:
// Hash = BLAKE2b-256(JCS(canonical record including PrevHash)).
package hashchain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/blake2b"

	"captable/internal/ledger/models"
)

// canonicalRecord excludes ID and CreatedAt: IDs are assigned by the backend
// after hashing and CreatedAt is informational.
type canonicalRecord struct {
	TokenID      string          `json:"token_id"`
	Seq          int64           `json:"seq"`
	Slot         int64           `json:"slot"`
	BlockTimeUs  int64           `json:"block_time_us"`
	Type         string          `json:"tx_type"`
	Wallet       string          `json:"wallet"`
	WalletTo     string          `json:"wallet_to"`
	Amount       int64           `json:"amount"`
	ShareClassID *int64          `json:"share_class_id"`
	Payload      json.RawMessage `json:"payload"`
	ReferenceID  string          `json:"reference_id"`
	TxSignature  string          `json:"tx_signature"`
	TriggeredBy  string          `json:"triggered_by"`
	PrevHash     string          `json:"prev_hash"`
}

// Canonical returns the JCS (RFC 8785) encoding hashed for rec.
func Canonical(rec models.Record) ([]byte, error) {
	payload := rec.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	raw, err := json.Marshal(canonicalRecord{
		TokenID:      rec.TokenID.String(),
		Seq:          rec.Seq,
		Slot:         rec.Slot,
		BlockTimeUs:  rec.BlockTime.UnixMicro(),
		Type:         string(rec.Type),
		Wallet:       rec.Wallet,
		WalletTo:     rec.WalletTo,
		Amount:       rec.Amount,
		ShareClassID: rec.ShareClassID,
		Payload:      payload,
		ReferenceID:  rec.ReferenceID,
		TxSignature:  rec.TxSignature,
		TriggeredBy:  string(rec.TriggeredBy),
		PrevHash:     rec.PrevHash,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal canonical record: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize record: %w", err)
	}
	return out, nil
}

// Compute returns the hex digest for rec, which must already carry PrevHash.
func Compute(rec models.Record) (string, error) {
	canonical, err := Canonical(rec)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Seal sets PrevHash and Hash on rec.
func Seal(prevHash string, rec models.Record) (models.Record, error) {
	rec.PrevHash = prevHash
	h, err := Compute(rec)
	if err != nil {
		return rec, err
	}
	rec.Hash = h
	return rec, nil
}

// Verify checks that rec links to prevHash and that its stored hash matches.
func Verify(prevHash string, rec models.Record) error {
	if rec.PrevHash != prevHash {
		return fmt.Errorf("record seq %d: prev_hash %q does not link to %q", rec.Seq, rec.PrevHash, prevHash)
	}
	h, err := Compute(rec)
	if err != nil {
		return err
	}
	if h != rec.Hash {
		return fmt.Errorf("record seq %d: hash mismatch", rec.Seq)
	}
	return nil
}
