// Package validation enforces the structural invariants the event log checks
// before any record is persisted. It never consults token state.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"captable/internal/ledger/models"
)

// Validator holds one compiled schema per record type.
type Validator struct {
	schemas map[models.RecordType]*jsonschema.Schema
}

// New compiles every payload schema.
func New() (*Validator, error) {
	v := &Validator{schemas: make(map[models.RecordType]*jsonschema.Schema, len(schemas))}
	for recordType, schema := range schemas {
		if schema == "" {
			continue
		}
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		c.AssertFormat = true
		url := fmt.Sprintf("https://captable.schemas.local/records/%s.schema.json", strings.ToLower(string(recordType)))
		if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
			return nil, fmt.Errorf("load %s schema: %w", recordType, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", recordType, err)
		}
		v.schemas[recordType] = compiled
	}
	return v, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidRecord, fmt.Sprintf(format, args...))
}

// Validate checks structure only: identity, slot, amounts, wallets and payload
// shape. Business rules (balances, allowlist, authorization) are upstream.
func (v *Validator) Validate(rec models.Record) error {
	if rec.TokenID.IsNil() {
		return invalid("token id is required")
	}
	if !rec.Type.IsValid() {
		return invalid("unknown tx_type %q", rec.Type)
	}
	if rec.Slot < 0 {
		return invalid("slot must be non-negative, got %d", rec.Slot)
	}
	if rec.BlockTime.IsZero() {
		return invalid("block_time is required")
	}
	if !rec.TriggeredBy.IsValid() {
		return invalid("triggered_by %q is not one of admin, wallet, system", rec.TriggeredBy)
	}
	if rec.Amount < 0 {
		return invalid("%s amount must not be negative", rec.Type)
	}
	if rec.Type.RequiresAmount() && rec.Amount == 0 {
		return invalid("%s requires a positive amount", rec.Type)
	}
	if rec.Type.RequiresWallet() && rec.Wallet == "" {
		return invalid("%s requires wallet", rec.Type)
	}
	if rec.Type == models.TypeTransfer {
		if rec.WalletTo == "" {
			return invalid("TRANSFER requires wallet_to")
		}
		if rec.WalletTo == rec.Wallet {
			return invalid("TRANSFER source and destination must differ")
		}
	}
	return v.validatePayload(rec)
}

func (v *Validator) validatePayload(rec models.Record) error {
	schema, ok := v.schemas[rec.Type]
	empty := len(bytes.TrimSpace(rec.Payload)) == 0 || bytes.Equal(bytes.TrimSpace(rec.Payload), []byte("null"))
	if !ok {
		if !empty {
			return invalid("%s carries no payload", rec.Type)
		}
		return nil
	}
	if empty {
		return invalid("%s requires a payload", rec.Type)
	}

	dec := json.NewDecoder(bytes.NewReader(rec.Payload))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return invalid("%s payload is not valid JSON: %v", rec.Type, err)
	}
	if err := schema.Validate(doc); err != nil {
		return invalid("%s payload: %v", rec.Type, err)
	}
	return nil
}
