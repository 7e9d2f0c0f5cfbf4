package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	dErrors "captable/pkg/domain-errors"
)

// Typed identifiers. Distinct types keep a schedule id from being passed where
// a token id is expected.
type (
	TokenID    uuid.UUID
	ScheduleID uuid.UUID
	RoundID    uuid.UUID
	ProposalID uuid.UUID
)

func (id TokenID) String() string    { return uuid.UUID(id).String() }
func (id ScheduleID) String() string { return uuid.UUID(id).String() }
func (id RoundID) String() string    { return uuid.UUID(id).String() }
func (id ProposalID) String() string { return uuid.UUID(id).String() }

func (id TokenID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ScheduleID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RoundID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ProposalID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return parsed, nil
}

func ParseTokenID(s string) (TokenID, error) {
	u, err := parseUUID("token id", s)
	return TokenID(u), err
}

func ParseScheduleID(s string) (ScheduleID, error) {
	u, err := parseUUID("schedule id", s)
	return ScheduleID(u), err
}

func ParseRoundID(s string) (RoundID, error) {
	u, err := parseUUID("dividend round id", s)
	return RoundID(u), err
}

func ParseProposalID(s string) (ProposalID, error) {
	u, err := parseUUID("proposal id", s)
	return ProposalID(u), err
}

// Wallet is a base58 encoded ed25519 public key.
type Wallet string

func (w Wallet) String() string { return string(w) }

// maxWalletLen bounds input before decoding; a 32-byte key encodes to at most 44 chars.
const maxWalletLen = 44

// ParseWallet validates a wallet address at a trust boundary.
func ParseWallet(s string) (Wallet, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet is required")
	}
	if len(s) > maxWalletLen || !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid wallet address")
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid wallet address")
	}
	return Wallet(pk.String()), nil
}

func (id TokenID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id ScheduleID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id RoundID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id ProposalID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *TokenID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = TokenID(u)
	return nil
}

func (id *ScheduleID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = ScheduleID(u)
	return nil
}

func (id *RoundID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = RoundID(u)
	return nil
}

func (id *ProposalID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return err
	}
	*id = ProposalID(u)
	return nil
}
