package validation

import "captable/internal/ledger/models"

const walletPattern = `^[1-9A-HJ-NP-Za-km-z]{32,44}$`

const thresholdChangeSchema = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["threshold"],
	"properties": {
		"threshold": {"type": "integer", "minimum": 1},
		"signers": {"type": "array", "minItems": 1, "uniqueItems": true,
			"items": {"type": "string", "pattern": "` + walletPattern + `"}}
	}
}`

const pauseSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {"reason": {"type": "string", "maxLength": 256}}
}`

const splitSchema = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["numerator", "denominator"],
	"properties": {
		"numerator": {"type": "integer", "minimum": 1},
		"denominator": {"type": "integer", "minimum": 1}
	}
}`

const symbolSchema = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["new_symbol"],
	"properties": {"new_symbol": {"type": "string", "pattern": "^[A-Z0-9]{1,10}$"}}
}`

const terminateSchema = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["schedule_id", "termination_type", "terminated_at"],
	"properties": {
		"schedule_id": {"type": "string", "format": "uuid"},
		"termination_type": {"enum": ["standard", "for_cause", "accelerated"]},
		"terminated_at": {"type": "integer", "minimum": 0},
		"treasury_wallet": {"type": "string", "pattern": "` + walletPattern + `"}
	}
}`

// schemas maps each record type to its payload schema. An empty schema means
// the type carries no payload and any payload present is rejected.
var schemas = map[models.RecordType]string{
	models.TypeTokenCreate: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["symbol", "name", "decimals", "signers", "threshold"],
		"properties": {
			"symbol": {"type": "string", "pattern": "^[A-Z0-9]{1,10}$"},
			"name": {"type": "string", "minLength": 1, "maxLength": 64},
			"decimals": {"type": "integer", "minimum": 0, "maximum": 18},
			"signers": {"type": "array", "minItems": 1, "uniqueItems": true,
				"items": {"type": "string", "pattern": "` + walletPattern + `"}},
			"threshold": {"type": "integer", "minimum": 1}
		}
	}`,
	models.TypeApproval:   "",
	models.TypeRevocation: "",
	models.TypeShareGrant: "",
	models.TypeMint:       "",
	models.TypeBurn:       "",
	models.TypeTransfer:   "",
	models.TypeVestingScheduleCreate: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["schedule_id", "start_time", "cliff_seconds", "duration_seconds", "interval"],
		"properties": {
			"schedule_id": {"type": "string", "format": "uuid"},
			"start_time": {"type": "integer", "minimum": 0},
			"cliff_seconds": {"type": "integer", "minimum": 0},
			"duration_seconds": {"type": "integer", "minimum": 1},
			"interval": {"enum": ["minute", "hour", "day", "month"]},
			"revocable": {"type": "boolean"}
		}
	}`,
	models.TypeVestingRelease: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["schedule_id"],
		"properties": {"schedule_id": {"type": "string", "format": "uuid"}}
	}`,
	models.TypeVestingTerminate: terminateSchema,
	models.TypeStockSplit:       splitSchema,
	models.TypeSymbolChange:     symbolSchema,
	models.TypePause:            pauseSchema,
	models.TypeResume:           pauseSchema,
	models.TypeThresholdUpdate: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["threshold", "signers", "nonce"],
		"properties": {
			"threshold": {"type": "integer", "minimum": 1},
			"signers": {"type": "array", "minItems": 1, "uniqueItems": true,
				"items": {"type": "string", "pattern": "` + walletPattern + `"}},
			"nonce": {"type": "integer", "minimum": 1}
		}
	}`,
	models.TypeMultisigPropose: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["tx_id", "nonce", "instruction", "created_at"],
		"properties": {
			"tx_id": {"type": "string", "pattern": "^[0-9]+-[0-9]+$"},
			"nonce": {"type": "integer", "minimum": 0},
			"created_at": {"type": "integer", "minimum": 0},
			"expires_at": {"type": "integer", "minimum": 0},
			"instruction": {
				"type": "object",
				"additionalProperties": false,
				"required": ["kind"],
				"properties": {
					"kind": {"enum": ["pause", "resume", "stock_split", "symbol_change",
						"threshold_update", "update_signers", "vesting_terminate"]},
					"pause": ` + pauseSchema + `,
					"resume": ` + pauseSchema + `,
					"stock_split": ` + splitSchema + `,
					"symbol_change": ` + symbolSchema + `,
					"threshold_update": ` + thresholdChangeSchema + `,
					"update_signers": ` + thresholdChangeSchema + `,
					"vesting_terminate": ` + terminateSchema + `
				},
				"minProperties": 2,
				"maxProperties": 2
			}
		}
	}`,
	models.TypeMultisigApprove: txRefSchema,
	models.TypeMultisigExecute: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["tx_id", "record_id"],
		"properties": {
			"tx_id": {"type": "string", "pattern": "^[0-9]+-[0-9]+$"},
			"record_id": {"type": "integer", "minimum": 1}
		}
	}`,
	models.TypeMultisigCancel: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["tx_id"],
		"properties": {
			"tx_id": {"type": "string", "pattern": "^[0-9]+-[0-9]+$"},
			"reason": {"type": "string", "maxLength": 256}
		}
	}`,
	models.TypeDividendRoundCreate: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["round_id", "payment_token"],
		"properties": {
			"round_id": {"type": "string", "format": "uuid"},
			"payment_token": {"type": "string", "minLength": 1, "maxLength": 44},
			"expires_at": {"type": "integer", "minimum": 0}
		}
	}`,
	models.TypeDividendClaim: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["round_id"],
		"properties": {"round_id": {"type": "string", "format": "uuid"}}
	}`,
	models.TypeGovernancePropose: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["proposal_id", "description", "voting_starts", "voting_ends",
			"quorum_pct", "approval_pct", "execution_delay"],
		"properties": {
			"proposal_id": {"type": "string", "format": "uuid"},
			"description": {"type": "string", "minLength": 1, "maxLength": 500},
			"voting_starts": {"type": "integer", "minimum": 0},
			"voting_ends": {"type": "integer", "minimum": 0},
			"quorum_pct": {"type": "integer", "minimum": 0, "maximum": 100},
			"approval_pct": {"type": "integer", "minimum": 1, "maximum": 100},
			"execution_delay": {"type": "integer", "minimum": 0},
			"execution_window": {"type": "integer", "minimum": 0},
			"action": {
				"type": "object",
				"additionalProperties": false,
				"required": ["kind"],
				"properties": {
					"kind": {"enum": ["pause", "resume", "stock_split", "symbol_change"]},
					"pause": ` + pauseSchema + `,
					"resume": ` + pauseSchema + `,
					"stock_split": ` + splitSchema + `,
					"symbol_change": ` + symbolSchema + `
				},
				"minProperties": 2,
				"maxProperties": 2
			}
		}
	}`,
	models.TypeGovernanceVote: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["proposal_id", "choice"],
		"properties": {
			"proposal_id": {"type": "string", "format": "uuid"},
			"choice": {"enum": ["for", "against", "abstain"]}
		}
	}`,
	models.TypeGovernanceFinalize: proposalRefSchema,
	models.TypeGovernanceCancel: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["proposal_id"],
		"properties": {
			"proposal_id": {"type": "string", "format": "uuid"},
			"reason": {"type": "string", "maxLength": 256}
		}
	}`,
	models.TypeGovernanceExecute: `{
		"type": "object",
		"additionalProperties": false,
		"required": ["proposal_id"],
		"properties": {
			"proposal_id": {"type": "string", "format": "uuid"},
			"record_id": {"type": "integer", "minimum": 1}
		}
	}`,
}

const proposalRefSchema = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["proposal_id"],
	"properties": {"proposal_id": {"type": "string", "format": "uuid"}}
}`

const txRefSchema = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["tx_id"],
	"properties": {"tx_id": {"type": "string", "pattern": "^[0-9]+-[0-9]+$"}}
}`
