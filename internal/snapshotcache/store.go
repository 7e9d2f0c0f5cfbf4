package snapshotcache

import (
	"context"
	"encoding/json"
	"fmt"

	"captable/internal/projector"
	id "captable/pkg/domain"
)

// CheckpointStore persists folded states keyed by their log position.
// Checkpoints are derived data: losing them only costs replay time.
type CheckpointStore interface {
	Save(ctx context.Context, st *projector.State) error
	// Nearest returns the checkpoint with the highest position whose slot is
	// <= target, or sentinel.ErrNotFound.
	Nearest(ctx context.Context, tokenID id.TokenID, target int64) (*projector.State, error)
	Drop(ctx context.Context, tokenID id.TokenID) error
}

func encode(st *projector.State) ([]byte, error) {
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*projector.State, error) {
	var st projector.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &st, nil
}
