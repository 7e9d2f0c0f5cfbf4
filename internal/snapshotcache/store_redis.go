package snapshotcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"captable/internal/projector"
	id "captable/pkg/domain"
	"captable/pkg/platform/sentinel"
)

const (
	// Sorted set of checkpoint seqs scored by slot.
	indexKeyPrefix = "captable:checkpoints:"
	// Encoded state per (token, seq).
	blobKeyPrefix = "captable:checkpoint:"
)

// RedisStore shares checkpoints between replicas. Members of the index are
// zero-padded seqs so equal-slot entries sort by seq.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisStoreOption func(*RedisStore)

// WithTTL expires checkpoint blobs; zero keeps them forever.
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedis(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func indexKey(tokenID id.TokenID) string {
	return indexKeyPrefix + tokenID.String()
}

func blobKey(tokenID id.TokenID, member string) string {
	return blobKeyPrefix + tokenID.String() + ":" + member
}

func member(seq int64) string {
	return fmt.Sprintf("%020d", seq)
}

func (s *RedisStore) Save(ctx context.Context, st *projector.State) error {
	raw, err := encode(st)
	if err != nil {
		return err
	}
	m := member(st.LastSeq)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, blobKey(st.TokenID, m), raw, s.ttl)
		pipe.ZAdd(ctx, indexKey(st.TokenID), redis.Z{Score: float64(st.LastSlot), Member: m})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (s *RedisStore) Nearest(ctx context.Context, tokenID id.TokenID, target int64) (*projector.State, error) {
	key := indexKey(tokenID)
	// Walk down from the best candidate; blobs may have expired under the index.
	for offset := int64(0); ; offset++ {
		members, err := s.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
			Max:    strconv.FormatInt(target, 10),
			Min:    "-inf",
			Offset: offset,
			Count:  1,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("find checkpoint: %w", err)
		}
		if len(members) == 0 {
			return nil, sentinel.ErrNotFound
		}
		raw, err := s.client.Get(ctx, blobKey(tokenID, members[0])).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		}
		return decode(raw)
	}
}

func (s *RedisStore) Drop(ctx context.Context, tokenID id.TokenID) error {
	key := indexKey(tokenID)
	members, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}
	keys := make([]string, 0, len(members)+1)
	keys = append(keys, key)
	for _, m := range members {
		keys = append(keys, blobKey(tokenID, m))
	}
	return s.client.Del(ctx, keys...).Err()
}
