package service

import (
	"context"

	"captable/internal/outbox"
	"captable/internal/platform/kafka/consumer"
	id "captable/pkg/domain"
)

// RecordEventHandler consumes record events from every replica. Books catch
// up from the log on their own; what goes stale is an in-flight live fold
// started before the record, so that is dropped.
func (s *Service) RecordEventHandler() consumer.Handler {
	return consumer.HandlerFunc(func(ctx context.Context, msg *consumer.Message) error {
		ev, err := outbox.DecodeRecordEvent(msg.Value)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping undecodable record event",
				"topic", msg.Topic, "offset", msg.Offset, "error", err)
			return nil
		}
		tokenID, err := id.ParseTokenID(ev.TokenID)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping record event with invalid token id",
				"offset", msg.Offset, "token_id", ev.TokenID)
			return nil
		}
		s.snapshots.Forget(tokenID)
		s.logger.DebugContext(ctx, "live snapshot invalidated",
			"token_id", ev.TokenID, "seq", ev.Seq, "tx_type", ev.TxType)
		return nil
	})
}
