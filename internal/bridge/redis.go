package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/reflexduel/internal/duel"
)

// Redis bridges session events across processes over Redis pub/sub, one topic
// per session. Delivery is at-least-once from the subscriber's point of view;
// reconciliation on the receiving side tolerates replays and reordering.
type Redis struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewRedis(rdb *redis.Client, logger *slog.Logger) *Redis {
	return &Redis{rdb: rdb, logger: logger}
}

func topic(sessionID string) string {
	return "duel:" + sessionID
}

func (b *Redis) Publish(ctx context.Context, s duel.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session event: %w", err)
	}
	if err := b.rdb.Publish(ctx, topic(s.ID), data).Err(); err != nil {
		return fmt.Errorf("publishing session event: %w", err)
	}
	return nil
}

func (b *Redis) Subscribe(sessionID string) (<-chan duel.Session, func()) {
	ps := b.rdb.Subscribe(context.Background(), topic(sessionID))
	out := make(chan duel.Session, 16)

	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var s duel.Session
			if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
				b.logger.Error("decoding session event", "session_id", sessionID, "error", err)
				continue
			}
			select {
			case out <- s:
			default:
			}
		}
	}()

	return out, func() { ps.Close() }
}
