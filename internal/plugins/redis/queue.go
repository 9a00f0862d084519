package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Kingsley-codes/funlearn-backend/internal/core/contracts"
)

const outboxStream = "notifications:outbox"

// NotificationOutbox is the Redis-stream notification queue. Jobs survive a
// crash between broadcast and fan-out: unacknowledged entries stay pending
// in the consumer group and are recoverable via XPENDING/XCLAIM. Each
// process reads as a fresh consumer, so reclaiming a dead consumer's
// pending entries is an operational step, not automatic.
type NotificationOutbox struct {
	rdb *redis.Client
}

var _ contracts.NotificationQueue = (*NotificationOutbox)(nil)

func NewNotificationOutbox(rdb *redis.Client) *NotificationOutbox {
	return &NotificationOutbox{rdb: rdb}
}

func (q *NotificationOutbox) Publish(ctx context.Context, payload []byte) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: outboxStream,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": payload},
	}).Err()
}

func (q *NotificationOutbox) Subscribe(
	ctx context.Context,
	group string,
	handler func(ctx context.Context, msgID string, data []byte) error,
) error {
	// Create group if not exists
	err := q.rdb.XGroupCreateMkStream(ctx, outboxStream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	consumerName := uuid.NewString()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
					Group:    group,
					Consumer: consumerName,
					Streams:  []string{outboxStream, ">"},
					Count:    16,
					Block:    5 * time.Second,
				}).Result()
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					if err == redis.Nil {
						continue
					}
					// Transient read failure; back off briefly.
					time.Sleep(time.Second)
					continue
				}
				for _, stream := range res {
					for _, msg := range stream.Messages {
						data, ok := msg.Values["data"].(string)
						if !ok {
							continue
						}
						_ = handler(ctx, msg.ID, []byte(data))
					}
				}
			}
		}
	}()
	return nil
}

func (q *NotificationOutbox) Acknowledge(ctx context.Context, group, msgID string) error {
	return q.rdb.XAck(ctx, outboxStream, group, msgID).Err()
}

func (q *NotificationOutbox) Delete(ctx context.Context, msgID string) error {
	return q.rdb.XDel(ctx, outboxStream, msgID).Err()
}
