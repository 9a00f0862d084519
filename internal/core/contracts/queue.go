package contracts

import "context"

// NotificationQueue carries fan-out jobs from the dispatcher to the
// notification worker. Backed by a Redis stream with a consumer group so a
// crash between broadcast and fan-out does not lose the job.
type NotificationQueue interface {
	// Publish appends a job to the outbox stream.
	Publish(ctx context.Context, payload []byte) error
	// Subscribe starts the consumer loop, invoking handler per job. The
	// loop runs until ctx is cancelled.
	Subscribe(ctx context.Context, group string, handler func(ctx context.Context, msgID string, data []byte) error) error
	// Acknowledge marks a job as processed for the consumer group.
	Acknowledge(ctx context.Context, group, msgID string) error
	// Delete removes a processed job from the stream.
	Delete(ctx context.Context, msgID string) error
}
