package contracts

import (
	"context"

	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
)

// AsyncWorker consumes the notification outbox.
type AsyncWorker interface {
	// Run starts the consumer loop and blocks until ctx is cancelled.
	Run(ctx context.Context) error
	// ProcessNotification decodes one job, delivers it, then acknowledges
	// and deletes it from the stream.
	ProcessNotification(ctx context.Context, msgID string, rawData []byte) error
}

// NotificationDeliverer resolves recipients and attempts per-recipient push
// delivery for one persisted message.
type NotificationDeliverer interface {
	Deliver(ctx context.Context, n *domain.Notification) error
}
