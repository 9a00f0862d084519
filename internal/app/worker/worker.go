// Package worker consumes the notification outbox stream.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Kingsley-codes/funlearn-backend/internal/core/contracts"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
)

// NotificationWorker drains fan-out jobs published by the dispatcher. It runs
// detached from the submit path: a slow or failing push never delays a
// sender's acknowledgment.
type NotificationWorker struct {
	log       *slog.Logger
	queue     contracts.NotificationQueue
	deliverer contracts.NotificationDeliverer
	group     string
}

var _ contracts.AsyncWorker = (*NotificationWorker)(nil)

func NewNotificationWorker(
	log *slog.Logger,
	queue contracts.NotificationQueue,
	deliverer contracts.NotificationDeliverer,
	group string,
) *NotificationWorker {
	return &NotificationWorker{
		log:       log,
		queue:     queue,
		deliverer: deliverer,
		group:     group,
	}
}

func (w *NotificationWorker) Run(ctx context.Context) error {
	if err := w.queue.Subscribe(ctx, w.group, w.ProcessNotification); err != nil {
		w.log.ErrorContext(ctx, "worker - run - subscribe failed", "group", w.group, "err", err)
		return err
	}
	w.log.InfoContext(ctx, "worker - run - consuming notification outbox", "group", w.group)
	<-ctx.Done()
	return nil
}

func (w *NotificationWorker) ProcessNotification(
	ctx context.Context,
	msgID string,
	raw []byte,
) error {
	var job domain.Notification
	if err := json.Unmarshal(raw, &job); err != nil {
		w.log.Error("worker - process notification - wrong payload", "stream_id", msgID)
		// Poison job: acknowledge so it never redelivers.
		_ = w.queue.Acknowledge(ctx, w.group, msgID)
		_ = w.queue.Delete(ctx, msgID)
		return err
	}
	if err := w.deliverer.Deliver(ctx, &job); err != nil {
		// Left pending in the consumer group, visible to XPENDING/XCLAIM.
		w.log.ErrorContext(ctx, "worker - process notification - deliver failed", "stream_id", msgID, "room_id", job.RoomID, "err", err)
		return err
	}
	if err := w.queue.Acknowledge(ctx, w.group, msgID); err != nil {
		w.log.ErrorContext(ctx, "worker - process notification - acknowledge failed", "stream_id", msgID, "err", err)
		return err
	}
	// XDEL keeps the stream memory-bounded; the job is already acked, so a
	// failure here is cosmetic.
	if err := w.queue.Delete(ctx, msgID); err != nil {
		w.log.ErrorContext(ctx, "worker - process notification - delete failed", "stream_id", msgID, "err", err)
	}
	return nil
}
