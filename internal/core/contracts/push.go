package contracts

import (
	"context"

	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
)

// Pusher delivers one out-of-band notification to one target. A permanently
// invalid target is reported as domain.ErrTargetGone; any other error is a
// transient per-recipient failure.
type Pusher interface {
	Send(ctx context.Context, sub domain.PushSubscription, payload domain.PushPayload) error
}

// StaleTargetReporter receives targets the push transport declared gone, so
// the user collaborator can clear them. The fan-out never manages target
// lifecycle itself.
type StaleTargetReporter interface {
	ClearPushSubscription(ctx context.Context, userID string) error
}
