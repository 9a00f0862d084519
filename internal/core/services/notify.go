package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Kingsley-codes/funlearn-backend/internal/core/contracts"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
	"github.com/Kingsley-codes/funlearn-backend/pkg/logging"
)

const notifyBodyLimit = 80

// NotifyService performs best-effort push fan-out for members who did not
// receive the live broadcast.
type NotifyService struct {
	log            *slog.Logger
	registry       contracts.Registry
	rooms          domain.ChatroomRepository
	users          domain.UserRepository
	pusher         contracts.Pusher
	stale          contracts.StaleTargetReporter
	concurrency    int
	attemptTimeout time.Duration
}

var _ contracts.NotificationDeliverer = (*NotifyService)(nil)

func NewNotifyService(
	log *slog.Logger,
	registry contracts.Registry,
	rooms domain.ChatroomRepository,
	users domain.UserRepository,
	pusher contracts.Pusher,
	stale contracts.StaleTargetReporter,
	concurrency int,
	attemptTimeout time.Duration,
) *NotifyService {
	if concurrency <= 0 {
		concurrency = 8
	}
	if attemptTimeout <= 0 {
		attemptTimeout = 10 * time.Second
	}
	return &NotifyService{
		log:            log,
		registry:       registry,
		rooms:          rooms,
		users:          users,
		pusher:         pusher,
		stale:          stale,
		concurrency:    concurrency,
		attemptTimeout: attemptTimeout,
	}
}

// Deliver resolves recipients and attempts each delivery independently. Only
// failing to read the room itself is an error; per-recipient outcomes are
// logged and swallowed.
func (s *NotifyService) Deliver(ctx context.Context, n *domain.Notification) error {
	ctx, span := tracer.Start(ctx, "NotifyService.Deliver", trace.WithAttributes(
		attribute.String("chat.room_id", n.RoomID),
		attribute.String("chat.sender_id", n.SenderID),
	))
	defer span.End()

	room, err := s.rooms.GetChatroom(ctx, n.RoomID)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "notify - deliver - room lookup failed", logging.Room(n.RoomID), logging.Err(err))
		return err
	}
	senderName := n.SenderID
	if sender, err := s.users.GetUser(ctx, n.SenderID); err == nil {
		senderName = sender.Name
	}
	payload := FormatPushPayload(senderName, room.Name, n.RoomID, n.Content)

	recipients := s.recipients(room, n.SenderID)
	span.SetAttributes(attribute.Int("chat.recipient_count", len(recipients)))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, userID := range recipients {
		g.Go(func() error {
			s.attempt(ctx, userID, payload)
			return nil
		})
	}
	_ = g.Wait()
	return nil
}

// recipients is the room membership minus the sender minus anyone with a
// live connection subscribed to the room right now. The point-in-time check
// can race a connect/disconnect; a duplicate or missed notification near
// that boundary is accepted behavior.
func (s *NotifyService) recipients(room *domain.Chatroom, senderID string) []string {
	var out []string
	for _, userID := range room.Members {
		if userID == senderID {
			continue
		}
		if s.registry.UserOnlineInRoom(room.ID, userID) {
			continue
		}
		out = append(out, userID)
	}
	return out
}

// attempt delivers to one recipient. Never returns: every outcome is logged
// here so one recipient cannot affect another.
func (s *NotifyService) attempt(ctx context.Context, userID string, payload domain.PushPayload) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "notify - attempt - user lookup failed", logging.Recipient(userID), logging.Err(err))
		return
	}
	if user.Subscription == nil {
		// No registered target; not an error.
		s.log.DebugContext(ctx, "notify - attempt - no push target", logging.Recipient(userID))
		return
	}
	attemptCtx, cancel := context.WithTimeout(ctx, s.attemptTimeout)
	defer cancel()
	err = s.pusher.Send(attemptCtx, *user.Subscription, payload)
	switch {
	case errors.Is(err, domain.ErrTargetGone):
		s.log.WarnContext(ctx, "notify - attempt - target gone, reporting stale", logging.Recipient(userID))
		if clearErr := s.stale.ClearPushSubscription(ctx, userID); clearErr != nil {
			s.log.ErrorContext(ctx, "notify - attempt - stale report failed", logging.Recipient(userID), logging.Err(clearErr))
		}
	case err != nil:
		s.log.ErrorContext(ctx, "notify - attempt - push failed", logging.Recipient(userID), logging.Err(err))
	default:
		s.log.InfoContext(ctx, "notify - attempt - push delivered", logging.Recipient(userID))
	}
}

// FormatPushPayload builds the short notification shown on a device: title
// from sender and room, body from the text (bounded) or an attachment
// placeholder, and the room deep link.
func FormatPushPayload(senderName, roomName, roomID string, c domain.Content) domain.PushPayload {
	var body string
	if text := strings.TrimSpace(c.Text); text != "" {
		body = truncate(text, notifyBodyLimit)
	} else {
		switch c.FileType {
		case "image":
			body = "📷 shared an image"
		case "pdf", "document":
			body = "📄 shared a document"
		default:
			if c.FileURL != "" {
				body = "📎 shared a file"
			} else {
				body = "💬 sent a message"
			}
		}
	}

	return domain.PushPayload{
		Title: senderName + " in " + roomName,
		Body:  body,
		URL:   "/chat/" + roomID,
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
