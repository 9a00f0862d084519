package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kingsley-codes/funlearn-backend/internal/core/contracts"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
	"github.com/Kingsley-codes/funlearn-backend/pkg/logging"
)

var tracer = otel.Tracer("message-service")

type IMessageService interface {
	// Submit persists and broadcasts one message. A sender either gets back
	// the fully persisted message or a rejection before any state changed.
	Submit(ctx context.Context, connID uuid.UUID, roomID string, content domain.Content, clientMsgID string) (domain.Message, error)
	// History returns a membership-checked page of a room's messages,
	// oldest first.
	History(ctx context.Context, userID, roomID string, beforeSeq int64, limit int) ([]domain.Message, error)
}

// MessageService is the broadcast dispatcher: it sequences submissions per
// room, persists them, fans the persisted message out to live connections
// and hands off out-of-band notification to the outbox.
type MessageService struct {
	log      *slog.Logger
	registry contracts.Registry
	rooms    domain.ChatroomRepository
	repo     domain.MessageRepository
	tx       contracts.TxRunner
	outbox   contracts.NotificationQueue

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ IMessageService = (*MessageService)(nil)

func NewMessageService(
	log *slog.Logger,
	registry contracts.Registry,
	rooms domain.ChatroomRepository,
	repo domain.MessageRepository,
	tx contracts.TxRunner,
	outbox contracts.NotificationQueue,
) *MessageService {
	return &MessageService{
		log:      log,
		registry: registry,
		rooms:    rooms,
		repo:     repo,
		tx:       tx,
		outbox:   outbox,
		locks:    make(map[string]*sync.Mutex),
	}
}

// roomLock returns the mutex serializing submissions for one room. Rooms
// never share a lock, so unrelated rooms proceed fully concurrently.
func (s *MessageService) roomLock(roomID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[roomID] = l
	}
	return l
}

func (s *MessageService) Submit(
	ctx context.Context,
	connID uuid.UUID,
	roomID string,
	content domain.Content,
	clientMsgID string,
) (domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.Submit", trace.WithAttributes(
		attribute.String("chat.room_id", roomID),
		attribute.String("chat.conn_id", connID.String()),
	))
	defer span.End()

	senderID, ok := s.registry.Lookup(connID)
	if !ok {
		span.RecordError(domain.ErrUnknownConnection)
		return domain.Message{}, domain.ErrUnknownConnection
	}
	span.SetAttributes(attribute.String("chat.sender_id", senderID))
	if content.Empty() {
		return domain.Message{}, domain.ErrMissingContent
	}
	// Membership is checked on every submit, never cached from join time.
	member, err := s.rooms.IsMember(ctx, senderID, roomID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "membership check failed")
		s.log.ErrorContext(ctx, "messages - submit - membership check failed", logging.Room(roomID), logging.Sender(senderID), logging.Err(err))
		return domain.Message{}, err
	}
	if !member {
		return domain.Message{}, domain.ErrNotAMember
	}

	msg := domain.Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	// Persist and broadcast under the room lock: submissions for one room
	// never interleave, so broadcast order equals persisted order.
	lock := s.roomLock(roomID)
	lock.Lock()
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		seq, txErr := s.repo.Append(txCtx, &msg)
		if txErr != nil {
			return txErr
		}
		msg.Seq = seq
		return nil
	}); err != nil {
		lock.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.log.ErrorContext(ctx, "messages - submit - persist failed", logging.Room(roomID), logging.Sender(senderID), logging.Err(err))
		// Nothing was broadcast: a broadcast without persistence would be an
		// unrecoverable history gap, while the caller can simply resubmit.
		return domain.Message{}, err
	}
	s.broadcast(ctx, msg, connID, clientMsgID)
	lock.Unlock()

	span.SetAttributes(attribute.Int64("chat.seq", msg.Seq))
	s.log.InfoContext(ctx, "messages - submit - persisted and broadcast", logging.Room(roomID), logging.Sender(senderID), logging.Sequence(msg.Seq), logging.ClientMsg(clientMsgID))

	s.enqueueNotification(ctx, msg)
	span.SetStatus(codes.Ok, "submitted")
	return msg, nil
}

// broadcast delivers the persisted message to a point-in-time snapshot of
// the room. The originating connection's copy carries the client correlation
// token; per-connection failures are logged and never reach the sender.
func (s *MessageService) broadcast(ctx context.Context, msg domain.Message, origin uuid.UUID, clientMsgID string) {
	event := domain.EventFromMessage(msg)
	data, _ := json.Marshal(event)
	var echo []byte
	if clientMsgID != "" {
		withToken := event
		withToken.ClientMsgID = clientMsgID
		echo, _ = json.Marshal(withToken)
	}
	for _, c := range s.registry.ConnectionsInRoom(msg.RoomID) {
		out := data
		if c.ID() == origin && echo != nil {
			out = echo
		}
		if err := c.Send(ctx, out); err != nil {
			// Connection vanished mid-delivery; the rest still get theirs.
			s.log.WarnContext(ctx, "messages - broadcast - delivery skipped", logging.Room(msg.RoomID), logging.Conn(c.ID().String()), logging.Err(err))
		}
	}
}

// enqueueNotification hands the message to the outbox. Fire-and-forget: a
// publish failure costs at most the offline notifications for this message.
func (s *MessageService) enqueueNotification(ctx context.Context, msg domain.Message) {
	job := domain.Notification{
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
	}
	raw, _ := json.Marshal(job)
	if err := s.outbox.Publish(ctx, raw); err != nil {
		s.log.ErrorContext(ctx, "messages - submit - notification enqueue failed", logging.Room(msg.RoomID), logging.Err(err))
	}
}

func (s *MessageService) History(
	ctx context.Context,
	userID, roomID string,
	beforeSeq int64,
	limit int,
) ([]domain.Message, error) {
	ctx, span := tracer.Start(ctx, "MessageService.History", trace.WithAttributes(
		attribute.String("chat.room_id", roomID),
	))
	defer span.End()
	member, err := s.rooms.IsMember(ctx, userID, roomID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !member {
		return nil, domain.ErrNotAMember
	}
	msgs, err := s.repo.History(ctx, roomID, beforeSeq, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history read failed")
		s.log.ErrorContext(ctx, "messages - history - read failed", logging.Room(roomID), logging.Err(err))
		return nil, err
	}
	// Repo pages newest-first; clients render oldest-first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	span.SetAttributes(attribute.Int("chat.message_count", len(msgs)))
	return msgs, nil
}
