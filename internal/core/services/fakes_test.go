package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Kingsley-codes/funlearn-backend/internal/app/registry"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestRegistry() *registry.Registry {
	return registry.NewRegistry(discardLogger())
}

// fakeClient records delivered frames; optionally fails every Send to model
// a connection that vanished mid-delivery.
type fakeClient struct {
	id     uuid.UUID
	userID string
	fail   bool

	mu     sync.Mutex
	frames [][]byte
}

func newFakeClient(userID string) *fakeClient {
	return &fakeClient{id: uuid.New(), userID: userID}
}

func (c *fakeClient) ID() uuid.UUID  { return c.id }
func (c *fakeClient) UserID() string { return c.userID }
func (c *fakeClient) Close()         {}

func (c *fakeClient) Send(ctx context.Context, data []byte) error {
	if c.fail {
		return errors.New("client closed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, slices.Clone(data))
	return nil
}

func (c *fakeClient) events(t *testing.T) []domain.MessageEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.MessageEvent, 0, len(c.frames))
	for _, f := range c.frames {
		var e domain.MessageEvent
		require.NoError(t, json.Unmarshal(f, &e))
		out = append(out, e)
	}
	return out
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeMessageRepo assigns per-room sequences in memory and records appends
// in acceptance order.
type fakeMessageRepo struct {
	mu         sync.Mutex
	seqs       map[string]int64
	appended   []domain.Message
	failAppend bool
	pages      []domain.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{seqs: make(map[string]int64)}
}

func (r *fakeMessageRepo) Append(ctx context.Context, msg *domain.Message) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend {
		return 0, errors.New("db down")
	}
	r.seqs[msg.RoomID]++
	seq := r.seqs[msg.RoomID]
	rec := *msg
	rec.Seq = seq
	r.appended = append(r.appended, rec)
	return seq, nil
}

func (r *fakeMessageRepo) History(ctx context.Context, roomID string, beforeSeq int64, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.pages), nil
}

func (r *fakeMessageRepo) appendedMessages() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.appended)
}

type fakeRoomRepo struct {
	members map[string][]string
	names   map[string]string
}

func (r *fakeRoomRepo) IsMember(ctx context.Context, userID, roomID string) (bool, error) {
	return slices.Contains(r.members[roomID], userID), nil
}

func (r *fakeRoomRepo) MembersOf(ctx context.Context, roomID string) ([]string, error) {
	return r.members[roomID], nil
}

func (r *fakeRoomRepo) GetChatroom(ctx context.Context, roomID string) (*domain.Chatroom, error) {
	members, ok := r.members[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return &domain.Chatroom{ID: roomID, Name: r.names[roomID], Members: members}, nil
}

type fakeQueue struct {
	mu        sync.Mutex
	published [][]byte
}

func (q *fakeQueue) Publish(ctx context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, slices.Clone(payload))
	return nil
}

func (q *fakeQueue) Subscribe(ctx context.Context, group string, handler func(ctx context.Context, msgID string, data []byte) error) error {
	return nil
}

func (q *fakeQueue) Acknowledge(ctx context.Context, group, msgID string) error { return nil }
func (q *fakeQueue) Delete(ctx context.Context, msgID string) error             { return nil }

func (q *fakeQueue) jobs(t *testing.T) []domain.Notification {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Notification, 0, len(q.published))
	for _, raw := range q.published {
		var n domain.Notification
		require.NoError(t, json.Unmarshal(raw, &n))
		out = append(out, n)
	}
	return out
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func (r *fakeUserRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) ClearPushSubscription(ctx context.Context, userID string) error {
	if u, ok := r.users[userID]; ok {
		u.Subscription = nil
	}
	return nil
}

// fakePusher succeeds by default; endpoints in gone fail with ErrTargetGone
// and endpoints in flaky fail with a transient error.
type fakePusher struct {
	mu    sync.Mutex
	sent  []string // endpoints, in attempt order
	gone  map[string]bool
	flaky map[string]bool
}

func (p *fakePusher) Send(ctx context.Context, sub domain.PushSubscription, payload domain.PushPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gone[sub.Endpoint] {
		return domain.ErrTargetGone
	}
	if p.flaky[sub.Endpoint] {
		return errors.New("push service error: status 500")
	}
	p.sent = append(p.sent, sub.Endpoint)
	return nil
}

func (p *fakePusher) delivered() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.sent)
}

type fakeStaleReporter struct {
	mu      sync.Mutex
	cleared []string
}

func (r *fakeStaleReporter) ClearPushSubscription(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, userID)
	return nil
}
