package services_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Kingsley-codes/funlearn-backend/internal/app/registry"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/domain"
	"github.com/Kingsley-codes/funlearn-backend/internal/core/services"
)

type dispatcherFixture struct {
	svc   *services.MessageService
	hub   *registry.Registry
	repo  *fakeMessageRepo
	queue *fakeQueue
}

func newDispatcher(t *testing.T, members map[string][]string) *dispatcherFixture {
	t.Helper()
	hub := newTestRegistry()
	repo := newFakeMessageRepo()
	queue := &fakeQueue{}
	rooms := &fakeRoomRepo{members: members, names: map[string]string{}}
	svc := services.NewMessageService(discardLogger(), hub, rooms, repo, fakeTx{}, queue)
	return &dispatcherFixture{svc: svc, hub: hub, repo: repo, queue: queue}
}

// connect registers a client and joins it to the room.
func (f *dispatcherFixture) connect(t *testing.T, userID, roomID string) *fakeClient {
	t.Helper()
	c := newFakeClient(userID)
	require.NoError(t, f.hub.Register(c))
	require.NoError(t, f.hub.Join(c.ID(), roomID))
	return c
}

func text(s string) domain.Content { return domain.Content{Text: s} }

func TestSubmitRejectsUnknownConnection(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"alice"}})

	_, err := f.svc.Submit(context.Background(), uuid.New(), "r1", text("hi"), "")
	require.ErrorIs(t, err, domain.ErrUnknownConnection)
	require.Empty(t, f.repo.appendedMessages())
}

func TestSubmitRejectsEmptyContent(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"alice"}})
	a := f.connect(t, "alice", "r1")

	_, err := f.svc.Submit(context.Background(), a.ID(), "r1", text("   "), "")
	require.ErrorIs(t, err, domain.ErrMissingContent)
	require.Empty(t, f.repo.appendedMessages())
	require.Empty(t, f.queue.jobs(t))
}

func TestSubmitRejectsNonMember(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"bob"}})
	a := f.connect(t, "alice", "r1") // joined speculatively, never authorized

	_, err := f.svc.Submit(context.Background(), a.ID(), "r1", text("hi"), "")
	require.ErrorIs(t, err, domain.ErrNotAMember)
	require.Empty(t, f.repo.appendedMessages())
	require.Empty(t, a.events(t))
}

func TestSubmitBroadcastsToAllConnectionsInRoom(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"alice", "bob"}})
	a := f.connect(t, "alice", "r1")
	b := f.connect(t, "bob", "r1")

	msg, err := f.svc.Submit(context.Background(), a.ID(), "r1", text("hi"), "t1")
	require.NoError(t, err)
	require.Equal(t, int64(1), msg.Seq)
	require.Equal(t, "alice", msg.SenderID)
	require.NotEqual(t, uuid.Nil, msg.ID)
	require.False(t, msg.CreatedAt.IsZero())

	aEvents := a.events(t)
	bEvents := b.events(t)
	require.Len(t, aEvents, 1)
	require.Len(t, bEvents, 1)

	// The sender's copy echoes the correlation token; nobody else's does.
	require.Equal(t, "t1", aEvents[0].ClientMsgID)
	require.Empty(t, bEvents[0].ClientMsgID)
	require.Equal(t, msg.ID, aEvents[0].ID)
	require.Equal(t, "hi", bEvents[0].Content.Text)
	require.Equal(t, int64(1), bEvents[0].Seq)
}

func TestSubmitWithoutTokenOmitsEcho(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"alice"}})
	a := f.connect(t, "alice", "r1")

	_, err := f.svc.Submit(context.Background(), a.ID(), "r1", text("hi"), "")
	require.NoError(t, err)
	require.Empty(t, a.events(t)[0].ClientMsgID)
}

func TestSubmitIsolatesFailingConnection(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"alice", "bob", "carol"}})
	a := f.connect(t, "alice", "r1")
	b := f.connect(t, "bob", "r1")
	b.fail = true
	c := f.connect(t, "carol", "r1")

	_, err := f.svc.Submit(context.Background(), a.ID(), "r1", text("hi"), "")
	require.NoError(t, err)
	require.Len(t, a.events(t), 1)
	require.Len(t, c.events(t), 1)
	require.Empty(t, b.events(t))
}

func TestSubmitPersistFailurePreventsBroadcast(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"alice", "bob"}})
	a := f.connect(t, "alice", "r1")
	b := f.connect(t, "bob", "r1")
	f.repo.failAppend = true

	_, err := f.svc.Submit(context.Background(), a.ID(), "r1", text("hi"), "t1")
	require.Error(t, err)
	require.Empty(t, a.events(t))
	require.Empty(t, b.events(t))
	require.Empty(t, f.queue.jobs(t))
}

func TestSubmitEnqueuesNotificationJob(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"alice", "bob"}})
	a := f.connect(t, "alice", "r1")

	msg, err := f.svc.Submit(context.Background(), a.ID(), "r1", text("hi"), "")
	require.NoError(t, err)

	jobs := f.queue.jobs(t)
	require.Len(t, jobs, 1)
	require.Equal(t, msg.ID, jobs[0].MessageID)
	require.Equal(t, "r1", jobs[0].RoomID)
	require.Equal(t, "alice", jobs[0].SenderID)
	require.Equal(t, "hi", jobs[0].Content.Text)
}

func TestSubmitOrderingWithinRoom(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"alice", "bob"}})
	a := f.connect(t, "alice", "r1")
	b := f.connect(t, "bob", "r1")

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		sender := a
		if i%2 == 1 {
			sender = b
		}
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Submit(context.Background(), sender.ID(), "r1", text(fmt.Sprintf("m%d", i)), "")
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Persisted order is the acceptance order: sequences are 1..n with no
	// gaps or duplicates.
	appended := f.repo.appendedMessages()
	require.Len(t, appended, n)
	for i, m := range appended {
		require.Equal(t, int64(i+1), m.Seq)
	}
	// Every connection observed the same order, each message exactly once.
	for _, client := range []*fakeClient{a, b} {
		events := client.events(t)
		require.Len(t, events, n)
		for i, e := range events {
			require.Equal(t, int64(i+1), e.Seq)
		}
	}
}

func TestSubmitLogsCorrelationToken(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	hub := newTestRegistry()
	rooms := &fakeRoomRepo{members: map[string][]string{"r1": {"alice"}}}
	svc := services.NewMessageService(log, hub, rooms, newFakeMessageRepo(), fakeTx{}, &fakeQueue{})
	a := newFakeClient("alice")
	require.NoError(t, hub.Register(a))
	require.NoError(t, hub.Join(a.ID(), "r1"))

	_, err := svc.Submit(context.Background(), a.ID(), "r1", text("hi"), "t9")
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"client_msg_id":"t9"`)
}

func TestSubmitRoomsDoNotShareSequence(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"alice"}, "r2": {"alice"}})
	a := f.connect(t, "alice", "r1")
	require.NoError(t, f.hub.Join(a.ID(), "r2"))

	m1, err := f.svc.Submit(context.Background(), a.ID(), "r1", text("one"), "")
	require.NoError(t, err)
	m2, err := f.svc.Submit(context.Background(), a.ID(), "r2", text("two"), "")
	require.NoError(t, err)
	require.Equal(t, int64(1), m1.Seq)
	require.Equal(t, int64(1), m2.Seq)
}

func TestHistoryRequiresMembership(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"bob"}})

	_, err := f.svc.History(context.Background(), "alice", "r1", 0, 10)
	require.ErrorIs(t, err, domain.ErrNotAMember)
}

func TestHistoryReturnsChronologicalOrder(t *testing.T) {
	f := newDispatcher(t, map[string][]string{"r1": {"alice"}})
	// Repo pages newest-first.
	f.repo.pages = []domain.Message{
		{RoomID: "r1", Seq: 3, Content: text("three")},
		{RoomID: "r1", Seq: 2, Content: text("two")},
		{RoomID: "r1", Seq: 1, Content: text("one")},
	}

	msgs, err := f.svc.History(context.Background(), "alice", "r1", 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, int64(1), msgs[0].Seq)
	require.Equal(t, int64(3), msgs[2].Seq)
}
