package runtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"notifyhub/domain"
	"notifyhub/domain/event"
	"notifyhub/mocks"
	"notifyhub/moderation"
	"notifyhub/mutation"
	"notifyhub/notify"
	"notifyhub/observability"
)

func newTestHub(t *testing.T, store *mocks.MockStore) (*Hub, *Registry) {
	t.Helper()
	log := slog.Default()
	stats := observability.NewStats()
	registry := NewRegistry()
	router := NewRouter(registry, log, stats, time.Second)
	moderator, err := moderation.NewModerator(nil, '*', log)
	require.NoError(t, err)
	handlers := mutation.NewHandlers(store, &moderator, log)
	notifier := notify.NewNotifier(store, router, log, stats)
	return NewHub(log, registry, router, store, handlers, notifier, stats, 8, 1), registry
}

func TestHub_JoinProject_Member_Subscribes_Channel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	hub, registry := newTestHub(t, store)
	sink := mocks.NewMockEventSink(ctrl)
	connID, userID := uuid.NewString(), uuid.NewString()
	req.NoError(hub.Attach(connID, userID, sink))

	// Given a project the actor belongs to
	store.EXPECT().GetProject("p1").Return(domain.Project{
		ID:      "p1",
		Members: map[string]domain.Role{userID: domain.RoleMember},
	}, nil)

	// When the connection asks to join the project channel
	hub.dispatch(context.Background(), Command{ConnID: connID, Event: event.JoinProject{ProjectID: "p1"}})

	// Then the connection is a member of the channel
	req.Equal([]string{connID}, registry.MembersOf(domain.ProjectChannel("p1")))
}

func TestHub_JoinProject_NonMember_Gets_Error_Frame(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	hub, registry := newTestHub(t, store)
	sink := mocks.NewMockEventSink(ctrl)
	connID, userID := uuid.NewString(), uuid.NewString()
	req.NoError(hub.Attach(connID, userID, sink))

	// Given a project the actor does not belong to
	store.EXPECT().GetProject("p1").Return(domain.Project{
		ID:      "p1",
		Members: map[string]domain.Role{"someone-else": domain.RoleOwner},
	}, nil)

	// Then only the origin connection receives an error frame
	sink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e event.Outbound) error {
			frame, ok := e.(event.Error)
			req.True(ok)
			req.Equal("unauthorized", frame.Code)
			return nil
		}).
		Times(1)

	// When the connection asks to join
	hub.dispatch(context.Background(), Command{ConnID: connID, Event: event.JoinProject{ProjectID: "p1"}})

	// And no membership was created
	req.Empty(registry.MembersOf(domain.ProjectChannel("p1")))
}

func TestHub_JoinUserChannel_Uses_Authenticated_Identity(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	hub, registry := newTestHub(t, store)
	connID, userID := uuid.NewString(), uuid.NewString()
	req.NoError(hub.Attach(connID, userID, mocks.NewMockEventSink(ctrl)))

	// When the connection joins its user channel (no payload field at all)
	hub.dispatch(context.Background(), Command{ConnID: connID, Event: event.JoinUserChannel{}})

	// Then it is subscribed under the id the token authenticated
	req.Equal([]string{connID}, registry.MembersOf(domain.UserChannel(userID)))
}

func TestHub_Dispatch_Gone_Connection_Is_Dropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	hub, _ := newTestHub(t, store)

	// A command from a connection that already detached touches nothing:
	// the store mock would fail the test on any call.
	hub.dispatch(context.Background(), Command{
		ConnID: uuid.NewString(),
		Event:  event.SendMessage{ProjectID: "p1", Text: "hello"},
	})
}

func TestHub_Mutation_Broadcasts_To_Project_Channel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	hub, registry := newTestHub(t, store)
	actorID := uuid.NewString()
	memberID := uuid.NewString()

	// Given the actor and another member both listening on the project channel
	actorConn, memberConn := uuid.NewString(), uuid.NewString()
	actorSink := mocks.NewMockEventSink(ctrl)
	memberSink := mocks.NewMockEventSink(ctrl)
	req.NoError(hub.Attach(actorConn, actorID, actorSink))
	req.NoError(hub.Attach(memberConn, memberID, memberSink))
	req.NoError(registry.Join(actorConn, domain.ProjectChannel("p1")))
	req.NoError(registry.Join(memberConn, domain.ProjectChannel("p1")))

	project := domain.Project{
		ID:   "p1",
		Name: "Apollo",
		Members: map[string]domain.Role{
			actorID:  domain.RoleMember,
			memberID: domain.RoleMember,
		},
	}
	store.EXPECT().GetProject("p1").Return(project, nil)
	store.EXPECT().GetUser(actorID).Return(domain.User{ID: actorID, Name: "Alice"}, nil)
	store.EXPECT().
		CreateMessage(gomock.Any()).
		DoAndReturn(func(m domain.Message) (domain.Message, error) { return m, nil })
	store.EXPECT().
		CreateNotification(gomock.Any()).
		DoAndReturn(func(n domain.Notification) (domain.Notification, error) {
			req.Equal(memberID, n.UserID)
			return n, nil
		})

	// Then both project members receive the broadcast
	actorSink.EXPECT().Consume(gomock.Any(), gomock.AssignableToTypeOf(event.NewMessage{})).Return(nil)
	memberSink.EXPECT().Consume(gomock.Any(), gomock.AssignableToTypeOf(event.NewMessage{})).Return(nil)

	// When the actor sends a message
	hub.dispatch(context.Background(), Command{
		ConnID: actorConn,
		Event:  event.SendMessage{ProjectID: "p1", Text: "hello"},
	})
}

func TestHub_Submit_Full_Queue_Drops_Command(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	log := slog.Default()
	stats := observability.NewStats()
	registry := NewRegistry()
	router := NewRouter(registry, log, stats, time.Second)
	moderator, err := moderation.NewModerator(nil, '*', log)
	req.NoError(err)
	store := mocks.NewMockStore(ctrl)
	handlers := mutation.NewHandlers(store, &moderator, log)
	notifier := notify.NewNotifier(store, router, log, stats)

	// Given a hub with a single-slot queue and no running worker
	hub := NewHub(log, registry, router, store, handlers, notifier, stats, 1, 1)

	hub.Submit(Command{ConnID: "c1", Event: event.JoinUserChannel{}})
	hub.Submit(Command{ConnID: "c2", Event: event.JoinUserChannel{}})

	// Then the overflow command is dropped, not blocked on
	req.Equal(uint64(1), stats.Snapshot().CommandsDropped)
}

func TestHub_Run_Stops_On_Context_Cancel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	hub, _ := newTestHub(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		req.Fail("hub should stop when the context is cancelled")
	}
}
