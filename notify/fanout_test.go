package notify

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"notifyhub/domain"
	"notifyhub/domain/event"
	"notifyhub/errors"
	"notifyhub/mocks"
	"notifyhub/observability"
)

func TestFanout_Persists_Then_Pushes_To_User_Channel(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	router := mocks.NewMockIRouter(ctrl)
	stats := observability.NewStats()
	notifier := NewNotifier(store, router, slog.Default(), stats)

	target := Target{
		UserID:      "bob",
		Text:        "New message in Apollo from Alice",
		ReferenceID: "m1",
		Type:        domain.NotificationNewMessage,
	}

	store.EXPECT().
		CreateNotification(gomock.Any()).
		DoAndReturn(func(n domain.Notification) (domain.Notification, error) {
			req.NotEmpty(n.ID)
			req.Equal("bob", n.UserID)
			req.Equal(target.Text, n.Text)
			req.False(n.Read)
			req.False(n.CreatedAt.IsZero())
			return n, nil
		})
	router.EXPECT().
		Publish(domain.UserChannel("bob"), gomock.AssignableToTypeOf(event.NotificationPushed{}))

	notifier.Fanout("alice", []Target{target})

	req.Equal(uint64(1), stats.Snapshot().NotificationsPersisted)
}

func TestFanout_Never_Notifies_The_Actor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Both mocks would fail the test on any call
	store := mocks.NewMockStore(ctrl)
	router := mocks.NewMockIRouter(ctrl)
	notifier := NewNotifier(store, router, slog.Default(), observability.NewStats())

	notifier.Fanout("alice", []Target{{UserID: "alice", Text: "echo"}})
}

func TestFanout_Failed_Persist_Skips_Push_For_That_Target_Only(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockStore(ctrl)
	router := mocks.NewMockIRouter(ctrl)
	stats := observability.NewStats()
	notifier := NewNotifier(store, router, slog.Default(), stats)

	// Given the first persist fails and the second succeeds
	first := store.EXPECT().
		CreateNotification(gomock.Any()).
		Return(domain.Notification{}, errors.Storef("disk full"))
	store.EXPECT().
		CreateNotification(gomock.Any()).
		DoAndReturn(func(n domain.Notification) (domain.Notification, error) { return n, nil }).
		After(first)

	// Then only the second recipient gets a live push
	router.EXPECT().
		Publish(domain.UserChannel("clara"), gomock.Any()).
		Times(1)

	notifier.Fanout("alice", []Target{
		{UserID: "bob", Text: "first"},
		{UserID: "clara", Text: "second"},
	})

	req.Equal(uint64(1), stats.Snapshot().NotificationsPersisted)
}
