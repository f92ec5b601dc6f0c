// Package notify derives and delivers notifications from one mutation.
// Records are always persisted; the live push to the recipient's user
// channel is best-effort.
package notify

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"notifyhub/contract"
	"notifyhub/domain"
	"notifyhub/domain/event"
	"notifyhub/observability"
)

// Target is one computed notification recipient. Handlers build at most
// one Target per user per mutation.
type Target struct {
	UserID      string
	Text        string
	ReferenceID string
	Type        domain.NotificationType
}

type Notifier struct {
	store  contract.Store
	router contract.IRouter
	log    *slog.Logger
	stats  *observability.Stats
}

func NewNotifier(store contract.Store, router contract.IRouter,
	log *slog.Logger, stats *observability.Stats) *Notifier {
	return &Notifier{store: store, router: router, log: log, stats: stats}
}

// Fanout persists a notification record for every target, then pushes a
// live frame to the recipient's user channel. The actor is never notified
// about their own action. A failed persist skips the live push for that
// recipient only.
func (n *Notifier) Fanout(actorID string, targets []Target) {
	for _, target := range targets {
		if target.UserID == actorID {
			continue
		}
		notification, err := n.store.CreateNotification(domain.Notification{
			ID:          uuid.NewString(),
			UserID:      target.UserID,
			Text:        target.Text,
			ReferenceID: target.ReferenceID,
			Type:        target.Type,
			CreatedAt:   time.Now().UTC(),
		})
		if err != nil {
			n.log.Error("failed to persist notification",
				"user_id", target.UserID,
				"type", string(target.Type),
				"error", err)
			continue
		}
		n.stats.NotificationPersisted()
		n.router.Publish(domain.UserChannel(target.UserID),
			event.NotificationPushed{Notification: notification})
	}
}
