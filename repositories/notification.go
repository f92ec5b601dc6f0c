package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"notifyhub/domain"
	"notifyhub/errors"
)

// notificationKey is time-ordered per user; notificationIdxKey is the
// secondary index resolving a notification id back to its primary key,
// needed because mark-read addresses notifications by id alone.
func notificationKey(n domain.Notification) string {
	return fmt.Sprintf("notif:%s:%019d:%s", n.UserID, n.CreatedAt.UnixNano(), n.ID)
}

func notificationIdxKey(userID, notificationID string) string {
	return fmt.Sprintf("idx:notif:%s:%s", userID, notificationID)
}

func (s *BadgerStore) CreateNotification(notification domain.Notification) (domain.Notification, error) {
	key := notificationKey(notification)
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, key, notification); err != nil {
			return err
		}
		return txn.Set(
			[]byte(notificationIdxKey(notification.UserID, notification.ID)),
			[]byte(key))
	})
	if err != nil {
		return domain.Notification{}, errors.Storef("creating notification: %v", err)
	}
	return notification, nil
}

// ListNotifications returns a user's notifications newest first.
func (s *BadgerStore) ListNotifications(userID string) ([]domain.Notification, error) {
	var notifications []domain.Notification
	err := s.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("notif:%s:", userID)
		prefix := []byte(prefixStr)

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(prefix, []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var notification domain.Notification
				if err := json.Unmarshal(val, &notification); err != nil {
					return err
				}
				notifications = append(notifications, notification)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storef("listing notifications: %v", err)
	}
	return notifications, nil
}

// MarkNotificationRead flips the read flag to true. Marking an already
// read notification is a no-op; the flag never reverts.
func (s *BadgerStore) MarkNotificationRead(userID, notificationID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(notificationIdxKey(userID, notificationID)))
		if err != nil {
			return err
		}
		var primaryKey string
		if err := item.Value(func(val []byte) error {
			primaryKey = string(val)
			return nil
		}); err != nil {
			return err
		}

		var notification domain.Notification
		if err := getJSON(txn, primaryKey, &notification); err != nil {
			return err
		}
		if notification.Read {
			return nil
		}
		notification.Read = true
		return setJSON(txn, primaryKey, notification)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.NotFoundf("notification %s", notificationID)
	}
	if err != nil {
		return errors.Storef("marking notification read: %v", err)
	}
	return nil
}
