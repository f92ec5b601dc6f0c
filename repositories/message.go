package repositories

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"notifyhub/domain"
	"notifyhub/errors"
)

// messageKey formats "msg:{project}:{timestamp_padded}:{id}". The 19-digit
// zero padding makes lexicographic order match chronological order, and
// the trailing id disambiguates two messages on the same nanosecond.
func messageKey(message domain.Message) string {
	return fmt.Sprintf("msg:%s:%019d:%s",
		message.ProjectID,
		message.CreatedAt.UnixNano(),
		message.ID)
}

func (s *BadgerStore) CreateMessage(message domain.Message) (domain.Message, error) {
	if err := s.put(messageKey(message), message); err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// ListMessages walks a project's messages newest first. The returned
// cursor is the key suffix of the last message; passing it back resumes
// the scan right after it. A nil next cursor means the history is
// exhausted.
func (s *BadgerStore) ListMessages(projectID string, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string
	err := s.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", projectID)
		prefix := []byte(prefixStr)

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past every possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}
		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if s.limitMessages != nil && len(messages) == *s.limitMessages {
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(val []byte) error {
				var message domain.Message
				if err := json.Unmarshal(val, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, errors.Storef("listing messages: %v", err)
	}

	var next *string
	if s.limitMessages != nil && len(messages) == *s.limitMessages && lastKey != "" {
		next = &lastKey
	}
	return messages, next, nil
}
