package repositories

import (
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"notifyhub/domain"
	"notifyhub/errors"
)

func userKey(id string) string         { return "user:" + id }
func userEmailKey(email string) string { return "useremail:" + email }

// userRecord is the persisted shape. The domain type hides the password
// hash from JSON on purpose, so the store needs its own mapping.
type userRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

func toUserRecord(user domain.User) userRecord {
	return userRecord{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
	}
}

func (r userRecord) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
	}
}

// CreateUser stores the user and a secondary email index in one
// transaction. A taken email fails validation.
func (s *BadgerStore) CreateUser(user domain.User) (domain.User, error) {
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(userEmailKey(user.Email)))
		if err == nil {
			return errors.Validationf("email %s already registered", user.Email)
		}
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := setJSON(txn, userKey(user.ID), toUserRecord(user)); err != nil {
			return err
		}
		return txn.Set([]byte(userEmailKey(user.Email)), []byte(user.ID))
	})
	if err != nil {
		if stderrors.Is(err, errors.ErrValidation) {
			return domain.User{}, err
		}
		return domain.User{}, errors.Storef("creating user: %v", err)
	}
	return user, nil
}

func (s *BadgerStore) GetUser(id string) (domain.User, error) {
	var record userRecord
	if err := s.get(userKey(id), &record); err != nil {
		return domain.User{}, fmt.Errorf("user %s: %w", id, err)
	}
	return record.toDomain(), nil
}

func (s *BadgerStore) GetUserByEmail(email string) (domain.User, error) {
	var userID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userEmailKey(email)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			userID = string(val)
			return nil
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.NotFoundf("user with email %s", email)
	}
	if err != nil {
		return domain.User{}, errors.Storef("looking up email: %v", err)
	}
	return s.GetUser(userID)
}
