package repositories

import (
	stderrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"notifyhub/domain"
	"notifyhub/errors"
)

func taskKey(id string) string { return "task:" + id }

func (s *BadgerStore) CreateTask(task domain.Task) (domain.Task, error) {
	if err := s.put(taskKey(task.ID), task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (s *BadgerStore) GetTask(id string) (domain.Task, error) {
	var task domain.Task
	if err := s.get(taskKey(id), &task); err != nil {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, err)
	}
	return task, nil
}

// UpdateTaskStatus applies the status change as a single read-modify-write
// transaction so concurrent writers can't interleave half-updates.
func (s *BadgerStore) UpdateTaskStatus(taskID string, status domain.TaskStatus) (domain.Task, error) {
	return s.updateTask(taskID, func(task *domain.Task) {
		task.Status = status
	})
}

func (s *BadgerStore) AssignTask(taskID, userID string) (domain.Task, error) {
	return s.updateTask(taskID, func(task *domain.Task) {
		task.AssignedTo = userID
	})
}

func (s *BadgerStore) updateTask(taskID string, mutate func(*domain.Task)) (domain.Task, error) {
	var task domain.Task
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, taskKey(taskID), &task); err != nil {
			return err
		}
		mutate(&task)
		return setJSON(txn, taskKey(taskID), task)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Task{}, errors.NotFoundf("task %s", taskID)
	}
	if err != nil {
		return domain.Task{}, errors.Storef("updating task %s: %v", taskID, err)
	}
	return task, nil
}
