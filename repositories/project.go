package repositories

import (
	stderrors "errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"notifyhub/domain"
	"notifyhub/errors"
)

func projectKey(id string) string { return "project:" + id }

// memberKey is the per-user membership index used by ListProjectsFor.
func memberKey(userID, projectID string) string {
	return fmt.Sprintf("member:%s:%s", userID, projectID)
}

func (s *BadgerStore) CreateProject(project domain.Project) (domain.Project, error) {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, projectKey(project.ID), project); err != nil {
			return err
		}
		for userID := range project.Members {
			if err := txn.Set([]byte(memberKey(userID, project.ID)), []byte(project.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Project{}, errors.Storef("creating project: %v", err)
	}
	return project, nil
}

func (s *BadgerStore) GetProject(id string) (domain.Project, error) {
	var project domain.Project
	if err := s.get(projectKey(id), &project); err != nil {
		return domain.Project{}, fmt.Errorf("project %s: %w", id, err)
	}
	return project, nil
}

// AddMember grants a role in the project. Granting to an existing member
// updates the role; the membership index stays consistent either way.
func (s *BadgerStore) AddMember(projectID, userID string, role domain.Role) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var project domain.Project
		if err := getJSON(txn, projectKey(projectID), &project); err != nil {
			return err
		}
		project.Members[userID] = role
		if err := setJSON(txn, projectKey(projectID), project); err != nil {
			return err
		}
		return txn.Set([]byte(memberKey(userID, projectID)), []byte(projectID))
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.NotFoundf("project %s", projectID)
	}
	if err != nil {
		return errors.Storef("adding member: %v", err)
	}
	return nil
}

func (s *BadgerStore) ListProjectsFor(userID string) ([]domain.Project, error) {
	var projectIDs []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("member:%s:", userID))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				projectIDs = append(projectIDs, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storef("listing projects: %v", err)
	}

	sort.Strings(projectIDs)
	projects := make([]domain.Project, 0, len(projectIDs))
	for _, id := range projectIDs {
		project, err := s.GetProject(id)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, nil
}
