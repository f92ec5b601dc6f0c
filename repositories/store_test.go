package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"notifyhub/domain"
	"notifyhub/errors"
)

func newTestStore(t *testing.T, limitMessages *int) *BadgerStore {
	t.Helper()
	options := badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerStore(db, slog.Default(), limitMessages)
}

func TestUser_Create_Get_Keeps_Password_Hash(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	user := domain.User{
		ID:           uuid.NewString(),
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$...",
	}
	_, err := store.CreateUser(user)
	req.NoError(err)

	// The hash must survive the round trip even though the domain type
	// hides it from JSON responses
	fetched, err := store.GetUser(user.ID)
	req.NoError(err)
	req.Equal(user, fetched)

	byEmail, err := store.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(user, byEmail)
}

func TestUser_Duplicate_Email_Is_Rejected(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	_, err := store.CreateUser(domain.User{ID: uuid.NewString(), Email: "alice@example.com"})
	req.NoError(err)

	_, err = store.CreateUser(domain.User{ID: uuid.NewString(), Email: "alice@example.com"})
	req.ErrorIs(err, errors.ErrValidation)
}

func TestUser_Get_Unknown_Is_NotFound(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	_, err := store.GetUser(uuid.NewString())
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = store.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestProject_Membership_Index(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	// Given Alice owns one project and joins another
	first := domain.Project{
		ID:      "p1",
		Name:    "Apollo",
		Members: map[string]domain.Role{"alice": domain.RoleOwner},
	}
	second := domain.Project{
		ID:      "p2",
		Name:    "Borealis",
		Members: map[string]domain.Role{"bob": domain.RoleOwner},
	}
	_, err := store.CreateProject(first)
	req.NoError(err)
	_, err = store.CreateProject(second)
	req.NoError(err)
	req.NoError(store.AddMember("p2", "alice", domain.RoleMember))

	// Then both show up for Alice, none of them for Clara
	projects, err := store.ListProjectsFor("alice")
	req.NoError(err)
	req.Len(projects, 2)
	req.Equal("p1", projects[0].ID)
	req.Equal("p2", projects[1].ID)
	req.Equal(domain.RoleMember, projects[1].Members["alice"])

	none, err := store.ListProjectsFor("clara")
	req.NoError(err)
	req.Empty(none)
}

func TestProject_AddMember_Unknown_Project_Is_NotFound(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	err := store.AddMember("missing", "alice", domain.RoleMember)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestTask_Update_And_Assign_Round_Trip(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	task := domain.Task{
		ID:        uuid.NewString(),
		ProjectID: "p1",
		Name:      "Ship it",
		Status:    domain.TaskTodo,
	}
	_, err := store.CreateTask(task)
	req.NoError(err)

	updated, err := store.UpdateTaskStatus(task.ID, domain.TaskInProgress)
	req.NoError(err)
	req.Equal(domain.TaskInProgress, updated.Status)

	assigned, err := store.AssignTask(task.ID, "alice")
	req.NoError(err)
	req.Equal("alice", assigned.AssignedTo)
	// The earlier status change is still there
	req.Equal(domain.TaskInProgress, assigned.Status)

	fetched, err := store.GetTask(task.ID)
	req.NoError(err)
	req.Equal(assigned, fetched)
}

func TestTask_Update_Unknown_Is_NotFound(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	_, err := store.UpdateTaskStatus(uuid.NewString(), domain.TaskDone)
	req.ErrorIs(err, errors.ErrNotFound)
}

func storeMessages(t *testing.T, store *BadgerStore, projectID string, count int) []domain.Message {
	t.Helper()
	req := require.New(t)
	at := time.Now().UTC()
	messages := make([]domain.Message, 0, count)
	for i := 0; i < count; i++ {
		message := domain.Message{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			AuthorID:  "alice",
			Content:   "hello",
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		}
		_, err := store.CreateMessage(message)
		req.NoError(err)
		messages = append(messages, message)
	}
	return messages
}

func TestMessages_Listed_Newest_First(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	stored := storeMessages(t, store, "p1", 3)
	storeMessages(t, store, "other-project", 2)

	fetched, next, err := store.ListMessages("p1", nil)
	req.NoError(err)
	req.Nil(next)

	// Only this project's messages, newest first
	req.Len(fetched, 3)
	req.Equal(stored[2].ID, fetched[0].ID)
	req.Equal(stored[1].ID, fetched[1].ID)
	req.Equal(stored[0].ID, fetched[2].ID)
}

func TestMessages_Cursor_Walks_Full_History(t *testing.T) {
	req := require.New(t)
	limit := 2
	store := newTestStore(t, &limit)

	stored := storeMessages(t, store, "p1", 5)

	// First page: the two newest
	page1, cursor, err := store.ListMessages("p1", nil)
	req.NoError(err)
	req.Len(page1, 2)
	req.NotNil(cursor)
	req.Equal(stored[4].ID, page1[0].ID)
	req.Equal(stored[3].ID, page1[1].ID)

	// Second page resumes right after the first, no overlap
	page2, cursor, err := store.ListMessages("p1", cursor)
	req.NoError(err)
	req.Len(page2, 2)
	req.NotNil(cursor)
	req.Equal(stored[2].ID, page2[0].ID)
	req.Equal(stored[1].ID, page2[1].ID)

	// Last page drains the history
	page3, _, err := store.ListMessages("p1", cursor)
	req.NoError(err)
	req.Len(page3, 1)
	req.Equal(stored[0].ID, page3[0].ID)
}

func TestNotifications_Listed_Newest_First(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	at := time.Now().UTC()
	first := domain.Notification{
		ID: uuid.NewString(), UserID: "bob", Text: "first", CreatedAt: at,
	}
	second := domain.Notification{
		ID: uuid.NewString(), UserID: "bob", Text: "second", CreatedAt: at.Add(time.Minute),
	}
	other := domain.Notification{
		ID: uuid.NewString(), UserID: "clara", Text: "not for bob", CreatedAt: at,
	}
	for _, n := range []domain.Notification{first, second, other} {
		_, err := store.CreateNotification(n)
		req.NoError(err)
	}

	notifications, err := store.ListNotifications("bob")
	req.NoError(err)
	req.Len(notifications, 2)
	req.Equal("second", notifications[0].Text)
	req.Equal("first", notifications[1].Text)
}

func TestNotification_MarkRead_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	notification := domain.Notification{
		ID:        uuid.NewString(),
		UserID:    "bob",
		Text:      "task assigned",
		CreatedAt: time.Now().UTC(),
	}
	_, err := store.CreateNotification(notification)
	req.NoError(err)

	// When marking twice
	req.NoError(store.MarkNotificationRead("bob", notification.ID))
	req.NoError(store.MarkNotificationRead("bob", notification.ID))

	// Then the flag is set and stays set
	notifications, err := store.ListNotifications("bob")
	req.NoError(err)
	req.Len(notifications, 1)
	req.True(notifications[0].Read)
}

func TestNotification_MarkRead_Unknown_Is_NotFound(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t, nil)

	err := store.MarkNotificationRead("bob", uuid.NewString())
	req.ErrorIs(err, errors.ErrNotFound)
}
