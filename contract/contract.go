//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"notifyhub/domain"
	"notifyhub/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself. The supervisor handles panics and restarts.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// used for logging and supervision without forcing a naming method on
// every Worker implementation.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one delivery endpoint for outbound events, typically the
// buffered write side of a live connection.
type EventSink interface {
	Consume(ctx context.Context, e event.Outbound) error
}

// IRegistry tracks live connections and their channel memberships.
type IRegistry interface {
	Register(connID, userID string, sink EventSink) error
	Join(connID string, channel domain.ChannelID) error
	Leave(connID string, channel domain.ChannelID)
	Unregister(connID string)
	MembersOf(channel domain.ChannelID) []string
	SinksFor(channel domain.ChannelID) []EventSink
	SinkOf(connID string) (EventSink, bool)
	UserOf(connID string) (string, bool)
}

// IRouter delivers an outbound event to every live member of a channel.
type IRouter interface {
	Publish(channel domain.ChannelID, e event.Outbound)
}

// Store is the durable persistence collaborator. The hub holds no
// authoritative entity state, only routing and membership state.
type Store interface {
	CreateUser(user domain.User) (domain.User, error)
	GetUser(id string) (domain.User, error)
	GetUserByEmail(email string) (domain.User, error)

	CreateProject(project domain.Project) (domain.Project, error)
	GetProject(id string) (domain.Project, error)
	AddMember(projectID, userID string, role domain.Role) error
	ListProjectsFor(userID string) ([]domain.Project, error)

	CreateTask(task domain.Task) (domain.Task, error)
	GetTask(id string) (domain.Task, error)
	UpdateTaskStatus(taskID string, status domain.TaskStatus) (domain.Task, error)
	AssignTask(taskID, userID string) (domain.Task, error)

	CreateMessage(message domain.Message) (domain.Message, error)
	ListMessages(projectID string, cursor *string) ([]domain.Message, *string, error)

	CreateNotification(notification domain.Notification) (domain.Notification, error)
	ListNotifications(userID string) ([]domain.Notification, error)
	MarkNotificationRead(userID, notificationID string) error
}
