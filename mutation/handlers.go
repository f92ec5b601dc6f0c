// Package mutation implements the validated state transitions a connected
// client can request. Each handler validates its input, authorizes the
// actor, applies the single store write inside the project's critical
// section, and returns the derived broadcasts and notification targets.
// A failed handler produces no partial effect.
package mutation

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"notifyhub/contract"
	"notifyhub/domain"
	"notifyhub/domain/event"
	"notifyhub/errors"
	"notifyhub/moderation"
	"notifyhub/notify"
)

// Broadcast is one event for one channel, published in slice order.
type Broadcast struct {
	Channel domain.ChannelID
	Event   event.Outbound
}

// Result carries everything a successful mutation derived.
type Result struct {
	Broadcasts []Broadcast
	Targets    []notify.Target
}

type Handlers struct {
	store     contract.Store
	moderator *moderation.Moderator
	log       *slog.Logger

	mu           sync.Mutex
	projectLocks map[string]*sync.Mutex
}

func NewHandlers(store contract.Store, moderator *moderation.Moderator, log *slog.Logger) *Handlers {
	return &Handlers{
		store:        store,
		moderator:    moderator,
		log:          log,
		projectLocks: make(map[string]*sync.Mutex),
	}
}

// lockProject serializes all mutations touching one project. Coarser than
// per-entity locking but sufficient: store calls are local and short, and
// no network I/O happens while the lock is held.
func (h *Handlers) lockProject(projectID string) func() {
	h.mu.Lock()
	lock, ok := h.projectLocks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		h.projectLocks[projectID] = lock
	}
	h.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Apply dispatches an inbound command to its handler. The actor id comes
// from the authenticated connection, never from the payload.
func (h *Handlers) Apply(actorID string, in event.Inbound) (Result, error) {
	switch evt := in.(type) {
	case event.SendMessage:
		return h.SendMessage(actorID, evt)
	case event.CreateTask:
		return h.CreateTask(actorID, evt)
	case event.UpdateTaskStatus:
		return h.UpdateTaskStatus(actorID, evt)
	case event.AssignTask:
		return h.AssignTask(actorID, evt)
	default:
		return Result{}, errors.Validationf("unsupported action %T", in)
	}
}

// SendMessage appends an immutable message to the project and notifies
// every other member.
func (h *Handlers) SendMessage(actorID string, in event.SendMessage) (Result, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Result{}, errors.Validationf("message text is empty")
	}

	project, err := h.store.GetProject(in.ProjectID)
	if err != nil {
		return Result{}, err
	}
	if !project.IsMember(actorID) {
		return Result{}, errors.Unauthorizedf("user %s is not a member of project %s", actorID, project.ID)
	}
	actor, err := h.store.GetUser(actorID)
	if err != nil {
		return Result{}, err
	}

	censored, flagged := h.moderator.Censor(text)
	if len(flagged) > 0 {
		h.log.Warn("message censored",
			"project_id", project.ID,
			"author_id", actorID,
			"words", flagged)
	}
	info := whatlanggo.Detect(censored)

	unlock := h.lockProject(project.ID)
	// CreatedAt is taken under the lock so arrival order and timestamp
	// order agree per project.
	message, err := h.store.CreateMessage(domain.Message{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		AuthorID:  actorID,
		Content:   censored,
		Lang:      info.Lang.Iso6391(),
		CreatedAt: time.Now().UTC(),
	})
	unlock()
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Broadcasts: []Broadcast{{
			Channel: domain.ProjectChannel(project.ID),
			Event:   event.NewMessage{ProjectID: project.ID, Message: message},
		}},
	}
	for memberID := range project.Members {
		if memberID == actorID {
			continue
		}
		result.Targets = append(result.Targets, notify.Target{
			UserID:      memberID,
			Text:        fmt.Sprintf("New message in %s from %s", project.Name, actor.Name),
			ReferenceID: message.ID,
			Type:        domain.NotificationNewMessage,
		})
	}
	return result, nil
}

// CreateTask creates a task in status todo. No notification is derived.
func (h *Handlers) CreateTask(actorID string, in event.CreateTask) (Result, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Result{}, errors.Validationf("task name is empty")
	}

	project, err := h.store.GetProject(in.ProjectID)
	if err != nil {
		return Result{}, err
	}
	if !project.IsMember(actorID) {
		return Result{}, errors.Unauthorizedf("user %s is not a member of project %s", actorID, project.ID)
	}

	unlock := h.lockProject(project.ID)
	task, err := h.store.CreateTask(domain.Task{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		Name:        name,
		Description: in.Description,
		Status:      domain.TaskTodo,
	})
	unlock()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Broadcasts: []Broadcast{{
			Channel: domain.ProjectChannel(project.ID),
			Event:   event.TaskCreated{ProjectID: project.ID, Task: task},
		}},
	}, nil
}

// UpdateTaskStatus moves a task to a new status and notifies the assignee
// and the project owners. An owner who is also the assignee receives only
// the assignee notification; the actor receives nothing.
func (h *Handlers) UpdateTaskStatus(actorID string, in event.UpdateTaskStatus) (Result, error) {
	status := domain.TaskStatus(in.Status)
	if !status.IsValid() {
		return Result{}, errors.Validationf("unknown task status %q", in.Status)
	}

	task, err := h.store.GetTask(in.TaskID)
	if err != nil {
		return Result{}, err
	}
	project, err := h.store.GetProject(task.ProjectID)
	if err != nil {
		return Result{}, err
	}
	if !project.IsMember(actorID) {
		return Result{}, errors.Unauthorizedf("user %s is not a member of project %s", actorID, project.ID)
	}
	actor, err := h.store.GetUser(actorID)
	if err != nil {
		return Result{}, err
	}

	unlock := h.lockProject(project.ID)
	updated, err := h.store.UpdateTaskStatus(task.ID, status)
	unlock()
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Broadcasts: []Broadcast{{
			Channel: domain.ProjectChannel(project.ID),
			Event:   event.TaskUpdated{ProjectID: project.ID, Task: updated},
		}},
	}

	// One notification per user, structurally: the map entry wins over any
	// later owner entry for the same user.
	targets := make(map[string]notify.Target)
	if updated.AssignedTo != "" && updated.AssignedTo != actorID {
		targets[updated.AssignedTo] = notify.Target{
			UserID:      updated.AssignedTo,
			Text:        fmt.Sprintf("Task %q status changed to %q by %s", updated.Name, status, actor.Name),
			ReferenceID: updated.ID,
			Type:        domain.NotificationTaskStatus,
		}
	}
	for _, ownerID := range project.Owners() {
		if ownerID == actorID {
			continue
		}
		if _, taken := targets[ownerID]; taken {
			continue
		}
		targets[ownerID] = notify.Target{
			UserID:      ownerID,
			Text:        fmt.Sprintf("Task %q in %s was updated to %q by %s", updated.Name, project.Name, status, actor.Name),
			ReferenceID: updated.ID,
			Type:        domain.NotificationTaskStatus,
		}
	}
	result.Targets = lo.Values(targets)
	return result, nil
}

// AssignTask sets the assignee of a task. The target must be a project
// member. Assigning yourself derives no notification.
func (h *Handlers) AssignTask(actorID string, in event.AssignTask) (Result, error) {
	task, err := h.store.GetTask(in.TaskID)
	if err != nil {
		return Result{}, err
	}
	project, err := h.store.GetProject(task.ProjectID)
	if err != nil {
		return Result{}, err
	}
	if !project.IsMember(actorID) {
		return Result{}, errors.Unauthorizedf("user %s is not a member of project %s", actorID, project.ID)
	}
	if !project.IsMember(in.UserID) {
		return Result{}, errors.Unauthorizedf("assignee %s is not a member of project %s", in.UserID, project.ID)
	}
	actor, err := h.store.GetUser(actorID)
	if err != nil {
		return Result{}, err
	}

	unlock := h.lockProject(project.ID)
	updated, err := h.store.AssignTask(task.ID, in.UserID)
	unlock()
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Broadcasts: []Broadcast{{
			Channel: domain.ProjectChannel(project.ID),
			Event:   event.TaskUpdated{ProjectID: project.ID, Task: updated},
		}},
	}
	if in.UserID != actorID {
		result.Targets = append(result.Targets, notify.Target{
			UserID:      in.UserID,
			Text:        fmt.Sprintf("%s assigned you a new task: %q in %s", actor.Name, updated.Name, project.Name),
			ReferenceID: updated.ID,
			Type:        domain.NotificationTaskAssigned,
		})
	}
	return result, nil
}
