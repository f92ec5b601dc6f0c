// Package projection builds read-side views from observed hub events.
// Projections never emit events and hold no authoritative state.
package projection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notifyhub/domain/event"
)

// Entry is one line of a project's activity feed.
type Entry struct {
	Kind      string    `json:"kind"`
	ProjectID string    `json:"projectId"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

// ActivityFeed keeps the most recent activity per project, newest first.
// It implements contract.EventSink and is fed by tapping the hub.
type ActivityFeed struct {
	mu      sync.RWMutex
	limit   int
	entries map[string][]Entry
}

func NewActivityFeed(limit int) *ActivityFeed {
	return &ActivityFeed{
		limit:   limit,
		entries: make(map[string][]Entry),
	}
}

func (f *ActivityFeed) Consume(_ context.Context, e event.Outbound) error {
	switch evt := e.(type) {
	case event.NewMessage:
		f.append(evt.ProjectID, Entry{
			Kind:      "message",
			ProjectID: evt.ProjectID,
			Text:      fmt.Sprintf("message from %s", evt.Message.AuthorID),
			At:        evt.Message.CreatedAt,
		})
	case event.TaskCreated:
		f.append(evt.ProjectID, Entry{
			Kind:      "task_created",
			ProjectID: evt.ProjectID,
			Text:      fmt.Sprintf("task %q created", evt.Task.Name),
			At:        time.Now().UTC(),
		})
	case event.TaskUpdated:
		f.append(evt.ProjectID, Entry{
			Kind:      "task_updated",
			ProjectID: evt.ProjectID,
			Text:      fmt.Sprintf("task %q moved to %s", evt.Task.Name, evt.Task.Status),
			At:        time.Now().UTC(),
		})
	}
	return nil
}

func (f *ActivityFeed) append(projectID string, entry Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	feed := append([]Entry{entry}, f.entries[projectID]...)
	if len(feed) > f.limit {
		feed = feed[:f.limit]
	}
	f.entries[projectID] = feed
}

// Recent returns a copy of the project's feed, newest first.
func (f *ActivityFeed) Recent(projectID string) []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	feed := f.entries[projectID]
	out := make([]Entry, len(feed))
	copy(out, feed)
	return out
}
