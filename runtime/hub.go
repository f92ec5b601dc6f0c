package runtime

import (
	"context"
	"log/slog"
	"sync"

	"notifyhub/contract"
	"notifyhub/domain"
	"notifyhub/domain/event"
	"notifyhub/errors"
	"notifyhub/mutation"
	"notifyhub/notify"
	"notifyhub/observability"
)

// Command is one inbound event bound to the connection that issued it.
type Command struct {
	ConnID string
	Event  event.Inbound
}

// Hub is the single dispatch point. It binds the actor identity from the
// registered connection, resolves the mutation handler, and on success
// pipes the derived events through the router and the notifier. On failure
// only the originating connection hears about it.
//
// Hub runs as a supervised worker: Run consumes the shared command channel
// with a pool of goroutines. Per-project serialization lives in the
// mutation handlers, so concurrent commands for distinct projects proceed
// in parallel while a given mutation's events stay ordered.
type Hub struct {
	log       *slog.Logger
	registry  contract.IRegistry
	router    contract.IRouter
	store     contract.Store
	mutations *mutation.Handlers
	notifier  *notify.Notifier
	stats     *observability.Stats
	taps      []contract.EventSink
	commands  chan Command
	workers   int
}

func NewHub(log *slog.Logger, registry contract.IRegistry, router contract.IRouter,
	store contract.Store, mutations *mutation.Handlers, notifier *notify.Notifier,
	stats *observability.Stats, bufferSize, workers int) *Hub {
	return &Hub{
		log:       log,
		registry:  registry,
		router:    router,
		store:     store,
		mutations: mutations,
		notifier:  notifier,
		stats:     stats,
		commands:  make(chan Command, bufferSize),
		workers:   workers,
	}
}

// Tap registers a permanent sink receiving every broadcast event, on top
// of channel delivery. Used for projections and the search index.
func (h *Hub) Tap(sinks ...contract.EventSink) {
	h.taps = append(h.taps, sinks...)
}

// Attach registers a connection under the user id it authenticated as.
func (h *Hub) Attach(connID, userID string, sink contract.EventSink) error {
	return h.registry.Register(connID, userID, sink)
}

// Detach removes the connection and all of its channel memberships.
func (h *Hub) Detach(connID string) {
	h.registry.Unregister(connID)
}

// Submit queues a command without blocking the caller's read loop. A full
// queue drops the command; the client will retry or resync on read.
func (h *Hub) Submit(cmd Command) {
	select {
	case h.commands <- cmd:
	default:
		h.stats.CommandDropped()
		h.log.Warn("command queue full, dropping command",
			"conn_id", cmd.ConnID)
	}
}

// Run consumes commands until the context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < h.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case cmd := <-h.commands:
					h.dispatch(ctx, cmd)
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (h *Hub) dispatch(ctx context.Context, cmd Command) {
	actorID, ok := h.registry.UserOf(cmd.ConnID)
	if !ok {
		// The connection disconnected while the command was queued.
		// Nothing was written yet, abandoning is safe.
		h.log.Debug("dropping command from gone connection", "conn_id", cmd.ConnID)
		return
	}

	switch evt := cmd.Event.(type) {
	case event.JoinProject:
		h.joinProject(ctx, cmd.ConnID, actorID, evt)
	case event.JoinUserChannel:
		if err := h.registry.Join(cmd.ConnID, domain.UserChannel(actorID)); err != nil {
			h.reportError(ctx, cmd.ConnID, err)
		}
	default:
		h.mutate(ctx, cmd.ConnID, actorID, cmd.Event)
	}
}

// joinProject subscribes the connection to the project channel after
// checking the actor actually belongs to the project.
func (h *Hub) joinProject(ctx context.Context, connID, actorID string, in event.JoinProject) {
	project, err := h.store.GetProject(in.ProjectID)
	if err != nil {
		h.reportError(ctx, connID, err)
		return
	}
	if !project.IsMember(actorID) {
		h.reportError(ctx, connID,
			errors.Unauthorizedf("user %s is not a member of project %s", actorID, project.ID))
		return
	}
	if err := h.registry.Join(connID, domain.ProjectChannel(project.ID)); err != nil {
		h.reportError(ctx, connID, err)
	}
}

func (h *Hub) mutate(ctx context.Context, connID, actorID string, in event.Inbound) {
	result, err := h.mutations.Apply(actorID, in)
	if err != nil {
		h.reportError(ctx, connID, err)
		return
	}

	// Publishing happens outside any critical section; it is best-effort
	// and must not hold up other mutations.
	for _, broadcast := range result.Broadcasts {
		h.router.Publish(broadcast.Channel, broadcast.Event)
		for _, tap := range h.taps {
			if err := tap.Consume(ctx, broadcast.Event); err != nil {
				h.log.Error("tap rejected event",
					"kind", broadcast.Event.Kind(),
					"error", err)
			}
		}
	}
	h.notifier.Fanout(actorID, result.Targets)
}

// reportError sends an error frame to the originating connection only.
func (h *Hub) reportError(ctx context.Context, connID string, err error) {
	sink, ok := h.registry.SinkOf(connID)
	if !ok {
		return
	}
	frame := event.Error{Code: errors.Code(err), Message: err.Error()}
	if consumeErr := sink.Consume(ctx, frame); consumeErr != nil {
		h.log.Debug("error frame dropped", "conn_id", connID, "error", consumeErr)
	}
}
