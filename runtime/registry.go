// Package runtime composes the live parts of the hub: connection registry,
// channel router and command dispatch. It holds no business rules.
package runtime

import (
	"sync"

	"github.com/samber/lo"

	"notifyhub/contract"
	"notifyhub/domain"
	"notifyhub/errors"
)

type Set map[string]struct{}

type connection struct {
	userID   string
	sink     contract.EventSink
	channels map[domain.ChannelID]struct{}
}

// Registry tracks live connections, the user each connection authenticated
// as, and channel memberships. A single mutex domain is enough: every
// operation is a short map update.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*connection
	channels    map[domain.ChannelID]Set // channel -> connection ids
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]*connection),
		channels:    make(map[domain.ChannelID]Set),
	}
}

// Register binds a connection to the user it authenticated as. The binding
// is immutable for the connection's lifetime. Registering the same
// connection id twice fails.
func (r *Registry) Register(connID, userID string, sink contract.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connID]; ok {
		return errors.ErrAlreadyRegistered
	}
	r.connections[connID] = &connection{
		userID:   userID,
		sink:     sink,
		channels: make(map[domain.ChannelID]struct{}),
	}
	return nil
}

// Join subscribes a connection to a channel. Joining a channel already
// joined is a no-op. Channels are created lazily on first join.
func (r *Registry) Join(connID string, channel domain.ChannelID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return errors.ErrUnknownConnection
	}
	conn.channels[channel] = struct{}{}

	if _, ok := r.channels[channel]; !ok {
		r.channels[channel] = make(Set)
	}
	r.channels[channel][connID] = struct{}{}
	return nil
}

// Leave removes a connection from a channel. Leaving a channel the
// connection is not a member of is a no-op.
func (r *Registry) Leave(connID string, channel domain.ChannelID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(connID, channel)
}

func (r *Registry) leaveLocked(connID string, channel domain.ChannelID) {
	if conn, ok := r.connections[connID]; ok {
		delete(conn.channels, channel)
	}
	members, ok := r.channels[channel]
	if !ok {
		return
	}
	delete(members, connID)
	// Garbage-collect empty channels so the map doesn't grow forever.
	if len(members) == 0 {
		delete(r.channels, channel)
	}
}

// Unregister removes the connection and every channel membership it held.
// Unknown connection ids are ignored.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return
	}
	for channel := range conn.channels {
		r.leaveLocked(connID, channel)
	}
	delete(r.connections, connID)
}

// MembersOf returns the connection ids currently joined to a channel.
// Unknown channels yield an empty result, never an error.
func (r *Registry) MembersOf(channel domain.ChannelID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.channels[channel]
	if !ok {
		return nil
	}
	return lo.Keys(members)
}

// SinksFor resolves the live delivery endpoints of a channel at call time.
// A connection that disappeared between lookup and delivery is simply
// absent from the result.
func (r *Registry) SinksFor(channel domain.ChannelID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.channels[channel]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for connID := range members {
		if conn, exists := r.connections[connID]; exists {
			sinks = append(sinks, conn.sink)
		}
	}
	return sinks
}

// SinkOf returns the delivery endpoint of a single connection.
func (r *Registry) SinkOf(connID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[connID]
	if !ok {
		return nil, false
	}
	return conn.sink, true
}

// UserOf returns the user id a connection authenticated as.
func (r *Registry) UserOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[connID]
	if !ok {
		return "", false
	}
	return conn.userID, true
}
