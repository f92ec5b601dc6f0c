// Package observability aggregates runtime counters for the hub.
package observability

import "sync/atomic"

// Stats holds the live counters of the hub process. All methods are safe
// for concurrent use.
type Stats struct {
	connections            atomic.Int64
	framesDelivered        atomic.Uint64
	framesDropped          atomic.Uint64
	notificationsPersisted atomic.Uint64
	commandsDropped        atomic.Uint64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Connections            int64  `json:"connections"`
	FramesDelivered        uint64 `json:"frames_delivered"`
	FramesDropped          uint64 `json:"frames_dropped"`
	NotificationsPersisted uint64 `json:"notifications_persisted"`
	CommandsDropped        uint64 `json:"commands_dropped"`
}

func NewStats() *Stats { return &Stats{} }

func (s *Stats) ConnOpened() { s.connections.Add(1) }
func (s *Stats) ConnClosed() { s.connections.Add(-1) }

func (s *Stats) FrameDelivered()        { s.framesDelivered.Add(1) }
func (s *Stats) FrameDropped()          { s.framesDropped.Add(1) }
func (s *Stats) NotificationPersisted() { s.notificationsPersisted.Add(1) }
func (s *Stats) CommandDropped()        { s.commandsDropped.Add(1) }

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Connections:            s.connections.Load(),
		FramesDelivered:        s.framesDelivered.Load(),
		FramesDropped:          s.framesDropped.Load(),
		NotificationsPersisted: s.notificationsPersisted.Load(),
		CommandsDropped:        s.commandsDropped.Load(),
	}
}
