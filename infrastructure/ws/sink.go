// Package ws carries the hub's inbound and outbound events over
// websocket connections, one read loop and one buffered write loop per
// connection.
package ws

import (
	"context"
	"errors"

	"notifyhub/domain/event"
)

// ErrBufferFull is returned when a connection can't keep up with its
// outbound stream. The router counts the drop; nothing is retried.
var ErrBufferFull = errors.New("connection buffer full")

// Sink is the buffered write side of one connection. Consume is called by
// the router and the hub; the write loop drains Events onto the socket.
type Sink struct {
	events chan event.Outbound
}

func NewSink(bufferSize int) *Sink {
	return &Sink{events: make(chan event.Outbound, bufferSize)}
}

// Consume hands an event to the connection without ever blocking the
// publisher: a full buffer loses this connection's copy only.
func (s *Sink) Consume(_ context.Context, e event.Outbound) error {
	select {
	case s.events <- e:
		return nil
	default:
		return ErrBufferFull
	}
}

func (s *Sink) Events() <-chan event.Outbound {
	return s.events
}
