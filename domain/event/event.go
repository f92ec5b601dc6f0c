// Package event defines the closed set of events crossing the hub boundary.
// Inbound events are client-initiated commands, outbound events are pushed
// by the server to subscribed connections. Keeping both sets as tagged
// variants makes every dispatch an exhaustive type switch.
package event

// Inbound is a client-initiated command decoded from a transport frame.
type Inbound interface {
	isInbound()
}

// Outbound is a server-pushed event delivered to subscribed connections.
// Kind is the wire-level type tag.
type Outbound interface {
	Kind() string
}
