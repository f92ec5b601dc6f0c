package ws

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"notifyhub/domain/event"
	"notifyhub/errors"
)

// frame is the wire envelope: a type tag plus the event payload.
type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// decodeInbound turns a raw frame into its typed inbound event and
// validates the payload. Unknown types and malformed payloads fail
// validation without reaching the hub.
func decodeInbound(data []byte, validate *validator.Validate) (event.Inbound, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Validationf("malformed frame: %v", err)
	}

	var in event.Inbound
	switch f.Type {
	case "joinProject":
		in = &event.JoinProject{}
	case "joinUserChannel":
		return event.JoinUserChannel{}, nil
	case "sendMessage":
		in = &event.SendMessage{}
	case "createTask":
		in = &event.CreateTask{}
	case "updateTaskStatus":
		in = &event.UpdateTaskStatus{}
	case "assignTask":
		in = &event.AssignTask{}
	default:
		return nil, errors.Validationf("unknown event type %q", f.Type)
	}

	if len(f.Payload) > 0 {
		if err := json.Unmarshal(f.Payload, in); err != nil {
			return nil, errors.Validationf("malformed %s payload: %v", f.Type, err)
		}
	}
	if err := validate.Struct(in); err != nil {
		return nil, errors.Validationf("invalid %s payload: %v", f.Type, err)
	}
	return deref(in), nil
}

// deref returns the event by value so type switches downstream match the
// same concrete types everywhere.
func deref(in event.Inbound) event.Inbound {
	switch evt := in.(type) {
	case *event.JoinProject:
		return *evt
	case *event.SendMessage:
		return *evt
	case *event.CreateTask:
		return *evt
	case *event.UpdateTaskStatus:
		return *evt
	case *event.AssignTask:
		return *evt
	default:
		return in
	}
}

// encodeOutbound wraps an outbound event in its wire envelope.
func encodeOutbound(e event.Outbound) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", e.Kind(), err)
	}
	return json.Marshal(frame{Type: e.Kind(), Payload: payload})
}
