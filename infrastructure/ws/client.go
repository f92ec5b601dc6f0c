package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"notifyhub/domain/event"
	"notifyhub/runtime"
)

const writeWait = 10 * time.Second

type client struct {
	id       string
	userID   string
	conn     *websocket.Conn
	sink     *Sink
	hub      *runtime.Hub
	log      *slog.Logger
	validate *validator.Validate
}

// readLoop decodes frames and forwards commands to the hub. A frame that
// fails validation is answered on this connection only; the loop keeps
// going.
func (c *client) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read failed", "conn_id", c.id, "error", err)
			}
			return
		}

		in, err := decodeInbound(data, c.validate)
		if err != nil {
			frame := event.Error{Code: "validation", Message: err.Error()}
			if consumeErr := c.sink.Consume(ctx, frame); consumeErr != nil {
				c.log.Debug("error frame dropped", "conn_id", c.id)
			}
			continue
		}
		c.hub.Submit(runtime.Command{ConnID: c.id, Event: in})
	}
}

// writeLoop owns the socket's write side, draining the sink in order.
func (c *client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case e := <-c.sink.Events():
			data, err := encodeOutbound(e)
			if err != nil {
				c.log.Error("failed to encode event", "kind", e.Kind(), "error", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("write failed", "conn_id", c.id, "error", err)
				return
			}
		}
	}
}
