package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"notifyhub/domain/event"
)

func TestSink_Consume_Never_Blocks_The_Publisher(t *testing.T) {
	req := require.New(t)
	sink := NewSink(2)
	ctx := context.Background()

	req.NoError(sink.Consume(ctx, event.Error{Code: "a"}))
	req.NoError(sink.Consume(ctx, event.Error{Code: "b"}))

	// A full buffer loses this copy instead of blocking
	err := sink.Consume(ctx, event.Error{Code: "c"})
	req.ErrorIs(err, ErrBufferFull)

	// The buffered events are still drained in order
	req.Equal(event.Error{Code: "a"}, <-sink.Events())
	req.Equal(event.Error{Code: "b"}, <-sink.Events())
}

func TestSink_Consume_Is_Context_Independent(t *testing.T) {
	req := require.New(t)
	sink := NewSink(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A dead context changes nothing: free buffer accepts, full refuses
	req.NoError(sink.Consume(ctx, event.Error{Code: "a"}))
	err := sink.Consume(ctx, event.Error{Code: "b"})
	req.ErrorIs(err, ErrBufferFull)
}
