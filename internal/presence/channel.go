package presence

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/realtime"
)

// Channel is a live presence topic. PresenceState returns the keys the
// channel currently considers present.
type Channel interface {
	PresenceState() ([]string, error)
	Close() error
}

// doneNotifier is implemented by channels that can report losing their
// connection, such as *realtime.PresenceChannel.
type doneNotifier interface {
	Done() <-chan struct{}
}

// ChannelFactory opens the shared presence channel and routes its events to
// handlers.
type ChannelFactory interface {
	Open(ctx context.Context, handlers realtime.Handlers) (Channel, error)
}

// ChannelFactoryFunc adapts a function to ChannelFactory.
type ChannelFactoryFunc func(ctx context.Context, handlers realtime.Handlers) (Channel, error)

func (f ChannelFactoryFunc) Open(ctx context.Context, handlers realtime.Handlers) (Channel, error) {
	return f(ctx, handlers)
}

// RealtimeFactory opens topic on client for every new channel generation.
func RealtimeFactory(client *realtime.Client, topic string) ChannelFactory {
	return ChannelFactoryFunc(func(ctx context.Context, handlers realtime.Handlers) (Channel, error) {
		ch, err := client.Join(ctx, topic, handlers)
		if err != nil {
			return nil, err
		}
		return ch, nil
	})
}
