package store

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// subscribable is any store exposing the Subscribe contract.
type subscribable interface {
	Subscribe(fn func(Event)) func()
}

// Broadcaster publishes store events to a Redis channel so the dashboard's
// live stream can push updated board state to connected clients. Publish
// failures are logged and never propagate into the mutation path.
type Broadcaster struct {
	rc      *redis.Client
	channel string
	logger  *log.Logger
}

// NewBroadcaster creates a broadcaster publishing to the given channel.
func NewBroadcaster(rc *redis.Client, channel string, logger *log.Logger) *Broadcaster {
	return &Broadcaster{rc: rc, channel: channel, logger: logger}
}

// Publish sends one event to the channel.
func (b *Broadcaster) Publish(ev Event) {
	payload, err := sonic.Marshal(ev)
	if err != nil {
		b.logger.Errorf("broadcast marshal: %v", err)
		return
	}
	if err := b.rc.Publish(context.Background(), b.channel, payload).Err(); err != nil {
		b.logger.Errorf("unable to publish %s update for %s: %v", ev.EntityType, ev.EntityID, err)
	}
}

// Attach subscribes the broadcaster to each store and returns a function
// detaching all subscriptions.
func (b *Broadcaster) Attach(stores ...subscribable) func() {
	unsubs := make([]func(), 0, len(stores))
	for _, s := range stores {
		unsubs = append(unsubs, s.Subscribe(b.Publish))
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
