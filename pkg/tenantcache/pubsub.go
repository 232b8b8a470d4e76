package tenantcache

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Message is a pub/sub message with the tenant prefix stripped from its channel.
type Message struct {
	Channel string
	Payload string
}

// Subscription delivers messages for the channels of one tenant.
type Subscription struct {
	pubsub *redis.PubSub
	ch     chan Message
	done   chan struct{}
	once   sync.Once
}

// Subscribe listens on the tenant's logical channels. The returned subscription
// must be closed. If the subscribe handshake fails the error is logged and the
// subscription simply delivers nothing.
func (c *Cache) Subscribe(ctx context.Context, channels ...string) (*Subscription, error) {
	ns, err := namespace(ctx)
	if err != nil {
		return nil, err
	}
	full := make([]string, len(channels))
	for i, ch := range channels {
		full[i] = ns + ch
	}

	ps := c.client.Subscribe(ctx, full...)
	if _, err := ps.Receive(ctx); err != nil {
		c.degraded(ctx, "subscribe", err)
	}

	s := &Subscription{
		pubsub: ps,
		ch:     make(chan Message, messageBufSize),
		done:   make(chan struct{}),
	}
	go s.forward(ns)
	return s, nil
}

func (s *Subscription) forward(ns string) {
	defer close(s.ch)
	for msg := range s.pubsub.Channel() {
		channel, ok := strings.CutPrefix(msg.Channel, ns)
		if !ok {
			continue
		}
		select {
		case s.ch <- Message{Channel: channel, Payload: msg.Payload}:
		case <-s.done:
			return
		}
	}
}

// Messages returns the delivery channel. It is closed after Close.
func (s *Subscription) Messages() <-chan Message {
	return s.ch
}

// Close unsubscribes and stops delivery.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
