// Package bus is an in-process publish/subscribe bus for live boat events.
package bus

import (
	"reflect"
	"time"

	"github.com/cskr/pubsub"
	"github.com/rs/zerolog"
)

// Event kinds published on a boat topic.
const (
	KindChatMessage = "chat.message"
	KindAlert       = "alert"
	KindSOSNearby   = "sos.nearby"
	KindRisk        = "risk"
)

// Event is a notification delivered to a boat's live subscribers.
type Event struct {
	Kind      string    `json:"kind"`
	Boat      string    `json:"boat"`
	Payload   any       `json:"payload"`
	Published time.Time `json:"publishedAt"`
}

// Subscription receives published messages until it is unsubscribed.
type Subscription chan any

// MessageBus publishes messages to topic subscribers.
type MessageBus interface {
	Publish(topic string, msg any)
	Subscribe(topic string) Subscription
	Unsubscribe(ch Subscription, topics ...string)
	Close()
}

// PubSubBus is a MessageBus backed by cskr/pubsub.
type PubSubBus struct {
	ps     *pubsub.PubSub
	logger zerolog.Logger
}

// SubscriberBuffer is how many undelivered events a subscriber may hold
// before further events to it are dropped.
const SubscriberBuffer = 128

// New creates a bus whose subscriber channels buffer SubscriberBuffer messages.
func New(logger zerolog.Logger) *PubSubBus {
	return &PubSubBus{
		ps:     pubsub.New(SubscriberBuffer),
		logger: logger,
	}
}

// BoatTopic returns the topic carrying events for a boat.
func BoatTopic(boatID string) string {
	return "boat." + boatID
}

// PublishToBoat wraps payload in an Event and publishes it on the boat's topic.
func PublishToBoat(b MessageBus, boatID, kind string, payload any) {
	if b == nil {
		return
	}
	b.Publish(BoatTopic(boatID), Event{
		Kind:      kind,
		Boat:      boatID,
		Payload:   payload,
		Published: time.Now(),
	})
}

// Publish never waits on a subscriber. A subscriber whose buffer is full
// misses the message; durable delivery goes through the backup queue and
// the inbox, not the bus.
func (b *PubSubBus) Publish(topic string, msg any) {
	b.logger.Debug().Str("topic", topic).Str("payload_type", payloadType(msg)).Msg("publish")
	b.ps.TryPub(msg, topic)
}

func (b *PubSubBus) Subscribe(topic string) Subscription {
	ch := b.ps.Sub(topic)
	b.logger.Debug().Str("topic", topic).Msg("subscribe")
	return ch
}

func (b *PubSubBus) Unsubscribe(ch Subscription, topics ...string) {
	if len(topics) == 0 {
		b.ps.Unsub(ch)
		b.logger.Debug().Str("mode", "all").Msg("unsubscribe")
		return
	}
	b.ps.Unsub(ch, topics...)
	b.logger.Debug().Strs("topics", topics).Msg("unsubscribe")
}

func (b *PubSubBus) Close() {
	b.ps.Shutdown()
}

func payloadType(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}

var _ MessageBus = (*PubSubBus)(nil)
