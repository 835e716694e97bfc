package bus_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uyirkavalan/uyirkavalan/internal/bus"
)

func receive(t *testing.T, sub bus.Subscription) bus.Event {
	t.Helper()
	select {
	case msg := <-sub:
		ev, ok := msg.(bus.Event)
		require.True(t, ok, "unexpected payload %T", msg)
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return bus.Event{}
	}
}

func TestPublishToBoat_DeliversOnlyToThatBoat(t *testing.T) {
	b := bus.New(zerolog.Nop())
	defer b.Close()

	mine := b.Subscribe(bus.BoatTopic("TN01-AB123"))
	other := b.Subscribe(bus.BoatTopic("TN02-CD456"))

	bus.PublishToBoat(b, "TN01-AB123", bus.KindAlert, "storm warning")

	ev := receive(t, mine)
	assert.Equal(t, bus.KindAlert, ev.Kind)
	assert.Equal(t, "TN01-AB123", ev.Boat)
	assert.Equal(t, "storm warning", ev.Payload)
	assert.False(t, ev.Published.IsZero())

	select {
	case msg := <-other:
		t.Fatalf("unexpected event on other boat: %v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	b := bus.New(zerolog.Nop())
	defer b.Close()

	topic := bus.BoatTopic("TN01-AB123")
	sub := b.Subscribe(topic)
	b.Unsubscribe(sub, topic)

	select {
	case _, ok := <-sub:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
}

func TestPublishToBoat_NilBus(t *testing.T) {
	assert.NotPanics(t, func() {
		bus.PublishToBoat(nil, "TN01-AB123", bus.KindAlert, nil)
	})
}

func TestPublish_StalledSubscriberDoesNotBlock(t *testing.T) {
	b := bus.New(zerolog.Nop())
	defer b.Close()

	stalledTopic := bus.BoatTopic("TN02-CD456")
	stalled := b.Subscribe(stalledTopic)
	live := b.Subscribe(bus.BoatTopic("TN01-AB123"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3*bus.SubscriberBuffer; i++ {
			bus.PublishToBoat(b, "TN02-CD456", bus.KindChatMessage, i)
		}
		bus.PublishToBoat(b, "TN01-AB123", bus.KindAlert, "storm warning")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a subscriber that never reads")
	}

	ev := receive(t, live)
	assert.Equal(t, "storm warning", ev.Payload)

	unsubscribed := make(chan struct{})
	go func() {
		b.Unsubscribe(stalled, stalledTopic)
		close(unsubscribed)
	}()
	select {
	case <-unsubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("unsubscribe blocked")
	}

	n := 0
	for range stalled {
		n++
	}
	assert.Equal(t, bus.SubscriberBuffer, n, "a full buffer keeps the oldest events")
}
