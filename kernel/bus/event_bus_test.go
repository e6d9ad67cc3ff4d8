package bus_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlink-org/kernel-client/kernel/bus"
	"github.com/shortlink-org/kernel-client/kernel/message"
)

func newEventBus(t *testing.T) *bus.EventBus {
	t.Helper()

	events, err := bus.NewEventBus()
	require.NoError(t, err)

	t.Cleanup(func() {
		events.Close()
		events.Wait()
	})

	return events
}

func progress(n int) message.Event {
	return message.Event{Kind: "Progress", Token: strconv.Itoa(n)}
}

func TestPublishPreservesOrderPerSubscriber(t *testing.T) {
	events := newEventBus(t)

	const total = 500

	collect := func() (<-chan []string, *bus.Subscription) {
		out := make(chan []string, 1)
		var got []string

		sub, err := events.Subscribe(nil, func(evt message.Event) {
			got = append(got, evt.Token)
			if len(got) == total {
				out <- got
			}
		})
		require.NoError(t, err)

		return out, sub
	}

	first, _ := collect()
	second, _ := collect()

	for i := range total {
		require.NoError(t, events.Publish(progress(i)))
	}

	want := make([]string, total)
	for i := range want {
		want[i] = strconv.Itoa(i)
	}

	for _, ch := range []<-chan []string{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, want, got)
		case <-time.After(waitFor):
			t.Fatal("subscriber did not receive every event")
		}
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	events := newEventBus(t)

	release := make(chan struct{})
	_, err := events.Subscribe(nil, func(message.Event) {
		<-release
	})
	require.NoError(t, err)

	fast := make(chan message.Event, 100)
	_, err = events.Subscribe(nil, func(evt message.Event) {
		fast <- evt
	})
	require.NoError(t, err)

	published := make(chan struct{})
	go func() {
		defer close(published)

		for i := range 100 {
			_ = events.Publish(progress(i))
		}
	}()

	select {
	case <-published:
	case <-time.After(waitFor):
		t.Fatal("publish blocked on a slow subscriber")
	}

	for i := range 100 {
		select {
		case evt := <-fast:
			assert.Equal(t, strconv.Itoa(i), evt.Token)
		case <-time.After(waitFor):
			t.Fatal("fast subscriber starved")
		}
	}

	close(release)
}

func TestFilterEvaluatedAtPublish(t *testing.T) {
	events := newEventBus(t)

	got := make(chan message.Event, 10)
	_, err := events.Subscribe(bus.ByToken("a.1"), func(evt message.Event) {
		got <- evt
	})
	require.NoError(t, err)

	require.NoError(t, events.Publish(message.Event{Kind: "Progress", Token: "b.1"}))
	require.NoError(t, events.Publish(message.Event{
		Kind:    message.KindCommandSucceeded,
		Command: &message.Envelope{Kind: "SubmitCode", Token: "a.1"},
	}))

	select {
	case evt := <-got:
		assert.Equal(t, message.KindCommandSucceeded, evt.Kind)
	case <-time.After(waitFor):
		t.Fatal("matching event not delivered")
	}

	select {
	case evt := <-got:
		t.Fatalf("unexpected event %+v", evt)
	case <-time.After(settle):
	}
}

func TestDisposeStopsDelivery(t *testing.T) {
	events := newEventBus(t)

	var (
		mu  sync.Mutex
		got int
	)

	sub, err := events.Subscribe(nil, func(message.Event) {
		mu.Lock()
		got++
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Equal(t, 1, events.Len())

	sub.Dispose()
	sub.Dispose()

	assert.True(t, sub.Disposed())
	assert.Equal(t, 0, events.Len())

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done must be closed after Dispose")
	}

	require.NoError(t, events.Publish(progress(1)))
	time.Sleep(settle)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, got)
}

func TestDisposeFromOwnCallback(t *testing.T) {
	events := newEventBus(t)

	var (
		sub  *bus.Subscription
		mu   sync.Mutex
		seen []string
	)

	ready := make(chan struct{})

	sub, err := events.Subscribe(nil, func(evt message.Event) {
		<-ready

		mu.Lock()
		seen = append(seen, evt.Token)
		mu.Unlock()

		sub.Dispose()
	})
	require.NoError(t, err)
	close(ready)

	require.NoError(t, events.Publish(progress(1)))
	require.NoError(t, events.Publish(progress(2)))

	select {
	case <-sub.Done():
	case <-time.After(waitFor):
		t.Fatal("subscription not disposed")
	}

	time.Sleep(settle)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1"}, seen)
}

func TestSubscriberPanicDoesNotStopDelivery(t *testing.T) {
	events := newEventBus(t)

	got := make(chan string, 2)
	_, err := events.Subscribe(nil, func(evt message.Event) {
		if evt.Token == "1" {
			panic("boom")
		}

		got <- evt.Token
	})
	require.NoError(t, err)

	require.NoError(t, events.Publish(progress(1)))
	require.NoError(t, events.Publish(progress(2)))

	select {
	case token := <-got:
		assert.Equal(t, "2", token)
	case <-time.After(waitFor):
		t.Fatal("delivery stopped after panic")
	}
}

func TestChannelClosesWhenContextDone(t *testing.T) {
	events := newEventBus(t)

	ctx, cancel := context.WithCancel(context.Background())

	ch, sub, err := events.Channel(ctx, bus.ByKind("Progress"))
	require.NoError(t, err)

	require.NoError(t, events.Publish(message.Event{Kind: "Other"}))
	require.NoError(t, events.Publish(progress(7)))

	select {
	case evt := <-ch:
		assert.Equal(t, "7", evt.Token)
	case <-time.After(waitFor):
		t.Fatal("no event on channel")
	}

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel must be closed")
	case <-time.After(waitFor):
		t.Fatal("channel not closed")
	}

	assert.True(t, sub.Disposed())
}

func TestClosedBusRejectsPublishAndSubscribe(t *testing.T) {
	events, err := bus.NewEventBus()
	require.NoError(t, err)

	sub, err := events.Subscribe(nil, func(message.Event) {})
	require.NoError(t, err)

	events.Close()
	events.Close()
	events.Wait()

	assert.True(t, sub.Disposed())
	require.ErrorIs(t, events.Publish(progress(1)), bus.ErrBusClosed)

	_, err = events.Subscribe(nil, func(message.Event) {})
	require.ErrorIs(t, err, bus.ErrBusClosed)

	_, err = events.Subscribe(nil, nil)
	require.ErrorIs(t, err, bus.ErrNilHandler)
}

func TestFilters(t *testing.T) {
	succeeded := message.Event{Kind: message.KindCommandSucceeded, Token: "t.1"}
	progressEvt := message.Event{Kind: "Progress", Token: "t.1"}
	other := message.Event{Kind: "Progress", Token: "t.2"}

	assert.True(t, bus.All()(other))
	assert.True(t, bus.Terminal()(succeeded))
	assert.False(t, bus.Terminal()(progressEvt))

	mine := bus.And(bus.ByToken("t.1"), bus.Not(bus.Terminal()))
	assert.True(t, mine(progressEvt))
	assert.False(t, mine(succeeded))
	assert.False(t, mine(other))

	either := bus.Or(bus.ByKind(message.KindDiagnostic), bus.ByToken("t.2"))
	assert.True(t, either(other))
	assert.False(t, either(succeeded))

	assert.True(t, bus.And()(other))
	assert.False(t, bus.Or()(other))
}
