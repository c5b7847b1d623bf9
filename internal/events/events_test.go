package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/prepportal/internal/events"
)

func TestBus_PublishInSubscriptionOrder(t *testing.T) {
	bus := events.NewBus()
	var calls []string
	for _, name := range []string{"achievements", "sync", "stats"} {
		name := name
		bus.Subscribe(name, func(ctx context.Context, ev events.ProgressChanged) error {
			calls = append(calls, name+":"+string(ev.Kind))
			return nil
		})
	}

	failed := bus.Publish(context.Background(), events.ProgressChanged{Kind: events.KindDay, Key: "standard-1"})

	assert.Equal(t, 0, failed)
	assert.Equal(t, []string{"achievements:day", "sync:day", "stats:day"}, calls)
	assert.Equal(t, 3, bus.Len())
}

func TestBus_FailingListenerDoesNotStopDispatch(t *testing.T) {
	bus := events.NewBus()
	reached := false
	bus.Subscribe("broken", func(ctx context.Context, ev events.ProgressChanged) error {
		return errors.New("boom")
	})
	bus.Subscribe("after", func(ctx context.Context, ev events.ProgressChanged) error {
		reached = true
		return nil
	})

	failed := bus.Publish(context.Background(), events.ProgressChanged{Kind: events.KindReset})

	assert.Equal(t, 1, failed)
	assert.True(t, reached)
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := events.NewBus()
	assert.Equal(t, 0, bus.Publish(context.Background(), events.ProgressChanged{Kind: events.KindImported}))
}
