package eventbus

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matthewbaird/scheduler/internal/event"
	"github.com/matthewbaird/scheduler/internal/log"
)

func TestBus_DispatchesToAllSubscribers(t *testing.T) {
	var mu sync.Mutex
	var got []string
	record := func(name string) Handler {
		return HandlerFunc(func(_ context.Context, evt event.DomainEvent) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name+":"+evt.EventType)
			return nil
		})
	}

	bus := New(4)
	bus.Subscribe("a", record("a"))
	bus.Subscribe("b", record("b"))
	bus.Start(context.Background())

	bus.Publish(context.Background(), event.DomainEvent{ID: "1", EventType: event.TypeBookingCreated})
	bus.Publish(context.Background(), event.DomainEvent{ID: "2", EventType: event.TypeBookingEdited})
	bus.Stop()

	assert.Equal(t, []string{
		"a:booking_created", "b:booking_created",
		"a:booking_edited", "b:booking_edited",
	}, got)
}

func TestBus_HandlerErrorDoesNotStopDispatch(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	calls := 0
	bus := New(1)
	bus.Subscribe("broken", HandlerFunc(func(context.Context, event.DomainEvent) error {
		return errors.New("boom")
	}))
	bus.Subscribe("ok", HandlerFunc(func(context.Context, event.DomainEvent) error {
		calls++
		return nil
	}))
	bus.Start(context.Background())
	bus.Publish(context.Background(), event.DomainEvent{EventType: event.TypeBookingCreated})
	bus.Stop()

	assert.Equal(t, 1, calls)
	assert.Contains(t, buf.String(), "handler=broken")
}

func TestBus_DropsWhenFull(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	bus := New(1)
	bus.Publish(context.Background(), event.DomainEvent{ID: "1"})
	bus.Publish(context.Background(), event.DomainEvent{ID: "2"})
	assert.Contains(t, buf.String(), "dropping event")

	bus.Start(context.Background())
	bus.Stop()
}

func TestLogConsumer(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	err := NewLogConsumer().HandleEvent(context.Background(), event.DomainEvent{
		EventType: event.TypeBookingConfirmed,
		Summary:   "Booking x confirmed",
		AffectedEntities: []event.Ref{
			{EntityType: "booking", EntityID: "x"},
		},
	})
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "type=booking_confirmed")
	assert.Contains(t, buf.String(), "booking:x")
}
