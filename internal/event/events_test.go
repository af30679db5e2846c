package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/scheduler/internal/activity"
	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/types"
)

func booking() calendar.Event {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return calendar.Event{
		ID:         "abc",
		Start:      start,
		End:        start.Add(time.Hour),
		Name:       "Anna",
		TotalPrice: types.MustDecimal("10"),
		Fields:     map[string]any{"resource_id": float64(7)},
	}
}

func TestNewBookingCommitted_Types(t *testing.T) {
	tests := []struct {
		action    calendar.Action
		confirmed bool
		want      string
	}{
		{calendar.ActionCreate, false, TypeBookingCreated},
		{calendar.ActionEdit, false, TypeBookingEdited},
		{calendar.ActionCreate, true, TypeBookingConfirmed},
		{calendar.ActionEdit, true, TypeBookingConfirmed},
	}
	for _, tt := range tests {
		evt := NewBookingCommitted(booking(), tt.action, tt.confirmed, "resource_id")
		assert.Equal(t, tt.want, evt.EventType)
		assert.NotEmpty(t, evt.ID)
	}
}

func TestNewBookingCommitted_RefsAndPayload(t *testing.T) {
	evt := NewBookingCommitted(booking(), calendar.ActionCreate, false, "resource_id")
	require.Len(t, evt.AffectedEntities, 2)
	assert.Equal(t, Ref{EntityType: "booking", EntityID: "abc", Role: "subject"}, evt.AffectedEntities[0])
	assert.Equal(t, Ref{EntityType: "resource", EntityID: "7", Role: "context"}, evt.AffectedEntities[1])
	assert.Contains(t, evt.Summary, "abc created")

	var p BookingPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	assert.Equal(t, "abc", p.EventID)
	assert.True(t, p.TotalPrice.Equal(types.MustDecimal("10")))

	noResource := NewBookingCommitted(booking(), calendar.ActionCreate, false, "master")
	assert.Len(t, noResource.AffectedEntities, 1)
}

type capturePublisher struct{ got []DomainEvent }

func (c *capturePublisher) Publish(_ context.Context, evt DomainEvent) { c.got = append(c.got, evt) }

func TestActivityRecorder_FansOutAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := activity.NewMemoryStore()
	pub := &capturePublisher{}
	rec := NewActivityRecorder(store)
	rec.SetPublisher(pub)

	evt := NewBookingCommitted(booking(), calendar.ActionCreate, false, "resource_id")
	require.NoError(t, rec.Record(ctx, evt))

	byBooking, _, _, err := store.QueryByEntity(ctx, "booking", "abc", activity.DefaultQueryOptions())
	require.NoError(t, err)
	require.Len(t, byBooking, 1)
	assert.Equal(t, evt.ID, byBooking[0].EventID)

	byResource, _, _, err := store.QueryByEntity(ctx, "resource", "7", activity.DefaultQueryOptions())
	require.NoError(t, err)
	assert.Len(t, byResource, 1)

	require.Len(t, pub.got, 1)
	assert.Equal(t, evt.ID, pub.got[0].ID)
}

func TestActivityRecorder_NilStoreOnlyPublishes(t *testing.T) {
	pub := &capturePublisher{}
	rec := NewActivityRecorder(nil)
	rec.SetPublisher(pub)

	evt := NewBookingCommitted(booking(), calendar.ActionEdit, true, "resource_id")
	require.NoError(t, rec.Record(context.Background(), evt))
	require.Len(t, pub.got, 1)
	assert.Equal(t, evt.ID, pub.got[0].ID)
}
