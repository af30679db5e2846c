package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/scheduler/internal/activity"
	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/event"
	"github.com/matthewbaird/scheduler/internal/ledger"
	"github.com/matthewbaird/scheduler/internal/schema"
)

func TestSave_EndToEndLocal(t *testing.T) {
	ctx := context.Background()
	coll := calendar.NewMemoryCollection()
	sess := openSession(t, testSchema(t, requiredName()), hourRange(), testOptions(coll))

	out, err := sess.Save(ctx, false)
	require.NoError(t, err)
	assert.False(t, out.Saved)
	assert.Equal(t, []string{"name"}, out.Invalid)
	assert.Equal(t, 0, coll.Len())
	assert.True(t, sess.Touched())
	assert.True(t, sess.ShowError("name"))

	var verr *ValidationError
	require.ErrorAs(t, out.Err(), &verr)
	assert.Equal(t, []string{"name"}, verr.Fields)

	require.NoError(t, sess.Change("name", "A"))
	out, err = sess.Save(ctx, false)
	require.NoError(t, err)
	require.True(t, out.Saved)
	assert.NoError(t, out.Err())
	assert.Equal(t, calendar.ActionCreate, out.Action)

	events, err := coll.List(ctx, calendar.ListOptions{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "A", ev.Name)
	assert.True(t, ev.Start.Equal(t0))
	assert.True(t, ev.End.Equal(t0.Add(60*time.Minute)))
	assert.Empty(t, ev.Services)
	assert.True(t, ev.TotalPrice.IsZero())
	assert.False(t, ev.ID.IsZero())
	assert.True(t, sess.Closed())
}

func TestSave_InvalidLeavesCollectionUnchanged(t *testing.T) {
	ctx := context.Background()
	existing := calendar.Event{ID: "keep", Start: t0, End: t0.Add(time.Hour)}
	coll := calendar.NewMemoryCollection(existing)
	s := testSchema(t,
		schema.FieldDecl{Name: "master", Type: schema.FieldSelect, Config: schema.FieldConfig{Required: true}},
		schema.FieldDecl{Name: "room", Type: schema.FieldInput, Config: schema.FieldConfig{Required: true}},
	)
	sess := openSession(t, s, hourRange(), testOptions(coll))

	out, err := sess.Save(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"master", "room"}, out.Invalid)
	assert.True(t, sess.Touched())
	assert.False(t, sess.Closed())
	assert.Equal(t, 1, coll.Len())
}

func TestSave_OptionalNameIgnoresLengthBounds(t *testing.T) {
	ctx := context.Background()
	coll := calendar.NewMemoryCollection()
	sess := openSession(t, testSchema(t), hourRange(), testOptions(coll))

	require.NoError(t, sess.Change("name", "AB"))
	out, err := sess.Save(ctx, false)
	require.NoError(t, err)
	assert.True(t, out.Saved)
	assert.Empty(t, out.Invalid)
	require.Equal(t, 1, coll.Len())

	s, err := schema.Compose(nil, schema.BuiltinOptions{RequireContact: true})
	require.NoError(t, err)
	sess = openSession(t, s, hourRange(), testOptions(calendar.NewMemoryCollection()))
	require.NoError(t, sess.Change("name", "AB"))
	require.NoError(t, sess.Change("phone", "+7 900 000 00 00"))
	out, err = sess.Save(ctx, false)
	require.NoError(t, err)
	assert.False(t, out.Saved)
	assert.Equal(t, []string{"name"}, out.Invalid)
}

func TestSave_RepairsEndFromOriginalSpan(t *testing.T) {
	ctx := context.Background()
	coll := calendar.NewMemoryCollection()
	src := &calendar.SelectedRange{Start: t0, End: t0.Add(90 * time.Minute)}
	sess := openSession(t, testSchema(t), src, testOptions(coll))

	later := t0.Add(2 * time.Hour)
	require.NoError(t, sess.SetDate(schema.FieldStart, later))
	require.NoError(t, sess.SetDate(schema.FieldEnd, later))

	out, err := sess.Save(ctx, false)
	require.NoError(t, err)
	require.True(t, out.Saved)
	assert.True(t, out.Event.Start.Equal(later))
	assert.True(t, out.Event.End.Equal(later.Add(90*time.Minute)), "got %s", out.Event.End)
}

func TestSave_RepairsEndWithoutSpan(t *testing.T) {
	ctx := context.Background()
	sess := openSession(t, testSchema(t), nil, testOptions(nil))
	out, err := sess.Save(ctx, false)
	require.NoError(t, err)
	require.True(t, out.Saved)
	assert.Equal(t, DefaultDuration, out.Event.End.Sub(out.Event.Start))
}

func TestSave_LocalMintsUnusedIDAndEditKeepsIt(t *testing.T) {
	ctx := context.Background()
	taken := calendar.Event{ID: "dup", Start: t0, End: t0.Add(time.Hour)}
	coll := calendar.NewMemoryCollection(taken)

	ids := []calendar.EventID{"dup", "", "fresh"}
	local := Local{
		NewID: func() calendar.EventID {
			id := ids[0]
			ids = ids[1:]
			return id
		},
		Taken: func(ctx context.Context, id calendar.EventID) bool {
			_, err := coll.Get(ctx, id)
			return err == nil
		},
	}
	ev, err := local.Finalize(ctx, Draft{Event: calendar.Event{}, Action: calendar.ActionCreate})
	require.NoError(t, err)
	assert.Equal(t, calendar.EventID("fresh"), ev.ID)

	_, err = Local{NewID: func() calendar.EventID { return "dup" }, Taken: local.Taken}.
		Finalize(ctx, Draft{Action: calendar.ActionCreate})
	assert.ErrorIs(t, err, ErrNoFreeID)

	// Through a session: create mints, edit preserves.
	sess := openSession(t, testSchema(t), hourRange(), testOptions(coll))
	out, err := sess.Save(ctx, false)
	require.NoError(t, err)
	created := out.Event
	assert.False(t, created.ID.IsZero())
	assert.NotEqual(t, taken.ID, created.ID)

	sess = openSession(t, testSchema(t), &created, testOptions(coll))
	require.NoError(t, sess.Change(schema.FieldComment, "moved"))
	out, err = sess.Save(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, calendar.ActionEdit, out.Action)
	assert.Equal(t, created.ID, out.Event.ID)
	assert.Equal(t, 2, coll.Len())

	got, err := coll.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "moved", got.Comment)
}

func TestSave_LocalAttachesResourceAndServices(t *testing.T) {
	ctx := context.Background()
	src := hourRange()
	src.ResourceField, src.ResourceID = "resource_id", "7"
	opts := testOptions(nil)
	opts.SeedServiceLine = true
	sess := openSession(t, testSchema(t), src, opts)
	require.NoError(t, sess.SetLineField(0, ledger.KeyService, "3"))
	require.NoError(t, sess.SetLineField(0, ledger.KeyQuantity, 2))

	out, err := sess.Save(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "7", out.Event.Fields["resource_id"])
	require.Len(t, out.Event.Services, 1)
	assert.Equal(t, "3", out.Event.Services[0].ServiceRef)
	assert.Equal(t, "10", out.Event.TotalPrice.String())
	assert.Equal(t, "9.0", out.Event.TotalIncome.String())
}

func TestSave_FormResourceWinsOverGrid(t *testing.T) {
	ctx := context.Background()
	s := testSchema(t, schema.FieldDecl{Name: "resource_id", Type: schema.FieldSelect,
		Options: []schema.Option{{ID: "7"}, {ID: "8"}}})
	src := hourRange()
	src.ResourceField, src.ResourceID = "resource_id", "7"
	sess := openSession(t, s, src, testOptions(nil))
	require.NoError(t, sess.Change("resource_id", "8"))

	out, err := sess.Save(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "8", out.Event.Fields["resource_id"])
}

func TestSave_ConfirmLocksBooking(t *testing.T) {
	ctx := context.Background()
	coll := calendar.NewMemoryCollection()
	sess := openSession(t, testSchema(t), hourRange(), testOptions(coll))

	out, err := sess.Save(ctx, true)
	require.NoError(t, err)
	require.True(t, out.Event.IsConfirmed())

	again := openSession(t, testSchema(t), &out.Event, testOptions(coll))
	assert.True(t, again.ReadOnly())
	_, err = again.Save(ctx, false)
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestSave_RemoteIsAuthoritative(t *testing.T) {
	ctx := context.Background()
	coll := calendar.NewMemoryCollection()
	var seen calendar.Event
	var seenAction calendar.Action
	opts := testOptions(coll)
	opts.Confirm = ConfirmFunc(func(_ context.Context, ev calendar.Event, action calendar.Action) (calendar.Event, error) {
		seen, seenAction = ev, action
		ev.ID = "server-1"
		ev.Title = "from server"
		return ev, nil
	})
	src := hourRange()
	src.ResourceField, src.ResourceID = "resource_id", "7"
	sess := openSession(t, testSchema(t), src, opts)

	out, err := sess.Save(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, calendar.ActionCreate, seenAction)
	assert.True(t, seen.ID.IsZero(), "remote handlers mint their own ids")
	assert.Nil(t, seen.Fields["resource_id"], "local defaults are not applied")
	assert.Equal(t, calendar.EventID("server-1"), out.Event.ID)

	got, err := coll.Get(ctx, "server-1")
	require.NoError(t, err)
	assert.Equal(t, "from server", got.Title)
}

func TestSave_RemoteRejectionKeepsSessionOpen(t *testing.T) {
	ctx := context.Background()
	coll := calendar.NewMemoryCollection()
	var loading []bool
	boom := errors.New("slot taken")
	opts := testOptions(coll)
	opts.Loading = func(on bool) { loading = append(loading, on) }
	opts.Confirm = ConfirmFunc(func(context.Context, calendar.Event, calendar.Action) (calendar.Event, error) {
		return calendar.Event{}, boom
	})
	sess := openSession(t, testSchema(t), hourRange(), opts)
	require.NoError(t, sess.Change(schema.FieldComment, "keep me"))

	_, err := sess.Save(ctx, false)
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, calendar.ActionCreate, rej.Action)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, err, sess.LastError())

	assert.Equal(t, []bool{true, false}, loading)
	assert.False(t, sess.Loading())
	assert.False(t, sess.Closed())
	assert.Equal(t, "keep me", sess.Value(schema.FieldComment).Raw())
	assert.Equal(t, 0, coll.Len())

	// A retry with a cooperating handler succeeds and clears the error.
	sess.opts.Confirm = ConfirmFunc(func(_ context.Context, ev calendar.Event, _ calendar.Action) (calendar.Event, error) {
		ev.ID = "ok"
		return ev, nil
	})
	out, err := sess.Save(ctx, false)
	require.NoError(t, err)
	assert.True(t, out.Saved)
	assert.NoError(t, sess.LastError())
}

func TestSave_RemoteTimeout(t *testing.T) {
	opts := testOptions(nil)
	opts.ConfirmTimeout = 10 * time.Millisecond
	opts.Confirm = ConfirmFunc(func(ctx context.Context, _ calendar.Event, _ calendar.Action) (calendar.Event, error) {
		<-ctx.Done()
		return calendar.Event{}, ctx.Err()
	})
	sess := openSession(t, testSchema(t), hourRange(), opts)

	_, err := sess.Save(context.Background(), false)
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSave_RemoteWithoutIDIsRejected(t *testing.T) {
	opts := testOptions(nil)
	opts.Confirm = ConfirmFunc(func(_ context.Context, ev calendar.Event, _ calendar.Action) (calendar.Event, error) {
		return ev, nil
	})
	sess := openSession(t, testSchema(t), hourRange(), opts)
	_, err := sess.Save(context.Background(), false)
	var rej *RejectedError
	assert.ErrorAs(t, err, &rej)
}

func TestSave_ReentryIsBusy(t *testing.T) {
	var sess *Session
	var inner error
	opts := testOptions(nil)
	opts.Confirm = ConfirmFunc(func(ctx context.Context, ev calendar.Event, _ calendar.Action) (calendar.Event, error) {
		_, inner = sess.Save(ctx, false)
		ev.ID = "x"
		return ev, nil
	})
	sess = openSession(t, testSchema(t), hourRange(), opts)

	out, err := sess.Save(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, out.Saved)
	assert.ErrorIs(t, inner, ErrBusy)
}

func TestSave_CustomEditorSkipsValidation(t *testing.T) {
	coll := calendar.NewMemoryCollection()
	opts := testOptions(coll)
	opts.CustomEditor = true
	sess := openSession(t, testSchema(t, requiredName()), hourRange(), opts)

	out, err := sess.Save(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, out.Saved)
	assert.Equal(t, 1, coll.Len())
}

func TestSession_CommitBypassesPipeline(t *testing.T) {
	ctx := context.Background()
	coll := calendar.NewMemoryCollection()
	sess := openSession(t, testSchema(t, requiredName()), hourRange(), testOptions(coll))

	ev := calendar.Event{ID: "custom", Start: t0, End: t0.Add(time.Hour)}
	stored, err := sess.Commit(ctx, ev, calendar.ActionCreate)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, stored.ID)
	assert.True(t, sess.Closed())

	_, err = sess.Commit(ctx, ev, calendar.ActionCreate)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSave_CommitFailureIsReported(t *testing.T) {
	ctx := context.Background()
	coll := calendar.NewMemoryCollection()
	ghost := &calendar.Event{ID: "ghost", Start: t0, End: t0.Add(time.Hour)}
	sess := openSession(t, testSchema(t), ghost, testOptions(coll))

	_, err := sess.Save(ctx, false)
	assert.ErrorIs(t, err, calendar.ErrNotFound)
	assert.ErrorIs(t, sess.LastError(), calendar.ErrNotFound)
	assert.False(t, sess.Closed())
}

func TestSave_RecordsDomainEvent(t *testing.T) {
	ctx := context.Background()
	store := activity.NewMemoryStore()
	opts := testOptions(nil)
	opts.Recorder = event.NewActivityRecorder(store)
	src := hourRange()
	src.ResourceField, src.ResourceID = "resource_id", "7"
	sess := openSession(t, testSchema(t), src, opts)

	out, err := sess.Save(ctx, true)
	require.NoError(t, err)

	entries, _, _, err := store.QueryByEntity(ctx, "booking", string(out.Event.ID), activity.DefaultQueryOptions())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, event.TypeBookingConfirmed, entries[0].EventType)

	entries, _, _, err = store.QueryByEntity(ctx, "resource", "7", activity.DefaultQueryOptions())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
