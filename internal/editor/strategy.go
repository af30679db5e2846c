package editor

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/matthewbaird/scheduler/internal/calendar"
)

// Draft is what the save pipeline hands a Strategy: the projected event plus
// the context the local rules need.
type Draft struct {
	Event         calendar.Event
	Action        calendar.Action
	ResourceField string
	ResourceID    any
}

// Strategy turns a draft into the event that gets committed.
type Strategy interface {
	Finalize(ctx context.Context, d Draft) (calendar.Event, error)
}

// ConfirmHandler is the host's confirmation hook. It is authoritative: the
// event it returns is committed as-is, and an error rejects the save.
type ConfirmHandler interface {
	Confirm(ctx context.Context, ev calendar.Event, action calendar.Action) (calendar.Event, error)
}

// ConfirmFunc adapts a plain function to ConfirmHandler.
type ConfirmFunc func(ctx context.Context, ev calendar.Event, action calendar.Action) (calendar.Event, error)

func (f ConfirmFunc) Confirm(ctx context.Context, ev calendar.Event, action calendar.Action) (calendar.Event, error) {
	return f(ctx, ev, action)
}

// Remote delegates to a host handler, bounded by Timeout when it is positive.
type Remote struct {
	Handler ConfirmHandler
	Timeout time.Duration
}

func (r Remote) Finalize(ctx context.Context, d Draft) (calendar.Event, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	type result struct {
		ev  calendar.Event
		err error
	}
	done := make(chan result, 1)
	go func() {
		ev, err := r.Handler.Confirm(ctx, d.Event.Clone(), d.Action)
		done <- result{ev, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return calendar.Event{}, &RejectedError{Action: d.Action, Err: res.err}
		}
		if res.ev.ID.IsZero() {
			return calendar.Event{}, &RejectedError{Action: d.Action, Err: errors.New("handler returned an event without id")}
		}
		return res.ev, nil
	case <-ctx.Done():
		return calendar.Event{}, &RejectedError{Action: d.Action, Err: ctx.Err()}
	}
}

// Local applies the in-memory defaults: keep or mint an id and attach the
// resource the booking belongs to. The draft already carries the ledger's
// line items.
type Local struct {
	// NewID mints identifiers; defaults to NewEventID.
	NewID func() calendar.EventID
	// Taken reports ids already in use; minting retries past them.
	Taken func(ctx context.Context, id calendar.EventID) bool
}

const maxMintAttempts = 8

var ErrNoFreeID = errors.New("editor: could not mint an unused event id")

func (l Local) Finalize(ctx context.Context, d Draft) (calendar.Event, error) {
	ev := d.Event
	if ev.ID.IsZero() {
		id, err := l.mint(ctx)
		if err != nil {
			return calendar.Event{}, err
		}
		ev.ID = id
	}
	if d.ResourceField != "" && d.ResourceID != nil {
		if ev.Fields == nil {
			ev.Fields = make(map[string]any)
		}
		// A resource chosen on the form wins over the grid's.
		if _, set := ev.Fields[d.ResourceField]; !set {
			ev.Fields[d.ResourceField] = d.ResourceID
		}
	}
	return ev, nil
}

func (l Local) mint(ctx context.Context) (calendar.EventID, error) {
	newID := l.NewID
	if newID == nil {
		newID = NewEventID
	}
	for range maxMintAttempts {
		id := newID()
		if id.IsZero() {
			continue
		}
		if l.Taken == nil || !l.Taken(ctx, id) {
			return id, nil
		}
	}
	return "", ErrNoFreeID
}

// NewEventID returns a base-36 millisecond timestamp followed by a random
// base-36 suffix. Unique with very high probability, not globally.
func NewEventID() calendar.EventID {
	return calendar.EventID(strconv.FormatInt(time.Now().UnixMilli(), 36) + strconv.FormatUint(rand.Uint64(), 36))
}
