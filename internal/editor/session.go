// Package editor runs one booking editor session: it owns the form state and
// the service ledger, routes user edits through the input adapters, and
// drives the save/confirm pipeline into the event collection.
package editor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/event"
	"github.com/matthewbaird/scheduler/internal/form"
	"github.com/matthewbaird/scheduler/internal/input"
	"github.com/matthewbaird/scheduler/internal/ledger"
	"github.com/matthewbaird/scheduler/internal/log"
	"github.com/matthewbaird/scheduler/internal/schema"
	"github.com/matthewbaird/scheduler/internal/types"
)

// DefaultDuration is the booking length used to repair an end time when the
// original selection has no usable span.
const DefaultDuration = time.Hour

// Options wires a session to its collaborators.
type Options struct {
	Ledger        ledger.Options
	ResourceField string

	// SeedServiceLine opens new bookings with one default line item.
	SeedServiceLine bool

	// Confirm, when set, makes every save go through the Remote strategy
	// bounded by ConfirmTimeout. Otherwise saves use Local.
	Confirm        ConfirmHandler
	ConfirmTimeout time.Duration

	// CustomEditor marks sessions driven by a host editor; their saves skip
	// field validation. Set it from the renderer that draws the session
	// (render.Renderer.Custom != nil); Render refuses a session whose flag
	// disagrees with the renderer.
	CustomEditor bool

	Collection calendar.Collection
	Recorder   event.Recorder

	// Loading is told when a save starts and ends.
	Loading func(bool)

	Now func() time.Time
}

// Session is one open editor. It is not safe for concurrent use apart from
// Save, which refuses re-entry with ErrBusy.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActiveAt time.Time

	schema *schema.Schema
	opts   Options

	source   calendar.Source
	original *calendar.Event
	span     types.TimeRange
	resource any

	store  *form.Store
	ledger *ledger.Ledger

	saving  atomic.Bool
	loading bool
	lastErr error
	closed  bool
	onClose func(*Session)
}

// Open resolves a new session from src, which may be an existing event, a
// range selection or nil for a blank form.
func Open(s *schema.Schema, src calendar.Source, opts Options) (*Session, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Collection == nil {
		opts.Collection = calendar.NewMemoryCollection()
	}
	now := opts.Now()
	sess := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActiveAt: now,
		schema:       s,
		opts:         opts,
	}
	if err := sess.reset(src); err != nil {
		return nil, err
	}
	log.Debug("editor: session opened", "session", sess.ID, "editing", sess.Editing())
	return sess, nil
}

func (s *Session) reset(src calendar.Source) error {
	src = normalizeSource(src)
	store, err := form.Resolve(s.schema, src, form.ResolveOptions{Now: s.opts.Now})
	if err != nil {
		return fmt.Errorf("editor: open: %w", err)
	}

	s.source = src
	s.original = nil
	s.resource = nil
	s.span = types.TimeRange{}
	var items []ledger.LineItem
	seed := s.opts.SeedServiceLine

	switch v := src.(type) {
	case *calendar.Event:
		orig := v.Clone()
		s.original = &orig
		s.resource = v.Resource(s.opts.ResourceField)
		if !v.ID.IsZero() {
			items, seed = v.Services, false
		}
	case *calendar.SelectedRange:
		s.resource = v.ResourceID
	}
	if src != nil {
		s.span = src.Span()
	}

	s.store = store
	s.ledger = ledger.New(s.opts.Ledger, items)
	if seed {
		s.ledger.Add()
	}
	return nil
}

// normalizeSource turns typed nil pointers into a nil Source.
func normalizeSource(src calendar.Source) calendar.Source {
	switch v := src.(type) {
	case *calendar.Event:
		if v == nil {
			return nil
		}
	case *calendar.SelectedRange:
		if v == nil {
			return nil
		}
	}
	return src
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.LastActiveAt = s.opts.Now()
}

// IsExpired reports whether the session is older than maxAge.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return maxAge > 0 && s.opts.Now().Sub(s.CreatedAt) > maxAge
}

// IsIdle reports whether the session has been idle longer than timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return timeout > 0 && s.opts.Now().Sub(s.LastActiveAt) > timeout
}

// Editing reports whether the session edits an existing event.
func (s *Session) Editing() bool {
	return s.source != nil && !s.source.Identifier().IsZero()
}

// Edited returns a copy of the event being edited, or nil for a new booking.
func (s *Session) Edited() *calendar.Event {
	if s.original == nil || s.original.ID.IsZero() {
		return nil
	}
	cp := s.original.Clone()
	return &cp
}

// ResourceID is the resource the booking is attached to.
func (s *Session) ResourceID() any { return s.resource }

// ResourceField is the event attribute the resource is stored under.
func (s *Session) ResourceField() string { return s.opts.ResourceField }

// CustomEditor reports whether the session was opened for a host editor.
func (s *Session) CustomEditor() bool { return s.opts.CustomEditor }

// ReadOnly reports whether the booking is confirmed.
func (s *Session) ReadOnly() bool {
	f, ok := s.store.Value(schema.FieldConfirmed).(form.Flag)
	return ok && f.Set && f.On
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool { return s.closed }

// Loading reports whether a save is in flight.
func (s *Session) Loading() bool { return s.loading }

// SetLoading toggles the loading flag and forwards it to the host.
func (s *Session) SetLoading(on bool) {
	s.loading = on
	if s.opts.Loading != nil {
		s.opts.Loading(on)
	}
}

// LastError is the error of the most recent failed save, cleared by the
// next successful one.
func (s *Session) LastError() error { return s.lastErr }

// Schema returns the field schema the form was resolved from.
func (s *Session) Schema() *schema.Schema { return s.schema }

// Records returns the form records in render order.
func (s *Session) Records() []form.Record { return s.store.Records() }

// Value returns one field's current value.
func (s *Session) Value(name string) form.Value { return s.store.Value(name) }

// Touched reports whether errors should be displayed.
func (s *Session) Touched() bool { return s.store.Touched() }

// ShowError reports whether a field should render its error state.
func (s *Session) ShowError(name string) bool { return s.store.ShowError(name) }

// Invalid lists the fields that currently fail validity.
func (s *Session) Invalid() []string { return s.store.Invalid() }

// Lines returns the service line items in order.
func (s *Session) Lines() []ledger.LineItem { return s.ledger.Items() }

// Totals queries the ledger. The form's totalPrice and totalIncome fields
// are only updated from it by SetLineField and RecomputeTotals.
func (s *Session) Totals() ledger.Totals { return s.ledger.Totals() }

// MarkTouched makes every invalid field show its error.
func (s *Session) MarkTouched() {
	s.store.MarkTouched()
}

func (s *Session) mutable() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.ReadOnly():
		return ErrReadOnly
	}
	s.Touch()
	return nil
}

// Change routes raw user input for name through its input adapter and
// stores the result.
func (s *Session) Change(name string, raw any) error {
	if err := s.mutable(); err != nil {
		return err
	}
	d := s.schema.Field(name)
	if d == nil {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	v, valid, err := input.Change(d, raw)
	if err != nil {
		return err
	}
	return s.store.SetField(name, v, valid)
}

// SetField stores a value the caller already validated.
func (s *Session) SetField(name string, v form.Value, valid bool) error {
	if err := s.mutable(); err != nil {
		return err
	}
	return s.store.SetField(name, v, valid)
}

// SetDate stores a picked date. A produced date is always valid.
func (s *Session) SetDate(name string, t time.Time) error {
	return s.SetField(name, form.Timestamp(t), true)
}

// AddLine appends a default line item and returns its index.
func (s *Session) AddLine() (int, error) {
	if err := s.mutable(); err != nil {
		return -1, err
	}
	return s.ledger.Add(), nil
}

// RemoveLine deletes line i. The form totals keep their last published
// values until the next SetLineField or RecomputeTotals.
func (s *Session) RemoveLine(i int) error {
	if err := s.mutable(); err != nil {
		return err
	}
	return s.ledger.Remove(i)
}

// SetLineField updates one attribute of line i. Quantity and unit price
// changes recompute the line subtotal and republish the form totals.
func (s *Session) SetLineField(i int, key ledger.Key, value any) error {
	if err := s.mutable(); err != nil {
		return err
	}
	money, err := s.ledger.SetLineField(i, key, value)
	if err != nil {
		return err
	}
	if money {
		return s.publishTotals()
	}
	return nil
}

// RecomputeTotals republishes the ledger totals into the form.
func (s *Session) RecomputeTotals() error {
	if err := s.mutable(); err != nil {
		return err
	}
	return s.publishTotals()
}

func (s *Session) publishTotals() error {
	t := s.ledger.Totals()
	if err := s.setAmount(schema.FieldTotalPrice, t.Price); err != nil {
		return err
	}
	return s.setAmount(schema.FieldTotalIncome, t.Income)
}

// setAmount writes a derived amount when the schema still declares the
// field as a number; a host that redeclared it keeps its own value.
func (s *Session) setAmount(name string, d types.Decimal) error {
	rec, ok := s.store.Get(name)
	if !ok || rec.Value.Kind() != form.KindNumber {
		return nil
	}
	v := form.Number{Decimal: d}
	return s.store.SetField(name, v, !rec.Required() || v.Present())
}

// Close ends the session. With clear, the form is re-resolved blank so no
// state leaks into the next session.
func (s *Session) Close(clear bool) error {
	if s.closed {
		return nil
	}
	if s.saving.Load() {
		return ErrBusy
	}
	return s.close(clear)
}

func (s *Session) close(clear bool) error {
	if clear {
		if err := s.reset(nil); err != nil {
			return err
		}
	}
	s.closed = true
	log.Debug("editor: session closed", "session", s.ID, "clear", clear)
	if s.onClose != nil {
		s.onClose(s)
	}
	return nil
}

// Commit stores a finished event directly, bypassing the save pipeline. It
// is the confirm capability handed to custom editors.
func (s *Session) Commit(ctx context.Context, ev calendar.Event, action calendar.Action) (calendar.Event, error) {
	if err := s.mutable(); err != nil {
		return calendar.Event{}, err
	}
	return s.commit(ctx, ev, action, ev.IsConfirmed() && !s.wasConfirmed())
}

func (s *Session) wasConfirmed() bool {
	return s.original != nil && s.original.IsConfirmed()
}

func (s *Session) commit(ctx context.Context, ev calendar.Event, action calendar.Action, confirmed bool) (calendar.Event, error) {
	stored, err := s.opts.Collection.Commit(ctx, ev, action)
	if err != nil {
		s.lastErr = err
		log.Error("editor: commit failed", err, "session", s.ID, "action", action, "event", ev.ID)
		return calendar.Event{}, err
	}
	s.lastErr = nil
	log.Info("editor: booking committed", "session", s.ID, "action", action, "event", stored.ID)

	if s.opts.Recorder != nil {
		evt := event.NewBookingCommitted(stored, action, confirmed, s.opts.ResourceField)
		if err := s.opts.Recorder.Record(ctx, evt); err != nil {
			log.Error("editor: record domain event", err, "event", stored.ID)
		}
	}
	if err := s.close(true); err != nil {
		return stored, err
	}
	return stored, nil
}
