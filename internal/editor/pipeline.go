package editor

import (
	"context"
	"fmt"

	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/form"
	"github.com/matthewbaird/scheduler/internal/log"
	"github.com/matthewbaird/scheduler/internal/schema"
)

// Outcome reports what a Save did. A save blocked by validation has
// Saved=false and lists the offending fields.
type Outcome struct {
	Saved   bool
	Action  calendar.Action
	Event   calendar.Event
	Invalid []string
}

// Err returns a *ValidationError for a blocked save, nil otherwise.
func (o Outcome) Err() error {
	if len(o.Invalid) == 0 {
		return nil
	}
	return &ValidationError{Fields: o.Invalid}
}

// Save validates the form and commits it. With confirm the booking is
// committed as confirmed and locks.
//
// Invalid fields abort the save without an error: the form is marked
// touched and Outcome.Invalid lists them. Custom-editor sessions skip this
// check. An end time at or before the start is repaired from the original
// selection's duration. A rejection by the confirm handler is returned as
// a *RejectedError, logged and kept as LastError; the session stays open
// with its edits.
func (s *Session) Save(ctx context.Context, confirm bool) (Outcome, error) {
	switch {
	case s.closed:
		return Outcome{}, ErrClosed
	case s.ReadOnly():
		return Outcome{}, ErrReadOnly
	}
	if !s.saving.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer s.saving.Store(false)
	s.Touch()

	if !s.opts.CustomEditor {
		if invalid := s.store.Invalid(); len(invalid) > 0 {
			s.store.MarkTouched()
			log.Debug("editor: save blocked by validation", "session", s.ID, "fields", invalid)
			return Outcome{Invalid: invalid}, nil
		}
	}

	s.SetLoading(true)
	defer s.SetLoading(false)

	draft := s.project()
	if confirm {
		draft.Confirmed = calendar.Bool(true)
	}
	if !draft.End.After(draft.Start) {
		d := s.span.Duration()
		if d <= 0 {
			d = DefaultDuration
		}
		draft.End = draft.Start.Add(d)
	}

	action := calendar.ActionCreate
	if s.Editing() {
		action = calendar.ActionEdit
	}

	final, err := s.strategy().Finalize(ctx, Draft{
		Event:         draft,
		Action:        action,
		ResourceField: s.opts.ResourceField,
		ResourceID:    s.resource,
	})
	if err != nil {
		s.lastErr = err
		log.Error("editor: save failed", err, "session", s.ID, "action", action)
		return Outcome{Action: action}, err
	}

	stored, err := s.commit(ctx, final, action, confirm)
	if err != nil {
		return Outcome{Action: action}, fmt.Errorf("editor: %s: %w", action, err)
	}
	return Outcome{Saved: true, Action: action, Event: stored}, nil
}

// strategy picks Remote when a confirm handler is configured, Local
// otherwise.
func (s *Session) strategy() Strategy {
	if s.opts.Confirm != nil {
		return Remote{Handler: s.opts.Confirm, Timeout: s.opts.ConfirmTimeout}
	}
	return Local{Taken: func(ctx context.Context, id calendar.EventID) bool {
		_, err := s.opts.Collection.Get(ctx, id)
		return err == nil
	}}
}

// project flattens the form and ledger into an event. Edits start from the
// original event so attributes the form does not carry survive.
func (s *Session) project() calendar.Event {
	var ev calendar.Event
	if s.original != nil {
		ev = s.original.Clone()
	}
	if ev.Fields == nil {
		ev.Fields = make(map[string]any)
	}

	for _, r := range s.store.Records() {
		switch r.Name {
		case schema.FieldEventID:
			ev.ID = calendar.EventID(text(r.Value))
		case schema.FieldConfirmed:
			if f, ok := r.Value.(form.Flag); ok && f.Set {
				ev.Confirmed = calendar.Bool(f.On)
			}
		case schema.FieldName:
			ev.Name = text(r.Value)
		case schema.FieldPhone:
			ev.Phone = text(r.Value)
		case schema.FieldComment:
			ev.Comment = text(r.Value)
		case schema.FieldStart:
			if ts, ok := r.Value.(form.Timestamp); ok {
				ev.Start = ts.Time()
			}
		case schema.FieldEnd:
			if ts, ok := r.Value.(form.Timestamp); ok {
				ev.End = ts.Time()
			}
		case schema.FieldTotalPrice:
			if n, ok := r.Value.(form.Number); ok {
				ev.TotalPrice = n.Decimal
			}
		case schema.FieldTotalIncome:
			if n, ok := r.Value.(form.Number); ok {
				ev.TotalIncome = n.Decimal
			}
		default:
			if r.Value.Present() {
				ev.Fields[r.Name] = r.Value.Raw()
			} else {
				delete(ev.Fields, r.Name)
			}
		}
	}
	if len(ev.Fields) == 0 {
		ev.Fields = nil
	}
	ev.Services = s.ledger.Items()
	return ev
}

func text(v form.Value) string {
	switch x := v.(type) {
	case form.Text:
		return string(x)
	case form.Choice:
		return string(x)
	case nil:
		return ""
	}
	if raw := v.Raw(); raw != nil {
		return calendar.FormatResource(raw)
	}
	return ""
}
