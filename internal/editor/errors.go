package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/form"
	"github.com/matthewbaird/scheduler/internal/ledger"
)

var (
	ErrReadOnly    = errors.New("editor: booking is confirmed and read-only")
	ErrBusy        = errors.New("editor: a save is already in progress")
	ErrClosed      = errors.New("editor: session is closed")
	ErrSessionOpen = errors.New("editor: another session is open")

	ErrUnknownField    = form.ErrUnknownField
	ErrIndexOutOfRange = ledger.ErrIndexOutOfRange
)

// ValidationError lists the fields that blocked a save.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "editor: invalid fields: " + strings.Join(e.Fields, ", ")
}

// RejectedError is returned when the confirm handler refuses a save.
type RejectedError struct {
	Action calendar.Action
	Err    error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("editor: %s rejected: %v", e.Action, e.Err)
}

func (e *RejectedError) Unwrap() error { return e.Err }
