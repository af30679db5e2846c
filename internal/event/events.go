package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/types"
)

// Event types published after a booking is committed.
const (
	TypeBookingCreated   = "booking_created"
	TypeBookingEdited    = "booking_edited"
	TypeBookingConfirmed = "booking_confirmed"
)

// Entity types named in Ref.
const (
	EntityBooking  = "booking"
	EntityResource = "resource"
)

// Ref points at an entity a domain event affected.
type Ref struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Role       string `json:"role"` // "subject", "context"
}

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID               string
	EventType        string
	OccurredAt       time.Time
	AffectedEntities []Ref
	Summary          string
	Payload          json.RawMessage
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// BookingPayload carries event-specific data for every booking event.
type BookingPayload struct {
	EventID     string          `json:"event_id"`
	Action      calendar.Action `json:"action"`
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	Name        string          `json:"name,omitempty"`
	Resource    string          `json:"resource,omitempty"`
	Services    int             `json:"services"`
	TotalPrice  types.Decimal   `json:"total_price"`
	TotalIncome types.Decimal   `json:"total_income"`
	Confirmed   bool            `json:"confirmed"`
}

// NewBookingCommitted describes a successful save. A save that confirmed the
// booking is reported as booking_confirmed whatever its action.
func NewBookingCommitted(ev calendar.Event, action calendar.Action, confirmed bool, resourceField string) DomainEvent {
	p := BookingPayload{
		EventID:     string(ev.ID),
		Action:      action,
		Start:       ev.Start,
		End:         ev.End,
		Name:        ev.Name,
		Resource:    calendar.FormatResource(ev.Resource(resourceField)),
		Services:    len(ev.Services),
		TotalPrice:  ev.TotalPrice,
		TotalIncome: ev.TotalIncome,
		Confirmed:   ev.IsConfirmed(),
	}

	refs := []Ref{{EntityType: EntityBooking, EntityID: p.EventID, Role: "subject"}}
	if p.Resource != "" {
		refs = append(refs, Ref{EntityType: EntityResource, EntityID: p.Resource, Role: "context"})
	}

	evtType, verb := TypeBookingCreated, "created"
	switch {
	case confirmed:
		evtType, verb = TypeBookingConfirmed, "confirmed"
	case action == calendar.ActionEdit:
		evtType, verb = TypeBookingEdited, "edited"
	}

	return DomainEvent{
		ID:               newID(),
		EventType:        evtType,
		OccurredAt:       time.Now(),
		AffectedEntities: refs,
		Summary:          fmt.Sprintf("Booking %s %s for %s", p.EventID, verb, ev.Start.Format("2006-01-02 15:04")),
		Payload:          mustJSON(p),
	}
}
