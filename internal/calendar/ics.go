package calendar

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// ICSOptions controls ExportICS.
type ICSOptions struct {
	ProductID string
	// Now stamps DTSTAMP; defaults to time.Now.
	Now func() time.Time
}

// ExportICS serialises events as an iCalendar feed. Confirmed events are
// exported with STATUS:CONFIRMED, everything else as TENTATIVE.
func ExportICS(events []Event, opts ICSOptions) string {
	if opts.ProductID == "" {
		opts.ProductID = "-//scheduler//booking editor//EN"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	stamp := opts.Now().UTC()

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(opts.ProductID)

	for _, ev := range events {
		ve := cal.AddEvent(string(ev.ID))
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End.UTC())
		ve.SetSummary(summary(ev))
		if desc := description(ev); desc != "" {
			ve.SetDescription(desc)
		}
		if ev.IsConfirmed() {
			ve.SetStatus(ical.ObjectStatusConfirmed)
		} else {
			ve.SetStatus(ical.ObjectStatusTentative)
		}
	}
	return cal.Serialize()
}

func summary(ev Event) string {
	switch {
	case ev.Title != "":
		return ev.Title
	case ev.Name != "":
		return ev.Name
	default:
		return "Booking " + string(ev.ID)
	}
}

func description(ev Event) string {
	var parts []string
	if ev.Phone != "" {
		parts = append(parts, "Phone: "+ev.Phone)
	}
	if ev.Comment != "" {
		parts = append(parts, ev.Comment)
	}
	if !ev.TotalPrice.IsZero() {
		parts = append(parts, "Total: "+ev.TotalPrice.String())
	}
	return strings.Join(parts, "\n")
}
