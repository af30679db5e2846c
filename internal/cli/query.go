package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/scheduler/internal/activity"
	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/editor"
	"github.com/matthewbaird/scheduler/internal/event"
	"github.com/matthewbaird/scheduler/internal/input"
	"github.com/matthewbaird/scheduler/internal/worker"
)

func newShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <event-id>",
		Short: "Print the editor form of a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace()
			if err != nil {
				return writeErr(cmd, err)
			}
			src, err := ws.source(cmd.Context(), args[0], "", "", "")
			if err != nil {
				return writeErr(cmd, err)
			}
			opts, err := ws.options(nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			sess, err := editor.Open(ws.schema, src, opts)
			if err != nil {
				return writeErr(cmd, err)
			}
			return ws.renderer.Render(cmd.OutOrStdout(), sess)
		},
	}
	return cmd
}

type rangeFlags struct {
	since    string
	until    string
	resource string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.since, "since", "", "Only bookings ending after this time")
	cmd.Flags().StringVar(&f.until, "until", "", "Only bookings starting before this time")
	cmd.Flags().StringVar(&f.resource, "resource", "", "Only bookings of this resource")
}

func (f *rangeFlags) list(ctx context.Context, ws *workspace) ([]calendar.Event, error) {
	opts := calendar.ListOptions{ResourceField: ws.cfg.ResourceField, ResourceID: f.resource}
	if f.since != "" {
		t, err := input.Date(f.since)
		if err != nil {
			return nil, fmt.Errorf("--since: %w", err)
		}
		since := t.Time()
		opts.Since = &since
	}
	if f.until != "" {
		t, err := input.Date(f.until)
		if err != nil {
			return nil, fmt.Errorf("--until: %w", err)
		}
		until := t.Time()
		opts.Until = &until
	}
	return ws.events.List(ctx, opts)
}

func newListCmd(app *App) *cobra.Command {
	var f rangeFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bookings ordered by start time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace()
			if err != nil {
				return writeErr(cmd, err)
			}
			events, err := f.list(cmd.Context(), ws)
			if err != nil {
				return writeErr(cmd, err)
			}
			if events == nil {
				events = []calendar.Event{}
			}
			return writeOut(cmd, app, events)
		},
	}
	f.register(cmd)
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var f rangeFlags
	var out string
	cmd := &cobra.Command{
		Use:   "export-ics",
		Short: "Export bookings as an iCalendar feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := app.workspace()
			if err != nil {
				return writeErr(cmd, err)
			}
			events, err := f.list(cmd.Context(), ws)
			if err != nil {
				return writeErr(cmd, err)
			}
			feed := calendar.ExportICS(events, calendar.ICSOptions{})
			if out == "" || out == "-" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), feed)
				return err
			}
			if err := os.WriteFile(out, []byte(feed), 0o644); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write the feed to this file instead of stdout")
	return cmd
}

func newHistoryCmd(app *App) *cobra.Command {
	var (
		bookingID  string
		resourceID string
		search     string
		eventTypes []string
		since      string
		limit      int
		cursor     string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the activity history of a booking or resource",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := app.workspace()
			if err != nil {
				return writeErr(cmd, err)
			}
			store, err := worker.ReplayHistory(ctx, ws.activityPath)
			if err != nil {
				return writeErr(cmd, err)
			}

			var sinceT *time.Time
			if since != "" {
				t, err := input.Date(since)
				if err != nil {
					return writeErr(cmd, fmt.Errorf("--since: %w", err))
				}
				tt := t.Time()
				sinceT = &tt
			}

			if search != "" {
				opts := activity.DefaultSearchOptions()
				opts.Since = sinceT
				if limit > 0 {
					opts.Limit = limit
				}
				entries, total, err := store.Search(ctx, search, opts)
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, historyPage{Entries: orEmpty(entries), Total: total})
			}

			entityType, entityID := event.EntityBooking, bookingID
			if resourceID != "" {
				entityType, entityID = event.EntityResource, resourceID
			}
			if entityID == "" {
				return writeErr(cmd, fmt.Errorf("one of --event, --resource or --search is required"))
			}
			opts := activity.DefaultQueryOptions()
			opts.Since = sinceT
			opts.EventTypes = eventTypes
			opts.Cursor = cursor
			if limit > 0 {
				opts.Limit = limit
			}
			entries, next, total, err := store.QueryByEntity(ctx, entityType, entityID, opts)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, historyPage{Entries: orEmpty(entries), NextCursor: next, Total: total})
		},
	}
	cmd.Flags().StringVar(&bookingID, "event", "", "Booking id")
	cmd.Flags().StringVar(&resourceID, "resource", "", "Resource id")
	cmd.Flags().StringVar(&search, "search", "", "Search entry summaries instead")
	cmd.Flags().StringSliceVar(&eventTypes, "type", nil, "Only these event types (booking_created, booking_edited, booking_confirmed)")
	cmd.Flags().StringVar(&since, "since", "", "Only entries after this time")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Continue from a previous page")
	cmd.MarkFlagsMutuallyExclusive("event", "resource", "search")
	return cmd
}

type historyPage struct {
	Entries    []activity.Entry `json:"entries"`
	NextCursor string           `json:"next_cursor,omitempty"`
	Total      int              `json:"total"`
}

func orEmpty(entries []activity.Entry) []activity.Entry {
	if entries == nil {
		return []activity.Entry{}
	}
	return entries
}
