package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/matthewbaird/scheduler/internal/calendar"
	"github.com/matthewbaird/scheduler/internal/config"
	"github.com/matthewbaird/scheduler/internal/editor"
	"github.com/matthewbaird/scheduler/internal/event"
	"github.com/matthewbaird/scheduler/internal/eventbus"
	"github.com/matthewbaird/scheduler/internal/input"
	"github.com/matthewbaird/scheduler/internal/render"
	"github.com/matthewbaird/scheduler/internal/schema"
	"github.com/matthewbaird/scheduler/internal/worker"
)

// workspace is everything a command needs, built from the loaded config.
type workspace struct {
	cfg          *config.Config
	schema       *schema.Schema
	events       *calendar.MemoryCollection
	eventsPath   string
	activityPath string
	renderer     *render.Renderer
}

func (app *App) workspace() (*workspace, error) {
	cfg := app.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s, err := cfg.Schema()
	if err != nil {
		return nil, err
	}
	money, err := cfg.CurrencyFormatter()
	if err != nil {
		return nil, err
	}
	eventsPath := cfg.Resolve(cfg.EventsFile)
	events, err := loadEvents(eventsPath)
	if err != nil {
		return nil, err
	}
	return &workspace{
		cfg:          cfg,
		schema:       s,
		events:       events,
		eventsPath:   eventsPath,
		activityPath: cfg.Resolve(cfg.ActivityFile),
		renderer: &render.Renderer{
			Translations: cfg.Translations,
			Currency:     money,
			Catalog:      cfg.Services,
		},
	}, nil
}

func (w *workspace) options(rec event.Recorder) (editor.Options, error) {
	lo, err := w.cfg.LedgerOptions()
	if err != nil {
		return editor.Options{}, err
	}
	return editor.Options{
		Ledger:          lo,
		ResourceField:   w.cfg.ResourceField,
		SeedServiceLine: w.cfg.SeedServiceLine,
		ConfirmTimeout:  w.cfg.ConfirmTimeout,
		CustomEditor:    w.renderer.HasCustom(),
		Collection:      w.events,
		Recorder:        rec,
	}, nil
}

// startBus wires the recorder that turns commits into history. The
// recorder keeps no store of its own: the history file worker is the only
// copy, and the history command replays it.
func (w *workspace) startBus(ctx context.Context) (*event.ActivityRecorder, *eventbus.Bus) {
	bus := eventbus.New(0)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	bus.Subscribe("history-file", worker.NewHistoryFileWorker(w.activityPath))
	bus.Start(ctx)

	rec := event.NewActivityRecorder(nil)
	rec.SetPublisher(bus)
	return rec, bus
}

// source picks what a session opens from: a stored event, a range
// selection, or nothing for a blank form.
func (w *workspace) source(ctx context.Context, id, start, end, resource string) (calendar.Source, error) {
	if id != "" {
		ev, err := w.events.Get(ctx, calendar.EventID(id))
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", id, err)
		}
		return &ev, nil
	}
	if start == "" && end == "" && resource == "" {
		return nil, nil
	}

	r := &calendar.SelectedRange{ResourceField: w.cfg.ResourceField}
	if resource != "" {
		r.ResourceID = resource
	}
	if start != "" {
		t, err := input.Date(start)
		if err != nil {
			return nil, fmt.Errorf("--start: %w", err)
		}
		r.Start = t.Time()
	}
	if end != "" {
		t, err := input.Date(end)
		if err != nil {
			return nil, fmt.Errorf("--end: %w", err)
		}
		r.End = t.Time()
	}
	return r, nil
}

func splitAssignment(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("expected name=value, got %q", s)
	}
	return name, value, nil
}
