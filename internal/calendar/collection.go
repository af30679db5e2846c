package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound      = errors.New("calendar: event not found")
	ErrDuplicateID   = errors.New("calendar: event id already exists")
	ErrMissingID     = errors.New("calendar: event has no id")
	ErrNotDeletable  = errors.New("calendar: event is not deletable")
	ErrInvalidAction = errors.New("calendar: unknown action")
)

// Collection is the outer event set the editor commits into.
type Collection interface {
	// Commit stores ev: create appends a new event, edit replaces the event
	// with the same id. It returns the stored copy.
	Commit(ctx context.Context, ev Event, action Action) (Event, error)

	// Get returns the event with the given id.
	Get(ctx context.Context, id EventID) (Event, error)

	// List returns events matching opts ordered by start time.
	List(ctx context.Context, opts ListOptions) ([]Event, error)

	// Delete removes an event; events whose deletable flag is false are refused.
	Delete(ctx context.Context, id EventID) error
}

// ListOptions narrows a List call. Zero values mean "no filter".
type ListOptions struct {
	Since         *time.Time // events ending after Since
	Until         *time.Time // events starting before Until
	ResourceField string
	ResourceID    string
}

// MemoryCollection implements Collection with an in-memory slice in
// insertion order.
type MemoryCollection struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryCollection creates a collection holding copies of seed.
func NewMemoryCollection(seed ...Event) *MemoryCollection {
	c := &MemoryCollection{}
	for _, ev := range seed {
		c.events = append(c.events, ev.Clone())
	}
	return c
}

func (c *MemoryCollection) indexOf(id EventID) int {
	for i := range c.events {
		if c.events[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *MemoryCollection) Commit(_ context.Context, ev Event, action Action) (Event, error) {
	if ev.ID.IsZero() {
		return Event{}, ErrMissingID
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(ev.ID)
	switch action {
	case ActionCreate:
		if i >= 0 {
			return Event{}, fmt.Errorf("%w: %s", ErrDuplicateID, ev.ID)
		}
		c.events = append(c.events, ev.Clone())
	case ActionEdit:
		if i < 0 {
			return Event{}, fmt.Errorf("%w: %s", ErrNotFound, ev.ID)
		}
		c.events[i] = ev.Clone()
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	return ev.Clone(), nil
}

func (c *MemoryCollection) Get(_ context.Context, id EventID) (Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.events[i].Clone(), nil
}

func (c *MemoryCollection) List(_ context.Context, opts ListOptions) ([]Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []Event
	for _, e := range c.events {
		if opts.Since != nil && !e.End.After(*opts.Since) {
			continue
		}
		if opts.Until != nil && !e.Start.Before(*opts.Until) {
			continue
		}
		if opts.ResourceID != "" && !e.HasResource(opts.ResourceField, opts.ResourceID) {
			continue
		}
		matched = append(matched, e.Clone())
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Start.Before(matched[j].Start)
	})
	return matched, nil
}

func (c *MemoryCollection) Delete(_ context.Context, id EventID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !c.events[i].IsDeletable() {
		return fmt.Errorf("%w: %s", ErrNotDeletable, id)
	}
	c.events = append(c.events[:i], c.events[i+1:]...)
	return nil
}

// Len returns the number of stored events.
func (c *MemoryCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}
