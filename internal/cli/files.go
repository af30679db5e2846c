package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/matthewbaird/scheduler/internal/calendar"
)

// loadEvents reads the event file into a memory collection. A missing file
// is an empty calendar.
func loadEvents(path string) (*calendar.MemoryCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return calendar.NewMemoryCollection(), nil
		}
		return nil, err
	}
	var events []calendar.Event
	if len(data) > 0 {
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("events %s: %w", path, err)
		}
	}
	return calendar.NewMemoryCollection(events...), nil
}

// saveEvents writes every event of c to path atomically.
func saveEvents(ctx context.Context, path string, c calendar.Collection) error {
	events, err := c.List(ctx, calendar.ListOptions{})
	if err != nil {
		return err
	}
	if events == nil {
		events = []calendar.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".scheduler-events-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
