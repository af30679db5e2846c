// Package worker contains event bus consumers that maintain derived data
// stores.
package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/matthewbaird/scheduler/internal/activity"
	"github.com/matthewbaird/scheduler/internal/event"
	"github.com/matthewbaird/scheduler/internal/log"
)

// HistoryFileWorker appends the activity entries of every domain event to a
// JSON lines file, one entry per line.
type HistoryFileWorker struct {
	mu   sync.Mutex
	path string
}

// NewHistoryFileWorker creates a worker writing to path.
func NewHistoryFileWorker(path string) *HistoryFileWorker {
	return &HistoryFileWorker{path: path}
}

// HandleEvent implements eventbus.Handler.
func (w *HistoryFileWorker) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	entries := event.Entries(evt)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			f.Close()
			return err
		}
	}
	log.Debug("history_file: appended", "type", evt.EventType, "entries", len(entries))
	return f.Close()
}

// ReplayHistory loads a history file into a fresh memory store. A missing
// file is an empty history.
func ReplayHistory(ctx context.Context, path string) (*activity.MemoryStore, error) {
	store := activity.NewMemoryStore()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e activity.Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("history %s:%d: %w", path, line, err)
		}
		if err := store.WriteEntries(ctx, []activity.Entry{e}); err != nil {
			return nil, err
		}
	}
	return store, sc.Err()
}
