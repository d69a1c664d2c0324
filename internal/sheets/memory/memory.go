// Package memory is the in-process agenda sink used when no spreadsheet is
// configured, and by tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ports "medrent/internal/sheets"
)

type Agenda struct {
	mu      sync.Mutex
	entries []ports.AgendaEntry
}

var _ ports.Agenda = (*Agenda)(nil)

func New() *Agenda {
	return &Agenda{}
}

// AppendEntry stores the entry and returns a synthetic row reference.
func (a *Agenda) AppendEntry(_ context.Context, e ports.AgendaEntry) (string, error) {
	if e.NotificationID == "" {
		return "", errors.New("agenda entry without notification id")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return fmt.Sprintf("mem:%d", len(a.entries)), nil
}

func (a *Agenda) EntryIDs(_ context.Context) (map[string]bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make(map[string]bool, len(a.entries))
	for _, e := range a.entries {
		ids[e.NotificationID] = true
	}
	return ids, nil
}

// Entries returns a copy of the rows in append order.
func (a *Agenda) Entries() []ports.AgendaEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ports.AgendaEntry(nil), a.entries...)
}
