// Package sheets defines the agenda sink that mirrors notifications into a
// spreadsheet the front desk already works from.
package sheets

import (
	"context"

	"medrent/internal/core"
)

// AgendaEntry is one agenda row: a notification as raised by a refresh pass.
type AgendaEntry struct {
	NotificationID string
	Type           core.NotificationType
	Date           core.Date
	Title          string
	Message        string
	EntityType     string
	EntityID       string
	PatientName    string
	RaisedOn       core.Date
}

// Ports for outbound adapters.
type (
	AgendaWriter interface {
		AppendEntry(ctx context.Context, e AgendaEntry) (rowRef string, err error)
	}

	// AgendaReader lists notification ids already present in the agenda.
	AgendaReader interface {
		EntryIDs(ctx context.Context) (map[string]bool, error)
	}

	Agenda interface {
		AgendaWriter
		AgendaReader
	}
)

// EntryFromNotification builds the agenda row for n raised on asOf.
func EntryFromNotification(n core.Notification, asOf core.Date) AgendaEntry {
	return AgendaEntry{
		NotificationID: n.ID,
		Type:           n.Type,
		Date:           n.Date,
		Title:          n.Title,
		Message:        n.Message,
		EntityType:     n.EntityType,
		EntityID:       n.EntityID,
		PatientName:    n.PatientName,
		RaisedOn:       asOf,
	}
}
