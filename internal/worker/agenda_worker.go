// Package worker mirrors published notifications into the agenda sheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"medrent/internal/amqp"
	"medrent/internal/core"
	mlog "medrent/internal/log"
	"medrent/internal/sheets"
)

// AgendaWorker appends each notification to the agenda at most once.
// Redelivered or republished messages for an id already in the agenda are
// acknowledged without writing.
type AgendaWorker struct {
	agenda sheets.Agenda

	mu   sync.Mutex
	seen map[string]bool
}

func NewAgendaWorker(agenda sheets.Agenda) *AgendaWorker {
	return &AgendaWorker{agenda: agenda}
}

// HandleNotification processes one message from the notification queue.
// Returned errors are transient and the message should be requeued.
func (w *AgendaWorker) HandleNotification(ctx context.Context, msg *amqp.NotificationMessage) error {
	_, err := w.write(ctx, msg.Notification(), msg.AsOf)
	return err
}

// PublishNotification writes n straight to the agenda, so the refresh
// processor can feed it in process when no broker is configured.
func (w *AgendaWorker) PublishNotification(ctx context.Context, n core.Notification, asOf core.Date) error {
	_, err := w.write(ctx, n, asOf)
	return err
}

// Backfill writes every notification missing from the agenda. It serves the
// direct mode where no broker sits between the refresh and the agenda.
func (w *AgendaWorker) Backfill(ctx context.Context, ns []core.Notification, asOf core.Date) (int, error) {
	written := 0
	for _, n := range ns {
		ok, err := w.write(ctx, n, asOf)
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}
	return written, nil
}

func (w *AgendaWorker) write(ctx context.Context, n core.Notification, asOf core.Date) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.loadLocked(ctx); err != nil {
		return false, err
	}
	if w.seen[n.ID] {
		slog.DebugContext(ctx, "Notification already in agenda",
			mlog.FieldComponent, mlog.ComponentWorker,
			mlog.FieldNotificationID, n.ID)
		return false, nil
	}

	ref, err := w.agenda.AppendEntry(ctx, sheets.EntryFromNotification(n, asOf))
	if err != nil {
		return false, fmt.Errorf("append agenda entry %s: %w", n.ID, err)
	}
	w.seen[n.ID] = true

	slog.InfoContext(ctx, "Added notification to agenda",
		mlog.FieldComponent, mlog.ComponentWorker,
		mlog.FieldOperation, mlog.OpAppend,
		mlog.FieldNotificationID, n.ID,
		mlog.FieldEntityType, n.EntityType,
		mlog.FieldEntityID, n.EntityID,
		"type", n.Type,
		"row", ref)
	return true, nil
}

func (w *AgendaWorker) loadLocked(ctx context.Context) error {
	if w.seen != nil {
		return nil
	}
	ids, err := w.agenda.EntryIDs(ctx)
	if err != nil {
		return fmt.Errorf("read agenda ids: %w", err)
	}
	w.seen = ids
	return nil
}
