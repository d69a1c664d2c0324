package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrent/internal/amqp"
	"medrent/internal/core"
	"medrent/internal/sheets"
	"medrent/internal/sheets/memory"
)

var asOf = core.NewDate(2025, 3, 1)

func notification(id string) core.Notification {
	return core.Notification{
		ID:         id,
		Title:      "Rental return",
		Message:    "Ali - Rental return (3 days late)",
		Type:       core.NotificationOverdue,
		Date:       core.NewDate(2025, 2, 26),
		EntityType: "rental",
		EntityID:   "R1",
	}
}

func TestAgendaWorker_HandleNotification_Idempotent(t *testing.T) {
	agenda := memory.New()
	w := NewAgendaWorker(agenda)
	ctx := context.Background()
	msg := amqp.NewNotificationMessage(notification("n1"), asOf)

	require.NoError(t, w.HandleNotification(ctx, msg))
	require.NoError(t, w.HandleNotification(ctx, msg))

	entries := agenda.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "n1", entries[0].NotificationID)
	assert.Equal(t, "2025-03-01", entries[0].RaisedOn.String())
	assert.Equal(t, core.NotificationOverdue, entries[0].Type)
}

func TestAgendaWorker_SkipsIDsAlreadyInAgenda(t *testing.T) {
	agenda := memory.New()
	_, err := agenda.AppendEntry(context.Background(), sheets.EntryFromNotification(notification("n1"), asOf))
	require.NoError(t, err)

	w := NewAgendaWorker(agenda)
	written, err := w.Backfill(context.Background(), []core.Notification{notification("n1"), notification("n2")}, asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	assert.Len(t, agenda.Entries(), 2)
}

type flakyAgenda struct {
	*memory.Agenda
	listErr   error
	appendErr error
}

func (f *flakyAgenda) EntryIDs(ctx context.Context) (map[string]bool, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Agenda.EntryIDs(ctx)
}

func (f *flakyAgenda) AppendEntry(ctx context.Context, e sheets.AgendaEntry) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	return f.Agenda.AppendEntry(ctx, e)
}

func TestAgendaWorker_TransientErrors(t *testing.T) {
	ctx := context.Background()
	msg := amqp.NewNotificationMessage(notification("n1"), asOf)

	t.Run("unreadable agenda", func(t *testing.T) {
		w := NewAgendaWorker(&flakyAgenda{Agenda: memory.New(), listErr: errors.New("quota")})
		assert.ErrorContains(t, w.HandleNotification(ctx, msg), "read agenda ids")
	})

	t.Run("append failure is retried later", func(t *testing.T) {
		f := &flakyAgenda{Agenda: memory.New(), appendErr: errors.New("503")}
		w := NewAgendaWorker(f)
		assert.ErrorContains(t, w.HandleNotification(ctx, msg), "append agenda entry n1")

		f.appendErr = nil
		require.NoError(t, w.HandleNotification(ctx, msg))
		assert.Len(t, f.Entries(), 1)
	})
}

func TestAgendaWorker_PublishNotification(t *testing.T) {
	agenda := memory.New()
	w := NewAgendaWorker(agenda)

	require.NoError(t, w.PublishNotification(context.Background(), notification("n1"), asOf))
	require.NoError(t, w.PublishNotification(context.Background(), notification("n1"), asOf))
	assert.Len(t, agenda.Entries(), 1)
}
