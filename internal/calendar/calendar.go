// Package calendar merges derived obligations and appointments into calendar
// events and the notification list.
package calendar

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"medrent/internal/core"
	"medrent/internal/obligations"
)

const (
	// DueSoonWindow is how many days ahead a pending obligation starts notifying.
	DueSoonWindow = 3
	// UrgentAfter is how many days late an overdue obligation becomes urgent.
	UrgentAfter = 30
)

// KindDiagnostic marks informational diagnostic events. They never notify.
const KindDiagnostic core.ObligationKind = "diagnostic"

// namespace scopes notification ids to this system.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("medrent/notifications"))

// Event is one entry of the calendar view.
type Event struct {
	ID               string
	Title            string
	Description      string
	Kind             core.ObligationKind
	Date             core.Date
	SourceEntityID   string
	SourceEntityType string
	TransactionID    string
	TransactionType  string
	PatientName      string
	Amount           core.Money
	IsOverdue        bool
	DaysOverdue      int
	// Type is the notification raised for the event, empty when none is.
	Type core.NotificationType
}

// Result is the output of one aggregation pass.
type Result struct {
	Events        []Event
	Notifications []core.Notification
}

// NotificationID is stable for a source entity and obligation kind: repeated
// passes over unchanged data yield the same id.
func NotificationID(sourceEntityID string, kind core.ObligationKind) string {
	return uuid.NewSHA1(namespace, []byte(sourceEntityID+"|"+string(kind))).String()
}

// Classify returns the notification type of an obligation at asOf, or false when
// the obligation is too far ahead to notify.
func Classify(ob core.Obligation, asOf core.Date) (core.NotificationType, bool) {
	if ob.Kind == core.ObligationAppointment {
		return core.NotificationReminder, true
	}
	if ob.IsOverdue {
		if ob.DaysOverdue(asOf) > UrgentAfter {
			return core.NotificationUrgent, true
		}
		return core.NotificationOverdue, true
	}
	if days := asOf.DaysUntil(ob.DueDate); days >= 0 && days <= DueSoonWindow {
		return core.NotificationDueSoon, true
	}
	return "", false
}

// Aggregate derives the obligations of every transaction, adds one event per
// non-cancelled appointment, and classifies them into notifications. Events
// sharing a notification id collapse into the most overdue one.
func Aggregate(txs []core.Transaction, appointments []core.Appointment, asOf core.Date) Result {
	var events []Event
	byID := make(map[string]int)
	add := func(ev Event) {
		if i, seen := byID[ev.ID]; seen {
			if ev.DaysOverdue > events[i].DaysOverdue {
				events[i] = ev
			}
			return
		}
		byID[ev.ID] = len(events)
		events = append(events, ev)
	}

	for _, tx := range txs {
		for _, ob := range obligations.Derive(tx, asOf) {
			ev := newEvent(ob, asOf)
			ev.TransactionType = tx.Kind().EntityType()
			add(ev)
		}
	}
	for _, a := range appointments {
		if a.IsCancelled() {
			continue
		}
		add(newEvent(appointmentObligation(a), asOf))
	}

	sortEvents(events)
	return Result{Events: events, Notifications: notificationsOf(events)}
}

// AggregateSnapshot aggregates a fetched snapshot and adds its diagnostics as
// informational events.
func AggregateSnapshot(snap core.Snapshot) Result {
	res := Aggregate(snap.Transactions(), snap.Appointments, snap.AsOf)
	for _, d := range snap.Diagnostics {
		res.Events = append(res.Events, Event{
			ID:               NotificationID(d.ID, KindDiagnostic),
			Title:            "Diagnostic: " + d.Kind,
			Description:      fmt.Sprintf("%s performed for %s", d.Kind, d.PatientName),
			Kind:             KindDiagnostic,
			Date:             d.PerformedOn,
			SourceEntityID:   d.ID,
			SourceEntityType: core.EntityDiagnostic,
			PatientName:      d.PatientName,
		})
	}
	sortEvents(res.Events)
	return res
}

// Window keeps the events dated inside r. Open bounds match everything.
func Window(events []Event, r core.DateRange) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if r.Contains(ev.Date) {
			out = append(out, ev)
		}
	}
	return out
}

// FilterDismissed drops the notifications whose id is in dismissed.
func FilterDismissed(ns []core.Notification, dismissed map[string]bool) []core.Notification {
	if len(dismissed) == 0 {
		return ns
	}
	out := make([]core.Notification, 0, len(ns))
	for _, n := range ns {
		if !dismissed[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

func appointmentObligation(a core.Appointment) core.Obligation {
	desc := a.Title
	if a.Notes != "" {
		desc = a.Title + ": " + a.Notes
	}
	return core.Obligation{
		SourceEntityID:   a.ID,
		SourceEntityType: core.EntityAppointment,
		Kind:             core.ObligationAppointment,
		DueDate:          a.Day(),
		Description:      desc,
		PatientName:      a.PatientName,
	}
}

func newEvent(ob core.Obligation, asOf core.Date) Event {
	ev := Event{
		ID:               NotificationID(ob.SourceEntityID, ob.Kind),
		Title:            title(ob),
		Description:      ob.Description,
		Kind:             ob.Kind,
		Date:             ob.DueDate,
		SourceEntityID:   ob.SourceEntityID,
		SourceEntityType: ob.SourceEntityType,
		TransactionID:    ob.TransactionID,
		PatientName:      ob.PatientName,
		Amount:           ob.Amount,
		IsOverdue:        ob.IsOverdue,
		DaysOverdue:      ob.DaysOverdue(asOf),
	}
	if typ, ok := Classify(ob, asOf); ok {
		ev.Type = typ
	}
	return ev
}

func title(ob core.Obligation) string {
	switch ob.Kind {
	case core.ObligationCashRemainder:
		return "Cash remainder due"
	case core.ObligationCnamFollowUp:
		return "CNAM claim follow-up"
	case core.ObligationPromissoryNoteDue:
		return "Promissory note due"
	case core.ObligationRentalReturn:
		return "Rental return overdue"
	case core.ObligationAppointment:
		return "Appointment"
	default:
		return string(ob.Kind)
	}
}

func message(ev Event) string {
	msg := ev.Description
	if ev.PatientName != "" {
		msg = fmt.Sprintf("%s - %s", ev.PatientName, msg)
	}
	if ev.IsOverdue {
		msg = fmt.Sprintf("%s (%d days late)", msg, ev.DaysOverdue)
	}
	return msg
}

func notificationsOf(events []Event) []core.Notification {
	out := make([]core.Notification, 0, len(events))
	for _, ev := range events {
		if ev.Type == "" {
			continue
		}
		// notifications point at the record an operator opens, not the payment
		entityType, entityID := ev.SourceEntityType, ev.SourceEntityID
		if ev.TransactionID != "" {
			entityType, entityID = ev.TransactionType, ev.TransactionID
		}
		out = append(out, core.Notification{
			ID:          ev.ID,
			Title:       ev.Title,
			Message:     message(ev),
			Type:        ev.Type,
			Date:        ev.Date,
			EntityType:  entityType,
			EntityID:    entityID,
			PatientName: ev.PatientName,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date)
		}
		if a.SourceEntityType != b.SourceEntityType {
			return a.SourceEntityType < b.SourceEntityType
		}
		if a.SourceEntityID != b.SourceEntityID {
			return a.SourceEntityID < b.SourceEntityID
		}
		return a.Kind < b.Kind
	})
}
