package core

import "time"

// ObligationKind is the reason a transaction or appointment needs attention.
type ObligationKind string

const (
	ObligationCashRemainder     ObligationKind = "cash_remainder"
	ObligationCnamFollowUp      ObligationKind = "cnam_follow_up"
	ObligationPromissoryNoteDue ObligationKind = "promissory_note_due"
	ObligationRentalReturn      ObligationKind = "rental_return"
	ObligationAppointment       ObligationKind = "appointment"
)

type NotificationType string

const (
	NotificationOverdue  NotificationType = "overdue"
	NotificationDueSoon  NotificationType = "due_soon"
	NotificationReminder NotificationType = "reminder"
	NotificationUrgent   NotificationType = "urgent"
)

type (
	// Obligation is derived from the current state of a transaction on every
	// pass and never persisted.
	Obligation struct {
		SourceEntityID   string
		SourceEntityType string
		TransactionID    string
		Kind             ObligationKind
		DueDate          Date
		Description      string
		Amount           Money
		IsOverdue        bool
		PatientName      string
	}

	// Notification is the presentation projection of an obligation or appointment.
	// ID is stable for unchanged source data.
	Notification struct {
		ID          string
		Title       string
		Message     string
		Type        NotificationType
		Date        Date
		EntityType  string
		EntityID    string
		PatientName string
	}

	// Snapshot is everything one aggregation pass reads, fetched once.
	Snapshot struct {
		AsOf         Date
		Sales        []Transaction
		Rentals      []Transaction
		Appointments []Appointment
		Diagnostics  []Diagnostic
		Patients     []Patient
		FetchedAt    time.Time
	}
)

// Transactions returns sales followed by rentals.
func (s Snapshot) Transactions() []Transaction {
	out := make([]Transaction, 0, len(s.Sales)+len(s.Rentals))
	out = append(out, s.Sales...)
	return append(out, s.Rentals...)
}

// DaysOverdue is how many days past due the obligation is at asOf (0 if not yet due).
func (o Obligation) DaysOverdue(asOf Date) int {
	if !o.DueDate.Before(asOf) {
		return 0
	}
	return o.DueDate.DaysUntil(asOf)
}

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationOverdue, NotificationDueSoon, NotificationReminder, NotificationUrgent:
		return true
	default:
		return false
	}
}
