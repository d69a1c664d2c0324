// Package records defines the boundary between the engine and wherever patient,
// transaction and appointment records are kept.
package records

import (
	"context"
	"errors"

	"medrent/internal/core"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrMalformedRecord = errors.New("malformed record")
)

// Filter narrows a transaction fetch. Zero values match everything.
type Filter struct {
	Range     core.DateRange
	PatientID string
}

// Matches reports whether a transaction ledger passes the filter.
func (f Filter) Matches(l core.Ledger) bool {
	if f.PatientID != "" && l.PatientID != f.PatientID {
		return false
	}
	return f.Range.Contains(l.Date)
}

//go:generate mockgen -source=records.go -destination=mocks/mocks.go -package=mocks Store,DismissalStore,Writer

// Ports for the record system.
type (
	// Store reads current record state. Implementations return values the caller
	// may keep; nothing returned is mutated afterwards.
	Store interface {
		FetchTransactions(ctx context.Context, kind core.TransactionKind, f Filter) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, kind core.TransactionKind, id string) (core.Transaction, error)
		FetchAppointments(ctx context.Context, r core.DateRange) ([]core.Appointment, error)
		FetchDiagnostics(ctx context.Context, r core.DateRange) ([]core.Diagnostic, error)
		FetchPatients(ctx context.Context) ([]core.Patient, error)
	}

	// DismissalStore remembers which notifications an operator has dismissed.
	DismissalStore interface {
		Dismiss(ctx context.Context, notificationID string, actor core.Actor) error
		Dismissed(ctx context.Context) (map[string]bool, error)
	}

	// Writer persists records coming from fixtures or upstream imports.
	Writer interface {
		SavePatient(ctx context.Context, p core.Patient) error
		SaveTransaction(ctx context.Context, tx core.Transaction) error
		SaveAppointment(ctx context.Context, a core.Appointment) error
		SaveDiagnostic(ctx context.Context, d core.Diagnostic) error
	}
)
