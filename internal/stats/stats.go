// Package stats reduces calendar events and transactions to dashboard counters
// and revenue analytics.
package stats

import (
	"errors"

	"medrent/internal/calendar"
	"medrent/internal/core"
	"medrent/internal/reconcile"
)

// Summary holds the dashboard counters.
type Summary struct {
	Appointments    int `json:"appointments"`
	Rentals         int `json:"rentals"`
	Sales           int `json:"sales"`
	Diagnostics     int `json:"diagnostics"`
	OverduePayments int `json:"overdue_payments"`
}

// Analytics is the administrator view of revenue over a window.
type Analytics struct {
	TotalRevenue         core.Money
	SalesRevenue         core.Money
	RentalRevenue        core.Money
	Outstanding          core.Money
	ActiveRentals        int
	NewPatientsThisMonth int
	ByInstrument         map[core.InstrumentKind]core.Money
}

// Warning reports a transaction left out of the analytics because its data
// breaks a model invariant.
type Warning struct {
	TransactionID   string
	TransactionKind core.TransactionKind
	EntityID        string
	EntityType      string
	Reason          string
}

// Reduce counts the events of one calendar pass and the transactions it read.
// OverduePayments counts overdue events, rental returns included.
func Reduce(events []calendar.Event, txs []core.Transaction) Summary {
	var s Summary
	for _, ev := range events {
		switch ev.Kind {
		case core.ObligationAppointment:
			s.Appointments++
		case calendar.KindDiagnostic:
			s.Diagnostics++
		}
		if ev.IsOverdue {
			s.OverduePayments++
		}
	}
	for _, tx := range txs {
		switch tx.Kind() {
		case core.KindSale:
			s.Sales++
		case core.KindRental:
			s.Rentals++
		}
	}
	return s
}

// Analyze sums what was actually paid on the transactions dated inside window.
// Cancelled sales are excluded. Transactions that fail reconciliation are
// skipped and reported as warnings instead of failing the whole view.
func Analyze(snap core.Snapshot, window core.DateRange) (Analytics, []Warning) {
	a := Analytics{ByInstrument: make(map[core.InstrumentKind]core.Money)}
	var warnings []Warning

	for _, tx := range snap.Transactions() {
		if rental, ok := tx.(core.Rental); ok && rental.ActiveOn(snap.AsOf) {
			a.ActiveRentals++
		}
		if sale, ok := tx.(core.Sale); ok && sale.IsCancelled() {
			continue
		}
		ledger := tx.Entries()
		if !window.Contains(ledger.Date) {
			continue
		}

		res, err := reconcile.Transaction(tx)
		if err != nil {
			warnings = append(warnings, warningFor(tx, err))
			continue
		}
		a.TotalRevenue = a.TotalRevenue.Add(res.TotalPaid)
		a.Outstanding = a.Outstanding.Add(res.Outstanding)
		if tx.Kind() == core.KindRental {
			a.RentalRevenue = a.RentalRevenue.Add(res.TotalPaid)
		} else {
			a.SalesRevenue = a.SalesRevenue.Add(res.TotalPaid)
		}
		for kind, amount := range res.ByInstrument {
			a.ByInstrument[kind] = a.ByInstrument[kind].Add(amount)
		}
	}

	year, month, _ := snap.AsOf.Date()
	for _, p := range snap.Patients {
		y, m, _ := p.CreatedAt.Date()
		if !p.CreatedAt.IsEmpty() && y == year && m == month {
			a.NewPatientsThisMonth++
		}
	}
	return a, warnings
}

// MonthToDate is the window from the first of asOf's month to asOf.
func MonthToDate(asOf core.Date) core.DateRange {
	year, month, _ := asOf.Date()
	return core.DateRange{Start: core.NewDate(year, int(month), 1), End: asOf}
}

func warningFor(tx core.Transaction, err error) Warning {
	w := Warning{
		TransactionID:   tx.Entries().ID,
		TransactionKind: tx.Kind(),
		Reason:          err.Error(),
	}
	var iv *core.InvariantViolation
	if errors.As(err, &iv) {
		w.EntityID = iv.EntityID
		w.EntityType = iv.EntityType
		w.Reason = iv.Reason
	}
	return w
}
