package reconcile

import (
	"medrent/internal/core"
)

// Result is the reconciliation of a set of lines and groups.
type Result struct {
	TotalDue  core.Money
	TotalPaid core.Money
	// Outstanding is TotalDue-TotalPaid. Negative means overpaid; it is never clamped.
	Outstanding core.Money
	// ByInstrument sums nominal amounts per kind, for display only.
	ByInstrument map[core.InstrumentKind]core.Money
	// NegativeRemainders lists cash entries whose upfront exceeds the total.
	NegativeRemainders []string
}

// Reconcile computes what is due, what counts as paid under each instrument's
// accrual rule, and the outstanding balance. Payments attached to lines and
// payments shared by groups both count. Inputs are not modified.
//
// It returns a *core.InvariantViolation when a line's pricing or a cash entry's
// split is inconsistent.
func Reconcile(lines []core.BillableLine, groups []core.BillableGroup) (Result, error) {
	res := Result{ByInstrument: make(map[core.InstrumentKind]core.Money)}

	for _, line := range lines {
		if err := res.addLine(line); err != nil {
			return Result{}, err
		}
	}
	for _, g := range groups {
		for _, line := range g.Items {
			if err := res.addLine(line); err != nil {
				return Result{}, err
			}
		}
		for _, p := range g.SharedPayments {
			if err := res.addPayment(p); err != nil {
				return Result{}, err
			}
		}
	}

	res.Outstanding = res.TotalDue.Sub(res.TotalPaid)
	return res, nil
}

// Transaction reconciles every line and group of a sale or rental.
func Transaction(tx core.Transaction) (Result, error) {
	l := tx.Entries()
	return Reconcile(l.Lines, l.Groups)
}

// IsSettled reports whether nothing remains outstanding.
func (r Result) IsSettled() bool {
	return !r.Outstanding.IsPositive()
}

// IsOverpaid reports whether more was paid than due.
func (r Result) IsOverpaid() bool {
	return r.Outstanding.IsNegative()
}

func (r *Result) addLine(line core.BillableLine) error {
	if err := line.CheckInvariant(); err != nil {
		return err
	}
	r.TotalDue = r.TotalDue.Add(line.TotalPrice)
	for _, p := range line.Payments {
		if err := r.addPayment(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Result) addPayment(p core.PaymentInstrument) error {
	if cash, ok := p.(core.Cash); ok {
		if err := cash.CheckInvariant(); err != nil {
			return err
		}
		if cash.Remainder.IsNegative() {
			r.NegativeRemainders = append(r.NegativeRemainders, cash.ID)
		}
	}
	rule, err := GetAccrualRule(p.Kind())
	if err != nil {
		return &core.InvariantViolation{EntityID: p.Base().ID, EntityType: core.EntityPayment, Reason: err.Error()}
	}
	r.TotalPaid = r.TotalPaid.Add(rule.Paid(p))
	r.ByInstrument[p.Kind()] = r.ByInstrument[p.Kind()].Add(p.Base().Amount)
	return nil
}
