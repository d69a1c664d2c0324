package core

import (
	"fmt"
)

// LineKind distinguishes a device (always quantity 1) from an accessory.
type LineKind string

const (
	LineDevice    LineKind = "device"
	LineAccessory LineKind = "accessory"
)

type TransactionKind string

const (
	KindSale   TransactionKind = "sale"
	KindRental TransactionKind = "rental"
)

type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
)

type ReturnStatus string

const (
	NotReturned       ReturnStatus = "not_returned"
	Returned          ReturnStatus = "returned"
	PartiallyReturned ReturnStatus = "partially_returned"
	Damaged           ReturnStatus = "damaged"
)

type (
	// BillableLine is a priced item with the payments attached to it directly.
	BillableLine struct {
		ID         string
		Kind       LineKind
		Label      string
		UnitPrice  Money
		Quantity   int
		TotalPrice Money
		Period     DateRange
		Payments   []PaymentInstrument
	}

	// BillableGroup bundles lines settled together; SharedPayments apply to the
	// whole group rather than to a single line.
	BillableGroup struct {
		ID             string
		Name           string
		Items          []BillableLine
		SharedPayments []PaymentInstrument
		Period         DateRange
	}

	// Ledger is the part shared by sales and rentals.
	Ledger struct {
		ID          string
		PatientID   string
		PatientName string
		Date        Date
		Lines       []BillableLine
		Groups      []BillableGroup
	}

	Sale struct {
		Ledger
		Status SaleStatus
	}

	Rental struct {
		Ledger
		Period           DateRange
		ReturnStatus     ReturnStatus
		ActualReturnDate Date
	}

	// Transaction is either a Sale or a Rental.
	Transaction interface {
		Kind() TransactionKind
		Entries() Ledger
		sealedTransaction()
	}

	// PaymentRef locates a payment inside a transaction.
	PaymentRef struct {
		Instrument PaymentInstrument
		LineID     string // empty for group-shared payments
		GroupID    string // empty for standalone lines
		Index      int    // position in its payment slice
	}
)

// NewLine builds a line with TotalPrice = UnitPrice*Quantity.
func NewLine(id string, kind LineKind, unitPrice Money, quantity int, payments ...PaymentInstrument) BillableLine {
	return BillableLine{
		ID:         id,
		Kind:       kind,
		UnitPrice:  unitPrice,
		Quantity:   quantity,
		TotalPrice: unitPrice.Mul(quantity),
		Payments:   payments,
	}
}

// CheckInvariant verifies the pricing invariants of the line.
func (l BillableLine) CheckInvariant() error {
	violation := func(format string, args ...any) error {
		return &InvariantViolation{EntityID: l.ID, EntityType: EntityLine, Reason: fmt.Sprintf(format, args...)}
	}
	if l.Quantity < 1 {
		return violation("quantity %d below 1", l.Quantity)
	}
	if l.Kind == LineDevice && l.Quantity != 1 {
		return violation("device quantity %d, must be 1", l.Quantity)
	}
	if l.UnitPrice.IsNegative() {
		return violation("negative unit price %s", l.UnitPrice)
	}
	want, ok := l.UnitPrice.MulChecked(l.Quantity)
	if !ok {
		return violation("unit price %s x %d overflows", l.UnitPrice, l.Quantity)
	}
	if l.TotalPrice != want {
		return violation("total price %s != unit price %s x %d", l.TotalPrice, l.UnitPrice, l.Quantity)
	}
	if err := l.Period.Validate(); err != nil {
		return violation("%v", err)
	}
	return nil
}

func (Sale) Kind() TransactionKind   { return KindSale }
func (Rental) Kind() TransactionKind { return KindRental }

func (s Sale) Entries() Ledger   { return s.Ledger }
func (r Rental) Entries() Ledger { return r.Ledger }

func (Sale) sealedTransaction()   {}
func (Rental) sealedTransaction() {}

// EntityType returns the entity type name used for a transaction kind.
func (k TransactionKind) EntityType() string {
	if k == KindRental {
		return EntityRental
	}
	return EntitySale
}

func (k TransactionKind) IsValid() bool {
	return k == KindSale || k == KindRental
}

// AllLines returns standalone lines followed by grouped lines.
func (l Ledger) AllLines() []BillableLine {
	out := make([]BillableLine, 0, len(l.Lines))
	out = append(out, l.Lines...)
	for _, g := range l.Groups {
		out = append(out, g.Items...)
	}
	return out
}

// Payments returns every payment of the ledger with its location: line-level
// payments of standalone lines, then for each group its items' payments and
// its shared payments.
func (l Ledger) Payments() []PaymentRef {
	var refs []PaymentRef
	appendLine := func(groupID string, line BillableLine) {
		for i, p := range line.Payments {
			refs = append(refs, PaymentRef{Instrument: p, LineID: line.ID, GroupID: groupID, Index: i})
		}
	}
	for _, line := range l.Lines {
		appendLine("", line)
	}
	for _, g := range l.Groups {
		for _, line := range g.Items {
			appendLine(g.ID, line)
		}
		for i, p := range g.SharedPayments {
			refs = append(refs, PaymentRef{Instrument: p, GroupID: g.ID, Index: i})
		}
	}
	return refs
}

// ReturnDue is the day the rented equipment is expected back: the rental period
// end, or the latest end among its lines and groups when the period is open.
func (r Rental) ReturnDue() Date {
	if !r.Period.End.IsZero() {
		return r.Period.End
	}
	var due Date
	later := func(d Date) {
		if d.After(due) {
			due = d
		}
	}
	for _, line := range r.AllLines() {
		later(line.Period.End)
	}
	for _, g := range r.Groups {
		later(g.Period.End)
	}
	return due
}

func (r Rental) IsOut() bool {
	return r.ReturnStatus == NotReturned || r.ReturnStatus == ""
}

// ActiveOn reports whether the rental is still out and its period covers d.
func (r Rental) ActiveOn(d Date) bool {
	if !r.IsOut() {
		return false
	}
	if !r.Period.Start.IsZero() && d.Before(r.Period.Start) {
		return false
	}
	return true
}

func (s Sale) IsCancelled() bool {
	return s.Status == SaleCancelled
}
