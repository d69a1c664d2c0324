package obligations

import (
	"fmt"
	"sort"
	"strings"

	"medrent/internal/core"
)

// Derive returns the obligations tx leaves open at asOf. The result depends only
// on tx and asOf: the same inputs always give the same obligations in the same
// order, sorted by due date then source id.
//
// Cancelled sales produce nothing. Incomplete instrument data is skipped, not
// reported.
func Derive(tx core.Transaction, asOf core.Date) []core.Obligation {
	if sale, ok := tx.(core.Sale); ok && sale.IsCancelled() {
		return nil
	}

	ledger := tx.Entries()
	var out []core.Obligation
	for _, ref := range ledger.Payments() {
		rule, ok := GetRule(ref.Instrument.Kind())
		if !ok {
			continue
		}
		ob, ok := rule.Obligation(ref.Instrument, asOf)
		if !ok {
			continue
		}
		ob.SourceEntityID = SourceID(tx.Kind(), ledger.ID, ref)
		ob.SourceEntityType = core.EntityPayment
		ob.TransactionID = ledger.ID
		ob.PatientName = ledger.PatientName
		out = append(out, ob)
	}

	if rental, ok := tx.(core.Rental); ok {
		if ob, ok := rentalReturn(rental, asOf); ok {
			out = append(out, ob)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate.Time) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		if out[i].SourceEntityID != out[j].SourceEntityID {
			return out[i].SourceEntityID < out[j].SourceEntityID
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// DeriveAll derives the obligations of every transaction.
func DeriveAll(txs []core.Transaction, asOf core.Date) []core.Obligation {
	var out []core.Obligation
	for _, tx := range txs {
		out = append(out, Derive(tx, asOf)...)
	}
	return out
}

// SourceID locates a payment inside its transaction:
// "<kind>:<txID>[/group:<groupID>][/line:<lineID>]/<paymentID>". Sales and
// rentals may share an id, and payment ids are only unique within their line
// or group, so both the kind and the location are part of the id. A payment
// without an id is named by its position, "#<index>".
func SourceID(kind core.TransactionKind, txID string, ref core.PaymentRef) string {
	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteByte(':')
	b.WriteString(txID)
	if ref.GroupID != "" {
		b.WriteString("/group:")
		b.WriteString(ref.GroupID)
	}
	if ref.LineID != "" {
		b.WriteString("/line:")
		b.WriteString(ref.LineID)
	}
	b.WriteByte('/')
	if id := ref.Instrument.Base().ID; id != "" {
		b.WriteString(id)
	} else {
		fmt.Fprintf(&b, "#%d", ref.Index)
	}
	return b.String()
}

// rentalReturn flags equipment still out after its return day.
func rentalReturn(r core.Rental, asOf core.Date) (core.Obligation, bool) {
	if !r.IsOut() {
		return core.Obligation{}, false
	}
	due := r.ReturnDue()
	if due.IsEmpty() || !due.Before(asOf) {
		return core.Obligation{}, false
	}
	return core.Obligation{
		SourceEntityID:   r.ID,
		SourceEntityType: core.EntityRental,
		TransactionID:    r.ID,
		Kind:             core.ObligationRentalReturn,
		DueDate:          due,
		IsOverdue:        true,
		PatientName:      r.PatientName,
		Description:      fmt.Sprintf("Rented equipment expected back on %s", due),
	}, true
}
