package core

import (
	"fmt"
	"strings"
)

// InstrumentKind identifies a payment instrument variant.
type InstrumentKind string

const (
	KindCash           InstrumentKind = "cash"
	KindCheque         InstrumentKind = "cheque"
	KindBankTransfer   InstrumentKind = "bank_transfer"
	KindPostalOrder    InstrumentKind = "postal_order"
	KindPromissoryNote InstrumentKind = "traite"
	KindInsuranceClaim InstrumentKind = "cnam"
)

// InstrumentKinds lists every kind in display order.
var InstrumentKinds = []InstrumentKind{
	KindCash,
	KindCheque,
	KindBankTransfer,
	KindPostalOrder,
	KindPromissoryNote,
	KindInsuranceClaim,
}

// ClaimStatus is the approval state of a national-insurance (CNAM) claim.
type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
)

// PaymentInstrument is one payment entry. The set of implementations is closed:
// Cash, Cheque, BankTransfer, PostalOrder, PromissoryNote and InsuranceClaim.
type PaymentInstrument interface {
	Kind() InstrumentKind
	Base() Envelope
	sealed()
}

// Envelope carries the fields shared by every instrument. Amount is the nominal
// value of the entry; for Cash it is the total being financed, not the upfront part.
type Envelope struct {
	ID           string
	Amount       Money
	RecordedDate Date
	Notes        string
}

func (e Envelope) Base() Envelope { return e }

type (
	// Cash is paid partly upfront; the remainder is due later.
	Cash struct {
		Envelope
		Total            Money
		Upfront          Money
		Remainder        Money
		RemainderDueDate Date
	}

	Cheque struct {
		Envelope
		Number    string
		IssueDate Date
	}

	BankTransfer struct {
		Envelope
	}

	PostalOrder struct {
		Envelope
	}

	// PromissoryNote is a "traite" with a fixed due date.
	PromissoryNote struct {
		Envelope
		DueDate Date
	}

	// InsuranceClaim is a CNAM claim, honored only once approved.
	InsuranceClaim struct {
		Envelope
		Status       ClaimStatus
		FollowUpDate Date
	}
)

func (Cash) Kind() InstrumentKind           { return KindCash }
func (Cheque) Kind() InstrumentKind         { return KindCheque }
func (BankTransfer) Kind() InstrumentKind   { return KindBankTransfer }
func (PostalOrder) Kind() InstrumentKind    { return KindPostalOrder }
func (PromissoryNote) Kind() InstrumentKind { return KindPromissoryNote }
func (InsuranceClaim) Kind() InstrumentKind { return KindInsuranceClaim }

func (Cash) sealed()           {}
func (Cheque) sealed()         {}
func (BankTransfer) sealed()   {}
func (PostalOrder) sealed()    {}
func (PromissoryNote) sealed() {}
func (InsuranceClaim) sealed() {}

// NewCash builds a cash entry for total with the given upfront part. The remainder
// is total-upfront and is not clamped: an upfront larger than the total yields a
// negative remainder that reconciliation reports.
func NewCash(id string, total, upfront Money, dueDate Date) Cash {
	return Cash{
		Envelope:         Envelope{ID: id, Amount: total},
		Total:            total,
		Upfront:          upfront,
		Remainder:        total.Sub(upfront),
		RemainderDueDate: dueDate,
	}
}

// CheckInvariant verifies Remainder == Total-Upfront and Amount == Total.
func (c Cash) CheckInvariant() error {
	if c.Upfront.Add(c.Remainder) != c.Total {
		return &InvariantViolation{
			EntityID:   c.ID,
			EntityType: EntityPayment,
			Reason: fmt.Sprintf("cash upfront %s + remainder %s != total %s",
				c.Upfront, c.Remainder, c.Total),
		}
	}
	if c.Amount != c.Total {
		return &InvariantViolation{
			EntityID:   c.ID,
			EntityType: EntityPayment,
			Reason:     fmt.Sprintf("cash amount %s != total %s", c.Amount, c.Total),
		}
	}
	return nil
}

// HasOpenRemainder reports whether part of the total is still to be collected.
func (c Cash) HasOpenRemainder() bool {
	return c.Remainder.IsPositive()
}

func (c InsuranceClaim) IsPending() bool {
	return c.Status != ClaimApproved
}

func (k InstrumentKind) IsValid() bool {
	for _, known := range InstrumentKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Label returns a human-readable name for the kind.
func (k InstrumentKind) Label() string {
	switch k {
	case KindCash:
		return "Cash"
	case KindCheque:
		return "Cheque"
	case KindBankTransfer:
		return "Bank transfer"
	case KindPostalOrder:
		return "Postal order"
	case KindPromissoryNote:
		return "Promissory note"
	case KindInsuranceClaim:
		return "CNAM"
	default:
		return strings.ReplaceAll(string(k), "_", " ")
	}
}

func (s ClaimStatus) IsValid() bool {
	return s == ClaimPending || s == ClaimApproved
}
