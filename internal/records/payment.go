package records

import (
	"fmt"

	"medrent/internal/core"
)

// PaymentRecord is a payment as stored upstream: one flat row whose Method
// decides which of the optional fields are meaningful.
type PaymentRecord struct {
	ID           string     `json:"id"`
	Method       string     `json:"method"`
	Amount       core.Money `json:"amount"`
	RecordedDate core.Date  `json:"recorded_date"`
	Notes        string     `json:"notes,omitempty"`

	// cash
	CashTotal        *core.Money `json:"cash_total,omitempty"`
	CashUpfront      *core.Money `json:"cash_upfront,omitempty"`
	CashRemainder    *core.Money `json:"cash_remainder,omitempty"`
	RemainderDueDate core.Date   `json:"remainder_due_date"`

	// cheque
	ChequeNumber string    `json:"cheque_number,omitempty"`
	IssueDate    core.Date `json:"issue_date"`

	// traite
	DueDate core.Date `json:"due_date"`

	// cnam
	ClaimStatus  string    `json:"claim_status,omitempty"`
	FollowUpDate core.Date `json:"follow_up_date"`
}

// Decode turns the row into its payment variant. Rows that cannot form a valid
// variant are rejected with ErrMalformedRecord; rows that form a variant whose
// numbers disagree are returned as is and caught by reconciliation.
func (r PaymentRecord) Decode() (core.PaymentInstrument, error) {
	env := core.Envelope{ID: r.ID, Amount: r.Amount, RecordedDate: r.RecordedDate, Notes: r.Notes}
	malformed := func(reason string) error {
		return fmt.Errorf("%w: payment %q: %s", ErrMalformedRecord, r.ID, reason)
	}
	if r.Amount.IsNegative() {
		return nil, malformed("negative amount")
	}

	switch core.InstrumentKind(r.Method) {
	case core.KindCash:
		if r.CashTotal == nil {
			return nil, malformed("cash without total")
		}
		var upfront core.Money
		if r.CashUpfront != nil {
			upfront = *r.CashUpfront
		}
		cash := core.NewCash(r.ID, *r.CashTotal, upfront, r.RemainderDueDate)
		cash.RecordedDate = r.RecordedDate
		cash.Notes = r.Notes
		if !r.Amount.IsZero() {
			cash.Amount = r.Amount
		}
		if r.CashRemainder != nil {
			cash.Remainder = *r.CashRemainder
		}
		return cash, nil
	case core.KindCheque:
		if r.ChequeNumber == "" {
			return nil, malformed("cheque without number")
		}
		return core.Cheque{Envelope: env, Number: r.ChequeNumber, IssueDate: r.IssueDate}, nil
	case core.KindBankTransfer:
		return core.BankTransfer{Envelope: env}, nil
	case core.KindPostalOrder:
		return core.PostalOrder{Envelope: env}, nil
	case core.KindPromissoryNote:
		if r.DueDate.IsEmpty() {
			return nil, malformed("traite without due date")
		}
		return core.PromissoryNote{Envelope: env, DueDate: r.DueDate}, nil
	case core.KindInsuranceClaim:
		status := core.ClaimStatus(r.ClaimStatus)
		if status == "" {
			status = core.ClaimPending
		}
		if !status.IsValid() {
			return nil, malformed("unknown claim status " + r.ClaimStatus)
		}
		return core.InsuranceClaim{Envelope: env, Status: status, FollowUpDate: r.FollowUpDate}, nil
	default:
		return nil, malformed("unknown method " + r.Method)
	}
}

// EncodePayment flattens a payment variant into its stored row.
func EncodePayment(p core.PaymentInstrument) PaymentRecord {
	base := p.Base()
	r := PaymentRecord{
		ID:           base.ID,
		Method:       string(p.Kind()),
		Amount:       base.Amount,
		RecordedDate: base.RecordedDate,
		Notes:        base.Notes,
	}
	switch v := p.(type) {
	case core.Cash:
		total, upfront, remainder := v.Total, v.Upfront, v.Remainder
		r.CashTotal = &total
		r.CashUpfront = &upfront
		r.CashRemainder = &remainder
		r.RemainderDueDate = v.RemainderDueDate
	case core.Cheque:
		r.ChequeNumber = v.Number
		r.IssueDate = v.IssueDate
	case core.PromissoryNote:
		r.DueDate = v.DueDate
	case core.InsuranceClaim:
		r.ClaimStatus = string(v.Status)
		r.FollowUpDate = v.FollowUpDate
	}
	return r
}

func decodePayments(rows []PaymentRecord) ([]core.PaymentInstrument, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]core.PaymentInstrument, 0, len(rows))
	for _, row := range rows {
		p, err := row.Decode()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func encodePayments(ps []core.PaymentInstrument) []PaymentRecord {
	if len(ps) == 0 {
		return nil
	}
	out := make([]PaymentRecord, len(ps))
	for i, p := range ps {
		out[i] = EncodePayment(p)
	}
	return out
}
