// Package obligations derives time-bound obligations from the current state of
// sales and rentals.
//
// This file implements the Strategy Pattern for obligation rules. Each instrument
// kind that can leave something to follow up has its own rule; kinds without a
// rule (cheque, bank transfer, postal order) never produce obligations.
package obligations

import (
	"fmt"

	"medrent/internal/core"
)

// Rule is the strategy interface deciding whether a payment leaves an obligation.
type Rule interface {
	// Obligation returns the obligation p leaves open at asOf. The second result
	// is false when p leaves nothing to follow up or its data is incomplete.
	Obligation(p core.PaymentInstrument, asOf core.Date) (core.Obligation, bool)
}

// CashRemainderRule follows up the remainder of a cash entry on its due date.
type CashRemainderRule struct{}

func (CashRemainderRule) Obligation(p core.PaymentInstrument, asOf core.Date) (core.Obligation, bool) {
	cash, ok := p.(core.Cash)
	if !ok || !cash.HasOpenRemainder() || cash.RemainderDueDate.IsEmpty() {
		return core.Obligation{}, false
	}
	return core.Obligation{
		Kind:        core.ObligationCashRemainder,
		DueDate:     cash.RemainderDueDate,
		Amount:      cash.Remainder,
		IsOverdue:   cash.RemainderDueDate.Before(asOf),
		Description: fmt.Sprintf("Cash remainder of %s (upfront %s of %s)", cash.Remainder, cash.Upfront, cash.Total),
	}, true
}

// ClaimFollowUpRule follows up a pending CNAM claim on its follow-up date.
type ClaimFollowUpRule struct{}

func (ClaimFollowUpRule) Obligation(p core.PaymentInstrument, asOf core.Date) (core.Obligation, bool) {
	claim, ok := p.(core.InsuranceClaim)
	if !ok || !claim.IsPending() || claim.FollowUpDate.IsEmpty() {
		return core.Obligation{}, false
	}
	return core.Obligation{
		Kind:        core.ObligationCnamFollowUp,
		DueDate:     claim.FollowUpDate,
		Amount:      claim.Amount,
		IsOverdue:   claim.FollowUpDate.Before(asOf),
		Description: fmt.Sprintf("CNAM claim of %s awaiting approval", claim.Amount),
	}, true
}

// PromissoryNoteRule collects a traite on its due date.
type PromissoryNoteRule struct{}

func (PromissoryNoteRule) Obligation(p core.PaymentInstrument, asOf core.Date) (core.Obligation, bool) {
	note, ok := p.(core.PromissoryNote)
	if !ok || note.DueDate.IsEmpty() {
		return core.Obligation{}, false
	}
	return core.Obligation{
		Kind:        core.ObligationPromissoryNoteDue,
		DueDate:     note.DueDate,
		Amount:      note.Amount,
		IsOverdue:   note.DueDate.Before(asOf),
		Description: fmt.Sprintf("Promissory note of %s to collect", note.Amount),
	}, true
}

// rules maps instrument kinds to the rule following them up.
var rules = map[core.InstrumentKind]Rule{
	core.KindCash:           CashRemainderRule{},
	core.KindInsuranceClaim: ClaimFollowUpRule{},
	core.KindPromissoryNote: PromissoryNoteRule{},
}

// GetRule returns the rule for an instrument kind. The second result is false for
// kinds that never leave an obligation.
func GetRule(kind core.InstrumentKind) (Rule, bool) {
	rule, ok := rules[kind]
	return rule, ok
}
