// Package reconcile computes paid and outstanding amounts of sales and rentals.
//
// This file implements the Strategy Pattern for accrual: each instrument kind has
// a rule deciding how much of a payment entry counts as actually paid.
package reconcile

import (
	"fmt"

	"medrent/internal/core"
)

// AccrualRule decides how much of a payment counts toward the paid total.
type AccrualRule interface {
	// Paid returns the part of p recognized as paid.
	Paid(p core.PaymentInstrument) core.Money
}

// UpfrontOnly counts only the upfront part of a cash entry. The remainder is a
// future obligation, neither paid nor written off.
type UpfrontOnly struct{}

func (UpfrontOnly) Paid(p core.PaymentInstrument) core.Money {
	if c, ok := p.(core.Cash); ok {
		return c.Upfront
	}
	return p.Base().Amount
}

// OnApproval counts an insurance claim only once it has been approved.
type OnApproval struct{}

func (OnApproval) Paid(p core.PaymentInstrument) core.Money {
	if c, ok := p.(core.InsuranceClaim); ok && c.IsPending() {
		return core.Money{}
	}
	return p.Base().Amount
}

// FullAmount counts the nominal amount unconditionally: the entry is recorded,
// not promised.
type FullAmount struct{}

func (FullAmount) Paid(p core.PaymentInstrument) core.Money {
	return p.Base().Amount
}

var accrualRules = map[core.InstrumentKind]AccrualRule{
	core.KindCash:           UpfrontOnly{},
	core.KindCheque:         FullAmount{},
	core.KindBankTransfer:   FullAmount{},
	core.KindPostalOrder:    FullAmount{},
	core.KindPromissoryNote: FullAmount{},
	core.KindInsuranceClaim: OnApproval{},
}

// GetAccrualRule returns the rule for an instrument kind.
func GetAccrualRule(kind core.InstrumentKind) (AccrualRule, error) {
	rule, ok := accrualRules[kind]
	if !ok {
		return nil, fmt.Errorf("unknown instrument kind: %s", kind)
	}
	return rule, nil
}
