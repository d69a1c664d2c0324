package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrent/internal/calendar"
	"medrent/internal/core"
)

var asOf = core.NewDate(2025, 4, 15)

func TestReduce(t *testing.T) {
	events := []calendar.Event{
		{Kind: core.ObligationAppointment},
		{Kind: core.ObligationAppointment},
		{Kind: calendar.KindDiagnostic},
		{Kind: core.ObligationCashRemainder, IsOverdue: true},
		{Kind: core.ObligationRentalReturn, IsOverdue: true},
		{Kind: core.ObligationPromissoryNoteDue},
	}
	txs := []core.Transaction{core.Sale{}, core.Sale{}, core.Rental{}}

	got := Reduce(events, txs)
	assert.Equal(t, Summary{Appointments: 2, Rentals: 1, Sales: 2, Diagnostics: 1, OverduePayments: 2}, got)
	assert.Equal(t, Summary{}, Reduce(nil, nil))
}

func TestAnalyze(t *testing.T) {
	inWindow := core.NewDate(2025, 4, 3)
	sale := core.Sale{
		Ledger: core.Ledger{
			ID:   "S1",
			Date: inWindow,
			Lines: []core.BillableLine{core.NewLine("l1", core.LineDevice, core.Cents(50000), 1,
				core.NewCash("p1", core.Cents(50000), core.Cents(30000), asOf))},
		},
		Status: core.SaleCompleted,
	}
	cancelled := core.Sale{
		Ledger: core.Ledger{
			ID:    "S2",
			Date:  inWindow,
			Lines: []core.BillableLine{core.NewLine("l1", core.LineDevice, core.Cents(900), 1, core.BankTransfer{Envelope: core.Envelope{ID: "v", Amount: core.Cents(900)}})},
		},
		Status: core.SaleCancelled,
	}
	old := core.Sale{
		Ledger: core.Ledger{
			ID:    "S3",
			Date:  core.NewDate(2025, 2, 1),
			Lines: []core.BillableLine{core.NewLine("l1", core.LineDevice, core.Cents(700), 1, core.BankTransfer{Envelope: core.Envelope{ID: "v", Amount: core.Cents(700)}})},
		},
		Status: core.SaleCompleted,
	}
	rental := core.Rental{
		Ledger: core.Ledger{
			ID:   "R1",
			Date: inWindow,
			Groups: []core.BillableGroup{{
				ID:    "g1",
				Items: []core.BillableLine{core.NewLine("l1", core.LineDevice, core.Cents(8000), 1)},
				SharedPayments: []core.PaymentInstrument{
					core.InsuranceClaim{Envelope: core.Envelope{ID: "c1", Amount: core.Cents(6000)}, Status: core.ClaimApproved},
					core.InsuranceClaim{Envelope: core.Envelope{ID: "c2", Amount: core.Cents(2000)}, Status: core.ClaimPending},
				},
			}},
		},
		Period:       core.DateRange{Start: inWindow},
		ReturnStatus: core.NotReturned,
	}
	broken := core.Rental{
		Ledger: core.Ledger{
			ID:    "R2",
			Date:  inWindow,
			Lines: []core.BillableLine{{ID: "bad", Kind: core.LineDevice, UnitPrice: core.Cents(100), Quantity: 3, TotalPrice: core.Cents(300)}},
		},
		ReturnStatus: core.Returned,
	}

	snap := core.Snapshot{
		AsOf:    asOf,
		Sales:   []core.Transaction{sale, cancelled, old},
		Rentals: []core.Transaction{rental, broken},
		Patients: []core.Patient{
			{ID: "P1", CreatedAt: core.NewDate(2025, 4, 1)},
			{ID: "P2", CreatedAt: core.NewDate(2025, 3, 31)},
			{ID: "P3"},
		},
	}

	a, warnings := Analyze(snap, MonthToDate(asOf))

	assert.Equal(t, core.Cents(30000), a.SalesRevenue)
	assert.Equal(t, core.Cents(6000), a.RentalRevenue)
	assert.Equal(t, core.Cents(36000), a.TotalRevenue)
	assert.Equal(t, core.Cents(20000+2000), a.Outstanding)
	assert.Equal(t, 1, a.ActiveRentals)
	assert.Equal(t, 1, a.NewPatientsThisMonth)
	assert.Equal(t, map[core.InstrumentKind]core.Money{
		core.KindCash:           core.Cents(50000),
		core.KindInsuranceClaim: core.Cents(8000),
	}, a.ByInstrument)

	require.Len(t, warnings, 1)
	assert.Equal(t, "R2", warnings[0].TransactionID)
	assert.Equal(t, core.KindRental, warnings[0].TransactionKind)
	assert.Equal(t, "bad", warnings[0].EntityID)
	assert.Equal(t, core.EntityLine, warnings[0].EntityType)
}

func TestAnalyze_OpenWindow(t *testing.T) {
	sale := core.Sale{
		Ledger: core.Ledger{
			ID:    "S1",
			Date:  core.NewDate(2020, 1, 1),
			Lines: []core.BillableLine{core.NewLine("l1", core.LineAccessory, core.Cents(250), 2, core.PostalOrder{Envelope: core.Envelope{ID: "m", Amount: core.Cents(500)}})},
		},
	}
	a, warnings := Analyze(core.Snapshot{AsOf: asOf, Sales: []core.Transaction{sale}}, core.DateRange{})
	assert.Empty(t, warnings)
	assert.Equal(t, core.Cents(500), a.TotalRevenue)
	assert.True(t, a.Outstanding.IsZero())
}

func TestMonthToDate(t *testing.T) {
	r := MonthToDate(asOf)
	assert.Equal(t, "2025-04-01", r.Start.String())
	assert.Equal(t, "2025-04-15", r.End.String())
}
