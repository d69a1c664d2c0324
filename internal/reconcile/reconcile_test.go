package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrent/internal/core"
)

var today = core.NewDate(2025, 3, 10)

func env(id string, cents int64) core.Envelope {
	return core.Envelope{ID: id, Amount: core.Cents(cents)}
}

func TestReconcile_Empty(t *testing.T) {
	res, err := Reconcile(nil, nil)
	require.NoError(t, err)
	assert.True(t, res.TotalDue.IsZero())
	assert.True(t, res.TotalPaid.IsZero())
	assert.True(t, res.Outstanding.IsZero())
	assert.Empty(t, res.ByInstrument)
}

func TestReconcile_NoPaymentsLeavesEverythingOutstanding(t *testing.T) {
	lines := []core.BillableLine{
		core.NewLine("l1", core.LineDevice, core.Cents(120000), 1),
		core.NewLine("l2", core.LineAccessory, core.Cents(1500), 3),
	}
	groups := []core.BillableGroup{{
		ID:    "g1",
		Items: []core.BillableLine{core.NewLine("l3", core.LineAccessory, core.Cents(999), 1)},
	}}

	res, err := Reconcile(lines, groups)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(0), res.TotalPaid)
	assert.Equal(t, core.Cents(120000+4500+999), res.TotalDue)
	assert.Equal(t, res.TotalDue, res.Outstanding)
}

func TestReconcile_TotalDueIgnoresPayments(t *testing.T) {
	claim := core.InsuranceClaim{Envelope: env("c", 9000), Status: core.ClaimApproved}
	cheque := core.Cheque{Envelope: env("q", 100000), Number: "77"}
	lines := []core.BillableLine{
		core.NewLine("l1", core.LineDevice, core.Cents(50000), 1, claim, cheque),
		core.NewLine("l2", core.LineAccessory, core.Cents(2500), 2),
	}

	res, err := Reconcile(lines, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(55000), res.TotalDue)
}

// Scenario A: cash with 300 upfront and 200 remainder on a 500 line.
func TestReconcile_CashCountsUpfrontOnly(t *testing.T) {
	cash := core.NewCash("p1", core.Cents(50000), core.Cents(30000), today.AddDays(10))
	lines := []core.BillableLine{core.NewLine("l1", core.LineDevice, core.Cents(50000), 1, cash)}

	res, err := Reconcile(lines, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(30000), res.TotalPaid)
	assert.Equal(t, core.Cents(20000), res.Outstanding)
	assert.Equal(t, core.Cents(50000), res.ByInstrument[core.KindCash], "breakdown uses nominal amount")
}

// Scenario B: pending CNAM claim is not paid yet.
func TestReconcile_PendingClaimIsOutstanding(t *testing.T) {
	claim := core.InsuranceClaim{Envelope: env("c1", 15000), Status: core.ClaimPending, FollowUpDate: today.AddDays(5)}
	lines := []core.BillableLine{core.NewLine("l1", core.LineAccessory, core.Cents(15000), 1, claim)}

	res, err := Reconcile(lines, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(0), res.TotalPaid)
	assert.Equal(t, core.Cents(15000), res.Outstanding)
	assert.Equal(t, core.Cents(15000), res.ByInstrument[core.KindInsuranceClaim])

	claim.Status = core.ClaimApproved
	lines[0].Payments = []core.PaymentInstrument{claim}
	res, err = Reconcile(lines, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(15000), res.TotalPaid)
	assert.True(t, res.IsSettled())
}

func TestReconcile_SharedGroupPayments(t *testing.T) {
	// one cheque settles a device and an accessory rented together
	groups := []core.BillableGroup{{
		ID:   "g1",
		Name: "Oxygen kit",
		Items: []core.BillableLine{
			core.NewLine("l1", core.LineDevice, core.Cents(40000), 1),
			core.NewLine("l2", core.LineAccessory, core.Cents(5000), 2),
		},
		SharedPayments: []core.PaymentInstrument{
			core.Cheque{Envelope: env("q1", 50000), Number: "123456", IssueDate: today},
		},
	}}
	standalone := []core.BillableLine{
		core.NewLine("l3", core.LineAccessory, core.Cents(3000), 1,
			core.PostalOrder{Envelope: env("m1", 1000)},
			core.PromissoryNote{Envelope: env("t1", 2000), DueDate: today.AddDays(30)}),
	}

	res, err := Reconcile(standalone, groups)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(53000), res.TotalDue)
	assert.Equal(t, core.Cents(53000), res.TotalPaid)
	assert.True(t, res.Outstanding.IsZero())
	assert.Equal(t, map[core.InstrumentKind]core.Money{
		core.KindCheque:         core.Cents(50000),
		core.KindPostalOrder:    core.Cents(1000),
		core.KindPromissoryNote: core.Cents(2000),
	}, res.ByInstrument)
}

func TestReconcile_OverpaymentIsNotClamped(t *testing.T) {
	lines := []core.BillableLine{
		core.NewLine("l1", core.LineAccessory, core.Cents(1000), 1,
			core.BankTransfer{Envelope: env("v1", 1500)}),
	}
	res, err := Reconcile(lines, nil)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(-500), res.Outstanding)
	assert.True(t, res.IsOverpaid())
}

func TestReconcile_NegativeRemainderIsSurfaced(t *testing.T) {
	cash := core.NewCash("p9", core.Cents(1000), core.Cents(1200), core.Date{})
	lines := []core.BillableLine{core.NewLine("l1", core.LineAccessory, core.Cents(1000), 1, cash)}

	res, err := Reconcile(lines, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"p9"}, res.NegativeRemainders)
	assert.Equal(t, core.Cents(1200), res.TotalPaid)
	assert.Equal(t, core.Cents(-200), res.Outstanding)
}

func TestReconcile_InvariantViolations(t *testing.T) {
	brokenCash := core.NewCash("p1", core.Cents(500), core.Cents(300), core.Date{})
	brokenCash.Remainder = core.Cents(100)

	tests := []struct {
		name     string
		lines    []core.BillableLine
		groups   []core.BillableGroup
		entityID string
	}{
		{
			name:     "cash split does not add up",
			lines:    []core.BillableLine{core.NewLine("l1", core.LineDevice, core.Cents(500), 1, brokenCash)},
			entityID: "p1",
		},
		{
			name: "shared cash split does not add up",
			groups: []core.BillableGroup{{
				ID:             "g1",
				SharedPayments: []core.PaymentInstrument{brokenCash},
			}},
			entityID: "p1",
		},
		{
			name: "line total mismatch",
			lines: []core.BillableLine{{
				ID: "l7", Kind: core.LineAccessory, UnitPrice: core.Cents(100), Quantity: 2, TotalPrice: core.Cents(300),
			}},
			entityID: "l7",
		},
		{
			name:     "device sold by the dozen",
			groups:   []core.BillableGroup{{ID: "g2", Items: []core.BillableLine{core.NewLine("l8", core.LineDevice, core.Cents(100), 12)}}},
			entityID: "l8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reconcile(tt.lines, tt.groups)
			require.ErrorIs(t, err, core.ErrInvariantViolation)
			iv, ok := core.AsInvariantViolation(err)
			require.True(t, ok)
			assert.Equal(t, tt.entityID, iv.EntityID)
		})
	}
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	cash := core.NewCash("p1", core.Cents(500), core.Cents(200), today)
	lines := []core.BillableLine{core.NewLine("l1", core.LineDevice, core.Cents(500), 1, cash)}
	before := lines[0]

	_, err := Reconcile(lines, nil)
	require.NoError(t, err)
	assert.Equal(t, before, lines[0])
}

func TestTransaction(t *testing.T) {
	sale := core.Sale{
		Ledger: core.Ledger{
			ID:    "S1",
			Lines: []core.BillableLine{core.NewLine("l1", core.LineDevice, core.Cents(800), 1, core.BankTransfer{Envelope: env("v", 800)})},
		},
		Status: core.SaleCompleted,
	}
	res, err := Transaction(sale)
	require.NoError(t, err)
	assert.True(t, res.IsSettled())
}

func TestGetAccrualRule(t *testing.T) {
	for _, kind := range core.InstrumentKinds {
		_, err := GetAccrualRule(kind)
		assert.NoError(t, err, kind)
	}
	_, err := GetAccrualRule("barter")
	assert.Error(t, err)
}
