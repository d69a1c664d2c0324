package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrent/internal/core"
	"medrent/internal/records"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medrent.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func sampleRental() core.Rental {
	due := core.NewDate(2025, 2, 10)
	return core.Rental{
		Ledger: core.Ledger{
			ID:          "R1",
			PatientID:   "P1",
			PatientName: "Nadia K.",
			Date:        core.NewDate(2025, 1, 10),
			Lines: []core.BillableLine{
				core.NewLine("l1", core.LineAccessory, core.Cents(1500), 2,
					core.NewCash("p1", core.Cents(3000), core.Cents(1000), due),
					core.Cheque{Envelope: core.Envelope{ID: "q1", Amount: core.Cents(500)}, Number: "0042", IssueDate: due}),
			},
			Groups: []core.BillableGroup{{
				ID:     "g1",
				Name:   "Oxygen concentrator",
				Period: core.DateRange{Start: core.NewDate(2025, 1, 10), End: core.NewDate(2025, 3, 10)},
				Items: []core.BillableLine{
					core.NewLine("l2", core.LineDevice, core.Cents(90000), 1,
						core.PromissoryNote{Envelope: core.Envelope{ID: "t1", Amount: core.Cents(40000), Notes: "2 of 3"}, DueDate: due}),
				},
				SharedPayments: []core.PaymentInstrument{
					core.InsuranceClaim{Envelope: core.Envelope{ID: "c1", Amount: core.Cents(50000)}, Status: core.ClaimPending, FollowUpDate: due},
					core.BankTransfer{Envelope: core.Envelope{Amount: core.Cents(100), RecordedDate: due}},
				},
			}},
		},
		Period:       core.DateRange{Start: core.NewDate(2025, 1, 10), End: core.NewDate(2025, 3, 10)},
		ReturnStatus: core.NotReturned,
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	_, path := newTestRepo(t)
	require.NoError(t, RunMigrations(path))

	version, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestSaveTransaction_RoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	rental := sampleRental()

	require.NoError(t, repo.SaveTransaction(ctx, rental))

	got, err := repo.GetTransaction(ctx, core.KindRental, "R1")
	require.NoError(t, err)
	assert.Equal(t, core.Transaction(rental), got)

	list, err := repo.FetchTransactions(ctx, core.KindRental, records.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, core.Transaction(rental), list[0])

	sales, err := repo.FetchTransactions(ctx, core.KindSale, records.Filter{})
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func TestSaveTransaction_Replaces(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	rental := sampleRental()
	require.NoError(t, repo.SaveTransaction(ctx, rental))

	rental.Groups = nil
	rental.ReturnStatus = core.Returned
	rental.ActualReturnDate = core.NewDate(2025, 3, 9)
	require.NoError(t, repo.SaveTransaction(ctx, rental))

	got, err := repo.GetTransaction(ctx, core.KindRental, "R1")
	require.NoError(t, err)
	r := got.(core.Rental)
	assert.Empty(t, r.Groups)
	assert.Equal(t, core.Returned, r.ReturnStatus)
	assert.Equal(t, "2025-03-09", r.ActualReturnDate.String())
}

func TestGetTransaction_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.GetTransaction(context.Background(), core.KindSale, "nope")
	assert.True(t, errors.Is(err, records.ErrNotFound))
}

func TestFetchTransactions_SkipsMalformed(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveTransaction(ctx, core.Sale{Ledger: core.Ledger{ID: "S1", Date: core.NewDate(2025, 1, 1)}}))
	require.NoError(t, repo.SaveTransaction(ctx, core.Sale{Ledger: core.Ledger{ID: "S2", Date: core.NewDate(2025, 1, 2)}}))

	// a payment method the decoder does not know
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO billable_lines (tx_kind, tx_id, id, position, kind, unit_price_cents, quantity, total_price_cents)
		 VALUES ('sale', 'S2', 'l1', 0, 'device', 100, 1, 100)`)
	require.NoError(t, err)
	_, err = repo.db.ExecContext(ctx,
		`INSERT INTO payments (tx_kind, tx_id, line_id, position, id, method) VALUES ('sale', 'S2', 'l1', 0, 'x', 'barter')`)
	require.NoError(t, err)

	list, err := repo.FetchTransactions(ctx, core.KindSale, records.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "S1", list[0].Entries().ID)

	_, err = repo.GetTransaction(ctx, core.KindSale, "S2")
	assert.ErrorIs(t, err, records.ErrMalformedRecord)
}

func TestFetchTransactions_SkipsUnparseableDates(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	note := core.PromissoryNote{Envelope: core.Envelope{ID: "t1", Amount: core.Cents(100)}, DueDate: core.NewDate(2025, 4, 1)}
	for _, id := range []string{"S1", "S2"} {
		require.NoError(t, repo.SaveTransaction(ctx, core.Sale{Ledger: core.Ledger{
			ID:    id,
			Date:  core.NewDate(2025, 1, 1),
			Lines: []core.BillableLine{core.NewLine("l1", core.LineAccessory, core.Cents(100), 1, note)},
		}}))
	}

	_, err := repo.db.ExecContext(ctx,
		`UPDATE payments SET due_date = '01/04/2025' WHERE tx_kind = 'sale' AND tx_id = 'S2'`)
	require.NoError(t, err)

	list, err := repo.FetchTransactions(ctx, core.KindSale, records.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "S1", list[0].Entries().ID)

	_, err = repo.GetTransaction(ctx, core.KindSale, "S2")
	assert.ErrorIs(t, err, records.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "due_date")
}

func TestFetchTransactions_Filter(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	for i, patient := range []string{"P1", "P2", "P1"} {
		sale := core.Sale{Ledger: core.Ledger{
			ID:        string(rune('A' + i)),
			PatientID: patient,
			Date:      core.NewDate(2025, 1, 1+i*10),
		}}
		require.NoError(t, repo.SaveTransaction(ctx, sale))
	}

	got, err := repo.FetchTransactions(ctx, core.KindSale, records.Filter{
		PatientID: "P1",
		Range:     core.DateRange{Start: core.NewDate(2025, 1, 5)},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "C", got[0].Entries().ID)
}

func TestAppointmentsDiagnosticsPatients(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	at := time.Date(2025, 2, 3, 14, 30, 0, 0, time.UTC)
	require.NoError(t, repo.SaveAppointment(ctx, core.Appointment{ID: "A1", PatientName: "Ali", Title: "Delivery", ScheduledAt: at}))
	require.NoError(t, repo.SaveAppointment(ctx, core.Appointment{ID: "A2", ScheduledAt: at.AddDate(0, 1, 0), Status: core.AppointmentCancelled}))
	require.NoError(t, repo.SaveDiagnostic(ctx, core.Diagnostic{ID: "D1", Kind: "Oximetry", PerformedOn: core.NewDate(2025, 2, 1)}))
	require.NoError(t, repo.SavePatient(ctx, core.Patient{ID: "P1", Name: "Ali", CreatedAt: core.NewDate(2025, 1, 2)}))

	feb := core.DateRange{Start: core.NewDate(2025, 2, 1), End: core.NewDate(2025, 2, 28)}
	appts, err := repo.FetchAppointments(ctx, feb)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.True(t, appts[0].ScheduledAt.Equal(at))
	assert.Equal(t, core.AppointmentScheduled, appts[0].Status)

	all, err := repo.FetchAppointments(ctx, core.DateRange{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	diags, err := repo.FetchDiagnostics(ctx, feb)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "Oximetry", diags[0].Kind)

	patients, err := repo.FetchPatients(ctx)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "2025-01-02", patients[0].CreatedAt.String())
}

func TestDismissals(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	admin := core.Actor{ID: "u1", Role: core.RoleAdministrator}

	require.NoError(t, repo.Dismiss(ctx, "n1", admin))
	require.NoError(t, repo.Dismiss(ctx, "n1", admin))
	require.NoError(t, repo.Dismiss(ctx, "n2", admin))
	assert.ErrorIs(t, repo.Dismiss(ctx, "", admin), core.ErrEmptyID)
	assert.ErrorIs(t, repo.Dismiss(ctx, "n3", core.Actor{ID: "u2", Role: "guest"}), core.ErrInvalidRole)

	got, err := repo.Dismissed(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"n1": true, "n2": true}, got)
}
