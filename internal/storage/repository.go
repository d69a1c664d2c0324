package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"medrent/internal/core"
	"medrent/internal/records"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveTransaction implements records.Writer. The transaction row and all its
// groups, lines and payments are replaced in one SQL transaction.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, tx core.Transaction) error {
	rec := records.EncodeTransaction(tx)
	if rec.ID == "" {
		return core.ErrEmptyID
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbtx.Rollback()
	q := r.queries.WithTx(dbtx)

	if err := q.UpsertTransaction(ctx, transactionRow(rec)); err != nil {
		return fmt.Errorf("upsert %s %s: %w", rec.Kind, rec.ID, err)
	}
	if err := q.DeleteTransactionChildren(ctx, rec.Kind, rec.ID); err != nil {
		return fmt.Errorf("clear %s %s: %w", rec.Kind, rec.ID, err)
	}
	if err := insertLines(ctx, q, rec, "", rec.Lines); err != nil {
		return err
	}
	for i, g := range rec.Groups {
		row := GroupRow{
			TxID:        rec.ID,
			ID:          g.ID,
			Position:    int64(i),
			Name:        g.Name,
			PeriodStart: nullDate(g.PeriodStart),
			PeriodEnd:   nullDate(g.PeriodEnd),
		}
		if err := q.InsertGroup(ctx, rec.Kind, row); err != nil {
			return fmt.Errorf("insert group %s: %w", g.ID, err)
		}
		if err := insertLines(ctx, q, rec, g.ID, g.Items); err != nil {
			return err
		}
		if err := insertPayments(ctx, q, rec, g.ID, "", g.SharedPayments); err != nil {
			return err
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit %s %s: %w", rec.Kind, rec.ID, err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"transaction_id", rec.ID,
		"kind", rec.Kind,
		"lines", len(rec.Lines),
		"groups", len(rec.Groups))
	return nil
}

// FetchTransactions implements records.Store. Rows that cannot be decoded are
// skipped with a warning so one bad record does not hide the rest.
func (r *SQLiteRepository) FetchTransactions(ctx context.Context, kind core.TransactionKind, f records.Filter) ([]core.Transaction, error) {
	k := string(kind)
	txRows, err := r.queries.ListTransactions(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("list %s transactions: %w", kind, err)
	}
	recs, err := r.assemble(ctx, k, "", txRows)
	if err != nil {
		return nil, err
	}

	out := make([]core.Transaction, 0, len(recs))
	for _, rec := range recs {
		tx, err := rec.decode()
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed transaction",
				"transaction_id", rec.ID, "kind", k, "error", err)
			continue
		}
		if f.Matches(tx.Entries()) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// GetTransaction implements records.Store.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, kind core.TransactionKind, id string) (core.Transaction, error) {
	k := string(kind)
	row, err := r.queries.GetTransaction(ctx, k, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", kind, id, records.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	recs, err := r.assemble(ctx, k, id, []TransactionRow{row})
	if err != nil {
		return nil, err
	}
	return recs[0].decode()
}

func (r *SQLiteRepository) SavePatient(ctx context.Context, p core.Patient) error {
	if p.ID == "" {
		return core.ErrEmptyID
	}
	if err := r.queries.UpsertPatient(ctx, PatientRow{ID: p.ID, Name: p.Name, CreatedAt: nullDate(p.CreatedAt)}); err != nil {
		return fmt.Errorf("upsert patient %s: %w", p.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) FetchPatients(ctx context.Context) ([]core.Patient, error) {
	rows, err := r.queries.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	out := make([]core.Patient, 0, len(rows))
	for _, row := range rows {
		created, err := parseNullDate(row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("patient %s: %w", row.ID, err)
		}
		out = append(out, core.Patient{ID: row.ID, Name: row.Name, CreatedAt: created})
	}
	return out, nil
}

func (r *SQLiteRepository) SaveAppointment(ctx context.Context, a core.Appointment) error {
	if a.ID == "" {
		return core.ErrEmptyID
	}
	status := a.Status
	if status == "" {
		status = core.AppointmentScheduled
	}
	row := AppointmentRow{
		ID:          a.ID,
		PatientID:   a.PatientID,
		PatientName: a.PatientName,
		Title:       a.Title,
		ScheduledAt: a.ScheduledAt.UTC().Format(time.RFC3339),
		Day:         a.Day().String(),
		Status:      string(status),
		Notes:       a.Notes,
	}
	if err := r.queries.UpsertAppointment(ctx, row); err != nil {
		return fmt.Errorf("upsert appointment %s: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) FetchAppointments(ctx context.Context, dr core.DateRange) ([]core.Appointment, error) {
	rows, err := r.queries.ListAppointments(ctx, dr.Start.String(), dr.End.String())
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	out := make([]core.Appointment, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(time.RFC3339, row.ScheduledAt)
		if err != nil {
			return nil, fmt.Errorf("%w: appointment %s: %v", records.ErrMalformedRecord, row.ID, err)
		}
		out = append(out, core.Appointment{
			ID:          row.ID,
			PatientID:   row.PatientID,
			PatientName: row.PatientName,
			Title:       row.Title,
			ScheduledAt: at,
			Status:      core.AppointmentStatus(row.Status),
			Notes:       row.Notes,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) SaveDiagnostic(ctx context.Context, d core.Diagnostic) error {
	if d.ID == "" {
		return core.ErrEmptyID
	}
	row := DiagnosticRow{
		ID:          d.ID,
		PatientID:   d.PatientID,
		PatientName: d.PatientName,
		Kind:        d.Kind,
		PerformedOn: nullDate(d.PerformedOn),
	}
	if err := r.queries.UpsertDiagnostic(ctx, row); err != nil {
		return fmt.Errorf("upsert diagnostic %s: %w", d.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) FetchDiagnostics(ctx context.Context, dr core.DateRange) ([]core.Diagnostic, error) {
	rows, err := r.queries.ListDiagnostics(ctx, dr.Start.String(), dr.End.String())
	if err != nil {
		return nil, fmt.Errorf("list diagnostics: %w", err)
	}
	out := make([]core.Diagnostic, 0, len(rows))
	for _, row := range rows {
		on, err := parseNullDate(row.PerformedOn)
		if err != nil {
			return nil, fmt.Errorf("diagnostic %s: %w", row.ID, err)
		}
		out = append(out, core.Diagnostic{
			ID:          row.ID,
			PatientID:   row.PatientID,
			PatientName: row.PatientName,
			Kind:        row.Kind,
			PerformedOn: on,
		})
	}
	return out, nil
}

// Dismiss implements records.DismissalStore.
func (r *SQLiteRepository) Dismiss(ctx context.Context, notificationID string, actor core.Actor) error {
	if notificationID == "" {
		return core.ErrEmptyID
	}
	if err := actor.Validate(); err != nil {
		return err
	}
	if err := r.queries.InsertDismissal(ctx, notificationID, actor.ID, string(actor.Role)); err != nil {
		return fmt.Errorf("dismiss notification %s: %w", notificationID, err)
	}
	slog.InfoContext(ctx, "Notification dismissed", "notification_id", notificationID, "actor_id", actor.ID)
	return nil
}

func (r *SQLiteRepository) Dismissed(ctx context.Context) (map[string]bool, error) {
	ids, err := r.queries.ListDismissedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dismissals: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// ImportFixtures loads a fixtures file into the database.
func (r *SQLiteRepository) ImportFixtures(ctx context.Context, path string) error {
	f, err := records.LoadFixtures(path)
	if err != nil {
		return err
	}
	if err := f.Import(ctx, r); err != nil {
		return fmt.Errorf("import fixtures: %w", err)
	}
	slog.InfoContext(ctx, "Fixtures imported",
		"path", path,
		"patients", len(f.Patients),
		"transactions", len(f.Transactions),
		"appointments", len(f.Appointments),
		"diagnostics", len(f.Diagnostics))
	return nil
}

// assembled is a rebuilt transaction record, or the reason its rows could not
// be read back.
type assembled struct {
	records.TransactionRecord
	err error
}

func (a assembled) decode() (core.Transaction, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.Decode()
}

// assemble loads the children of the given transaction rows and rebuilds their
// stored records. txID narrows the child queries to one transaction.
func (r *SQLiteRepository) assemble(ctx context.Context, kind, txID string, txRows []TransactionRow) ([]assembled, error) {
	groups, err := r.queries.ListGroups(ctx, kind, txID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	lines, err := r.queries.ListLines(ctx, kind, txID)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	payments, err := r.queries.ListPayments(ctx, kind, txID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	// first unreadable column per transaction
	bad := make(map[string]error)
	dates := func(txID string) *dateReader {
		return &dateReader{fail: func(err error) {
			if bad[txID] == nil {
				bad[txID] = err
			}
		}}
	}

	type lineKey struct{ tx, group, line string }
	paymentsOf := make(map[lineKey][]records.PaymentRecord)
	for _, p := range payments {
		k := lineKey{p.TxID, p.GroupID, p.LineID}
		paymentsOf[k] = append(paymentsOf[k], paymentRecord(p, dates(p.TxID)))
	}

	type groupKey struct{ tx, group string }
	linesOf := make(map[groupKey][]records.LineRecord)
	for _, l := range lines {
		rec := lineRecord(l, dates(l.TxID))
		rec.Payments = paymentsOf[lineKey{l.TxID, l.GroupID, l.ID}]
		k := groupKey{l.TxID, l.GroupID}
		linesOf[k] = append(linesOf[k], rec)
	}

	groupsOf := make(map[string][]records.GroupRecord)
	for _, g := range groups {
		d := dates(g.TxID)
		groupsOf[g.TxID] = append(groupsOf[g.TxID], records.GroupRecord{
			ID:             g.ID,
			Name:           g.Name,
			Items:          linesOf[groupKey{g.TxID, g.ID}],
			SharedPayments: paymentsOf[lineKey{g.TxID, g.ID, ""}],
			PeriodStart:    d.read("group period_start", g.PeriodStart),
			PeriodEnd:      d.read("group period_end", g.PeriodEnd),
		})
	}

	out := make([]assembled, 0, len(txRows))
	for _, row := range txRows {
		d := dates(row.ID)
		rec := records.TransactionRecord{
			ID:               row.ID,
			Kind:             row.Kind,
			PatientID:        row.PatientID,
			PatientName:      row.PatientName,
			Date:             d.read("date", row.Date),
			Status:           row.Status,
			PeriodStart:      d.read("period_start", row.PeriodStart),
			PeriodEnd:        d.read("period_end", row.PeriodEnd),
			ReturnStatus:     row.ReturnStatus,
			ActualReturnDate: d.read("actual_return_date", row.ActualReturnDate),
			Lines:            linesOf[groupKey{row.ID, ""}],
			Groups:           groupsOf[row.ID],
		}
		var err error
		if cause := bad[row.ID]; cause != nil {
			err = fmt.Errorf("%s %s: %w", row.Kind, row.ID, cause)
		}
		out = append(out, assembled{TransactionRecord: rec, err: err})
	}
	return out, nil
}

func insertLines(ctx context.Context, q *Queries, tx records.TransactionRecord, groupID string, lines []records.LineRecord) error {
	for i, l := range lines {
		total := l.UnitPrice.Mul(l.Quantity)
		if l.TotalPrice != nil {
			total = *l.TotalPrice
		}
		row := LineRow{
			TxID:            tx.ID,
			GroupID:         groupID,
			ID:              l.ID,
			Position:        int64(i),
			Kind:            l.Kind,
			Label:           l.Label,
			UnitPriceCents:  l.UnitPrice.Cents,
			Quantity:        int64(l.Quantity),
			TotalPriceCents: total.Cents,
			PeriodStart:     nullDate(l.PeriodStart),
			PeriodEnd:       nullDate(l.PeriodEnd),
		}
		if err := q.InsertLine(ctx, tx.Kind, row); err != nil {
			return fmt.Errorf("insert line %s: %w", l.ID, err)
		}
		if err := insertPayments(ctx, q, tx, groupID, l.ID, l.Payments); err != nil {
			return err
		}
	}
	return nil
}

func insertPayments(ctx context.Context, q *Queries, tx records.TransactionRecord, groupID, lineID string, payments []records.PaymentRecord) error {
	for i, p := range payments {
		row := PaymentRow{
			TxID:               tx.ID,
			GroupID:            groupID,
			LineID:             lineID,
			Position:           int64(i),
			ID:                 p.ID,
			Method:             p.Method,
			AmountCents:        p.Amount.Cents,
			RecordedDate:       nullDate(p.RecordedDate),
			Notes:              p.Notes,
			CashTotalCents:     nullMoney(p.CashTotal),
			CashUpfrontCents:   nullMoney(p.CashUpfront),
			CashRemainderCents: nullMoney(p.CashRemainder),
			RemainderDueDate:   nullDate(p.RemainderDueDate),
			ChequeNumber:       p.ChequeNumber,
			IssueDate:          nullDate(p.IssueDate),
			DueDate:            nullDate(p.DueDate),
			ClaimStatus:        p.ClaimStatus,
			FollowUpDate:       nullDate(p.FollowUpDate),
		}
		if err := q.InsertPayment(ctx, tx.Kind, row); err != nil {
			return fmt.Errorf("insert payment %s of %s: %w", p.ID, tx.ID, err)
		}
	}
	return nil
}

func transactionRow(rec records.TransactionRecord) TransactionRow {
	return TransactionRow{
		Kind:             rec.Kind,
		ID:               rec.ID,
		PatientID:        rec.PatientID,
		PatientName:      rec.PatientName,
		Date:             nullDate(rec.Date),
		Status:           rec.Status,
		PeriodStart:      nullDate(rec.PeriodStart),
		PeriodEnd:        nullDate(rec.PeriodEnd),
		ReturnStatus:     rec.ReturnStatus,
		ActualReturnDate: nullDate(rec.ActualReturnDate),
	}
}

func lineRecord(l LineRow, d *dateReader) records.LineRecord {
	total := core.Cents(l.TotalPriceCents)
	return records.LineRecord{
		ID:          l.ID,
		Kind:        l.Kind,
		Label:       l.Label,
		UnitPrice:   core.Cents(l.UnitPriceCents),
		Quantity:    int(l.Quantity),
		TotalPrice:  &total,
		PeriodStart: d.read("line period_start", l.PeriodStart),
		PeriodEnd:   d.read("line period_end", l.PeriodEnd),
	}
}

func paymentRecord(p PaymentRow, d *dateReader) records.PaymentRecord {
	return records.PaymentRecord{
		ID:               p.ID,
		Method:           p.Method,
		Amount:           core.Cents(p.AmountCents),
		RecordedDate:     d.read("recorded_date", p.RecordedDate),
		Notes:            p.Notes,
		CashTotal:        moneyPtr(p.CashTotalCents),
		CashUpfront:      moneyPtr(p.CashUpfrontCents),
		CashRemainder:    moneyPtr(p.CashRemainderCents),
		RemainderDueDate: d.read("remainder_due_date", p.RemainderDueDate),
		ChequeNumber:     p.ChequeNumber,
		IssueDate:        d.read("issue_date", p.IssueDate),
		DueDate:          d.read("due_date", p.DueDate),
		ClaimStatus:      p.ClaimStatus,
		FollowUpDate:     d.read("follow_up_date", p.FollowUpDate),
	}
}

func nullDate(d core.Date) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) (core.Date, error) {
	if !ns.Valid || ns.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(ns.String)
}

// dateReader parses date columns and reports the first one that does not hold
// a date. A bad date is never read as absent: an absent due date means the
// obligation is incomplete, which is a different thing.
type dateReader struct {
	fail func(error)
}

func (d *dateReader) read(column string, ns sql.NullString) core.Date {
	v, err := parseNullDate(ns)
	if err != nil {
		d.fail(fmt.Errorf("%w: %s %q: %v", records.ErrMalformedRecord, column, ns.String, err))
		return core.Date{}
	}
	return v
}

func nullMoney(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: m.Cents, Valid: true}
}

func moneyPtr(n sql.NullInt64) *core.Money {
	if !n.Valid {
		return nil
	}
	m := core.Cents(n.Int64)
	return &m
}
