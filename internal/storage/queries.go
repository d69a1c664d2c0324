package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the tables one to one.
type (
	TransactionRow struct {
		Kind             string
		ID               string
		PatientID        string
		PatientName      string
		Date             sql.NullString
		Status           string
		PeriodStart      sql.NullString
		PeriodEnd        sql.NullString
		ReturnStatus     string
		ActualReturnDate sql.NullString
	}

	GroupRow struct {
		TxID        string
		ID          string
		Position    int64
		Name        string
		PeriodStart sql.NullString
		PeriodEnd   sql.NullString
	}

	LineRow struct {
		TxID            string
		GroupID         string
		ID              string
		Position        int64
		Kind            string
		Label           string
		UnitPriceCents  int64
		Quantity        int64
		TotalPriceCents int64
		PeriodStart     sql.NullString
		PeriodEnd       sql.NullString
	}

	PaymentRow struct {
		TxID               string
		GroupID            string
		LineID             string
		Position           int64
		ID                 string
		Method             string
		AmountCents        int64
		RecordedDate       sql.NullString
		Notes              string
		CashTotalCents     sql.NullInt64
		CashUpfrontCents   sql.NullInt64
		CashRemainderCents sql.NullInt64
		RemainderDueDate   sql.NullString
		ChequeNumber       string
		IssueDate          sql.NullString
		DueDate            sql.NullString
		ClaimStatus        string
		FollowUpDate       sql.NullString
	}

	AppointmentRow struct {
		ID          string
		PatientID   string
		PatientName string
		Title       string
		ScheduledAt string
		Day         string
		Status      string
		Notes       string
	}

	DiagnosticRow struct {
		ID          string
		PatientID   string
		PatientName string
		Kind        string
		PerformedOn sql.NullString
	}

	PatientRow struct {
		ID        string
		Name      string
		CreatedAt sql.NullString
	}
)

const upsertTransaction = `
INSERT INTO transactions (kind, id, patient_id, patient_name, date, status, period_start, period_end, return_status, actual_return_date, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (kind, id) DO UPDATE SET
    patient_id = excluded.patient_id,
    patient_name = excluded.patient_name,
    date = excluded.date,
    status = excluded.status,
    period_start = excluded.period_start,
    period_end = excluded.period_end,
    return_status = excluded.return_status,
    actual_return_date = excluded.actual_return_date,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertTransaction(ctx context.Context, r TransactionRow) error {
	_, err := q.db.ExecContext(ctx, upsertTransaction,
		r.Kind, r.ID, r.PatientID, r.PatientName, r.Date, r.Status,
		r.PeriodStart, r.PeriodEnd, r.ReturnStatus, r.ActualReturnDate)
	return err
}

// DeleteTransactionChildren removes groups, lines and payments of a transaction
// before they are rewritten.
func (q *Queries) DeleteTransactionChildren(ctx context.Context, kind, id string) error {
	for _, stmt := range []string{
		`DELETE FROM payments WHERE tx_kind = ? AND tx_id = ?`,
		`DELETE FROM billable_lines WHERE tx_kind = ? AND tx_id = ?`,
		`DELETE FROM billable_groups WHERE tx_kind = ? AND tx_id = ?`,
	} {
		if _, err := q.db.ExecContext(ctx, stmt, kind, id); err != nil {
			return err
		}
	}
	return nil
}

func (q *Queries) InsertGroup(ctx context.Context, kind string, r GroupRow) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO billable_groups (tx_kind, tx_id, id, position, name, period_start, period_end) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		kind, r.TxID, r.ID, r.Position, r.Name, r.PeriodStart, r.PeriodEnd)
	return err
}

func (q *Queries) InsertLine(ctx context.Context, kind string, r LineRow) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO billable_lines (tx_kind, tx_id, group_id, id, position, kind, label, unit_price_cents, quantity, total_price_cents, period_start, period_end)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		kind, r.TxID, r.GroupID, r.ID, r.Position, r.Kind, r.Label,
		r.UnitPriceCents, r.Quantity, r.TotalPriceCents, r.PeriodStart, r.PeriodEnd)
	return err
}

func (q *Queries) InsertPayment(ctx context.Context, kind string, r PaymentRow) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO payments (tx_kind, tx_id, group_id, line_id, position, id, method, amount_cents, recorded_date, notes,
    cash_total_cents, cash_upfront_cents, cash_remainder_cents, remainder_due_date,
    cheque_number, issue_date, due_date, claim_status, follow_up_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		kind, r.TxID, r.GroupID, r.LineID, r.Position, r.ID, r.Method, r.AmountCents, r.RecordedDate, r.Notes,
		r.CashTotalCents, r.CashUpfrontCents, r.CashRemainderCents, r.RemainderDueDate,
		r.ChequeNumber, r.IssueDate, r.DueDate, r.ClaimStatus, r.FollowUpDate)
	return err
}

const transactionColumns = `kind, id, patient_id, patient_name, date, status, period_start, period_end, return_status, actual_return_date`

func scanTransaction(sc interface{ Scan(...any) error }) (TransactionRow, error) {
	var r TransactionRow
	err := sc.Scan(&r.Kind, &r.ID, &r.PatientID, &r.PatientName, &r.Date, &r.Status,
		&r.PeriodStart, &r.PeriodEnd, &r.ReturnStatus, &r.ActualReturnDate)
	return r, err
}

func (q *Queries) ListTransactions(ctx context.Context, kind string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE kind = ? ORDER BY date, id`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		r, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) GetTransaction(ctx context.Context, kind, id string) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE kind = ? AND id = ?`, kind, id)
	return scanTransaction(row)
}

// ListGroups returns the groups of every transaction of kind, or of a single
// transaction when txID is set.
func (q *Queries) ListGroups(ctx context.Context, kind, txID string) ([]GroupRow, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT tx_id, id, position, name, period_start, period_end FROM billable_groups
WHERE tx_kind = ? AND (? = '' OR tx_id = ?) ORDER BY tx_id, position`, kind, txID, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GroupRow
	for rows.Next() {
		var r GroupRow
		if err := rows.Scan(&r.TxID, &r.ID, &r.Position, &r.Name, &r.PeriodStart, &r.PeriodEnd); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) ListLines(ctx context.Context, kind, txID string) ([]LineRow, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT tx_id, group_id, id, position, kind, label, unit_price_cents, quantity, total_price_cents, period_start, period_end
FROM billable_lines WHERE tx_kind = ? AND (? = '' OR tx_id = ?) ORDER BY tx_id, group_id, position`, kind, txID, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LineRow
	for rows.Next() {
		var r LineRow
		if err := rows.Scan(&r.TxID, &r.GroupID, &r.ID, &r.Position, &r.Kind, &r.Label,
			&r.UnitPriceCents, &r.Quantity, &r.TotalPriceCents, &r.PeriodStart, &r.PeriodEnd); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) ListPayments(ctx context.Context, kind, txID string) ([]PaymentRow, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT tx_id, group_id, line_id, position, id, method, amount_cents, recorded_date, notes,
    cash_total_cents, cash_upfront_cents, cash_remainder_cents, remainder_due_date,
    cheque_number, issue_date, due_date, claim_status, follow_up_date
FROM payments WHERE tx_kind = ? AND (? = '' OR tx_id = ?) ORDER BY tx_id, group_id, line_id, position`, kind, txID, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaymentRow
	for rows.Next() {
		var r PaymentRow
		if err := rows.Scan(&r.TxID, &r.GroupID, &r.LineID, &r.Position, &r.ID, &r.Method, &r.AmountCents,
			&r.RecordedDate, &r.Notes, &r.CashTotalCents, &r.CashUpfrontCents, &r.CashRemainderCents,
			&r.RemainderDueDate, &r.ChequeNumber, &r.IssueDate, &r.DueDate, &r.ClaimStatus, &r.FollowUpDate); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) UpsertPatient(ctx context.Context, r PatientRow) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO patients (id, name, created_at) VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, created_at = excluded.created_at`,
		r.ID, r.Name, r.CreatedAt)
	return err
}

func (q *Queries) ListPatients(ctx context.Context) ([]PatientRow, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, created_at FROM patients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PatientRow
	for rows.Next() {
		var r PatientRow
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) UpsertAppointment(ctx context.Context, r AppointmentRow) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO appointments (id, patient_id, patient_name, title, scheduled_at, day, status, notes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    patient_id = excluded.patient_id,
    patient_name = excluded.patient_name,
    title = excluded.title,
    scheduled_at = excluded.scheduled_at,
    day = excluded.day,
    status = excluded.status,
    notes = excluded.notes`,
		r.ID, r.PatientID, r.PatientName, r.Title, r.ScheduledAt, r.Day, r.Status, r.Notes)
	return err
}

// ListAppointments filters on the day column; empty bounds are open.
func (q *Queries) ListAppointments(ctx context.Context, from, to string) ([]AppointmentRow, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, patient_id, patient_name, title, scheduled_at, day, status, notes FROM appointments
WHERE (? = '' OR day >= ?) AND (? = '' OR day <= ?) ORDER BY scheduled_at, id`, from, from, to, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AppointmentRow
	for rows.Next() {
		var r AppointmentRow
		if err := rows.Scan(&r.ID, &r.PatientID, &r.PatientName, &r.Title, &r.ScheduledAt, &r.Day, &r.Status, &r.Notes); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) UpsertDiagnostic(ctx context.Context, r DiagnosticRow) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO diagnostics (id, patient_id, patient_name, kind, performed_on) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    patient_id = excluded.patient_id,
    patient_name = excluded.patient_name,
    kind = excluded.kind,
    performed_on = excluded.performed_on`,
		r.ID, r.PatientID, r.PatientName, r.Kind, r.PerformedOn)
	return err
}

func (q *Queries) ListDiagnostics(ctx context.Context, from, to string) ([]DiagnosticRow, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, patient_id, patient_name, kind, performed_on FROM diagnostics
WHERE (? = '' OR performed_on >= ?) AND (? = '' OR performed_on <= ?) ORDER BY performed_on, id`, from, from, to, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DiagnosticRow
	for rows.Next() {
		var r DiagnosticRow
		if err := rows.Scan(&r.ID, &r.PatientID, &r.PatientName, &r.Kind, &r.PerformedOn); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// InsertDismissal keeps the first dismissal of a notification.
func (q *Queries) InsertDismissal(ctx context.Context, notificationID, actorID, actorRole string) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO notification_dismissals (notification_id, actor_id, actor_role) VALUES (?, ?, ?)
ON CONFLICT (notification_id) DO NOTHING`, notificationID, actorID, actorRole)
	return err
}

func (q *Queries) ListDismissedIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT notification_id FROM notification_dismissals`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
