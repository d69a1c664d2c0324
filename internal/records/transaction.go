package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"medrent/internal/core"
)

type (
	LineRecord struct {
		ID          string          `json:"id"`
		Kind        string          `json:"kind"`
		Label       string          `json:"label,omitempty"`
		UnitPrice   core.Money      `json:"unit_price"`
		Quantity    int             `json:"quantity"`
		TotalPrice  *core.Money     `json:"total_price,omitempty"`
		PeriodStart core.Date       `json:"period_start"`
		PeriodEnd   core.Date       `json:"period_end"`
		Payments    []PaymentRecord `json:"payments,omitempty"`
	}

	GroupRecord struct {
		ID             string          `json:"id"`
		Name           string          `json:"name,omitempty"`
		Items          []LineRecord    `json:"items"`
		SharedPayments []PaymentRecord `json:"shared_payments,omitempty"`
		PeriodStart    core.Date       `json:"period_start"`
		PeriodEnd      core.Date       `json:"period_end"`
	}

	// TransactionRecord is the stored form of a sale or a rental.
	TransactionRecord struct {
		ID          string        `json:"id"`
		Kind        string        `json:"kind"`
		PatientID   string        `json:"patient_id"`
		PatientName string        `json:"patient_name"`
		Date        core.Date     `json:"date"`
		Lines       []LineRecord  `json:"lines,omitempty"`
		Groups      []GroupRecord `json:"groups,omitempty"`

		// sale
		Status string `json:"status,omitempty"`

		// rental
		PeriodStart      core.Date `json:"period_start"`
		PeriodEnd        core.Date `json:"period_end"`
		ReturnStatus     string    `json:"return_status,omitempty"`
		ActualReturnDate core.Date `json:"actual_return_date"`
	}

	PatientRecord struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt core.Date `json:"created_at"`
	}

	AppointmentRecord struct {
		ID          string    `json:"id"`
		PatientID   string    `json:"patient_id"`
		PatientName string    `json:"patient_name"`
		Title       string    `json:"title"`
		ScheduledAt time.Time `json:"scheduled_at"`
		Status      string    `json:"status,omitempty"`
		Notes       string    `json:"notes,omitempty"`
	}

	DiagnosticRecord struct {
		ID          string    `json:"id"`
		PatientID   string    `json:"patient_id"`
		PatientName string    `json:"patient_name"`
		Kind        string    `json:"kind"`
		PerformedOn core.Date `json:"performed_on"`
	}

	// Fixtures is a full record set, used to seed the memory store and SQLite.
	Fixtures struct {
		Patients     []PatientRecord     `json:"patients"`
		Transactions []TransactionRecord `json:"transactions"`
		Appointments []AppointmentRecord `json:"appointments"`
		Diagnostics  []DiagnosticRecord  `json:"diagnostics"`
	}
)

// Decode builds the line. A missing total is computed from unit price and
// quantity; a present one is kept so that inconsistent data stays visible.
func (r LineRecord) Decode() (core.BillableLine, error) {
	kind := core.LineKind(r.Kind)
	if kind != core.LineDevice && kind != core.LineAccessory {
		return core.BillableLine{}, fmt.Errorf("%w: line %q: unknown kind %q", ErrMalformedRecord, r.ID, r.Kind)
	}
	payments, err := decodePayments(r.Payments)
	if err != nil {
		return core.BillableLine{}, fmt.Errorf("line %q: %w", r.ID, err)
	}
	line := core.NewLine(r.ID, kind, r.UnitPrice, r.Quantity, payments...)
	line.Label = r.Label
	line.Period = core.DateRange{Start: r.PeriodStart, End: r.PeriodEnd}
	if r.TotalPrice != nil {
		line.TotalPrice = *r.TotalPrice
	}
	return line, nil
}

func (r GroupRecord) Decode() (core.BillableGroup, error) {
	items, err := decodeLines(r.Items)
	if err != nil {
		return core.BillableGroup{}, fmt.Errorf("group %q: %w", r.ID, err)
	}
	shared, err := decodePayments(r.SharedPayments)
	if err != nil {
		return core.BillableGroup{}, fmt.Errorf("group %q: %w", r.ID, err)
	}
	return core.BillableGroup{
		ID:             r.ID,
		Name:           r.Name,
		Items:          items,
		SharedPayments: shared,
		Period:         core.DateRange{Start: r.PeriodStart, End: r.PeriodEnd},
	}, nil
}

// Decode builds the sale or rental the record describes.
func (r TransactionRecord) Decode() (core.Transaction, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("%w: transaction without id", ErrMalformedRecord)
	}
	lines, err := decodeLines(r.Lines)
	if err != nil {
		return nil, fmt.Errorf("transaction %q: %w", r.ID, err)
	}
	var groups []core.BillableGroup
	for _, g := range r.Groups {
		group, err := g.Decode()
		if err != nil {
			return nil, fmt.Errorf("transaction %q: %w", r.ID, err)
		}
		groups = append(groups, group)
	}
	ledger := core.Ledger{
		ID:          r.ID,
		PatientID:   r.PatientID,
		PatientName: r.PatientName,
		Date:        r.Date,
		Lines:       lines,
		Groups:      groups,
	}

	switch core.TransactionKind(r.Kind) {
	case core.KindSale:
		status := core.SaleStatus(r.Status)
		if status == "" {
			status = core.SalePending
		}
		return core.Sale{Ledger: ledger, Status: status}, nil
	case core.KindRental:
		rs := core.ReturnStatus(r.ReturnStatus)
		if rs == "" {
			rs = core.NotReturned
		}
		return core.Rental{
			Ledger:           ledger,
			Period:           core.DateRange{Start: r.PeriodStart, End: r.PeriodEnd},
			ReturnStatus:     rs,
			ActualReturnDate: r.ActualReturnDate,
		}, nil
	default:
		return nil, fmt.Errorf("%w: transaction %q: unknown kind %q", ErrMalformedRecord, r.ID, r.Kind)
	}
}

// EncodeTransaction is the inverse of TransactionRecord.Decode.
func EncodeTransaction(tx core.Transaction) TransactionRecord {
	l := tx.Entries()
	r := TransactionRecord{
		ID:          l.ID,
		Kind:        string(tx.Kind()),
		PatientID:   l.PatientID,
		PatientName: l.PatientName,
		Date:        l.Date,
		Lines:       encodeLines(l.Lines),
	}
	for _, g := range l.Groups {
		r.Groups = append(r.Groups, GroupRecord{
			ID:             g.ID,
			Name:           g.Name,
			Items:          encodeLines(g.Items),
			SharedPayments: encodePayments(g.SharedPayments),
			PeriodStart:    g.Period.Start,
			PeriodEnd:      g.Period.End,
		})
	}
	switch v := tx.(type) {
	case core.Sale:
		r.Status = string(v.Status)
	case core.Rental:
		r.PeriodStart = v.Period.Start
		r.PeriodEnd = v.Period.End
		r.ReturnStatus = string(v.ReturnStatus)
		r.ActualReturnDate = v.ActualReturnDate
	}
	return r
}

func EncodeLine(l core.BillableLine) LineRecord {
	total := l.TotalPrice
	return LineRecord{
		ID:          l.ID,
		Kind:        string(l.Kind),
		Label:       l.Label,
		UnitPrice:   l.UnitPrice,
		Quantity:    l.Quantity,
		TotalPrice:  &total,
		PeriodStart: l.Period.Start,
		PeriodEnd:   l.Period.End,
		Payments:    encodePayments(l.Payments),
	}
}

func (r PatientRecord) Decode() core.Patient {
	return core.Patient{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}

func (r AppointmentRecord) Decode() (core.Appointment, error) {
	status := core.AppointmentStatus(r.Status)
	switch status {
	case "":
		status = core.AppointmentScheduled
	case core.AppointmentScheduled, core.AppointmentCompleted, core.AppointmentCancelled:
	default:
		return core.Appointment{}, fmt.Errorf("%w: appointment %q: unknown status %q", ErrMalformedRecord, r.ID, r.Status)
	}
	return core.Appointment{
		ID:          r.ID,
		PatientID:   r.PatientID,
		PatientName: r.PatientName,
		Title:       r.Title,
		ScheduledAt: r.ScheduledAt,
		Status:      status,
		Notes:       r.Notes,
	}, nil
}

func (r DiagnosticRecord) Decode() core.Diagnostic {
	return core.Diagnostic{
		ID:          r.ID,
		PatientID:   r.PatientID,
		PatientName: r.PatientName,
		Kind:        r.Kind,
		PerformedOn: r.PerformedOn,
	}
}

// ReadFixtures decodes a fixtures document.
func ReadFixtures(rd io.Reader) (Fixtures, error) {
	var f Fixtures
	if err := json.NewDecoder(rd).Decode(&f); err != nil {
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return f, nil
}

// LoadFixtures reads a fixtures file from disk.
func LoadFixtures(path string) (Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	return ReadFixtures(f)
}

// Import decodes every fixture and hands it to w. It stops at the first record
// that cannot be decoded or saved.
func (f Fixtures) Import(ctx context.Context, w Writer) error {
	for _, p := range f.Patients {
		if err := w.SavePatient(ctx, p.Decode()); err != nil {
			return fmt.Errorf("save patient %q: %w", p.ID, err)
		}
	}
	for _, r := range f.Transactions {
		tx, err := r.Decode()
		if err != nil {
			return err
		}
		if err := w.SaveTransaction(ctx, tx); err != nil {
			return fmt.Errorf("save transaction %q: %w", r.ID, err)
		}
	}
	for _, r := range f.Appointments {
		a, err := r.Decode()
		if err != nil {
			return err
		}
		if err := w.SaveAppointment(ctx, a); err != nil {
			return fmt.Errorf("save appointment %q: %w", r.ID, err)
		}
	}
	for _, r := range f.Diagnostics {
		if err := w.SaveDiagnostic(ctx, r.Decode()); err != nil {
			return fmt.Errorf("save diagnostic %q: %w", r.ID, err)
		}
	}
	return nil
}

func decodeLines(rows []LineRecord) ([]core.BillableLine, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]core.BillableLine, 0, len(rows))
	for _, row := range rows {
		line, err := row.Decode()
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func encodeLines(lines []core.BillableLine) []LineRecord {
	if len(lines) == 0 {
		return nil
	}
	out := make([]LineRecord, len(lines))
	for i, l := range lines {
		out[i] = EncodeLine(l)
	}
	return out
}
