package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleAdministrator Role = "administrator"
	RoleOperator      Role = "operator"
)

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

type (
	Role string

	AppointmentStatus string

	// Date is a calendar day. The time component is always midnight UTC.
	Date struct {
		time.Time
	}

	DateRange struct {
		Start Date
		End   Date
	}

	Patient struct {
		ID        string
		Name      string
		CreatedAt Date
	}

	// Actor is the caller identity handed over by the external auth service.
	Actor struct {
		ID   string
		Role Role
	}

	Appointment struct {
		ID          string
		PatientID   string
		PatientName string
		Title       string
		ScheduledAt time.Time
		Status      AppointmentStatus
		Notes       string
	}

	Diagnostic struct {
		ID          string
		PatientID   string
		PatientName string
		Kind        string
		PerformedOn Date
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyID          = errors.New("empty id")
	ErrInvalidDateRange = errors.New("date range end before start")
	ErrInvalidRole      = errors.New("invalid role")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping the wall-clock date of t's location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// IsEmpty returns true if the date is zero (optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Before reports whether d is a strictly earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is a strictly later calendar day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to other; negative when other is earlier.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (r DateRange) IsEmpty() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r DateRange) Validate() error {
	if r.IsEmpty() {
		return nil
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return ErrInvalidDateRange
	}
	return nil
}

// Contains reports whether d falls inside the range, bounds included. Open bounds match.
func (r DateRange) Contains(d Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End) {
		return false
	}
	return true
}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdministrator, RoleOperator:
		return true
	default:
		return false
	}
}

func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyID
	}
	if !a.Role.IsValid() {
		return ErrInvalidRole
	}
	return nil
}

func (a Actor) IsAdministrator() bool {
	return a.Role == RoleAdministrator
}

// Day returns the calendar day on which the appointment is scheduled.
func (a Appointment) Day() Date {
	return DateOf(a.ScheduledAt)
}

func (a Appointment) IsCancelled() bool {
	return a.Status == AppointmentCancelled
}
