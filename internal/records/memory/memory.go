package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"medrent/internal/core"
	"medrent/internal/records"
)

type Store struct {
	mu           sync.Mutex
	patients     []core.Patient
	sales        []core.Transaction
	rentals      []core.Transaction
	appointments []core.Appointment
	diagnostics  []core.Diagnostic
	dismissed    map[string]dismissal
	now          func() time.Time
}

type dismissal struct {
	actorID string
	at      time.Time
}

func New() *Store {
	return &Store{dismissed: map[string]dismissal{}, now: time.Now}
}

// NewFromFixtures seeds a store from a fixtures file. A missing path yields an
// empty store.
func NewFromFixtures(ctx context.Context, path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	f, err := records.LoadFixtures(path)
	if err != nil {
		return nil, err
	}
	if err := f.Import(ctx, s); err != nil {
		return nil, fmt.Errorf("seed memory store: %w", err)
	}
	return s, nil
}

// SaveTransaction inserts tx or replaces the transaction with the same id and kind.
func (s *Store) SaveTransaction(_ context.Context, tx core.Transaction) error {
	id := tx.Entries().ID
	if id == "" {
		return core.ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := &s.sales
	if tx.Kind() == core.KindRental {
		list = &s.rentals
	}
	for i, existing := range *list {
		if existing.Entries().ID == id {
			(*list)[i] = tx
			return nil
		}
	}
	*list = append(*list, tx)
	return nil
}

func (s *Store) SavePatient(_ context.Context, p core.Patient) error {
	if p.ID == "" {
		return core.ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = upsert(s.patients, p, func(x core.Patient) string { return x.ID })
	return nil
}

func (s *Store) SaveAppointment(_ context.Context, a core.Appointment) error {
	if a.ID == "" {
		return core.ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = upsert(s.appointments, a, func(x core.Appointment) string { return x.ID })
	return nil
}

func (s *Store) SaveDiagnostic(_ context.Context, d core.Diagnostic) error {
	if d.ID == "" {
		return core.ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnostics = upsert(s.diagnostics, d, func(x core.Diagnostic) string { return x.ID })
	return nil
}

// FetchTransactions returns the transactions of kind passing f, oldest first.
func (s *Store) FetchTransactions(ctx context.Context, kind core.TransactionKind, f records.Filter) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.sales
	if kind == core.KindRental {
		src = s.rentals
	}
	out := make([]core.Transaction, 0, len(src))
	for _, tx := range src {
		if f.Matches(tx.Entries()) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Entries().Date.Before(out[j].Entries().Date)
	})
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, kind core.TransactionKind, id string) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.sales
	if kind == core.KindRental {
		src = s.rentals
	}
	for _, tx := range src {
		if tx.Entries().ID == id {
			return tx, nil
		}
	}
	return nil, fmt.Errorf("%s %q: %w", kind, id, records.ErrNotFound)
}

func (s *Store) FetchAppointments(ctx context.Context, r core.DateRange) ([]core.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Appointment
	for _, a := range s.appointments {
		if r.Contains(a.Day()) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) FetchDiagnostics(ctx context.Context, r core.DateRange) ([]core.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Diagnostic
	for _, d := range s.diagnostics {
		if r.Contains(d.PerformedOn) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) FetchPatients(ctx context.Context) ([]core.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Patient(nil), s.patients...), nil
}

// Dismiss records that actor dismissed a notification. Dismissing twice keeps
// the first record.
func (s *Store) Dismiss(_ context.Context, notificationID string, actor core.Actor) error {
	if notificationID == "" {
		return core.ErrEmptyID
	}
	if err := actor.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dismissed[notificationID]; !ok {
		s.dismissed[notificationID] = dismissal{actorID: actor.ID, at: s.now()}
	}
	return nil
}

func (s *Store) Dismissed(_ context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.dismissed))
	for id := range s.dismissed {
		out[id] = true
	}
	return out, nil
}

func upsert[T any](list []T, v T, key func(T) string) []T {
	k := key(v)
	for i := range list {
		if key(list[i]) == k {
			list[i] = v
			return list
		}
	}
	return append(list, v)
}
