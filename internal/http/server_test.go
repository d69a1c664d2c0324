package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"medrent/internal/calendar"
	"medrent/internal/core"
	"medrent/internal/http/mocks"
	"medrent/internal/records"
	recmocks "medrent/internal/records/mocks"
	"medrent/internal/services"
	"medrent/internal/stats"
)

var (
	asOf     = core.NewDate(2025, 3, 1)
	cashID   = calendar.NotificationID("sale:S1/line:l1/p1", core.ObligationCashRemainder)
	adminHdr = map[string]string{HeaderActorID: "u1", HeaderActorRole: "administrator"}
)

func samplePass() *services.Pass {
	return &services.Pass{
		AsOf: asOf,
		Events: []calendar.Event{
			{ID: "e1", Title: "Cash remainder", Kind: core.ObligationCashRemainder, Date: core.NewDate(2025, 2, 24), SourceEntityID: "sale:S1/line:l1/p1", Amount: core.Cents(30000), IsOverdue: true, DaysOverdue: 5, Type: core.NotificationOverdue},
			{ID: "e2", Title: "Device pickup", Kind: core.ObligationAppointment, Date: core.NewDate(2025, 3, 2), SourceEntityID: "A1", Type: core.NotificationReminder},
		},
		Notifications: []core.Notification{
			{ID: cashID, Title: "Cash remainder", Type: core.NotificationOverdue, Date: core.NewDate(2025, 2, 24), EntityType: "sale", EntityID: "S1"},
		},
		Summary: stats.Summary{Sales: 2, Rentals: 1, Appointments: 1, OverduePayments: 2},
		Analytics: stats.Analytics{
			TotalRevenue: core.Cents(20000),
			SalesRevenue: core.Cents(20000),
			Outstanding:  core.Cents(30000),
			ByInstrument: map[core.InstrumentKind]core.Money{core.KindCash: core.Cents(50000)},
		},
		Warnings:    []stats.Warning{{TransactionID: "S9", TransactionKind: core.KindSale, EntityID: "l1", EntityType: "line", Reason: "total price mismatch"}},
		CompletedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

type ServerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	refresher *mocks.MockRefresher
	store     *recmocks.MockStore
	server    *Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.refresher = mocks.NewMockRefresher(s.ctrl)
	s.store = recmocks.NewMockStore(s.ctrl)
	s.server = NewServer(":0", s.refresher, s.store, Options{Gatherer: prometheus.NewRegistry(), WriteLimit: 100})
	s.refresher.EXPECT().Today().Return(asOf).AnyTimes()
}

func (s *ServerSuite) TearDownTest() {
	s.NoError(s.server.Shutdown(context.Background()))
}

func (s *ServerSuite) do(method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func (s *ServerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().Equal("application/json", rec.Header().Get("Content-Type"))
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v))
}

func (s *ServerSuite) TestHealthAndReady() {
	rec := s.do(http.MethodGet, "/healthz", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("no-store", rec.Header().Get("Cache-Control"))

	s.refresher.EXPECT().Latest().Return(nil, false)
	s.Equal(http.StatusServiceUnavailable, s.do(http.MethodGet, "/readyz", nil).Code)

	s.refresher.EXPECT().Latest().Return(samplePass(), true)
	rec = s.do(http.MethodGet, "/readyz", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"as_of":"2025-03-01"`)
}

func (s *ServerSuite) TestMetricsEndpoint() {
	rec := s.do(http.MethodGet, "/metrics", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *ServerSuite) TestCalendar() {
	s.Run("defaults as_of to today and keeps every event", func() {
		s.refresher.EXPECT().Refresh(gomock.Any(), asOf).Return(samplePass(), nil)

		rec := s.do(http.MethodGet, "/api/calendar", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var body calendarResponse
		s.decode(rec, &body)
		s.Equal(asOf, body.AsOf)
		s.Len(body.Events, 2)
		s.Len(body.Notifications, 1)
		s.Equal("overdue", body.Events[0].NotificationType)
		s.Contains(rec.Body.String(), `"amount":"300.00"`)
	})

	s.Run("from and to narrow the events", func() {
		s.refresher.EXPECT().Refresh(gomock.Any(), core.NewDate(2025, 3, 1)).Return(samplePass(), nil)

		rec := s.do(http.MethodGet, "/api/calendar?as_of=2025-03-01&from=2025-03-01&to=2025-03-31", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var body calendarResponse
		s.decode(rec, &body)
		s.Require().Len(body.Events, 1)
		s.Equal("e2", body.Events[0].ID)
		s.Len(body.Notifications, 1)
	})

	s.Run("bad dates are rejected before refreshing", func() {
		for _, q := range []string{"?as_of=03/01/2025", "?from=2025-13-01", "?from=2025-03-10&to=2025-03-01"} {
			rec := s.do(http.MethodGet, "/api/calendar"+q, nil)
			s.Equal(http.StatusBadRequest, rec.Code, q)
		}
	})

	s.Run("refresh failure is a 500 without internals", func() {
		s.refresher.EXPECT().Refresh(gomock.Any(), asOf).Return(nil, errors.New("sqlite: disk I/O error"))

		rec := s.do(http.MethodGet, "/api/calendar", nil)
		s.Equal(http.StatusInternalServerError, rec.Code)
		s.NotContains(rec.Body.String(), "sqlite")
	})
}

func (s *ServerSuite) TestNotificationsAndStats() {
	s.refresher.EXPECT().Refresh(gomock.Any(), asOf).Return(samplePass(), nil).Times(2)

	rec := s.do(http.MethodGet, "/api/notifications", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var ns notificationsResponse
	s.decode(rec, &ns)
	s.Require().Len(ns.Notifications, 1)
	s.Equal(cashID, ns.Notifications[0].ID)

	rec = s.do(http.MethodGet, "/api/stats", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var st statsResponse
	s.decode(rec, &st)
	s.Equal(2, st.Summary.OverduePayments)
	s.Require().Len(st.Warnings, 1)
	s.Equal("S9", st.Warnings[0].TransactionID)
	s.Equal("l1", st.Warnings[0].EntityID)
}

func (s *ServerSuite) TestDismiss() {
	path := "/api/notifications/" + cashID + "/dismiss"

	s.Run("stores the dismissal for the actor", func() {
		s.refresher.EXPECT().Dismiss(gomock.Any(), cashID, core.Actor{ID: "op7", Role: core.RoleOperator}).Return(nil)
		rec := s.do(http.MethodPost, path, map[string]string{HeaderActorID: "op7"})
		s.Equal(http.StatusNoContent, rec.Code)
		s.Empty(rec.Body.String())
	})

	s.Run("missing actor is unauthorized", func() {
		s.Equal(http.StatusUnauthorized, s.do(http.MethodPost, path, nil).Code)
	})

	s.Run("unknown role is a bad request", func() {
		rec := s.do(http.MethodPost, path, map[string]string{HeaderActorID: "op7", HeaderActorRole: "root"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("id must look like a notification id", func() {
		rec := s.do(http.MethodPost, "/api/notifications/S1/dismiss", map[string]string{HeaderActorID: "op7"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("store failure is a 500", func() {
		s.refresher.EXPECT().Dismiss(gomock.Any(), cashID, gomock.Any()).Return(errors.New("locked"))
		rec := s.do(http.MethodPost, path, map[string]string{HeaderActorID: "op7"})
		s.Equal(http.StatusInternalServerError, rec.Code)
	})

	s.Run("GET is not allowed", func() {
		s.Equal(http.StatusMethodNotAllowed, s.do(http.MethodGet, path, nil).Code)
	})
}

func (s *ServerSuite) TestDismiss_RateLimited() {
	srv := NewServer(":0", s.refresher, s.store, Options{Gatherer: prometheus.NewRegistry(), WriteLimit: 1})
	defer srv.Shutdown(context.Background())
	s.refresher.EXPECT().Dismiss(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	path := "/api/notifications/" + cashID + "/dismiss"
	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set(HeaderActorID, "op7")
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		s.Equal(want, rec.Code, "request %d", i)
	}
}

func (s *ServerSuite) TestAnalytics() {
	s.Run("administrators get revenue", func() {
		s.refresher.EXPECT().Refresh(gomock.Any(), asOf).Return(samplePass(), nil)

		rec := s.do(http.MethodGet, "/api/analytics", adminHdr)
		s.Require().Equal(http.StatusOK, rec.Code)

		var body analyticsResponse
		s.decode(rec, &body)
		s.Equal(core.Cents(20000), body.TotalRevenue)
		s.Equal(core.NewDate(2025, 3, 1), body.WindowStart)
		s.Equal(core.Cents(50000), body.ByInstrument["cash"])
		s.Len(body.Warnings, 1)
	})

	s.Run("operators are forbidden", func() {
		rec := s.do(http.MethodGet, "/api/analytics", map[string]string{HeaderActorID: "op7", HeaderActorRole: "operator"})
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("anonymous callers are unauthorized", func() {
		s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/analytics", nil).Code)
	})
}

func (s *ServerSuite) TestReconciliation() {
	cash := core.NewCash("p1", core.Cents(50000), core.Cents(20000), core.NewDate(2025, 2, 24))
	sale := core.Sale{
		Ledger: core.Ledger{ID: "S1", Lines: []core.BillableLine{core.NewLine("l1", core.LineDevice, core.Cents(50000), 1, cash)}},
		Status: core.SaleCompleted,
	}

	s.Run("reports the balance", func() {
		s.store.EXPECT().GetTransaction(gomock.Any(), core.KindSale, "S1").Return(sale, nil)

		rec := s.do(http.MethodGet, "/api/transactions/sale/S1/reconciliation", nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		var body reconciliationResponse
		s.decode(rec, &body)
		s.Equal("S1", body.TransactionID)
		s.Equal(core.Cents(50000), body.TotalDue)
		s.Equal(core.Cents(20000), body.TotalPaid)
		s.Equal(core.Cents(30000), body.Outstanding)
		s.False(body.Settled)
		s.Empty(body.NegativeRemainders)
	})

	s.Run("inconsistent line is a 422 naming the line", func() {
		broken := core.NewLine("l9", core.LineAccessory, core.Cents(1000), 2)
		broken.TotalPrice = core.Cents(1500)
		s.store.EXPECT().GetTransaction(gomock.Any(), core.KindSale, "S9").
			Return(core.Sale{Ledger: core.Ledger{ID: "S9", Lines: []core.BillableLine{broken}}}, nil)

		rec := s.do(http.MethodGet, "/api/transactions/sale/S9/reconciliation", nil)
		s.Require().Equal(http.StatusUnprocessableEntity, rec.Code)

		var body errorBody
		s.decode(rec, &body)
		s.Equal(codeInvariantViolation, body.Error)
		s.Equal("l9", body.EntityID)
	})

	s.Run("unknown transaction is a 404", func() {
		s.store.EXPECT().GetTransaction(gomock.Any(), core.KindRental, "R404").Return(nil, records.ErrNotFound)
		s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/transactions/rental/R404/reconciliation", nil).Code)
	})

	s.Run("unknown kind is a 400", func() {
		s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/transactions/lease/X/reconciliation", nil).Code)
	})

	s.Run("store failure is a 500", func() {
		s.store.EXPECT().GetTransaction(gomock.Any(), core.KindSale, "S2").Return(nil, errors.New("boom"))
		s.Equal(http.StatusInternalServerError, s.do(http.MethodGet, "/api/transactions/sale/S2/reconciliation", nil).Code)
	})
}

func (s *ServerSuite) TestUnknownRoute() {
	rec := s.do(http.MethodGet, "/api/nope", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	var body errorBody
	s.decode(rec, &body)
	s.Equal(codeNotFound, body.Error)
}
