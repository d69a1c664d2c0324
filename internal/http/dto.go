package http

import (
	"time"

	"medrent/internal/calendar"
	"medrent/internal/core"
	"medrent/internal/reconcile"
	"medrent/internal/services"
	"medrent/internal/stats"
)

type eventDTO struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Kind             string     `json:"kind"`
	Date             core.Date  `json:"date"`
	SourceEntityID   string     `json:"source_entity_id"`
	SourceEntityType string     `json:"source_entity_type"`
	TransactionID    string     `json:"transaction_id,omitempty"`
	TransactionType  string     `json:"transaction_type,omitempty"`
	PatientName      string     `json:"patient_name,omitempty"`
	Amount           core.Money `json:"amount"`
	IsOverdue        bool       `json:"is_overdue"`
	DaysOverdue      int        `json:"days_overdue,omitempty"`
	NotificationType string     `json:"notification_type,omitempty"`
}

type notificationDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Type        string    `json:"type"`
	Date        core.Date `json:"date"`
	EntityType  string    `json:"entity_type"`
	EntityID    string    `json:"entity_id"`
	PatientName string    `json:"patient_name,omitempty"`
}

type warningDTO struct {
	TransactionID   string `json:"transaction_id"`
	TransactionKind string `json:"transaction_kind"`
	EntityID        string `json:"entity_id"`
	EntityType      string `json:"entity_type"`
	Reason          string `json:"reason"`
}

type calendarResponse struct {
	AsOf          core.Date         `json:"as_of"`
	Events        []eventDTO        `json:"events"`
	Notifications []notificationDTO `json:"notifications"`
}

type notificationsResponse struct {
	AsOf          core.Date         `json:"as_of"`
	Notifications []notificationDTO `json:"notifications"`
}

type statsResponse struct {
	AsOf        core.Date     `json:"as_of"`
	Summary     stats.Summary `json:"summary"`
	Warnings    []warningDTO  `json:"warnings"`
	CompletedAt time.Time     `json:"completed_at"`
}

type analyticsResponse struct {
	AsOf                 core.Date             `json:"as_of"`
	WindowStart          core.Date             `json:"window_start"`
	WindowEnd            core.Date             `json:"window_end"`
	TotalRevenue         core.Money            `json:"total_revenue"`
	SalesRevenue         core.Money            `json:"sales_revenue"`
	RentalRevenue        core.Money            `json:"rental_revenue"`
	Outstanding          core.Money            `json:"outstanding"`
	ActiveRentals        int                   `json:"active_rentals"`
	NewPatientsThisMonth int                   `json:"new_patients_this_month"`
	ByInstrument         map[string]core.Money `json:"by_instrument"`
	Warnings             []warningDTO          `json:"warnings"`
}

type reconciliationResponse struct {
	TransactionID      string                `json:"transaction_id"`
	Kind               string                `json:"kind"`
	TotalDue           core.Money            `json:"total_due"`
	TotalPaid          core.Money            `json:"total_paid"`
	Outstanding        core.Money            `json:"outstanding"`
	Settled            bool                  `json:"settled"`
	Overpaid           bool                  `json:"overpaid"`
	ByInstrument       map[string]core.Money `json:"by_instrument"`
	NegativeRemainders []string              `json:"negative_remainders"`
}

func newEventDTOs(events []calendar.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, eventDTO{
			ID:               ev.ID,
			Title:            ev.Title,
			Description:      ev.Description,
			Kind:             string(ev.Kind),
			Date:             ev.Date,
			SourceEntityID:   ev.SourceEntityID,
			SourceEntityType: ev.SourceEntityType,
			TransactionID:    ev.TransactionID,
			TransactionType:  ev.TransactionType,
			PatientName:      ev.PatientName,
			Amount:           ev.Amount,
			IsOverdue:        ev.IsOverdue,
			DaysOverdue:      ev.DaysOverdue,
			NotificationType: string(ev.Type),
		})
	}
	return out
}

func newNotificationDTOs(ns []core.Notification) []notificationDTO {
	out := make([]notificationDTO, 0, len(ns))
	for _, n := range ns {
		out = append(out, notificationDTO{
			ID:          n.ID,
			Title:       n.Title,
			Message:     n.Message,
			Type:        string(n.Type),
			Date:        n.Date,
			EntityType:  n.EntityType,
			EntityID:    n.EntityID,
			PatientName: n.PatientName,
		})
	}
	return out
}

func newWarningDTOs(ws []stats.Warning) []warningDTO {
	out := make([]warningDTO, 0, len(ws))
	for _, w := range ws {
		out = append(out, warningDTO{
			TransactionID:   w.TransactionID,
			TransactionKind: string(w.TransactionKind),
			EntityID:        w.EntityID,
			EntityType:      w.EntityType,
			Reason:          w.Reason,
		})
	}
	return out
}

func newAnalyticsResponse(pass *services.Pass) analyticsResponse {
	window := stats.MonthToDate(pass.AsOf)
	a := pass.Analytics
	return analyticsResponse{
		AsOf:                 pass.AsOf,
		WindowStart:          window.Start,
		WindowEnd:            window.End,
		TotalRevenue:         a.TotalRevenue,
		SalesRevenue:         a.SalesRevenue,
		RentalRevenue:        a.RentalRevenue,
		Outstanding:          a.Outstanding,
		ActiveRentals:        a.ActiveRentals,
		NewPatientsThisMonth: a.NewPatientsThisMonth,
		ByInstrument:         byInstrument(a.ByInstrument),
		Warnings:             newWarningDTOs(pass.Warnings),
	}
}

func newReconciliationResponse(tx core.Transaction, res reconcile.Result) reconciliationResponse {
	remainders := res.NegativeRemainders
	if remainders == nil {
		remainders = []string{}
	}
	return reconciliationResponse{
		TransactionID:      tx.Entries().ID,
		Kind:               string(tx.Kind()),
		TotalDue:           res.TotalDue,
		TotalPaid:          res.TotalPaid,
		Outstanding:        res.Outstanding,
		Settled:            res.IsSettled(),
		Overpaid:           res.IsOverpaid(),
		ByInstrument:       byInstrument(res.ByInstrument),
		NegativeRemainders: remainders,
	}
}

func byInstrument(m map[core.InstrumentKind]core.Money) map[string]core.Money {
	out := make(map[string]core.Money, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
