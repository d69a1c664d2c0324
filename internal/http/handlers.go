package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"medrent/internal/calendar"
	"medrent/internal/core"
	mlog "medrent/internal/log"
	"medrent/internal/reconcile"
	"medrent/internal/records"
	"medrent/internal/services"
)

// pass resolves as_of and returns the refresh pass for it. On failure the
// error response has already been written.
func (s *Server) pass(w http.ResponseWriter, r *http.Request) (*services.Pass, bool) {
	asOf, err := ParseAsOf(r.URL.Query(), s.refresher.Today())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	pass, err := s.refresher.Refresh(ctx, asOf)
	if err != nil {
		mlog.FromContext(r.Context()).ErrorContext(r.Context(), "Refresh failed",
			mlog.FieldOperation, mlog.OpRefresh,
			mlog.FieldAsOf, asOf.String(),
			mlog.FieldError, err)
		InternalServerError("refresh failed").Write(w)
		return nil, false
	}
	return pass, true
}

// handleCalendar serves events and live notifications. from/to narrow the
// events only; notifications always reflect the whole pass.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	window, err := ParseRange(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	pass, ok := s.pass(w, r)
	if !ok {
		return
	}

	NewJSONResponse().Body(calendarResponse{
		AsOf:          pass.AsOf,
		Events:        newEventDTOs(calendar.Window(pass.Events, window)),
		Notifications: newNotificationDTOs(pass.Notifications),
	}).Write(w)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	pass, ok := s.pass(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(notificationsResponse{
		AsOf:          pass.AsOf,
		Notifications: newNotificationDTOs(pass.Notifications),
	}).Write(w)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	actor, err := ParseActor(r.Header)
	if errors.Is(err, errMissingActor) {
		UnauthorizedError(err.Error()).Write(w)
		return
	}
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	id, err := ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	logger := mlog.FromContext(r.Context())
	if err := s.refresher.Dismiss(r.Context(), id, actor); err != nil {
		logger.ErrorContext(r.Context(), "Dismiss failed",
			mlog.FieldOperation, mlog.OpDismiss,
			mlog.FieldNotificationID, id,
			mlog.FieldActorID, actor.ID,
			mlog.FieldError, err)
		InternalServerError("dismiss failed").Write(w)
		return
	}

	logger.InfoContext(r.Context(), "Notification dismissed",
		mlog.FieldOperation, mlog.OpDismiss,
		mlog.FieldNotificationID, id,
		mlog.FieldActorID, actor.ID)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	pass, ok := s.pass(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(statsResponse{
		AsOf:        pass.AsOf,
		Summary:     pass.Summary,
		Warnings:    newWarningDTOs(pass.Warnings),
		CompletedAt: pass.CompletedAt.UTC(),
	}).Write(w)
}

// handleAnalytics serves revenue figures to administrators only.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	actor, err := ParseActor(r.Header)
	if errors.Is(err, errMissingActor) {
		UnauthorizedError(err.Error()).Write(w)
		return
	}
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if !actor.IsAdministrator() {
		slog.WarnContext(r.Context(), "Analytics denied",
			mlog.FieldComponent, mlog.ComponentHTTP,
			mlog.FieldActorID, actor.ID,
			"role", actor.Role)
		ForbiddenError("analytics require the administrator role").Write(w)
		return
	}

	pass, ok := s.pass(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Body(newAnalyticsResponse(pass)).Write(w)
}

// handleReconciliation reconciles one transaction straight from the store.
// Inconsistent data answers 422 with the entity at fault.
func (s *Server) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	logger := mlog.FromContext(r.Context())
	tx, err := s.store.GetTransaction(ctx, kind, id)
	switch {
	case errors.Is(err, records.ErrNotFound):
		NotFoundError(string(kind) + " " + id + " not found").Write(w)
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Transaction read failed",
			mlog.FieldOperation, mlog.OpRead,
			mlog.FieldTransactionID, id,
			mlog.FieldError, err)
		InternalServerError("transaction read failed").Write(w)
		return
	}

	res, err := reconcile.Transaction(tx)
	if iv, ok := core.AsInvariantViolation(err); ok {
		logger.WarnContext(r.Context(), "Reconciliation rejected",
			mlog.FieldOperation, mlog.OpReconcile,
			mlog.FieldTransactionID, id,
			mlog.FieldEntityType, iv.EntityType,
			mlog.FieldEntityID, iv.EntityID,
			"reason", iv.Reason)
		InvariantViolationError(iv).Write(w)
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Reconciliation failed", mlog.FieldTransactionID, id, mlog.FieldError, err)
		InternalServerError("reconciliation failed").Write(w)
		return
	}

	NewJSONResponse().Body(newReconciliationResponse(tx, res)).Write(w)
}
