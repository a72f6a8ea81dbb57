package bookings

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"portal-booking/internal/httpx"
	"portal-booking/internal/middleware"
	"portal-booking/internal/models"
	"portal-booking/internal/schedule"
	"portal-booking/internal/transport"
	"portal-booking/internal/validation"
)

type Handler struct {
	service *Service
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		service: service,
		val:     val,
		log:     log,
	}
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if err := h.val.Var(date, "required,date"); err != nil {
		log.Warn("availability: invalid date", slog.String("date", date))
		transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	times, err := h.service.Availability(ctx, date)
	if err != nil {
		log.Error("availability: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("availability: ok", slog.String("date", date), slog.Int("booked", len(times)))
	transport.WriteJSON(w, http.StatusOK, models.AvailabilityResponse{
		Date:        date,
		BookedSlots: times,
	})
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req models.BookingRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("book: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if err := h.val.Struct(req); err != nil {
		log.Warn("book: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	booking, err := h.service.Book(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownSession):
			log.Warn("book: unknown session", slog.String("session_id", req.SessionID))
			transport.WriteError(w, http.StatusBadRequest, "unknown session", nil)
		case errors.Is(err, ErrDateInPast):
			log.Warn("book: date in the past", slog.String("date", req.Date))
			transport.WriteError(w, http.StatusBadRequest, "date in the past", nil)
		case errors.Is(err, schedule.ErrInvalidDate), errors.Is(err, schedule.ErrUnknownLabel):
			transport.WriteError(w, http.StatusBadRequest, "invalid slot", nil)
		case errors.Is(err, ErrSlotTaken):
			log.Warn("book: slot taken", slog.String("date", req.Date), slog.String("time", req.Time))
			transport.WriteError(w, http.StatusConflict, "slot already booked", nil)
		case errors.Is(err, ErrDuplicateTransaction):
			log.Warn("book: duplicate transaction", slog.String("transaction_id", req.TransactionID))
			transport.WriteError(w, http.StatusConflict, "transaction already used", nil)
		default:
			log.Error("book: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	go func(created models.Booking) {
		notifyCtx, notifyCancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer notifyCancel()
		if err := h.service.NotifyBookingReceived(notifyCtx, created); err != nil {
			h.log.Warn("book: confirmation email failed",
				slog.String("booking_id", created.ID),
				slog.String("email", created.Email),
				slog.String("error", err.Error()),
			)
		}
	}(booking)

	log.Info("book: ok",
		slog.String("booking_id", booking.ID),
		slog.String("session_id", booking.SessionID),
		slog.String("date", booking.Date),
		slog.String("time", booking.Time),
	)
	transport.WriteJSON(w, http.StatusCreated, models.BookingAck{
		ID:     booking.ID,
		Status: booking.Status,
	})
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		log.Warn("admin bookings list: invalid query", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := ListFilter{
		Status: r.URL.Query().Get("status"),
		Date:   r.URL.Query().Get("date"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := h.service.ListAdmin(ctx, filter, limit, offset)
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			transport.WriteError(w, http.StatusBadRequest, "invalid query", map[string]string{"status": "oneof"})
			return
		}
		log.Error("admin bookings list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin bookings list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"limit":  limit,
		"offset": offset,
		"total":  total,
	})
}

func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		log.Warn("admin bookings status: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req AdminStatusUpdateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("admin bookings status: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		log.Warn("admin bookings status: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	booking, err := h.service.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			transport.WriteError(w, http.StatusBadRequest, "validation error", map[string]string{"status": "oneof"})
		case errors.Is(err, ErrNotFound):
			log.Warn("admin bookings status: not found", slog.String("booking_id", id))
			transport.WriteError(w, http.StatusNotFound, "booking not found", nil)
		case errors.Is(err, ErrSlotTaken):
			log.Warn("admin bookings status: slot taken", slog.String("booking_id", id))
			transport.WriteError(w, http.StatusConflict, "slot already booked", nil)
		default:
			log.Error("admin bookings status: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		}
		return
	}

	go func(updated models.Booking) {
		notifyCtx, notifyCancel := context.WithTimeout(context.Background(), 8*time.Second)
		defer notifyCancel()
		if err := h.service.NotifyStatusUpdate(notifyCtx, updated); err != nil {
			h.log.Warn("admin bookings status: email failed",
				slog.String("booking_id", updated.ID),
				slog.String("error", err.Error()),
			)
		}
	}(booking)

	log.Info("admin bookings status: ok", slog.String("booking_id", id), slog.String("status", booking.Status))
	transport.WriteJSON(w, http.StatusOK, booking)
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
