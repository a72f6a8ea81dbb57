package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"portal-booking/internal/schedule"
	"portal-booking/internal/transport"
)

func (s *Server) ListOfferings(w http.ResponseWriter, r *http.Request) {
	items := s.Catalog.List()
	s.logWithRequest(r).Info("offerings: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"offerings": items,
	})
}

// GetSlots resolves the catalog for a date without opening a wizard.
func (s *Server) GetSlots(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if err := s.Val.Var(dateStr, "required,date"); err != nil {
		log.Warn("slots: invalid date", slog.String("date", dateStr))
		transport.WriteCodedError(w, http.StatusBadRequest, "invalid_date", "invalid date")
		return
	}
	date, err := schedule.ParseDate(dateStr, s.Resolver.Location)
	if err != nil {
		transport.WriteCodedError(w, http.StatusBadRequest, "invalid_date", "invalid date")
		return
	}
	now := s.now()
	if date.Before(schedule.StartOfDay(now, s.Resolver.Location)) {
		log.Warn("slots: date in the past", slog.String("date", dateStr))
		transport.WriteCodedError(w, http.StatusUnprocessableEntity, "date_in_past", "date in the past")
		return
	}

	booked, err := s.Backend.BookedSlots(backendContext(r), dateStr)
	if err != nil {
		log.Warn("slots: backend error", slog.String("date", dateStr), slog.String("error", err.Error()))
		transport.WriteCodedError(w, http.StatusBadGateway, "availability_unavailable", "could not load availability")
		return
	}

	slots := s.Resolver.Resolve(date, booked, now)
	available := 0
	for _, slot := range slots {
		if slot.Available {
			available++
		}
	}
	log.Info("slots: ok", slog.String("date", dateStr), slog.Int("available", available))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"date":  dateStr,
		"slots": slots,
	})
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"wizards": s.Sessions.Len(),
	})
}
