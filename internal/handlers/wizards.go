package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"portal-booking/internal/catalog"
	"portal-booking/internal/httpx"
	"portal-booking/internal/middleware"
	"portal-booking/internal/models"
	"portal-booking/internal/schedule"
	"portal-booking/internal/sessions"
	"portal-booking/internal/transport"
	"portal-booking/internal/wizard"
)

type createWizardRequest struct {
	OfferingID string `json:"offeringId" validate:"required"`
}

type selectDateRequest struct {
	Date string `json:"date" validate:"required,date"`
}

type selectTimeRequest struct {
	Time string `json:"time" validate:"required"`
}

type contactRequest struct {
	Name  string `json:"name" validate:"max=120"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,phone"`
	Goal  string `json:"goal" validate:"max=2000"`
}

type submitRequest struct {
	AcceptTerms   bool   `json:"acceptTerms"`
	TransactionID string `json:"transactionId" validate:"max=120"`
}

type wizardResponse struct {
	ID     string      `json:"id"`
	Wizard wizard.View `json:"wizard"`
}

type wizardErrorResponse struct {
	Error  string      `json:"error"`
	Code   string      `json:"code"`
	ID     string      `json:"id"`
	Wizard wizard.View `json:"wizard"`
}

func (s *Server) CreateWizard(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req createWizardRequest
	if !s.decodeAndValidate(w, r, log, "wizards create", &req) {
		return
	}

	offering, err := s.Catalog.Get(req.OfferingID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			log.Warn("wizards create: unknown offering", slog.String("offering_id", req.OfferingID))
			transport.WriteCodedError(w, http.StatusNotFound, "offering_not_found", "session offering not found")
			return
		}
		transport.WriteError(w, http.StatusInternalServerError, "catalog error", nil)
		return
	}

	var profile *models.Profile
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		profile = claims.Profile()
	}

	id, wz := s.Sessions.Create()
	if err := wz.Open(offering, profile); err != nil {
		s.Sessions.Delete(id)
		s.writeWizardError(w, log, "wizards create", id, wz, err)
		return
	}
	log.Info("wizards create: opened",
		slog.String("wizard_id", id),
		slog.String("offering_id", offering.ID),
		slog.Bool("prefilled", profile != nil),
	)
	transport.WriteJSON(w, http.StatusCreated, wizardResponse{ID: id, Wizard: wz.View()})
}

func (s *Server) GetWizard(w http.ResponseWriter, r *http.Request) {
	id, wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	transport.WriteJSON(w, http.StatusOK, wizardResponse{ID: id, Wizard: wz.View()})
}

func (s *Server) DeleteWizard(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id, wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := wz.Close(); err != nil {
		s.writeWizardError(w, log, "wizards delete", id, wz, err)
		return
	}
	s.Sessions.Delete(id)
	log.Info("wizards delete: closed", slog.String("wizard_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) SelectDate(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id, wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req selectDateRequest
	if !s.decodeAndValidate(w, r, log, "wizards date", &req) {
		return
	}
	s.respond(w, log, "wizards date", id, wz, wz.SelectDate(freshBackendContext(r), req.Date))
}

func (s *Server) SelectTime(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id, wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req selectTimeRequest
	if !s.decodeAndValidate(w, r, log, "wizards time", &req) {
		return
	}
	s.respond(w, log, "wizards time", id, wz, wz.SelectTime(req.Time))
}

func (s *Server) UpdateContact(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id, wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if !s.decodeAndValidate(w, r, log, "wizards contact", &req) {
		return
	}
	err := wz.UpdateContact(models.Contact{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Goal:  req.Goal,
	})
	s.respond(w, log, "wizards contact", id, wz, err)
}

func (s *Server) RefreshAvailability(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id, wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respond(w, log, "wizards refresh", id, wz, wz.RefreshAvailability(freshBackendContext(r)))
}

func (s *Server) Continue(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id, wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respond(w, log, "wizards continue", id, wz, wz.Continue())
}

func (s *Server) Back(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id, wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respond(w, log, "wizards back", id, wz, wz.Back())
}

func (s *Server) Restart(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id, wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.respond(w, log, "wizards restart", id, wz, wz.Restart())
}

func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id, wz, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if !s.decodeAndValidate(w, r, log, "wizards submit", &req) {
		return
	}
	ack, err := wz.Submit(backendContext(r), wizard.SubmitInput{
		AcceptTerms:          req.AcceptTerms,
		TransactionReference: req.TransactionID,
	})
	if err != nil {
		s.writeWizardError(w, log, "wizards submit", id, wz, err)
		return
	}
	log.Info("wizards submit: confirmed", slog.String("wizard_id", id), slog.String("booking_id", ack.ID))
	transport.WriteJSON(w, http.StatusOK, wizardResponse{ID: id, Wizard: wz.View()})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (string, *wizard.Wizard, bool) {
	id := chi.URLParam(r, "id")
	wz, err := s.Sessions.Get(id)
	if err != nil {
		s.logWithRequest(r).Warn("wizards: not found", slog.String("wizard_id", id))
		transport.WriteCodedError(w, http.StatusNotFound, "wizard_not_found", "wizard not found")
		return "", nil, false
	}
	return id, wz, true
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, v interface{}) bool {
	if err := httpx.DecodeJSON(r.Body, v); err != nil {
		log.Warn(op + ": invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return false
	}
	if err := s.Val.Struct(v); err != nil {
		log.Warn(op + ": validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(s.Val.ValidationErrors(err)))
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, log *slog.Logger, op, id string, wz *wizard.Wizard, err error) {
	if err != nil {
		s.writeWizardError(w, log, op, id, wz, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, wizardResponse{ID: id, Wizard: wz.View()})
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var wizardErrors = []errorMapping{
	{sessions.ErrNotFound, http.StatusNotFound, "wizard_not_found", "wizard not found"},
	{schedule.ErrInvalidDate, http.StatusBadRequest, "invalid_date", "invalid date"},
	{wizard.ErrWrongStep, http.StatusConflict, "wrong_step", "action not allowed at this step"},
	{wizard.ErrSubmissionInFlight, http.StatusConflict, "submission_in_flight", "a submission is already in progress"},
	{wizard.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable", "time is not available"},
	{wizard.ErrAvailabilityUnknown, http.StatusConflict, "availability_unknown", "availability for this date is not known yet"},
	{wizard.ErrIncompleteStep, http.StatusUnprocessableEntity, "incomplete_step", "required fields are missing"},
	{wizard.ErrDateInPast, http.StatusUnprocessableEntity, "date_in_past", "date in the past"},
	{wizard.ErrUnknownSlot, http.StatusUnprocessableEntity, "unknown_slot", "time is not offered"},
	{wizard.ErrAvailabilityUnavailable, http.StatusBadGateway, "availability_unavailable", "could not load availability"},
	{wizard.ErrSubmissionFailed, http.StatusBadGateway, "submission_failed", "booking submission failed"},
}

func (s *Server) writeWizardError(w http.ResponseWriter, log *slog.Logger, op, id string, wz *wizard.Wizard, err error) {
	for _, m := range wizardErrors {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.status >= http.StatusInternalServerError {
			log.Warn(op+": remote failure", slog.String("wizard_id", id), slog.String("error", err.Error()))
		} else {
			log.Warn(op+": rejected", slog.String("wizard_id", id), slog.String("code", m.code))
		}
		transport.WriteJSON(w, m.status, wizardErrorResponse{
			Error:  m.message,
			Code:   m.code,
			ID:     id,
			Wizard: wz.View(),
		})
		return
	}
	log.Error(op+": unexpected error", slog.String("wizard_id", id), slog.String("error", err.Error()))
	transport.WriteError(w, http.StatusInternalServerError, "internal error", nil)
}
