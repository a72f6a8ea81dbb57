package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register mounts the wizard API on api. submitLimit guards the submit route.
func (s *Server) Register(api chi.Router, submitLimit func(http.Handler) http.Handler) {
	api.Get("/offerings", s.ListOfferings)
	api.Get("/slots", s.GetSlots)

	api.Route("/wizards", func(wz chi.Router) {
		wz.Post("/", s.CreateWizard)
		wz.Route("/{id}", func(one chi.Router) {
			one.Get("/", s.GetWizard)
			one.Delete("/", s.DeleteWizard)
			one.Put("/date", s.SelectDate)
			one.Put("/time", s.SelectTime)
			one.Put("/contact", s.UpdateContact)
			one.Post("/availability/refresh", s.RefreshAvailability)
			one.Post("/continue", s.Continue)
			one.Post("/back", s.Back)
			one.Post("/restart", s.Restart)
			if submitLimit != nil {
				one.With(submitLimit).Post("/submit", s.Submit)
			} else {
				one.Post("/submit", s.Submit)
			}
		})
	})
}
