package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"portal-booking/internal/catalog"
	"portal-booking/internal/mentorship"
	"portal-booking/internal/middleware"
	"portal-booking/internal/schedule"
	"portal-booking/internal/sessions"
	"portal-booking/internal/validation"
	"portal-booking/internal/wizard"
)

type Server struct {
	Catalog  *catalog.Catalog
	Sessions *sessions.Registry
	Backend  wizard.Collaborator
	Resolver *schedule.Resolver
	Val      *validation.Validator
	Log      *slog.Logger
	Now      func() time.Time
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// backendContext forwards the caller's bearer token to the booking backend.
func backendContext(r *http.Request) context.Context {
	ctx := r.Context()
	if token := middleware.TokenFromContext(ctx); token != "" {
		ctx = mentorship.WithBearerToken(ctx, token)
	}
	return ctx
}

// freshBackendContext is backendContext for reads a user asked to see current.
func freshBackendContext(r *http.Request) context.Context {
	return mentorship.WithFreshRead(backendContext(r))
}
