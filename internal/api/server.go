package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/parrotlabs/voiceforge/internal/auth"
	"github.com/parrotlabs/voiceforge/internal/config"
	"github.com/parrotlabs/voiceforge/internal/models"
	"github.com/parrotlabs/voiceforge/internal/service"
	"github.com/parrotlabs/voiceforge/internal/whop"
)

type Server struct {
	cfg         config.Config
	log         *slog.Logger
	resolver    auth.Resolver
	users       *service.UserService
	voiceModels *service.VoiceModelService
	generations *service.GenerationService
	payments    *service.PaymentService
	router      *chi.Mux
	started     time.Time
}

func NewServer(cfg config.Config, log *slog.Logger, resolver auth.Resolver, users *service.UserService, voiceModels *service.VoiceModelService, generations *service.GenerationService, payments *service.PaymentService) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		cfg:         cfg,
		log:         log,
		resolver:    resolver,
		users:       users,
		voiceModels: voiceModels,
		generations: generations,
		payments:    payments,
		router:      r,
		started:     time.Now(),
	}

	r.Get("/health", s.handleHealth)

	// Webhooks authenticate by signature, not by user token.
	r.Get("/api/webhooks/payment", s.handleWebhookProbe)
	r.Post("/api/webhooks/payment", s.handlePaymentWebhook)

	r.Group(func(authed chi.Router) {
		authed.Use(s.identityMiddleware)
		authed.Route("/api/voice-models", func(r chi.Router) {
			r.Post("/", s.handleCreateVoiceModel)
			r.Get("/", s.handleListVoiceModels)
			r.Patch("/{id}", s.handleRenameVoiceModel)
			r.Delete("/{id}", s.handleDeleteVoiceModel)
		})
		authed.Post("/api/generate-speech", s.handleGenerateSpeech)
		authed.Get("/api/generated-audio", s.handleGeneratedAudio)
		authed.Get("/api/credits", s.handleCredits)
		authed.Get("/api/credit-packages", s.handleCreditPackages)
		authed.Post("/api/charge", s.handleCharge)
		authed.Post("/api/process-payment", s.handleProcessPayment)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until the context is cancelled, then drains with a timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.RequestTimeout + 15*time.Second,
		WriteTimeout: s.cfg.RequestTimeout + 15*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.cfg.ListenAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

type contextKey struct{ name string }

var userContextKey = &contextKey{"user"}

// identityMiddleware resolves the caller identity and provisions the user row
// lazily on first authenticated access.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.resolver.Resolve(r)
		if err != nil {
			s.writeError(w, err)
			return
		}

		user, err := s.users.Ensure(r.Context(), identity.WhopUserID, identity.ExperienceID)
		if err != nil {
			s.log.Error("ensure user", "whop_user_id", identity.WhopUserID, "err", err)
			s.writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Seconds(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service outcomes to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, whop.ErrSignatureInvalid):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrInsufficientCredits):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidPackage), errors.Is(err, service.ErrModelNotReady):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrExternalService):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "err", err)
		s.writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
