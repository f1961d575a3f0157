package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaultpass/passgen-go/internal/crypto"
	"github.com/vaultpass/passgen-go/internal/middleware"
	"github.com/vaultpass/passgen-go/internal/service"
)

type RouterOptions struct {
	Generator   *service.GeneratorService
	Defaults    crypto.Selection
	Session     service.SessionOptions
	RateLimiter *middleware.IPRateLimiter // nil disables rate limiting
}

// NewRouter wires every route of the API server.
func NewRouter(opts RouterOptions) http.Handler {
	genHandler := NewGeneratorHandler(opts.Generator, opts.Defaults)
	sessionHandler := NewSessionHandler(opts.Generator, opts.Session)

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/", HandleIndex)
	r.Get("/ws", sessionHandler.HandleSession)
	r.Get("/api/v1/classes", genHandler.HandleClasses)

	r.Group(func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(middleware.RateLimit(opts.RateLimiter))
		}
		r.Post("/api/v1/generate", genHandler.HandleGenerate)
	})

	return r
}
