package http

import (
	"context"
	"net/http"
	"time"

	"github.com/ccdrover/ccdrover/pkg/domain/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// config holds internal HTTP server configuration
type config struct {
	addr string
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// Server exposes recorded cases over HTTP
type Server struct {
	*http.Server
}

// NewServer creates the HTTP server serving health and case browsing
// endpoints
func NewServer(
	ctx context.Context,
	cases interfaces.CaseLister,
	opts ...Option,
) (*Server, error) {
	cfg := &config{
		addr: "localhost:8080",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth)

	caseHandler := NewCaseHandler(cases)
	router.Get("/cases", caseHandler.List)
	router.Get("/cases/{id}", caseHandler.Get)
	router.Get("/cases/{id}/code", caseHandler.Code)

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
