package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/browser"
	"go.uber.org/atomic"

	"github.com/crewhub/workspace/consts"
	"github.com/crewhub/workspace/internal/agents"
	"github.com/crewhub/workspace/internal/inference"
	"github.com/crewhub/workspace/internal/log"
	"github.com/crewhub/workspace/internal/memory"
)

// Config is the server's launch posture. The zero value of the three
// protection toggles matches the containerized deployment: headless, CORS
// guard off, XSRF guard off.
type Config struct {
	Address  string
	Port     int
	Headless bool
	// EnableCORS turns the cross-origin guard on. Off means any origin is
	// served, which is the documented (and deliberate) container default.
	EnableCORS bool
	// AllowedOrigins extends the CORS guard when it is enabled.
	AllowedOrigins []string
	// EnableXsrfProtection requires the session token on mutating requests.
	EnableXsrfProtection bool

	DefaultMaxLength int
}

type Server struct {
	srv    *http.Server
	cfg    Config
	roster *agents.Roster
	store  memory.Store
	client *inference.Client

	startedAt time.Time
	requests  atomic.Int64
	xsrfToken string
	events    *eventBus

	version string
}

func NewServer(cfg Config, store memory.Store, client *inference.Client, version string) *Server {
	if cfg.Address == "" {
		cfg.Address = consts.DefaultServerAddress
	}
	if cfg.Port == 0 {
		cfg.Port = consts.DefaultServerPort
	}
	if cfg.DefaultMaxLength == 0 {
		cfg.DefaultMaxLength = 200
	}

	s := &Server{
		cfg:       cfg,
		roster:    agents.NewRoster(),
		store:     store,
		client:    client,
		startedAt: time.Now(),
		xsrfToken: uuid.New().String(),
		events:    newEventBus(),
		version:   version,
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(s.countRequests)
	router.Use(s.corsGuard)
	router.Use(s.xsrfGuard)

	router.Get("/api/healthcheck", JSONResponseHandler(s.healthcheckHandler))
	router.Get("/api/agents", JSONResponseHandler(s.agentListHandler))
	router.Get("/api/agents/{key}", JSONResponseHandler(s.agentInfoHandler))
	router.Post("/api/chat", JSONResponseHandler(s.chatHandler))
	router.Get("/api/history", JSONResponseHandler(s.historyHandler))
	router.Post("/api/memory/clear", JSONResponseHandler(s.clearHandler))
	router.Get("/api/memory/export", JSONResponseHandler(s.exportHandler))
	router.Get("/api/stats", JSONResponseHandler(s.statsHandler))
	router.Get("/ws/events", s.eventsWsHandler)

	s.srv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler: router,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// XsrfToken is the token mutating requests must present while XSRF
// protection is enabled. It is also sent on every response.
func (s *Server) XsrfToken() string {
	return s.xsrfToken
}

// Run serves until ctx is cancelled. Shutdown is a short drain, not a
// graceful one: the deployment contract treats container termination as
// abrupt.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info(ctx, "Dashboard server listening",
		"addr", s.srv.Addr,
		"headless", s.cfg.Headless,
		"cors", s.cfg.EnableCORS,
		"xsrf", s.cfg.EnableXsrfProtection)

	if !s.cfg.Headless {
		go s.openBrowser(ctx)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.events.close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) openBrowser(ctx context.Context) {
	// give the listener a moment to bind
	time.Sleep(500 * time.Millisecond)
	url := fmt.Sprintf("http://localhost:%d", s.cfg.Port)
	if err := browser.OpenURL(url); err != nil {
		log.Warning(ctx, "Failed to open browser", "url", url, "err", err)
	}
}
