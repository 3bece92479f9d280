// Package server provides the ProfileStencil web UI and HTTP API.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/xob0t/ProfileStencil/assets"
	"github.com/xob0t/ProfileStencil/internal/config"
	"github.com/xob0t/ProfileStencil/internal/core"
	"github.com/xob0t/ProfileStencil/internal/logging"
	"github.com/xob0t/ProfileStencil/pkg/compositor"
)

//go:embed web/*
var webContent embed.FS

// Server serves render sessions, the message catalog and download stats.
type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	store    core.Store
	sessions *sessionManager
	compOpts []compositor.Option
}

// Option configures a Server.
type Option func(*Server)

// WithCompositorOptions appends options to every session's Compositor.
func WithCompositorOptions(opts ...compositor.Option) Option {
	return func(s *Server) { s.compOpts = append(s.compOpts, opts...) }
}

// New builds a Server. The default badge is decoded once and shared by
// all sessions.
func New(cfg *config.Config, st core.Store, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		store:    st,
		sessions: newSessionManager(cfg.Server.SessionTTL, cfg.Server.MaxSessions),
	}

	loader := compositor.BytesAssetLoader(assets.BadgePNG)
	if cfg.Assets.Badge != "" {
		loader = compositor.FileAssetLoader(cfg.Assets.Badge)
	}
	s.compOpts = []compositor.Option{
		compositor.WithLogger(log.Named("compositor")),
		compositor.WithAssetLoader(sharedLoader(loader)),
		compositor.WithFontPath(cfg.Assets.Font),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sharedLoader runs l once for the whole process.
func sharedLoader(l compositor.AssetLoader) compositor.AssetLoader {
	once := sync.OnceValues(func() (image.Image, error) {
		return l(context.Background())
	})
	return func(context.Context) (image.Image, error) { return once() }
}

func (s *Server) newCompositor() (*compositor.Compositor, error) {
	c, err := compositor.New(s.compOpts...)
	if err != nil {
		return nil, fmt.Errorf("create compositor: %w", err)
	}
	return c, nil
}

// Handler returns the routed API and static UI.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.HTTPMiddleware(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{sessionHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/palette", s.handlePalette)
		r.Get("/stats/downloads", s.handleDownloadStats)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.sessionCtx)
				r.Post("/render", s.handleRender)
				r.Put("/image", s.handleReplaceImage)
				r.Post("/logo", s.handleLogo)
				r.Get("/download", s.handleDownload)
				r.Delete("/", s.handleStartOver)
			})
		})

		r.Route("/messages", func(r chi.Router) {
			r.Get("/", s.handleListMessages)
			r.Post("/", s.handleCreateMessage)
			r.Put("/{id}", s.handleUpdateMessage)
			r.Delete("/{id}", s.handleDeleteMessage)
		})
	})

	webFS, err := fs.Sub(webContent, "web")
	if err != nil {
		// The embed pattern guarantees the directory.
		panic(err)
	}
	r.Handle("/*", http.FileServer(http.FS(webFS)))

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
	}

	janitorCtx, stop := context.WithCancel(ctx)
	defer stop()
	go s.sessions.janitor(janitorCtx, s.log)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", zap.String("addr", s.cfg.Server.Addr))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr, err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// OpenBrowser opens url in the desktop browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// janitorInterval is how often idle sessions are swept.
func janitorInterval(ttl time.Duration) time.Duration {
	return max(ttl/2, time.Second)
}
