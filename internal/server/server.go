// Package server exposes the context-assembly pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/stridelabs/stride/internal/coach/capabilities"
	"github.com/stridelabs/stride/internal/coach/loader"
	"github.com/stridelabs/stride/internal/coach/prompts"
	"github.com/stridelabs/stride/internal/coach/skills"
	"github.com/stridelabs/stride/internal/coach/userctx"
	"github.com/stridelabs/stride/internal/config"
	"github.com/stridelabs/stride/internal/logging"
	"github.com/stridelabs/stride/internal/mcp"
	"github.com/stridelabs/stride/internal/store"
)

// Server wires the pipeline services behind the HTTP API.
type Server struct {
	cfg     *config.Config
	skills  *skills.Loader
	prompts *prompts.Indexer
	caps    *capabilities.Resolver
	builder *userctx.Builder
	loader  *loader.Service
	manager *mcp.Manager
	cron    *cron.Cron
}

// New builds a server with all pipeline services wired to the data dir.
func New(cfg *config.Config) (*Server, error) {
	mcpCfg, err := mcp.LoadConfig(cfg.MCPConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load mcp config: %w", err)
	}

	st := store.NewLocal(cfg.DataDir)
	skillLoader := skills.NewLoader(cfg.SkillsDir(), cfg.CommandsDir(), cfg.Cache.SkillTTL)
	promptIndexer := prompts.NewIndexer(cfg.PromptsDir(), cfg.Cache.PromptTTL)
	capResolver := capabilities.NewResolver(cfg.CapabilitiesPath(), cfg.Cache.CapabilityTTL)
	builder := userctx.NewBuilder(st)
	manager := mcp.NewManager(mcpCfg)

	s := &Server{
		cfg:     cfg,
		skills:  skillLoader,
		prompts: promptIndexer,
		caps:    capResolver,
		builder: builder,
		manager: manager,
		loader: &loader.Service{
			Builder: builder,
			Skills:  skillLoader,
			Prompts: promptIndexer,
			Caps:    capResolver,
			MCP:     manager,
		},
		cron: cron.New(),
	}
	return s, nil
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := checkPortAvailable(s.cfg.Port); err != nil {
		return fmt.Errorf("port %d is already in use: %w", s.cfg.Port, err)
	}

	if err := s.skills.Watch(ctx); err != nil {
		logging.Warnf("server: skills watcher unavailable: %v", err)
	}
	defer s.skills.Stop()

	if s.manager.Enabled() {
		go s.manager.ConnectAll(ctx)
		defer s.manager.DisconnectAll()
	}

	// The preloaded snapshot carries currentDate; drop it at midnight so
	// it can never serve yesterday's date
	if _, err := s.cron.AddFunc("0 0 * * *", func() {
		logging.Infof("server: midnight rollover, clearing preloaded context")
		s.loader.ClearPreloaded()
	}); err != nil {
		return fmt.Errorf("schedule midnight rollover: %w", err)
	}
	s.cron.Start()
	defer s.cron.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("server: listening on http://localhost:%d", s.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat/context", s.handleChatContext)
		r.Post("/context/preload", s.handlePreload)
		r.Get("/context/{profileID}", s.handleContext)
		r.Get("/context/{profileID}/preview", s.handleContextPreview)
		r.Get("/mcp/status", s.handleMCPStatus)
		r.Post("/mcp/tools/{serverID}/call", s.handleToolCall)
		r.Get("/skills", s.handleSkills)
		r.Get("/prompts/match", s.handlePromptMatch)
	})

	return r
}

// checkPortAvailable checks if a port is available for binding
func checkPortAvailable(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	return ln.Close()
}
