package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-overlay/internal/api"
	"github.com/joeblew999/plat-overlay/internal/api/stream"
	"github.com/joeblew999/plat-overlay/internal/config"
	"github.com/joeblew999/plat-overlay/internal/db"
	"github.com/joeblew999/plat-overlay/internal/invalidation"
	"github.com/joeblew999/plat-overlay/internal/logger"
	"github.com/joeblew999/plat-overlay/internal/metrics"
	"github.com/joeblew999/plat-overlay/internal/service"
	"github.com/joeblew999/plat-overlay/internal/sqlapi"
	"github.com/joeblew999/plat-overlay/internal/templates"
)

// Server is the overlay HTTP server.
type Server struct {
	config   config.Config
	log      *zerolog.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	rdb      *redis.Client
	fetcher  sqlapi.Fetcher
	bus      *service.EventBus
	services *api.Services
	renderer *templates.Renderer
}

// New creates a new overlay server. The local database and Redis are
// optional: a database that fails to open leaves the duckdb fetcher empty,
// while an unreachable Redis address is an error.
func New(ctx context.Context, cfg config.Config, log *zerolog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-overlay API", "0.1.0")
	humaConfig.Info.Description = "Map overlay sessions: classified data layers, query parameters and dynamic selectors."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s", cfg.Addr()), Description: "Local server"},
	}
	// Action links must see the response body before huma wraps it.
	humaConfig.Transformers = append([]huma.Transformer{api.LinkTransformer()}, humaConfig.Transformers...)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}

	s := &Server{
		config:  cfg,
		log:     log,
		mux:     mux,
		humaAPI: humago.New(mux, humaConfig),
		bus:     service.NewEventBus(),
	}

	conn, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: "overlay"})
	if err != nil {
		log.Warn().Err(err).Msg("local database unavailable")
	} else {
		s.db = conn
	}

	extracts := service.NewExtractService(cfg.DataDir)
	if s.db != nil {
		tables, err := extracts.ImportAll(ctx, s.db)
		if err != nil {
			log.Warn().Err(err).Str("dir", extracts.Dir()).Msg("importing extracts")
		} else if len(tables) > 0 {
			log.Info().Strs("tables", tables).Msg("imported extracts")
		}
	}

	if cfg.Cache.RedisAddr != "" {
		rdb, err := sqlapi.OpenRedis(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.rdb = rdb
	}

	fetcher, err := cfg.NewFetcher(s.db, s.rdb)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.fetcher = fetcher

	catalog := service.NewCatalog(cfg.DataDir, cfg.API.Connection)
	if cfg.DemosFile != "" {
		if err := catalog.LoadFile(cfg.DemosFile); err != nil {
			s.Close()
			return nil, fmt.Errorf("load demos: %w", err)
		}
	}

	s.services = &api.Services{
		Catalog:  catalog,
		Sessions: service.NewSessionManager(catalog, fetcher, s.bus, log),
		Extracts: extracts,
	}

	renderer, err := templates.Default()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load fragments: %w", err)
	}
	s.renderer = renderer

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated API description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services exposes the domain services for commands that run without HTTP.
func (s *Server) Services() *api.Services {
	return s.services
}

// Start runs background workers until ctx is done. It returns immediately
// when no change event brokers are configured.
func (s *Server) Start(ctx context.Context) {
	if s.config.Changes.Brokers == "" {
		return
	}
	inv, ok := s.fetcher.(sqlapi.Invalidator)
	if !ok {
		s.log.Warn().Msg("change events configured without a cache; consumer not started")
		return
	}

	cfg := invalidation.DefaultConfig(s.config.Changes.Brokers)
	if s.config.Changes.Topic != "" {
		cfg.Topic = s.config.Changes.Topic
	}
	if s.config.Changes.GroupID != "" {
		cfg.GroupID = s.config.Changes.GroupID
	}
	consumer := invalidation.New(cfg, inv, s.services.Sessions, s.log)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			s.log.Error().Err(err).Msg("invalidation consumer stopped")
		}
	}()
}

// Close releases sessions, Redis and the database.
func (s *Server) Close() error {
	if s.services != nil {
		s.services.Sessions.Close()
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() {
	h := api.NewAPIHandler(s.services)
	h.RegisterHealth(s.humaAPI)
	h.RegisterTables(s.humaAPI)
	h.RegisterDemos(s.humaAPI)
	h.RegisterExtracts(s.humaAPI)
	h.RegisterSessions(s.humaAPI)

	api.NewInfoHandler(api.Capabilities{
		DataDir: s.config.DataDir,
		Fetcher: s.config.Fetcher,
		DB:      s.db != nil,
		Redis:   s.rdb != nil,
		Changes: s.config.Changes.Brokers != "",
	}).RegisterRoutes(s.humaAPI)
	if s.db != nil {
		api.NewDBHandler(s.db, s.services.Extracts).RegisterRoutes(s.humaAPI)
	}

	stream.New(s.services.Sessions, s.bus, s.renderer, s.log).RegisterRoutes(s.humaAPI)

	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/docs", http.StatusFound)
}
