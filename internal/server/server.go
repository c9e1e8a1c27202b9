package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/purgo-board/apiserver/config"
	"github.com/purgo-board/apiserver/internal/auth"
	"github.com/purgo-board/apiserver/internal/cache"
	"github.com/purgo-board/apiserver/internal/db"
	"github.com/purgo-board/apiserver/internal/handlers"
	"github.com/purgo-board/apiserver/internal/logging"
	"github.com/purgo-board/apiserver/internal/moderation"
	"github.com/purgo-board/apiserver/internal/mq"
	"github.com/purgo-board/apiserver/internal/services"
	"github.com/purgo-board/apiserver/internal/storage"
	"github.com/purgo-board/apiserver/internal/store"
	"github.com/redis/go-redis/v9"
)

// backendNone disables an optional storage or MQ backend.
const backendNone = "none"

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger
	db         *sql.DB
	redis      *redis.Client
	mq         *mq.MQ
}

// New connects every backing service and builds the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{logger: logger}
	if err := s.connect(ctx, cfg); err != nil {
		s.closeBackends()
		return nil, err
	}
	return s, nil
}

func (s *Server) connect(ctx context.Context, cfg config.Config) error {
	manager, err := auth.NewManager(cfg.JWT)
	if err != nil {
		return err
	}

	s.db, err = db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	s.redis, err = cache.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	var publisher services.Publisher
	if !isDisabled(cfg.MQ.Backend) {
		s.mq, err = mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		publisher = s.mq
	}

	var images services.ImageStore
	if !isDisabled(cfg.Storage.Backend) {
		objects, err := storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		images = objects
	}

	filter, err := newFilter(cfg.Moderation, s.logger)
	if err != nil {
		return err
	}

	st := store.New(s.db)
	standing := services.NewStandingService(st.Standing)
	authService := services.NewAuthService(st.Users, st, cache.NewTokenStore(s.redis), manager, publisher, s.logger)
	userService := services.NewUserService(st.Users, st.ModerationLogs, standing, images, s.logger)
	postService := services.NewPostService(st.Posts, st, st.Users, standing, filter, publisher, s.logger)
	commentService := services.NewCommentService(st.Comments, st, st.Posts, st.Users, standing, filter, publisher, s.logger)

	s.router = newRouter(cfg, s.logger, authService, userService, postService, commentService)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

// newFilter builds the moderation filter. Without an endpoint every text
// passes through unchanged.
func newFilter(cfg config.ModerationConfig, logger *slog.Logger) (*moderation.Filter, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		logger.Warn("MODERATION_URL not set, moderation disabled")
		return moderation.NewFilter(nil, logger), nil
	}
	client, err := moderation.NewClient(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("moderation client: %w", err)
	}
	return moderation.NewFilter(client, logger), nil
}

func newRouter(
	cfg config.Config,
	logger *slog.Logger,
	authService *services.AuthService,
	userService *services.UserService,
	postService *services.PostService,
	commentService *services.CommentService,
) *chi.Mux {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	authMiddleware := handlers.RequireAuth(authService)

	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, authService)
		})
		r.Route("/user", func(r chi.Router) {
			handlers.UserRouter(r, userService, authMiddleware)
		})
		r.Route("/posts", func(r chi.Router) {
			handlers.PostRouter(r, postService, commentService, authMiddleware)
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes backing connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.closeBackends()
	return err
}

func (s *Server) closeBackends() {
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}

func isDisabled(backend string) bool {
	return strings.EqualFold(strings.TrimSpace(backend), backendNone)
}
