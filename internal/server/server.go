package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/reto-anonimo/apiserver/config"
	"github.com/reto-anonimo/apiserver/internal/cache"
	"github.com/reto-anonimo/apiserver/internal/contest"
	"github.com/reto-anonimo/apiserver/internal/db"
	"github.com/reto-anonimo/apiserver/internal/gateway"
	"github.com/reto-anonimo/apiserver/internal/handlers"
	"github.com/reto-anonimo/apiserver/internal/mq"
	"github.com/reto-anonimo/apiserver/internal/storage"
	"github.com/reto-anonimo/apiserver/internal/store"
)

const (
	defaultRatePerSecond = 50
	defaultRateBurst     = 100
)

// Server wraps the HTTP server and the resources behind it.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
	snapshots  *cache.StateCache
}

// New constructs a Server: picks the store backend, wires the coordinator
// and its optional collaborators, and registers every route.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	contestStore, dbConn, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	events, err := buildEvents(ctx, cfg)
	if err != nil {
		closeQuietly(dbConn)
		return nil, err
	}

	snapshots := buildSnapshots(cfg)
	images, err := buildImages(ctx, cfg)
	if err != nil {
		closeQuietly(dbConn)
		if events != nil {
			_ = events.Close()
		}
		return nil, err
	}

	coordinator := contest.NewCoordinator(contestStore, events, snapshots, images)
	authMiddleware := handlers.RequireAuth(jwtSecret)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		corsHandler.Handler,
		handlers.RateLimit(defaultRatePerSecond, defaultRateBurst),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, contestStore, jwtSecret)
	})
	router.Route("/contest", func(r chi.Router) {
		handlers.ContestRouter(r, coordinator, authMiddleware)
	})
	router.Route("/submissions", func(r chi.Router) {
		handlers.SubmissionRouter(r, coordinator, authMiddleware)
	})
	router.Route("/votes", func(r chi.Router) {
		handlers.VoteRouter(r, coordinator, authMiddleware)
	})
	if images != nil {
		router.Route("/images", func(r chi.Router) {
			handlers.ImageRouter(r, images)
		})
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
		snapshots:  snapshots,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown and releases every resource.
func (s *Server) Shutdown() error {
	closeQuietly(s.db)
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.snapshots != nil {
		_ = s.snapshots.Close()
	}
	return s.httpServer.Close()
}

func buildStore(ctx context.Context, cfg config.Config) (store.Store, *sql.DB, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgresStore(dbConn), dbConn, nil
	case config.StoreSheets, "":
		client, err := gateway.New(cfg.Gateway.URL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewSheetsStore(client), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func buildEvents(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.Events.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := mq.NewRabbitMQClient(cfg.Events.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	case "pubsub":
		backend, err := mq.NewPubSubClient(ctx, cfg.Events.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}

func buildImages(ctx context.Context, cfg config.Config) (*storage.ImageSink, error) {
	var backend storage.ObjectStorage
	switch cfg.Images.Backend {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Images.Minio)
		if err != nil {
			return nil, err
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Images.GCS)
		if err != nil {
			return nil, err
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown images backend %q", cfg.Images.Backend)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return storage.NewImageSink(backend, cfg.Images.PublicBaseURL), nil
}

func buildSnapshots(cfg config.Config) *cache.StateCache {
	if strings.TrimSpace(cfg.Redis.URL) == "" {
		return nil
	}
	snapshots, err := cache.NewStateCache(cfg.Redis)
	if err != nil {
		// The snapshot cache is an optimization; the server runs fine
		// without it.
		log.Printf("server: state cache unavailable: %v", err)
		return nil
	}
	return snapshots
}

func closeQuietly(dbConn *sql.DB) {
	if dbConn != nil {
		_ = dbConn.Close()
	}
}
