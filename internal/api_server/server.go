package apiserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/quantdesk/quantjobs/internal/config"
	handlers "github.com/quantdesk/quantjobs/internal/handlers/v1alpha1"
	"github.com/quantdesk/quantjobs/internal/market"
	"github.com/quantdesk/quantjobs/internal/service"
	"github.com/quantdesk/quantjobs/internal/store"
	"github.com/quantdesk/quantjobs/pkg/metrics"
	"github.com/quantdesk/quantjobs/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	market   market.Provider
	listener net.Listener
}

// New returns a new instance of the quantjobs API server.
func New(
	cfg *config.Config,
	store store.Store,
	market market.Provider,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		market:   market,
		listener: listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   strings.Split(s.cfg.Service.CorsOrigins, ","),
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	h := handlers.NewHandler(
		service.NewJobService(s.store),
		service.NewClientService(s.store),
		service.NewPortfolioService(s.store),
		s.market,
	)
	router.Route("/api/v1", h.Routes)

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
