package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/quantdesk/quantjobs/internal/api_server"
	"github.com/quantdesk/quantjobs/internal/config"
	"github.com/quantdesk/quantjobs/internal/market"
	"github.com/quantdesk/quantjobs/internal/store"
	"github.com/quantdesk/quantjobs/internal/worker"
	"github.com/quantdesk/quantjobs/pkg/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the quantjobs api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		sync := initLogger(cfg)
		defer sync()
		log := zap.S().Named("api")

		log.Info("Starting API service")
		defer log.Info("API service stopped")
		log.Infof("Using config: %s", cfg)

		log.Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			log.Fatalf("initializing data store: %v", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			log.Fatalf("running initial migration: %v", err)
		}

		metrics.RegisterJobStatsCollector(s)
		provider := market.NewSyntheticProvider()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				log.Fatalf("creating listener: %s", err)
			}

			server := apiserver.New(cfg, s, provider, listener)
			if err := server.Run(ctx); err != nil {
				log.Fatalf("Error running server: %s", err)
			}
		}()

		go func() {
			defer cancel()
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				log.Fatalf("creating metrics listener: %s", err)
			}

			metricsServer := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := metricsServer.Run(ctx); err != nil {
				log.Fatalf("Error running metrics server: %s", err)
			}
		}()

		go worker.New(s, provider, cfg).Run(ctx)

		<-ctx.Done()
		return nil
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}
