// Command coordinator runs the NFT-ICA coordinator service.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srdtrk/nft-ica/internal/clients"
	"github.com/srdtrk/nft-ica/internal/config"
	"github.com/srdtrk/nft-ica/internal/db"
	"github.com/srdtrk/nft-ica/internal/events"
	"github.com/srdtrk/nft-ica/internal/push"
	"github.com/srdtrk/nft-ica/internal/repository"
	"github.com/srdtrk/nft-ica/internal/router"
	"github.com/srdtrk/nft-ica/internal/services"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if *debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("load configuration")
	}

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("open database")
	}
	store := repository.NewStore(gdb)

	conn, err := clients.ConnectNATS(cfg.NATS, logger)
	if err != nil {
		logger.WithError(err).Fatal("connect messaging channel")
	}
	defer conn.Close()

	ledger := clients.NewHTTPLedgerClient(cfg.Ledger)
	controller := clients.NewNATSControllerClient(conn, logger)

	svc := services.NewCoordinatorService(store, ledger, controller, logger)
	pushSvc := push.NewService(logger)
	svc.SetNotifier(pushSvc)

	if err := svc.RestoreQueueDepth(context.Background()); err != nil {
		logger.WithError(err).Fatal("restore queue depth gauge")
	}

	consumer, err := events.NewConsumer(conn, svc, cfg.NATS, logger)
	if err != nil {
		logger.WithError(err).Fatal("create callback consumer")
	}
	if err := consumer.Start(context.Background()); err != nil {
		logger.WithError(err).Fatal("start callback consumer")
	}
	defer consumer.Stop()

	engine := router.New(cfg, svc, pushSvc, logger)
	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: engine,
	}

	go func() {
		logger.WithField("addr", server.Addr).Info("coordinator listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}
