package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"driveupload/internal/server"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, logger, err := setup()
	if err != nil {
		return err
	}

	uploads, resolver := newUploadService(config, logger)

	srv := server.New(config, logger, uploads, resolver)

	go func() {
		logger.WithFields(logrus.Fields{"port": config.ServerPort, "environment": config.Environment, "storage": config.StorageBackend}).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
