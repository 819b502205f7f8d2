package main

import (
	"context"
	"errors"
	"github.com/aws/aws-lambda-go/lambda"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const usage = "usage: s3-access-events serve | s3-access-events s3://bucket/prefix"

func main() {
	config, err := LoadConfigFromEnv()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	SetupLogger(config.LogFormat, config.LogLevel)

	h := NewHandler(config)
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.Start(h.HandleLambdaEvent)
		return
	}

	if len(os.Args) < 2 {
		slog.Error(usage)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Args[1] == "serve" {
		err = serve(ctx, config.ListenAddr, h.api.Router())
	} else {
		err = h.HandleS3URL(ctx, os.Args[1])
	}
	if err != nil {
		slog.Error("exiting", "error", err)
		stop()
		os.Exit(1)
	}
}

// serve runs the local HTTP surface until ctx is cancelled.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting access server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down access server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
