package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"medrag/internal/httpapi"
	"medrag/internal/logger"
	"medrag/internal/port"
)

var (
	serveAddr    string
	serveRelease bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the answer pipeline over HTTP",
	Long: `Load the index and corpus once and serve JSON endpoints:

  POST /v1/ask       {"question": "...", "k": 3}
  POST /v1/retrieve  {"question": "...", "k": 3}
  GET  /v1/history?n=20
  GET  /health, /ready, /metrics

A startup integrity failure stops the process before it listens.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveRelease, "release", true, "run gin in release mode")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	addr := app.Config.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	var history port.InteractionHistory
	if app.Log != nil {
		history = app.Log
	}
	h := httpapi.NewHandler(app.Ask, app.Retriever, history, app.Config.Retrieve.TopK, func() error {
		if app.Assets == nil {
			return errors.New("assets not loaded")
		}
		return nil
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewRouter(h, serveRelease),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log := logger.Default()
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
