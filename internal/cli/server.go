package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/identity"
	"quiz-attempt-service/internal/metrics"
	transport "quiz-attempt-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	b, err := openBackend(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer b.Close()

	if cfg.Auth.Secret == "" {
		logger.Warn("auth.secret is empty; tokens are trivially forgeable")
	}
	tokens := identity.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TokenTTL, 8*time.Hour))

	catalog := app.NewCatalogService(b.quizzes, b.questions, b.courses, logger)
	opts := []app.AttemptOption{
		app.WithEvents(b.events),
		app.WithLogger(logger),
		app.WithMetrics(m),
	}
	if b.locks != nil {
		opts = append(opts, app.WithSubmitLock(b.locks))
	}
	services := transport.Services{
		Catalog:    catalog,
		Attempts:   app.NewAttemptService(b.attempts, catalog, opts...),
		Auth:       app.NewAuthService(b.users, tokens, logger, m),
		Discussion: app.NewDiscussionService(b.discussions, b.users),
	}

	server := &http.Server{
		Addr: ":" + finalPort,
		Handler: transport.NewRouter(services, tokens, transport.RouterOptions{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Gatherer:       prometheus.DefaultGatherer,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	logger.WithField("port", finalPort).Info("starting quiz service")
	return serve(ctx, server, stop, logger)
}

// serve runs server until a signal arrives, ctx is done or the listener
// fails. A listen failure is returned instead of waiting for a signal.
func serve(ctx context.Context, server *http.Server, stop <-chan os.Signal, logger *logrus.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			logger.WithError(err).Error("failed to start server")
			return fmt.Errorf("listen on %s: %w", server.Addr, err)
		}
		return nil
	case <-stop:
		logger.Info("shutting down server...")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
