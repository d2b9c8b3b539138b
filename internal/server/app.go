// Package server initializes and runs the messaging API: it opens storage,
// builds the services, serves HTTP and shuts everything down in order on
// SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/messagely/internal/logging"
	"github.com/dmitrijs2005/messagely/internal/server/auth"
	"github.com/dmitrijs2005/messagely/internal/server/config"
	"github.com/dmitrijs2005/messagely/internal/server/httpapi"
	"github.com/dmitrijs2005/messagely/internal/server/notify"
	"github.com/dmitrijs2005/messagely/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/messagely/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	dispatcher  *notify.Dispatcher
	handler     http.Handler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	rm, err := openRepositories(ctx, c, logger)
	if err != nil {
		return nil, err
	}

	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("db migrate error: %w", err)
	}

	var sender notify.Sender
	if c.NotificationsEnabled() {
		sender = notify.NewTwilioSender(c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioFromPhone, c.TwilioToPhone)
	} else {
		sender = notify.NewLogSender(logger.With("module", "notify"))
	}
	dispatcher := notify.NewDispatcher(sender, c.NotifyTimeout, logger)

	issuer := auth.NewIssuer(c.SecretKey, c.TokenValidityDuration)
	us := services.NewUserService(rm, issuer, c)
	ms := services.NewMessageService(rm, dispatcher)

	return &App{
		config:      c,
		logger:      logger,
		repomanager: rm,
		dispatcher:  dispatcher,
		handler:     httpapi.NewServer(us, ms, issuer, logger),
	}, nil
}

func openRepositories(ctx context.Context, c *config.Config, logger logging.Logger) (repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database DSN configured, using in-memory store")
		return repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	return repomanager.NewPostgresRepositoryManager(db), nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves until ctx is cancelled or a shutdown signal arrives, then stops
// the HTTP server, waits for pending notifications and closes storage.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(ctx, cancelFunc)

	ln, err := net.Listen("tcp", app.config.EndpointAddrHTTP)
	if err != nil {
		_ = app.repomanager.Close()
		return fmt.Errorf("listen %s: %w", app.config.EndpointAddrHTTP, err)
	}

	return app.serve(ctx, ln)
}

func (app *App) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: app.handler}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting app...", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	return errors.Join(serveErr, app.shutdown(srv))
}

func (app *App) shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	app.logger.Info(ctx, "Shutting down...")

	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := app.dispatcher.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("pending notifications: %w", err))
	}
	if err := app.repomanager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("db close: %w", err))
	}

	return errors.Join(errs...)
}
