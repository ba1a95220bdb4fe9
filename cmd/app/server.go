package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sushihentaime/blogsphere/internal/common"
)

func (app *application) serve() error {
	srv := &http.Server{
		Addr:         app.config.Port,
		Handler:      app.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		s := <-quit

		app.logger.Info("shutting down server", slog.String("signal", s.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// hijacked websocket connections are not tracked by Shutdown
		app.hub.Close()

		shutdownError <- srv.Shutdown(ctx)
	}()

	app.logger.Info("starting server", slog.String("addr", srv.Addr), slog.String("env", app.config.Environment))

	var err error
	if app.config.TLSCertFile != "" && app.config.TLSKeyFile != "" {
		err = srv.ListenAndServeTLS(app.config.TLSCertFile, app.config.TLSKeyFile)
	} else {
		err = srv.ListenAndServe()
	}
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", slog.String("addr", srv.Addr))

	return nil
}

// shutdown releases everything the server holds once it has stopped accepting requests.
func (app *application) shutdown() {
	app.hub.Close()

	if app.relay != nil {
		app.relay.Close()
	}
	if app.mailService != nil {
		app.mailService.Close()
	}

	app.wg.Wait()

	if app.broker != nil {
		if err := app.broker.Close(); err != nil {
			app.logger.Error("failed to close the message broker", slog.String("error", err.Error()))
		}
	}

	if err := common.CloseDB(app.db); err != nil {
		app.logger.Error("failed to close the database", slog.String("error", err.Error()))
	}
}
