package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-dashboard-auth/auth"
	"github.com/jrsteele09/go-dashboard-auth/auth/authflowrepo"
	"github.com/jrsteele09/go-dashboard-auth/internal/config"
	"github.com/jrsteele09/go-dashboard-auth/internal/logging"
	"github.com/jrsteele09/go-dashboard-auth/server"
	"github.com/jrsteele09/go-dashboard-auth/sessions"
	"github.com/jrsteele09/go-dashboard-auth/token"
	"github.com/jrsteele09/go-dashboard-auth/users"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(c.Log)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	displayAppname(c.Server.AppName)

	handler, err := newHandler(c)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      c.OIDC.ExchangeTimeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// newHandler wires the session keys, the login flow and the HTTP routes.
// Keys are derived here so a bad secret stops the process before it listens.
func newHandler(c config.Config) (http.Handler, error) {
	manager, err := token.NewManagerFromConfig(c.Session)
	if err != nil {
		return nil, fmt.Errorf("session keys: %w", err)
	}
	codec, err := sessions.NewCodec(manager)
	if err != nil {
		return nil, err
	}

	issuer, err := auth.NewOIDCIssuer(c.OIDC)
	if err != nil {
		return nil, err
	}

	options := []auth.AuthorizationServiceOption{auth.WithSessionLifetime(c.Session.Lifetime)}
	if reviewer, err := newTokenReviewer(c.Kube); err != nil {
		log.Warn().Err(err).Msg("Cluster API not reachable, token login disabled")
	} else {
		options = append(options, auth.WithTokenReviewer(reviewer))
	}

	flows := authflowrepo.NewInMemoryRepo(authflowrepo.WithTTL(c.OIDC.StateTTL))
	authService, err := auth.NewAuthorizationService(issuer, flows, codec, options...)
	if err != nil {
		return nil, err
	}
	return server.New(c, authService, codec)
}

func newTokenReviewer(c config.Kube) (users.TokenReviewer, error) {
	clientset, err := users.NewClientset(c)
	if err != nil {
		return nil, err
	}
	return users.NewKubeTokenReviewer(clientset)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
