package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/mbolis/brand-survey/airtable"
	"github.com/mbolis/brand-survey/app"
	"github.com/mbolis/brand-survey/config"
	"github.com/mbolis/brand-survey/database"
	"github.com/mbolis/brand-survey/log"
	"github.com/mbolis/brand-survey/metrics"
	"github.com/mbolis/brand-survey/routes"
	"github.com/mbolis/brand-survey/session"
	"github.com/mbolis/brand-survey/store"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.LogFile != "" {
		defer log.ToFile(cfg.LogFile).Close()
	}

	m := metrics.New()

	backend, closeBackend, err := openBackend(cfg, m)
	if err != nil {
		log.Fatal("main.backend:", err)
	}
	defer closeBackend()

	st := store.New(backend, cfg.Tables)
	tokens := jwtauth.New("HS256", []byte(cfg.TokenSecret), nil)
	sessions := session.NewManager(st, tokens, cfg.TokenTTL)
	m.Gauge("sessions", "Number of live sessions", func() float64 {
		return float64(sessions.Count())
	})

	app := app.App{
		Store:    st,
		Sessions: sessions,
		Tokens:   tokens,
		Metrics:  m,
		Config:   cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func openBackend(cfg config.Config, m *metrics.Metrics) (store.Backend, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := database.Open(cfg.DBUrl)
		if err != nil {
			return nil, nil, err
		}
		tables := database.NewTables(db)
		if cfg.SeedFile != "" {
			n, err := tables.SeedFile(context.Background(), cfg.SeedFile)
			if err != nil {
				db.Close()
				return nil, nil, err
			}
			log.Infof("main.seed: loaded %d records from %s", n, cfg.SeedFile)
		}
		log.Info("Using SQLite tables at " + cfg.DBUrl)
		return tables, func() { db.Close() }, nil

	default:
		client := airtable.New(cfg.AirtableURL, cfg.AirtableBase, cfg.AirtableKey,
			airtable.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
			airtable.WithObserver(m),
		)
		log.Info("Using tables API at " + cfg.AirtableURL)
		return client, func() {}, nil
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("main.server.shutdown:", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
