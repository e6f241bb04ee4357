/*
main.go - payroll schedule engine server entry point

PURPOSE:
  Wires the SQLite store, the public-holiday HTTP provider and the API
  router together and serves HTTP with graceful shutdown.

CONFIGURATION:
  Flags override environment variables (loaded from .env when present):
    -port      / PORT          listen port          (default 8080)
    -db        / DB_PATH       sqlite database path (default payroll.db)
    -holidays  / HOLIDAYS_URL  holiday API base URL (default https://date.nager.at)
    -workers   / WORKERS       periods generated concurrently per request
    -log-level / LOG_LEVEL     logrus level         (default info)
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/holiday"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	var (
		port     = flag.String("port", envOr("PORT", "8080"), "HTTP listen port")
		dbPath   = flag.String("db", envOr("DB_PATH", "payroll.db"), "SQLite database path")
		holidays = flag.String("holidays", envOr("HOLIDAYS_URL", "https://date.nager.at"), "public holiday API base URL")
		workers  = flag.Int("workers", envIntOr("WORKERS", 4), "periods generated concurrently per request")
		logLevel = flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	)
	flag.Parse()

	log := logrus.New()
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("opening database")
	}
	defer store.Close()

	handler := api.NewHandler(store, holiday.NewHTTPProvider(*holidays))
	handler.Workers = *workers
	handler.Log = log

	srv := &http.Server{
		Addr:         ":" + *port,
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":    *port,
			"db":      *dbPath,
			"workers": *workers,
		}).Info("payroll schedule engine listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown incomplete")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
