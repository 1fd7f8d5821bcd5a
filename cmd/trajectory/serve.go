package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/trajectory/internal/api"
	"github.com/banshee-data/trajectory/internal/db"
	"github.com/banshee-data/trajectory/internal/pipeline"
	"github.com/banshee-data/trajectory/internal/units"
	"github.com/banshee-data/trajectory/internal/version"
)

func handleServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", ":8080", "Listen address")
	dbPath := fs.String("db", "runs.db", "Run store sqlite database")
	configPath := fs.String("config", "", "Tuning config JSON")
	displayUnits := fs.String("units", "", "Speed units for responses (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadTuning(*configPath)
	if err != nil {
		return err
	}
	speedUnits := cfg.GetUnits()
	if *displayUnits != "" {
		speedUnits = *displayUnits
	}
	if !units.IsValid(speedUnits) {
		return fmt.Errorf("invalid units %q: must be one of %s", speedUnits, units.GetValidUnitsString())
	}

	store, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	mux := api.NewServer(store, speedUnits, pipeline.OptionsFromTuning(cfg)).ServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		return err
	}

	server := &http.Server{
		Addr:              *listen,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Printf("%s listening on %s", version.String(), *listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
	return nil
}

func handleMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", "runs.db", "Run store sqlite database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	action := "up"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	store, err := db.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return runMigrate(store, action)
}

func runMigrate(store *db.DB, action string) error {
	migrations := db.MigrationsFS()
	switch action {
	case "up":
		if err := store.MigrateUp(migrations); err != nil {
			return err
		}
	case "down":
		if err := store.MigrateDown(migrations); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or version)", action)
	}

	v, dirty, err := store.MigrateVersion(migrations)
	if err != nil {
		return err
	}
	log.Printf("schema version %d (dirty=%v)", v, dirty)
	return nil
}
