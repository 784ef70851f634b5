package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Joss220r/competencia-Desarrollo/app"
	"github.com/Joss220r/competencia-Desarrollo/config"
	"github.com/Joss220r/competencia-Desarrollo/database"
	"github.com/Joss220r/competencia-Desarrollo/log"
	"github.com/Joss220r/competencia-Desarrollo/routes"
	"github.com/Joss220r/competencia-Desarrollo/survey"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	dialect, err := database.DialectFor(cfg.DBDriver)
	if err != nil {
		log.Fatal("main.db.dialect:", err)
	}
	shape, err := survey.ParseShape(cfg.SurveyShape)
	if err != nil {
		log.Fatal("main.config.shape:", err)
	}

	gateway := database.NewGateway(db, dialect, cfg.CallTimeout)
	app := app.App{
		Gateway: gateway,
		Surveys: survey.NewService(gateway, survey.Options{
			Shape:          shape,
			SurveyProc:     cfg.SurveyProc,
			SummaryProc:    cfg.SummaryProc,
			ResponsesTable: cfg.ResponsesTable,
		}),
		Config: cfg,
	}

	log.WithFields(log.Fields{
		"driver":      cfg.DBDriver,
		"dialect":     dialect.Name(),
		"shape":       shape.String(),
		"diagnostics": cfg.Diagnostics,
	}).Info("configured")

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
	log.Info("server stopped")
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Errorf("main.server.shutdown: %s", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		// in-flight requests finish before the database is closed
		<-drained
	}
	return err
}
