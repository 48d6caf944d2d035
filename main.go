package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epeers/fundsync/config"
	_ "github.com/epeers/fundsync/docs"
	"github.com/epeers/fundsync/internal/allfunds"
	"github.com/epeers/fundsync/internal/handlers"
	"github.com/epeers/fundsync/internal/metrics"
	"github.com/epeers/fundsync/internal/middleware"
	"github.com/epeers/fundsync/internal/provision"
	"github.com/epeers/fundsync/internal/repository"
	"github.com/epeers/fundsync/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Fundsync Admin API
// @version 1.0
// @description Admin surface for the fund data ingestion pipeline.
// @BasePath /
func main() {
	serve := flag.Bool("serve", false, "run the admin HTTP server instead of a single ingestion run")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.ConfigureLogging()

	m := metrics.New()
	ingestSvc, err := newIngestionService(cfg, m)
	if err != nil {
		log.Fatalf("Failed to initialize ingestion: %v", err)
	}

	if *serve {
		serveAdmin(cfg, ingestSvc, m)
		return
	}
	os.Exit(runOnce(ingestSvc))
}

func newIngestionService(cfg *config.Config, m *metrics.Metrics) (*services.IngestionService, error) {
	since, until, err := cfg.NavRange()
	if err != nil {
		return nil, err
	}
	admin, reader := cfg.Accounts()

	root := cfg.RootDatabase()
	client := allfunds.NewClientWithBaseURL(cfg.AllfundsToken, cfg.AllfundsBaseURL).
		WithConcurrency(cfg.FetchConcurrency)
	schema := provision.NewSchemaProvisioner(root, cfg.DBMaintenanceDB)
	accounts := provision.NewAccessProvisioner(root)

	openStore := func(ctx context.Context) (services.FundStore, error) {
		store, err := repository.OpenFundStore(ctx, cfg.AdminDatabase())
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	return services.NewIngestionService(services.IngestionConfig{
		Database:    cfg.DBName,
		SchemaPath:  cfg.SchemaPath,
		Admin:       admin,
		Reader:      reader,
		ISINs:       cfg.FundISINs,
		NavSince:    since,
		NavUntil:    until,
		StrictFetch: cfg.StrictFetch,
	}, client, schema, accounts, openStore, m), nil
}

// runOnce performs a single ingestion run and returns the process exit code.
func runOnce(svc *services.IngestionService) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := svc.Run(ctx)
	if err != nil {
		var stageErr *services.StageError
		if errors.As(err, &stageErr) {
			fmt.Fprintf(os.Stderr, "Ingestion failed at stage %s: %v\n", stageErr.Stage, stageErr.Err)
		} else {
			fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		}
		return 1
	}

	for _, ds := range report.Datasets {
		log.Infof("%s: %d rows written, %d failed, %d rows in %s", ds.Dataset, ds.Rows, ds.Failed, ds.TableRows, ds.Table)
	}
	log.Infof("Run %s complete with %d warnings.", report.RunID, len(report.Warnings))
	return 0
}

func serveAdmin(cfg *config.Config, svc *services.IngestionService, m *metrics.Metrics) {
	ingestHandler := handlers.NewIngestHandler(svc)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID())

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	admin := router.Group("/admin")
	admin.POST("/ingest", ingestHandler.Run)
	admin.GET("/ingest/last", ingestHandler.LastRun)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Info("Server exited")
}
