package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/handler"
	"github.com/paybridge/paybridge/infra/config"
	"github.com/paybridge/paybridge/infra/logger"
	"github.com/paybridge/paybridge/infra/opensearch"
	"github.com/paybridge/paybridge/infra/validate"
	"github.com/paybridge/paybridge/router"

	// Import for side-effect registration
	_ "github.com/paybridge/paybridge/connector/adyen"
	_ "github.com/paybridge/paybridge/connector/cashtocode"
	_ "github.com/paybridge/paybridge/connector/fiserv"
	_ "github.com/paybridge/paybridge/connector/fiuu"
	_ "github.com/paybridge/paybridge/connector/razorpay"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	logger.InitGlobalLogger()
	cfg := config.GetAppConfig()

	store, err := config.NewCredentialStore(cfg.CredentialDBPath, cfg.CredentialKey)
	if err != nil {
		logger.Fatal("failed to open credential store", map[string]any{"error": err.Error()})
	}
	defer store.Close()

	var (
		publisher *opensearch.Publisher
		searcher  handler.AuditSearcher
		audit     connector.AuditPublisher
	)
	if cfg.EnableAudit {
		osClient, err := opensearch.NewClient(cfg)
		if err != nil {
			logger.Warn("audit publishing unavailable", map[string]any{"error": err.Error()})
		} else {
			publisher = opensearch.NewPublisher(osClient)
			searcher = publisher
			audit = publisher
			logger.Info("audit publishing enabled", map[string]any{"index": osClient.AuditIndexName()})
		}
	}

	registry := connector.DefaultRegistry
	service := connector.NewService(connector.ServiceConfig{
		Registry:  registry,
		Client:    connector.NewHTTPClient(time.Duration(cfg.HTTPTimeoutSecs) * time.Second),
		Endpoints: config.ConnectorEndpoints(registry.Names()),
		Creds:     store,
		Audit:     audit,
		Logger:    logger.GetGlobalLogger(),
	})

	r := router.New(router.Dependencies{
		Service:  service,
		Registry: registry,
		Store:    store,
		Searcher: searcher,
		Validate: validate.New(),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("service listening", map[string]any{
			"port":       cfg.Port,
			"connectors": registry.Names(),
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", map[string]any{"error": err.Error()})
	}
}
