package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jcandel/hemoscan/config"
	"github.com/jcandel/hemoscan/internal/analyzer"
	"github.com/jcandel/hemoscan/internal/inference"
	"github.com/jcandel/hemoscan/internal/recommend"
	"github.com/jcandel/hemoscan/internal/repository"
	"github.com/jcandel/hemoscan/internal/risk"
	"github.com/jcandel/hemoscan/internal/service"
	transport "github.com/jcandel/hemoscan/internal/transport/http"
	"github.com/jcandel/hemoscan/policy"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.Infof("Starting hemoscan...")
	log.Infof("HTTP Port: %d", cfg.HTTPPort)
	log.Infof("Database: %s", cfg.DatabaseURL)
	log.Infof("Inference URL: %s", cfg.InferenceURL)

	// Initialize store
	store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	// Initialize inference gateway
	gateway := inference.Instrument(inference.NewGateway(cfg.InferenceURL, cfg.InferenceAPIKey, cfg.InferenceTimeout, log))

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize pipeline stages
	retry := analyzer.RetryPolicy{Max: cfg.RetryMax, Base: cfg.RetryBase, Factor: cfg.RetryFactor}
	bounds := analyzer.SanityBounds{
		HgbMin: cfg.CbcHgbMin, HgbMax: cfg.CbcHgbMax,
		RbcMin: cfg.CbcRbcMin, RbcMax: cfg.CbcRbcMax,
	}
	images := analyzer.NewImageAnalyzer(gateway, retry, log)
	cbc := analyzer.NewCbcAnalyzer(gateway, retry, bounds, log)
	interview := analyzer.NewInterviewAnalyzer()

	riskEngine := risk.NewEngine(risk.Policy{
		HgbModerateBelow: cfg.HgbModerateBelow,
		HgbHighBelow:     cfg.HgbHighBelow,
		SymptomHighCount: cfg.SymptomHighCount,
	})
	clinics := recommend.NewClinicClient(cfg.ClinicsURL, cfg.ClinicsTimeout)
	generator := recommend.NewGenerator(clinics, policyEngine, log)

	// Initialize service
	svc := service.New(store, images, cbc, interview, riskEngine, generator, cfg, log)

	// Background interview abandonment sweep
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go svc.RunAbandonmentSweep(sweepCtx)

	// Create HTTP server
	server := transport.NewServer(svc)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Infof("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down hemoscan...")
	stopSweep()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}

	log.Info("Shutdown complete")
}
