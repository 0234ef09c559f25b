// main.go - Proof-of-Crab frame service
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"proofofcrab/config"
	"proofofcrab/database"
	"proofofcrab/handlers"
	"proofofcrab/handlers/admin"
	"proofofcrab/identity"
	"proofofcrab/issuance"
	"proofofcrab/services"

	"gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	logLevel := logger.Info
	if cfg.IsProduction() {
		logLevel = logger.Warn
	}
	db, err := database.Open(database.Options{
		Driver:   cfg.DBDriver,
		DSN:      cfg.DatabaseURL,
		LogLevel: logLevel,
	})
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()
	repo := database.NewRepository(db)

	issuer := issuance.New(issuance.Options{
		BaseURL:        cfg.IssuanceURL,
		PublicURL:      cfg.PublicIssuanceURL(),
		FallbackAPIKey: cfg.IssuanceAPIKey,
		Timeout:        cfg.IssuanceTimeout,
	})
	users := identity.New(identity.Options{
		BaseURL: cfg.IdentityURL,
		APIKey:  cfg.IdentityAPIKey,
	})

	bank := services.NewQuestionBank(repo, cfg.ChallengeQuestionCount, cfg.ShuffleQuestions)
	builder := services.NewChallengeBuilder(repo, repo, bank)
	gate := services.NewOwnershipGate(issuer, cfg.OwnershipMinQuantity)
	flow := services.NewChallengeFlow(repo, users, gate, builder, cfg.IgnoreOwnershipCheck)
	engine := services.NewProgressionEngine(repo)
	minting := services.NewMintingService(repo, repo, repo, issuer, users, cfg.ItemMaxSupply)
	cloner := services.NewFrameCloner(repo, cfg.AllowMultipleFramesPerFid)

	reconciler := services.NewItemReconciler(minting, cfg.ReconcileSchedule)
	if err := reconciler.Start(); err != nil {
		log.Fatalf("FATAL: invalid ITEM_RECONCILE_SCHEDULE: %v", err)
	}
	defer reconciler.Stop()

	app := handlers.NewApp(cfg)
	handlers.RegisterRoutes(app,
		handlers.NewHandler(cfg, repo, users, users, flow, engine, minting, cloner),
		admin.NewHandler(cfg, repo, repo, users, minting, reconciler),
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("🚀 HTTP server starting on port %s", cfg.Port)
	log.Printf("📊 Environment: %s", cfg.AppEnv)
	log.Printf("🦀 Default frame: %s", cfg.DefaultFrameID)
	log.Printf("🔐 Admin API enabled: %v", cfg.AdminEnabled())
	log.Printf("✍️  Frame message verification: %v", cfg.VerifyBody)
	if cfg.VerifyBody && cfg.IdentityAPIKey == "" {
		log.Println("⚠️  VERIFY_BODY is on but NEYNAR_APIKEY is empty")
	}
	if cfg.IgnoreOwnershipCheck {
		log.Println("⚠️  Ownership check is disabled")
	}

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("HTTP server stopped: %v", err)
	}
}
