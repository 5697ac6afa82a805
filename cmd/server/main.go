package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsletterai-backend/internal/config"
	"newsletterai-backend/internal/database"
	"newsletterai-backend/internal/handlers"
	"newsletterai-backend/internal/middleware"
	"newsletterai-backend/internal/repository"
	"newsletterai-backend/internal/router"
	"newsletterai-backend/internal/services"
)

func main() {
	log.Println("🚀 Starting NewsletterAI Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Client ────
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	contentRepo := repository.NewContentRepo(pool)
	analysisRepo := repository.NewAnalysisRepo(pool)
	newsletterRepo := repository.NewNewsletterRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	markdownService := services.NewMarkdownService()
	youtubeService := services.NewYouTubeService()
	podcastService := services.NewPodcastService(geminiService)
	scraperService := services.NewScraperService()
	acquirer := services.NewAcquirer(youtubeService, podcastService, scraperService, geminiService)
	authService := services.NewAuthService(userRepo, redisClient, jwtAuth)
	billingService := services.NewBillingService(
		userRepo,
		cfg.StripeSecretKey,
		cfg.StripeWebhookSecret,
		cfg.StripePriceIDBasic,
		cfg.StripePriceIDPro,
		cfg.FrontendURL,
	)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	contentHandler := handlers.NewContentHandler(contentRepo, analysisRepo, userRepo, usageRepo, acquirer, geminiService)
	newsletterHandler := handlers.NewNewsletterHandler(
		newsletterRepo,
		contentRepo,
		analysisRepo,
		usageRepo,
		usageRepo,
		geminiService,
		markdownService,
		emailService,
	)
	billingHandler := handlers.NewBillingHandler(billingService)
	userHandler := handlers.NewUserHandler(userRepo, newsletterRepo, contentRepo)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		contentHandler,
		newsletterHandler,
		billingHandler,
		userHandler,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// Generation and transcription run synchronously inside the
		// request, so the write timeout has to cover a full Gemini call.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ NewsletterAI Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
