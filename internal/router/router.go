package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"newsletterai-backend/internal/handlers"
	"newsletterai-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	contentHandler *handlers.ContentHandler,
	newsletterHandler *handlers.NewsletterHandler,
	billingHandler *handlers.BillingHandler,
	userHandler *handlers.UserHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Stripe Webhook (public; signature-authenticated) ────
		r.Post("/webhooks/stripe", billingHandler.Webhook)

		// ──── Content Routes ────
		r.Route("/content", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/import", contentHandler.Import)
			r.Post("/analyze", contentHandler.Analyze)
			r.Get("/", contentHandler.ListContent)
			r.Get("/{id}", contentHandler.GetContent)
		})

		// ──── Newsletter Generation Routes ────
		r.Route("/newsletter", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/generate", newsletterHandler.Generate)
			r.Post("/subject-lines", newsletterHandler.SubjectLines)
			r.Post("/test-email", newsletterHandler.TestEmail)
		})

		// ──── Newsletter CRUD Routes ────
		r.Route("/newsletters", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", newsletterHandler.List)
			r.Get("/{id}", newsletterHandler.Get)
			r.Put("/{id}", newsletterHandler.Update)
			r.Put("/{id}/status", newsletterHandler.UpdateStatus)
			r.Delete("/{id}", newsletterHandler.Delete)
			r.Get("/{id}/export", newsletterHandler.Export)
		})

		// ──── Billing Routes ────
		r.Route("/billing", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/checkout", billingHandler.CreateCheckoutSession)
		})

		// ──── User & Dashboard Routes ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/me", userHandler.GetMe)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/stats", userHandler.Stats)
		})
	})

	return r
}
