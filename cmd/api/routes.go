package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	appMiddleware "github.com/img2prompt/service/internal/middleware"
	"github.com/img2prompt/service/internal/upload"
	"github.com/img2prompt/service/internal/usage"

	_ "github.com/img2prompt/service/docs/swagger"
)

func routes(log zerolog.Logger, tokens appMiddleware.TokenParser, usageHandler *usage.Handler, uploadHandler *upload.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI, available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Use(appMiddleware.RequireAuth(tokens))
		r.Get("/usage", usageHandler.GetUsage)
		r.Post("/usage/record", usageHandler.RecordUse)
		r.Post("/subscription", usageHandler.UpdateSubscription)
		r.Post("/upload", uploadHandler.Upload)
	})

	return r
}
