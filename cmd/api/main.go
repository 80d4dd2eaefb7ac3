// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"golang.org/x/time/rate"

	"librarium/internal/catalog"
	"librarium/internal/snapshot"
)

func main() {
	ctx := context.Background()

	loanDays, err := strconv.Atoi(getEnv("LOAN_DURATION_DAYS", "14"))
	if err != nil {
		log.Fatalf("invalid LOAN_DURATION_DAYS: %v", err)
	}

	svc, err := catalog.NewService(
		catalog.WithName(getEnv("LIBRARY_NAME", "Central Library")),
		catalog.WithLoanDuration(loanDays),
	)
	if err != nil {
		log.Fatalf("Failed to create catalog service: %v", err)
	}

	store := snapshot.NewStore(getEnv("LIBRARY_DATA_PATH", snapshot.DefaultPath))
	switch snap, err := store.Load(ctx); {
	case err == nil:
		if err := svc.Restore(ctx, snap); err != nil {
			log.Fatalf("Failed to restore catalog: %v", err)
		}
		log.Printf("Loaded catalog from %s", store.Path())
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("No data at %s, starting with an empty catalog", store.Path())
	default:
		log.Fatalf("Failed to load catalog: %v", err)
	}

	shutdownTracing := initTracing(ctx)
	defer shutdownTracing()

	handler := catalog.NewHandler(svc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(rateLimit(rate.NewLimiter(rate.Limit(50), 100)))

	router.Mount("/api/v1", handler.Routes())
	router.Route("/api/v1/admin", func(r chi.Router) {
		r.Post("/save", func(w http.ResponseWriter, r *http.Request) {
			if err := store.Save(r.Context(), svc.Snapshot(r.Context())); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
		r.Post("/load", func(w http.ResponseWriter, r *http.Request) {
			snap, err := store.Load(r.Context())
			switch {
			case errors.Is(err, fs.ErrNotExist):
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			case err != nil:
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			if err := svc.Restore(r.Context(), snap); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	port := getEnv("PORT", "8080")
	log.Printf("Catalog API listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}

// rateLimit rejects requests once the shared limiter is exhausted.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// initTracing installs an OTLP trace exporter when an endpoint is
// configured; otherwise spans stay no-ops.
func initTracing(ctx context.Context) func() {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return func() {}
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		log.Printf("Tracing disabled, exporter init failed: %v", err)
		return func() {}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("librarium-api"),
		)),
	)
	otel.SetTracerProvider(provider)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.Printf("Tracing shutdown: %v", err)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
