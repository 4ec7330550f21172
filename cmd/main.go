package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/loctrack/field-tracker/internal/auth"
	"github.com/loctrack/field-tracker/internal/broker"
	"github.com/loctrack/field-tracker/internal/db"
	"github.com/loctrack/field-tracker/internal/handlers"
	"github.com/loctrack/field-tracker/internal/middleware"
	"github.com/loctrack/field-tracker/internal/models"
)

func main() {
	_ = godotenv.Load()
	configureLogging()

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	database := db.DatabaseName()
	store := db.NewMongoTrackingStore(client, database)
	users := &db.MongoUserCollection{Collection: client.Database(database).Collection("users")}

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}
	authMW := middleware.NewAuthMiddleware(authService, users)
	limiter := buildRateLimiter()

	var publisher broker.Publisher
	if live, err := broker.NewFromEnv(); err != nil {
		log.WithError(err).Warn("MQTT broker unavailable; live fan-out disabled")
	} else if live != nil {
		publisher = live
		defer live.Close()
	}

	trackingHandler := handlers.NewTrackingHandler(store, publisher)
	adminHandler := handlers.NewAdminHandler(store, users)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	tracking := api.PathPrefix("/tracking").Subrouter()
	tracking.Use(authMW.Authenticate)
	tracking.HandleFunc("/start", trackingHandler.Start).Methods("POST")
	tracking.Handle("/locations", limiter.Middleware(http.HandlerFunc(trackingHandler.Ingest))).Methods("POST")
	tracking.HandleFunc("/stop", trackingHandler.Stop).Methods("POST")
	tracking.HandleFunc("/session", trackingHandler.ActiveSession).Methods("GET")
	tracking.HandleFunc("/history", trackingHandler.History).Methods("GET")
	tracking.HandleFunc("/sessions", trackingHandler.Sessions).Methods("GET")
	tracking.HandleFunc("/sessions/{id}", trackingHandler.SessionDetail).Methods("GET")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMW.Authenticate)
	admin.Use(authMW.RequireRole(models.RoleAdmin))
	admin.HandleFunc("/live-map", adminHandler.LiveMap).Methods("GET")

	port := env("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.WithField("port", port).Info("Field tracker API listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("Server error")
	}
}

// buildRateLimiter prefers the Redis-backed per-owner limiter and falls back
// to the in-memory window when no Redis is configured or reachable.
func buildRateLimiter() middleware.OwnerRateLimiter {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis unreachable; using in-memory rate limiter")
		} else {
			return middleware.NewRedisRateLimiter(rdb, envInt("RATE_LIMIT_RPS", 2), envInt("RATE_LIMIT_BURST", 4))
		}
	}
	return middleware.NewMemoryRateLimiter(envInt("RATE_LIMIT_MAX", 120), envInt("RATE_LIMIT_WINDOW_SEC", 60))
}

func configureLogging() {
	if level, err := log.ParseLevel(env("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
