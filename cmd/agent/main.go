package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/loctrack/field-tracker/internal/agent"
	"github.com/loctrack/field-tracker/internal/models"
)

func main() {
	_ = godotenv.Load()

	apiURL := env("API_BASE_URL", "http://localhost:8080/api")
	token := os.Getenv("AGENT_TOKEN")
	if token == "" {
		log.Fatal("AGENT_TOKEN is required")
	}

	statePath := env("AGENT_STATE_FILE", "agent-state.json")
	syncInterval := time.Duration(envInt("AGENT_SYNC_SECONDS", 30)) * time.Second
	tick := time.Duration(envInt("AGENT_TICK_SECONDS", 2)) * time.Second

	base := models.Location{
		Lat: envFloat("AGENT_BASE_LAT", 51.5074),
		Lng: envFloat("AGENT_BASE_LNG", -0.1278),
	}

	battery := 100
	probe := agent.StaticProbe{Online: true, Battery: &battery}
	source := &agent.SimulatedSource{Base: base, Interval: tick}
	client := agent.NewClient(apiURL, token)
	tracker := agent.New(source, client, probe, agent.NewStateFile(statePath), syncInterval)

	ctx := context.Background()
	resumed, err := tracker.Recover(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to recover tracking state")
	}
	if !resumed {
		if err := tracker.Start(ctx); err != nil {
			log.WithError(err).Fatal("Failed to start tracking")
		}
	}

	log.WithFields(log.Fields{
		"api_url":       apiURL,
		"sync_interval": syncInterval,
		"resumed":       resumed,
	}).Info("Field agent running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := tracker.Stop(stopCtx); err != nil {
		log.WithError(err).Error("Failed to stop tracking cleanly")
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

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
