// Command gardener runs the colony steward against a live antsim server.
// It observes colony food health, decides by fixed rules, and provisions
// starving colonies via the admin intervention API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/antcolony/internal/gardener"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	apiURL := envOrDefault("ANTSIM_API_URL", "http://localhost:8080")
	adminKey := os.Getenv("ANTSIM_ADMIN_KEY")
	intervalSec := envIntOrDefault("GARDENER_INTERVAL", 60)
	memoryPath := envOrDefault("GARDENER_MEMORY", "data/gardener_memory.json")

	if adminKey == "" {
		slog.Error("ANTSIM_ADMIN_KEY is required")
		os.Exit(1)
	}

	interval := time.Duration(intervalSec) * time.Second
	slog.Info("colony gardener starting", "api_url", apiURL, "interval", interval)

	steward := &gardener.Steward{
		Observer: gardener.NewObserver(apiURL),
		Actor:    gardener.NewActor(apiURL, adminKey),
		Rules:    gardener.DefaultRules(),
		Memory:   gardener.LoadMemory(memoryPath),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("waiting for antsim API...")
	if err := waitForAPI(ctx, apiURL); err != nil {
		slog.Error("antsim API not ready", "error", err)
		os.Exit(1)
	}

	runCycle(ctx, steward, memoryPath)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCycle(ctx, steward, memoryPath)
		case <-ctx.Done():
			slog.Info("shutting down")
			fmt.Println("Gardener stopped.")
			return
		}
	}
}

func runCycle(ctx context.Context, s *gardener.Steward, memoryPath string) {
	if _, err := s.RunCycle(ctx); err != nil {
		slog.Error("gardener cycle failed", "error", err)
	}
	if err := s.Memory.Save(memoryPath); err != nil {
		slog.Error("memory save failed", "error", err)
	}
}

// waitForAPI polls the status endpoint with exponential backoff until it
// responds. Gives up after 5 minutes.
func waitForAPI(ctx context.Context, apiURL string) error {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		resp, err := http.Get(apiURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("antsim API is ready")
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no response from %s within 5 minutes", apiURL)
		}
		slog.Info("antsim not ready, retrying...", "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
