// Package api provides the HTTP API for observing a colony run.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/antcolony/internal/agents"
	"github.com/talgya/antcolony/internal/colony"
	"github.com/talgya/antcolony/internal/engine"
	"github.com/talgya/antcolony/internal/persistence"
	"github.com/talgya/antcolony/internal/pheromone"
)

// Server serves the run state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine  // Optional; nil in headless use
	DB       *persistence.DB // Optional; history and snapshots need it
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	// Grid dumps are the heavy endpoints.
	gridLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/colonies", s.handleColonies)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/stats/history", s.handleStatsHistory)
	mux.HandleFunc("/api/v1/field/", RateLimitMiddleware(gridLimiter, s.handleField))
	mux.HandleFunc("/api/v1/world/food", RateLimitMiddleware(gridLimiter, s.handleFood))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))
	mux.HandleFunc("/api/v1/intervention", s.adminOnly(s.handleIntervention))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// ANTSIM_CORS_ORIGINS holds a comma-separated list; localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("ANTSIM_CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no ANTSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":   "antsim",
		"status": s.Sim.Status(),
	}
	if s.Eng != nil {
		status["speed"] = s.Eng.GetSpeed()
		status["running"] = s.Eng.Running()
	}
	writeJSON(w, status)
}

func (s *Server) handleColonies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.ColonyStats())
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	var id colony.ID
	if c := r.URL.Query().Get("colony"); c != "" {
		v, err := strconv.ParseUint(c, 10, 32)
		if err != nil || v == 0 {
			http.Error(w, "invalid colony id", http.StatusBadRequest)
			return
		}
		id = colony.ID(v)
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 5000 {
			limit = n
		}
	}

	all := s.Sim.AgentSnapshots(id)

	// Optional task filter, e.g. ?task=foraging.
	if task := strings.ToLower(r.URL.Query().Get("task")); task != "" {
		var filtered []agents.Snapshot
		for _, a := range all {
			if a.Task == task {
				filtered = append(filtered, a)
			}
		}
		all = filtered
	}

	if len(all) > limit {
		all = all[:limit]
	}
	if all == nil {
		all = []agents.Snapshot{}
	}
	writeJSON(w, all)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	events := s.Sim.RecentEvents(limit, r.URL.Query().Get("category"))
	if events == nil {
		events = []engine.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Stats())
}

func (s *Server) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	rows, err := s.DB.LoadStatsHistory(s.Sim.Status().RunID, limit)
	if err != nil {
		slog.Error("stats history query failed", "error", err)
		// Return empty array instead of error; the table may not have data yet.
		writeJSON(w, []engine.SimStats{})
		return
	}
	if rows == nil {
		rows = []engine.SimStats{}
	}
	writeJSON(w, rows)
}

type gridResponse struct {
	Layer  string    `json:"layer"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Cells  []float64 `json:"cells"` // Row-major
}

// handleField serves one signal channel: GET /api/v1/field/{channel}.
func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(strings.TrimPrefix(r.URL.Path, "/api/v1/field/"))
	ch, err := pheromone.ParseChannel(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	st := s.Sim.Status()
	writeJSON(w, gridResponse{Layer: ch.String(), Width: st.Width, Height: st.Height, Cells: s.Sim.FieldLayer(ch)})
}

func (s *Server) handleFood(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Status()
	writeJSON(w, gridResponse{Layer: "food", Width: st.Width, Height: st.Height, Cells: s.Sim.FoodGrid()})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not running", http.StatusServiceUnavailable)
		return
	}
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.GetSpeed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveWorldState(s.Sim); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    s.Sim.Status().Tick,
		"message": "snapshot saved",
	})
}

func (s *Server) handleIntervention(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Type        string    `json:"type"`
		Description string    `json:"description,omitempty"`
		Category    string    `json:"category,omitempty"`
		Colony      colony.ID `json:"colony,omitempty"`
		Channel     string    `json:"channel,omitempty"`
		X           int       `json:"x"`
		Y           int       `json:"y"`
		Amount      float64   `json:"amount,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var (
		details string
		err     error
	)
	switch req.Type {
	case "event":
		if req.Description == "" {
			http.Error(w, "description required for event type", http.StatusBadRequest)
			return
		}
		cat := req.Category
		if cat == "" {
			cat = "intervention"
		}
		s.Sim.InjectEvent(req.Description, cat)
		details = "event injected"

	case "provision":
		details, err = s.Sim.ProvisionColony(req.Colony, req.Amount)

	case "food":
		details, err = s.Sim.DropFood(req.X, req.Y, req.Amount)

	case "signal":
		ch, perr := pheromone.ParseChannel(req.Channel)
		if perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		details, err = s.Sim.MarkSignal(ch, req.X, req.Y, req.Amount)

	default:
		http.Error(w, "unknown intervention type (want event, provision, food or signal)", http.StatusBadRequest)
		return
	}

	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, engine.ErrColonyNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, map[string]any{"success": true, "details": details})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
