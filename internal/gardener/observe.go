// Package gardener implements the colony steward.
// It observes the run via the API, triages colony food health with fixed
// rules, and acts via the admin intervention endpoint.
package gardener

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Snapshot holds all data collected during an observation cycle.
type Snapshot struct {
	Status   RunStatus    `json:"status"`
	Colonies []ColonyInfo `json:"colonies"`
	History  []StatsRow   `json:"history"` // Oldest first
}

// RunStatus mirrors GET /api/v1/status.
type RunStatus struct {
	Name    string  `json:"name"`
	Speed   float64 `json:"speed"`
	Running bool    `json:"running"`
	Status  struct {
		RunID   string   `json:"run_id"`
		Tick    uint64   `json:"tick"`
		Time    string   `json:"time"`
		Weather string   `json:"weather"`
		Stats   StatsRow `json:"stats"`
	} `json:"status"`
}

// ColonyInfo mirrors items from GET /api/v1/colonies.
type ColonyInfo struct {
	ID           uint32  `json:"id"`
	Population   int     `json:"population"`
	FoodStore    float64 `json:"food_store"`
	BroodCount   int     `json:"brood_count"`
	MeanVitality float64 `json:"mean_vitality"`
	Delivered    float64 `json:"delivered"`
	Hatched      int     `json:"hatched"`
	Deaths       int     `json:"deaths"`
}

// StatsRow mirrors items from GET /api/v1/stats/history.
type StatsRow struct {
	Tick       uint64  `json:"tick"`
	Colonies   int     `json:"colonies"`
	Population int     `json:"population"`
	FoodStore  float64 `json:"food_store"`
	BroodCount int     `json:"brood_count"`
	Hatched    int     `json:"hatched"`
	Deaths     int     `json:"deaths"`
}

// Observer fetches run state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches status, colonies and recent history. History is optional:
// the server may run without a database.
func (o *Observer) Observe() (*Snapshot, error) {
	snap := &Snapshot{}

	if err := o.fetchJSON("/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON("/api/v1/colonies", &snap.Colonies); err != nil {
		return nil, fmt.Errorf("fetch colonies: %w", err)
	}
	if err := o.fetchJSON("/api/v1/stats/history?limit=10", &snap.History); err != nil {
		snap.History = nil
	}

	return snap, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(path string, target any) error {
	resp, err := o.HTTPClient.Get(o.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
