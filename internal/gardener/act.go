package gardener

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// InterventionResult is the response from POST /api/v1/intervention.
type InterventionResult struct {
	Success bool   `json:"success"`
	Details string `json:"details"`
}

// Actor executes interventions via the admin API.
type Actor struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// NewActor creates an Actor targeting the given API base URL with admin auth.
func NewActor(baseURL, adminKey string) *Actor {
	return &Actor{
		BaseURL:    baseURL,
		AdminKey:   adminKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Act posts one intervention. Any non-200 reply is an error carrying the body.
func (a *Actor) Act(ctx context.Context, iv *Intervention) (*InterventionResult, error) {
	body, err := json.Marshal(iv)
	if err != nil {
		return nil, fmt.Errorf("marshal intervention: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/api/v1/intervention", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.AdminKey)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST intervention: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("intervention %s failed (%d): %s", iv.Type, resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var result InterventionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// Steward runs observe, triage, decide and act against one server.
type Steward struct {
	Observer *Observer
	Actor    *Actor
	Rules    Rules
	Memory   *CycleMemory
}

// RunCycle executes one cycle and records it in memory. The returned
// decision says what was attempted; err is set if observing or acting failed.
func (s *Steward) RunCycle(ctx context.Context) (*Decision, error) {
	snap, err := s.Observer.Observe()
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	health := Triage(snap, s.Rules.Comfort)
	slog.Info("observation complete",
		"tick", snap.Status.Status.Tick,
		"colonies", len(snap.Colonies),
		"population", snap.Status.Status.Stats.Population,
		"crisis", health.CrisisLevel,
		"death_birth", fmt.Sprintf("%.2f", health.DeathBirthRatio),
	)

	d := Decide(health, s.Memory, s.Rules)
	rec := CycleRecord{
		Tick:        snap.Status.Status.Tick,
		Action:      d.Action,
		CrisisLevel: health.CrisisLevel.String(),
		DeathBirth:  health.DeathBirthRatio,
		Rationale:   d.Rationale,
	}
	if d.Intervention == nil {
		slog.Info("gardener cycle complete, no intervention", "rationale", d.Rationale)
		s.Memory.Record(rec)
		return d, nil
	}

	d.Intervention.Category = "gardener"
	result, err := s.Actor.Act(ctx, d.Intervention)
	if err != nil {
		rec.Action = "failed"
		s.Memory.Record(rec)
		return d, err
	}
	rec.Colony = d.Intervention.Colony
	rec.Amount = d.Intervention.Amount
	s.Memory.Record(rec)

	slog.Info("intervention executed",
		"type", d.Intervention.Type,
		"colony", d.Intervention.Colony,
		"amount", fmt.Sprintf("%.1f", d.Intervention.Amount),
		"details", result.Details,
	)
	return d, nil
}
