package gardener

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

const maxRecords = 20

// CycleRecord captures what happened in a single steward cycle.
type CycleRecord struct {
	Tick        uint64  `json:"tick"`
	Action      string  `json:"action"`
	CrisisLevel string  `json:"crisis_level"`
	DeathBirth  float64 `json:"death_birth_ratio"`
	Colony      uint32  `json:"colony,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Rationale   string  `json:"rationale,omitempty"`
}

// CycleMemory keeps a ring of recent cycle records.
type CycleMemory struct {
	Records []CycleRecord `json:"records"`
}

// LoadMemory reads the memory file. A missing or corrupt file gives empty memory.
func LoadMemory(path string) *CycleMemory {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("gardener memory unreadable, starting fresh", "error", err)
		}
		return &CycleMemory{}
	}
	var mem CycleMemory
	if err := json.Unmarshal(data, &mem); err != nil {
		slog.Warn("gardener memory corrupted, starting fresh", "error", err)
		return &CycleMemory{}
	}
	return &mem
}

// Save writes the memory to path.
func (m *CycleMemory) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal gardener memory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write gardener memory: %w", err)
	}
	return nil
}

// Record adds a cycle record, trimming to maxRecords.
func (m *CycleMemory) Record(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// RecentlyHelped reports whether colony was provisioned in the last cycles records.
func (m *CycleMemory) RecentlyHelped(colony uint32, cycles int) bool {
	start := max(len(m.Records)-cycles, 0)
	for _, r := range m.Records[start:] {
		if r.Action == "provision" && r.Colony == colony {
			return true
		}
	}
	return false
}
