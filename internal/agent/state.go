package agent

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"
)

// State is the durable tracking state. It is written on every distance
// accrual so a crash or restart never loses progress, and cleared when the
// session stops.
type State struct {
	Tracking        bool      `json:"tracking"`
	StartTime       time.Time `json:"start_time"`
	TotalDistanceKm float64   `json:"total_distance_km"`
}

// StateFile persists State as JSON at a fixed path.
type StateFile struct {
	path string
}

// NewStateFile creates a state file handle.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Load reads the persisted state. A missing file yields the zero state.
func (f *StateFile) Load() (State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, err
	}
	return state, nil
}

// Save writes the state.
func (f *StateFile) Save(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

// Clear removes the state file. Clearing an absent file is fine.
func (f *StateFile) Clear() error {
	err := os.Remove(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
