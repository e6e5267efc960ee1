package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stitts-dev/nba-ripple/internal/types"
)

// Formulation selects how the ripple models produce injury-aware
// predictions.
type Formulation int

const (
	// FormulationFull predicts the stat directly from baseline plus injury
	// features.
	FormulationFull Formulation = iota
	// FormulationDelta predicts the injury-driven deviation from the
	// player's season average, added back at serving time.
	FormulationDelta
)

// String implements fmt.Stringer.
func (f Formulation) String() string {
	if f == FormulationDelta {
		return "delta"
	}
	return "full"
}

// MarshalJSON encodes the formulation as its string name.
func (f Formulation) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes "full" or "delta".
func (f *Formulation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "full":
		*f = FormulationFull
	case "delta":
		*f = FormulationDelta
	default:
		return fmt.Errorf("unknown formulation %q", s)
	}
	return nil
}

// Metadata records how the shipped ripple models were trained and selected.
type Metadata struct {
	Formulation      Formulation        `json:"formulation"`
	TrainedAt        time.Time          `json:"trained_at"`
	SplitDate        string             `json:"split_date"`
	TrainRows        int                `json:"train_rows"`
	TestRows         int                `json:"test_rows"`
	Sensitivity      map[string]float64 `json:"sensitivity"`
	BaselineMetrics  map[string]Metrics `json:"baseline_metrics"`
	RippleMetrics    map[string]Metrics `json:"ripple_metrics"`
	RidgeMetrics     map[string]Metrics `json:"ridge_metrics"`
	SensitivityStats string             `json:"sensitivity_note,omitempty"`
}

// Bundle is everything the serving layer needs: per-stat baseline and ripple
// models, the exact feature orders they were trained with, and the training
// metadata.
type Bundle struct {
	Baseline         map[string]*GBRT
	Ripple           map[string]*GBRT
	BaselineFeatures []string
	RippleFeatures   []string
	Metadata         Metadata
}

func baselinePath(dir, stat string) string {
	return filepath.Join(dir, fmt.Sprintf("baseline_%s.json", stat))
}

func ripplePath(dir, stat string) string {
	return filepath.Join(dir, fmt.Sprintf("ripple_%s.json", stat))
}

// Save writes every artifact under dir, creating it if needed.
func (b *Bundle) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}
	for stat, m := range b.Baseline {
		if err := writeJSON(baselinePath(dir, stat), m); err != nil {
			return err
		}
	}
	for stat, m := range b.Ripple {
		if err := writeJSON(ripplePath(dir, stat), m); err != nil {
			return err
		}
	}
	if err := writeJSON(filepath.Join(dir, "baseline_features.json"), b.BaselineFeatures); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "ripple_features.json"), b.RippleFeatures); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, "metadata.json"), b.Metadata)
}

// Load reads the artifacts for the given stats from dir. A missing model or
// feature-list file is an artifact error the API maps to 503; a missing
// metadata file falls back to the full formulation for compatibility with
// bundles written before formulation selection existed.
func Load(dir string, stats []string) (*Bundle, error) {
	b := &Bundle{
		Baseline: make(map[string]*GBRT, len(stats)),
		Ripple:   make(map[string]*GBRT, len(stats)),
	}
	for _, stat := range stats {
		var base GBRT
		if err := readJSON(baselinePath(dir, stat), &base); err != nil {
			return nil, err
		}
		b.Baseline[stat] = &base

		var ripple GBRT
		if err := readJSON(ripplePath(dir, stat), &ripple); err != nil {
			return nil, err
		}
		b.Ripple[stat] = &ripple
	}
	if err := readJSON(filepath.Join(dir, "baseline_features.json"), &b.BaselineFeatures); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "ripple_features.json"), &b.RippleFeatures); err != nil {
		return nil, err
	}

	metaPath := filepath.Join(dir, "metadata.json")
	if _, err := os.Stat(metaPath); os.IsNotExist(err) {
		b.Metadata = Metadata{Formulation: FormulationFull}
		return b, nil
	}
	if err := readJSON(metaPath, &b.Metadata); err != nil {
		return nil, err
	}
	return b, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.ArtifactMissingf("model artifact %s", filepath.Base(path))
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
