// Package config loads the per-run Config/Globals record (spec §9's
// redesign note for "Global mutable state in the source"), grounded on the
// teacher's config.go precedence chain and JSONC parsing.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"

	"github.com/kestrelsec/munge/internal/analyzer"
)

// ConfigFileName is the default project config file name.
const ConfigFileName = ".munge.json"

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigFileRead     = errors.New("cannot read config file")
	errConfigInvalid      = errors.New("invalid config file")
)

// Config is the per-run record injected into the orchestrator and passed by
// reference into every core, replacing the source's global mutable state
// (spec §9).
type Config struct {
	MaxLen            int           `json:"max_len"`
	MaxTR             uint8         `json:"max_tr"`
	MaxGR             uint8         `json:"max_gr"`
	MaxBtrrLen        int           `json:"max_btrr_len"`
	RepetitionCap     int           `json:"repetition_cap"`
	DesiredContenders int           `json:"desired_contenders"`
	PhysicalCores     int           `json:"physical_cores,omitempty"`
	FlushThreshold    int           `json:"flush_threshold"`
	FlushIntervalSec  int           `json:"flush_interval_seconds"`
	CheckpointDebug   bool          `json:"checkpoint_debug"`
	ScoringMode       analyzer.Mode `json:"scoring_mode"`
	Quiet             bool          `json:"quiet"`
	CreateMungeFailDB bool          `json:"create_munge_fail_db"`
	CreateBtrFailDB   bool          `json:"create_btr_fail_db"`
	RequiredPassCount uint32        `json:"required_pass_count"`
	StateDir          string        `json:"state_dir"`

	// PreferredGR gives the preferred global-rounds value per input data
	// type, consulted by MungeCore step 6b and as BtrCore's --starting-round
	// default (spec §4.6, §4.7).
	PreferredGR map[byte]uint32 `json:"preferred_gr"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		MaxLen:            5,
		MaxTR:             9,
		MaxGR:             9,
		MaxBtrrLen:        5,
		RepetitionCap:     2,
		DesiredContenders: 1000,
		FlushThreshold:    256,
		FlushIntervalSec:  120,
		CheckpointDebug:   false,
		ScoringMode:       analyzer.ModeBalanced,
		RequiredPassCount: 6,
		StateDir:          ".munge",
		PreferredGR: map[byte]uint32{
			'S': 3, 'N': 3, 'C': 3, 'R': 3, 'U': 3,
		},
	}
}

// PreferredGRFor returns the preferred global-rounds value for dataType,
// defaulting to 3 if unset.
func (c Config) PreferredGRFor(dataType byte) uint32 {
	if gr, ok := c.PreferredGR[dataType]; ok {
		return gr
	}

	return 3
}

// CheckpointInterval returns the checkpoint cadence: 10 minutes in debug
// mode, 1 hour in release (spec §4.6 step 6f, §5).
func (c Config) CheckpointInterval() time.Duration {
	if c.CheckpointDebug {
		return 10 * time.Minute
	}

	return time.Hour
}

// FlushInterval returns flush_interval_seconds as a Duration (default 120s).
// BtrCore and BtrrCore do not read it: their status digests use a fixed
// 120-second interval.
func (c Config) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSec) * time.Second
}

// Load applies the precedence chain: defaults, then one config file, then
// CLI overrides (applied by the caller after Load returns). The file is
// explicitPath when given (it must exist); otherwise it is the optional
// project file in workDir. The two files are never layered on each other.
func Load(workDir, explicitPath string) (Config, error) {
	cfg := Default()

	path := explicitPath
	mustExist := explicitPath != ""

	if path == "" {
		path = filepath.Join(workDir, ConfigFileName)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is operator-controlled, same as the teacher's config loader
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, fmt.Errorf("%w: %s", errConfigFileNotFound, path)
			}

			return cfg, nil
		}

		return Config{}, fmt.Errorf("%w: %s: %w", errConfigFileRead, path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: invalid JSONC: %w", errConfigInvalid, path, err)
	}

	overlay := Default()

	if err := json.Unmarshal(standardized, &overlay); err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	return merge(cfg, overlay, standardized), nil
}

// merge overlays only the fields explicitly present in raw JSON, the way
// the teacher's mergeConfig does for ticket_dir/editor.
func merge(base, overlay Config, raw []byte) Config {
	var present map[string]json.RawMessage

	if err := json.Unmarshal(raw, &present); err != nil {
		return base
	}

	result := base

	if _, ok := present["max_len"]; ok {
		result.MaxLen = overlay.MaxLen
	}

	if _, ok := present["max_tr"]; ok {
		result.MaxTR = overlay.MaxTR
	}

	if _, ok := present["max_gr"]; ok {
		result.MaxGR = overlay.MaxGR
	}

	if _, ok := present["max_btrr_len"]; ok {
		result.MaxBtrrLen = overlay.MaxBtrrLen
	}

	if _, ok := present["repetition_cap"]; ok {
		result.RepetitionCap = overlay.RepetitionCap
	}

	if _, ok := present["desired_contenders"]; ok {
		result.DesiredContenders = overlay.DesiredContenders
	}

	if _, ok := present["physical_cores"]; ok {
		result.PhysicalCores = overlay.PhysicalCores
	}

	if _, ok := present["flush_threshold"]; ok {
		result.FlushThreshold = overlay.FlushThreshold
	}

	if _, ok := present["flush_interval_seconds"]; ok {
		result.FlushIntervalSec = overlay.FlushIntervalSec
	}

	if _, ok := present["checkpoint_debug"]; ok {
		result.CheckpointDebug = overlay.CheckpointDebug
	}

	if _, ok := present["scoring_mode"]; ok {
		result.ScoringMode = overlay.ScoringMode
	}

	if _, ok := present["quiet"]; ok {
		result.Quiet = overlay.Quiet
	}

	if _, ok := present["create_munge_fail_db"]; ok {
		result.CreateMungeFailDB = overlay.CreateMungeFailDB
	}

	if _, ok := present["create_btr_fail_db"]; ok {
		result.CreateBtrFailDB = overlay.CreateBtrFailDB
	}

	if _, ok := present["required_pass_count"]; ok {
		result.RequiredPassCount = overlay.RequiredPassCount
	}

	if _, ok := present["state_dir"]; ok {
		result.StateDir = overlay.StateDir
	}

	if _, ok := present["preferred_gr"]; ok {
		result.PreferredGR = overlay.PreferredGR
	}

	return result
}
