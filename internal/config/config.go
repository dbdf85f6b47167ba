// Package config loads the YAML configuration for a cruscan run,
// mirroring the teacher's Config/LoadConfig/DefaultConfig shape.
package config

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"
)

// Config is the full set of knobs a cruscan run reads from YAML, layered
// on top of DefaultConfig.
type Config struct {
	// InputPath is the file to read; nil means read from stdin.
	InputPath *string `yaml:"input_path"`
	// OutputPath is where the filter writer sends matching records;
	// "stdout" (the default) means standard output.
	OutputPath string `yaml:"output_path"`
	// FilterLink restricts processing to a single link ID; nil keeps
	// every link.
	FilterLink *uint8 `yaml:"filter_link"`
	// CheckMode selects which validation runs: "none", "sanity" (per-word
	// only), or "all" (sanity plus cross-word).
	CheckMode string `yaml:"check_mode"`
	// System pins the ITS specialization ("its") or leaves the sanity
	// bounds unconstrained ("unspecified").
	System string `yaml:"system"`
	// FlushThreshold bounds the filter writer's buffered size before a
	// flush.
	FlushThreshold datasize.ByteSize `yaml:"flush_threshold"`
	// ChunkSize is the number of CDPs the reader requests per GetChunk.
	ChunkSize int `yaml:"chunk_size"`
	// ChannelCapacity bounds the reader->validator channel.
	ChannelCapacity int `yaml:"channel_capacity"`
	// View enables the HBF text view instead of (or alongside) stats.
	View bool `yaml:"view"`
	// RdhVersion picks which RDHCRU phantom type the pipeline is
	// instantiated with: "v6" or "v7". The wire revision isn't
	// self-describing in the byte stream's own fields, so it must be
	// told, not sniffed.
	RdhVersion string `yaml:"rdh_version"`
}

// CheckMode values.
const (
	CheckModeNone   = "none"
	CheckModeSanity = "sanity"
	CheckModeAll    = "all"
)

// System values.
const (
	SystemITS         = "its"
	SystemUnspecified = "unspecified"
)

// RdhVersion values.
const (
	RdhVersionV6 = "v6"
	RdhVersionV7 = "v7"
)

// DefaultConfig returns the defaults spec.md names, plus the ambient
// fields this expansion adds.
func DefaultConfig() *Config {
	return &Config{
		OutputPath:      "stdout",
		CheckMode:       CheckModeAll,
		System:          SystemUnspecified,
		FlushThreshold:  1 * datasize.MB,
		ChunkSize:       100,
		ChannelCapacity: 100,
		RdhVersion:      RdhVersionV7,
	}
}

// LoadConfig reads a YAML file at path into a Config seeded from
// DefaultConfig, so unset fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
