package rover

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"rover/costsurface"
	"rover/internal/pathcache"
	"rover/internal/resolve"
	"rover/internal/stuck"
)

const (
	DefaultAvoidanceRadius = 3
	DefaultFollowThreshold = 2
	// DefaultEscalatedMaxOps is the search budget once an agent reaches the
	// increase-ops tier.
	DefaultEscalatedMaxOps = 4 * pathcache.DefaultMaxOps
	MinShoveDepth          = 1
	MaxShoveDepth          = 10
)

// Config tunes the engine. Zero values are replaced by defaults.
type Config struct {
	ReusePathLength uint16              `yaml:"reuse_path_length"`
	Lookahead       int                 `yaml:"lookahead"`
	MaxShoveDepth   int                 `yaml:"max_shove_depth"`
	AvoidanceRadius uint8               `yaml:"avoidance_radius"`
	FollowThreshold uint32              `yaml:"follow_threshold"`
	MaxOps          int                 `yaml:"max_ops"`
	EscalatedMaxOps int                 `yaml:"escalated_max_ops"`
	Thresholds      stuck.Thresholds    `yaml:"thresholds"`
	Surface         costsurface.Options `yaml:"surface"`
}

func DefaultConfig() Config {
	return Config{
		ReusePathLength: pathcache.DefaultReusePathLength,
		Lookahead:       pathcache.DefaultLookahead,
		MaxShoveDepth:   resolve.DefaultMaxShoveDepth,
		AvoidanceRadius: DefaultAvoidanceRadius,
		FollowThreshold: DefaultFollowThreshold,
		MaxOps:          pathcache.DefaultMaxOps,
		EscalatedMaxOps: DefaultEscalatedMaxOps,
		Thresholds:      stuck.DefaultThresholds(),
		Surface:         costsurface.DefaultOptions(),
	}
}

func (cfg Config) normalized() Config {
	normalized := cfg
	defaults := DefaultConfig()
	if normalized.ReusePathLength == 0 {
		normalized.ReusePathLength = defaults.ReusePathLength
	}
	if normalized.Lookahead <= 0 {
		normalized.Lookahead = defaults.Lookahead
	}
	if normalized.MaxShoveDepth <= 0 {
		normalized.MaxShoveDepth = defaults.MaxShoveDepth
	}
	if normalized.AvoidanceRadius == 0 {
		normalized.AvoidanceRadius = defaults.AvoidanceRadius
	}
	if normalized.FollowThreshold == 0 {
		normalized.FollowThreshold = defaults.FollowThreshold
	}
	if normalized.MaxOps <= 0 {
		normalized.MaxOps = defaults.MaxOps
	}
	if normalized.EscalatedMaxOps < normalized.MaxOps {
		normalized.EscalatedMaxOps = max(defaults.EscalatedMaxOps, normalized.MaxOps)
	}
	if normalized.Thresholds == (stuck.Thresholds{}) {
		normalized.Thresholds = defaults.Thresholds
	}
	if normalized.Surface == (costsurface.Options{}) {
		normalized.Surface = defaults.Surface
	}
	return normalized
}

// Validate reports settings that cannot be normalized away.
func (cfg Config) Validate() error {
	if cfg.MaxShoveDepth < MinShoveDepth || cfg.MaxShoveDepth > MaxShoveDepth {
		return fmt.Errorf("max shove depth %d outside [%d, %d]", cfg.MaxShoveDepth, MinShoveDepth, MaxShoveDepth)
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads a YAML file over the defaults, expanding environment
// variables in the file, then applies ROVER_* overrides. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else {
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg = cfg.normalized()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("ROVER_REUSE_PATH_LENGTH"); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("ROVER_REUSE_PATH_LENGTH: %w", err)
		}
		cfg.ReusePathLength = uint16(n)
	}
	if v := os.Getenv("ROVER_MAX_SHOVE_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ROVER_MAX_SHOVE_DEPTH: %w", err)
		}
		cfg.MaxShoveDepth = n
	}
	if v := os.Getenv("ROVER_AVOIDANCE_RADIUS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("ROVER_AVOIDANCE_RADIUS: %w", err)
		}
		cfg.AvoidanceRadius = uint8(n)
	}
	return nil
}
