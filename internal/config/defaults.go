package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical strategy defaults file.
// This is the single source of truth for default threshold parameters.
const DefaultConfigPath = "config/defaults.json"

// StrategyDefaults represents the default threshold parameters loaded at
// startup. All fields are pointers so a partial JSON file overrides only
// the parameters it names; explicit command-line flags always win over
// values loaded from here.
type StrategyDefaults struct {
	// Strategy selection
	Strategy *string `json:"strategy,omitempty"`

	// global_statistical params
	K *float64 `json:"k,omitempty"`

	// percentile params
	Percentile *float64 `json:"percentile,omitempty"`

	// local_adaptive params
	BlockSize *int     `json:"block_size,omitempty"`
	Method    *string  `json:"method,omitempty"` // "mean" or "gaussian"
	Offset    *float64 `json:"offset,omitempty"`
	Workers   *int     `json:"workers,omitempty"`

	// clustering params
	Clusters *int   `json:"clusters,omitempty"`
	Seed     *int64 `json:"seed,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyStrategyDefaults returns a StrategyDefaults with all fields set
// to nil. Use LoadStrategyDefaults to load actual values from a file.
func EmptyStrategyDefaults() *StrategyDefaults {
	return &StrategyDefaults{}
}

// LoadStrategyDefaults loads a StrategyDefaults from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// built-in defaults, so partial configs are safe.
func LoadStrategyDefaults(path string) (*StrategyDefaults, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyStrategyDefaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid. It repeats
// only the checks that can be done without raster data; data-dependent
// failures surface when the strategy runs.
func (c *StrategyDefaults) Validate() error {
	if c.Strategy != nil {
		switch *c.Strategy {
		case "global_statistical", "percentile", "local_adaptive", "clustering":
		default:
			return fmt.Errorf("unknown strategy %q", *c.Strategy)
		}
	}

	if c.Percentile != nil {
		if *c.Percentile <= 0 || *c.Percentile >= 100 {
			return fmt.Errorf("percentile must be in (0,100), got %g", *c.Percentile)
		}
	}

	if c.BlockSize != nil {
		if *c.BlockSize <= 0 || *c.BlockSize%2 == 0 {
			return fmt.Errorf("block_size must be a positive odd integer, got %d", *c.BlockSize)
		}
	}

	if c.Method != nil {
		if *c.Method != "mean" && *c.Method != "gaussian" {
			return fmt.Errorf("method must be 'mean' or 'gaussian', got %q", *c.Method)
		}
	}

	if c.Clusters != nil {
		if *c.Clusters < 2 {
			return fmt.Errorf("clusters must be at least 2, got %d", *c.Clusters)
		}
	}

	if c.Workers != nil {
		if *c.Workers < 0 {
			return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
		}
	}

	return nil
}

// GetStrategy returns the strategy name or the default.
func (c *StrategyDefaults) GetStrategy() string {
	if c.Strategy == nil {
		return "global_statistical"
	}
	return *c.Strategy
}

// GetK returns the k value or the default.
func (c *StrategyDefaults) GetK() float64 {
	if c.K == nil {
		return 1.5
	}
	return *c.K
}

// GetPercentile returns the percentile value or the default.
func (c *StrategyDefaults) GetPercentile() float64 {
	if c.Percentile == nil {
		return 10
	}
	return *c.Percentile
}

// GetBlockSize returns the block_size value or the default.
func (c *StrategyDefaults) GetBlockSize() int {
	if c.BlockSize == nil {
		return 31
	}
	return *c.BlockSize
}

// GetMethod returns the method value or the default.
func (c *StrategyDefaults) GetMethod() string {
	if c.Method == nil {
		return "mean"
	}
	return *c.Method
}

// GetOffset returns the offset value or the default.
func (c *StrategyDefaults) GetOffset() float64 {
	if c.Offset == nil {
		return 0
	}
	return *c.Offset
}

// GetWorkers returns the workers value or the default.
func (c *StrategyDefaults) GetWorkers() int {
	if c.Workers == nil {
		return 0 // 0 means GOMAXPROCS
	}
	return *c.Workers
}

// GetClusters returns the clusters value or the default.
func (c *StrategyDefaults) GetClusters() int {
	if c.Clusters == nil {
		return 2
	}
	return *c.Clusters
}

// GetSeed returns the seed value or the default.
func (c *StrategyDefaults) GetSeed() int64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}
