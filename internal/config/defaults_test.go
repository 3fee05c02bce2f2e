package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStrategyDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "strategy": "percentile",
  "k": 2.0,
  "percentile": 5,
  "block_size": 15,
  "method": "gaussian",
  "offset": 0.05,
  "workers": 4,
  "clusters": 3,
  "seed": 42
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadStrategyDefaults(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Strategy == nil || *cfg.Strategy != "percentile" {
		t.Errorf("Expected Strategy 'percentile', got %v", cfg.Strategy)
	}
	if cfg.K == nil || *cfg.K != 2.0 {
		t.Errorf("Expected K 2.0, got %v", cfg.K)
	}
	if cfg.Percentile == nil || *cfg.Percentile != 5 {
		t.Errorf("Expected Percentile 5, got %v", cfg.Percentile)
	}
	if cfg.BlockSize == nil || *cfg.BlockSize != 15 {
		t.Errorf("Expected BlockSize 15, got %v", cfg.BlockSize)
	}
	if cfg.Method == nil || *cfg.Method != "gaussian" {
		t.Errorf("Expected Method 'gaussian', got %v", cfg.Method)
	}
	if cfg.Offset == nil || *cfg.Offset != 0.05 {
		t.Errorf("Expected Offset 0.05, got %v", cfg.Offset)
	}
	if cfg.Workers == nil || *cfg.Workers != 4 {
		t.Errorf("Expected Workers 4, got %v", cfg.Workers)
	}
	if cfg.Clusters == nil || *cfg.Clusters != 3 {
		t.Errorf("Expected Clusters 3, got %v", cfg.Clusters)
	}
	if cfg.Seed == nil || *cfg.Seed != 42 {
		t.Errorf("Expected Seed 42, got %v", cfg.Seed)
	}
}

func TestLoadStrategyDefaultsPartial(t *testing.T) {
	// Partial config: only override the percentile; everything else
	// should keep its built-in default.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	partialJSON := `{
  "percentile": 25
}`
	if err := os.WriteFile(configPath, []byte(partialJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadStrategyDefaults(configPath)
	if err != nil {
		t.Fatalf("Failed to load partial config: %v", err)
	}

	if cfg.GetPercentile() != 25 {
		t.Errorf("Expected overridden Percentile 25, got %g", cfg.GetPercentile())
	}
	if cfg.GetStrategy() != "global_statistical" {
		t.Errorf("Expected default Strategy 'global_statistical', got %q", cfg.GetStrategy())
	}
	if cfg.GetK() != 1.5 {
		t.Errorf("Expected default K 1.5, got %g", cfg.GetK())
	}
	if cfg.GetBlockSize() != 31 {
		t.Errorf("Expected default BlockSize 31, got %d", cfg.GetBlockSize())
	}
	if cfg.GetMethod() != "mean" {
		t.Errorf("Expected default Method 'mean', got %q", cfg.GetMethod())
	}
	if cfg.GetClusters() != 2 {
		t.Errorf("Expected default Clusters 2, got %d", cfg.GetClusters())
	}
}

func TestLoadStrategyDefaultsMissing(t *testing.T) {
	_, err := LoadStrategyDefaults("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadStrategyDefaultsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "percentile": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadStrategyDefaults(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestLoadStrategyDefaultsRejectsNonJSON(t *testing.T) {
	_, err := LoadStrategyDefaults("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadStrategyDefaultsRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadStrategyDefaults(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *StrategyDefaults
		wantErr bool
	}{
		{
			name:    "empty config is valid",
			cfg:     &StrategyDefaults{},
			wantErr: false,
		},
		{
			name: "valid full config",
			cfg: &StrategyDefaults{
				Strategy:   ptrString("local_adaptive"),
				K:          ptrFloat64(1.5),
				Percentile: ptrFloat64(10),
				BlockSize:  ptrInt(31),
				Method:     ptrString("mean"),
				Offset:     ptrFloat64(0.02),
				Workers:    ptrInt(0),
				Clusters:   ptrInt(2),
				Seed:       ptrInt64(7),
			},
			wantErr: false,
		},
		{
			name: "unknown strategy",
			cfg: &StrategyDefaults{
				Strategy: ptrString("otsu"),
			},
			wantErr: true,
		},
		{
			name: "percentile at zero",
			cfg: &StrategyDefaults{
				Percentile: ptrFloat64(0),
			},
			wantErr: true,
		},
		{
			name: "percentile at hundred",
			cfg: &StrategyDefaults{
				Percentile: ptrFloat64(100),
			},
			wantErr: true,
		},
		{
			name: "even block size",
			cfg: &StrategyDefaults{
				BlockSize: ptrInt(30),
			},
			wantErr: true,
		},
		{
			name: "negative block size",
			cfg: &StrategyDefaults{
				BlockSize: ptrInt(-3),
			},
			wantErr: true,
		},
		{
			name: "unknown method",
			cfg: &StrategyDefaults{
				Method: ptrString("median"),
			},
			wantErr: true,
		},
		{
			name: "single cluster",
			cfg: &StrategyDefaults{
				Clusters: ptrInt(1),
			},
			wantErr: true,
		},
		{
			name: "negative workers",
			cfg: &StrategyDefaults{
				Workers: ptrInt(-1),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetterDefaults(t *testing.T) {
	cfg := &StrategyDefaults{} // empty config

	if cfg.GetStrategy() != "global_statistical" {
		t.Errorf("GetStrategy() = %q, want 'global_statistical'", cfg.GetStrategy())
	}
	if cfg.GetK() != 1.5 {
		t.Errorf("GetK() = %g, want 1.5", cfg.GetK())
	}
	if cfg.GetPercentile() != 10 {
		t.Errorf("GetPercentile() = %g, want 10", cfg.GetPercentile())
	}
	if cfg.GetBlockSize() != 31 {
		t.Errorf("GetBlockSize() = %d, want 31", cfg.GetBlockSize())
	}
	if cfg.GetMethod() != "mean" {
		t.Errorf("GetMethod() = %q, want 'mean'", cfg.GetMethod())
	}
	if cfg.GetOffset() != 0 {
		t.Errorf("GetOffset() = %g, want 0", cfg.GetOffset())
	}
	if cfg.GetWorkers() != 0 {
		t.Errorf("GetWorkers() = %d, want 0", cfg.GetWorkers())
	}
	if cfg.GetClusters() != 2 {
		t.Errorf("GetClusters() = %d, want 2", cfg.GetClusters())
	}
	if cfg.GetSeed() != 0 {
		t.Errorf("GetSeed() = %d, want 0", cfg.GetSeed())
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg, err := LoadStrategyDefaults("../../config/defaults.json")
	if err != nil {
		t.Fatalf("Failed to load defaults: %v", err)
	}
	if cfg.GetK() != 1.5 {
		t.Errorf("Expected 1.5, got %g", cfg.GetK())
	}
	if cfg.GetBlockSize() != 31 {
		t.Errorf("Expected 31, got %d", cfg.GetBlockSize())
	}
}
