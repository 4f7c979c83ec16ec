package cli

import (
	"os"
	"path/filepath"
	"testing"

	"extpack/internal/config"
)

func TestConfigInit_RefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".extpack.toml")
	if err := os.WriteFile(path, []byte("jobs = 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath, configForce = path, false
	t.Cleanup(func() { configPath, configForce = config.DefaultConfigFileName, false })

	if err := runConfigInit(configInitCmd, nil); err == nil {
		t.Fatal("expected error for an existing config file")
	}
}

func TestConfigInit_ForceWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".extpack.toml")
	if err := os.WriteFile(path, []byte("jobs = 8\nbaseline_ref = \"origin/release\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath, configForce = path, true
	t.Cleanup(func() { configPath, configForce = config.DefaultConfigFileName, false })

	if err := runConfigInit(configInitCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := config.DefaultConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Jobs != config.DefaultJobs {
		t.Errorf("Jobs = %d, want %d", cfg.Jobs, config.DefaultJobs)
	}
	if cfg.BaselineRef != config.DefaultBaselineRef {
		t.Errorf("BaselineRef = %q, want %q", cfg.BaselineRef, config.DefaultBaselineRef)
	}
}
