package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildConfigRequiresModelForAudio(t *testing.T) {
	if _, err := buildConfig(options{workersRaw: "1", set: map[string]bool{}}); err == nil {
		t.Fatal("expected error without model in audio mode")
	}
}

func TestBuildConfigSpeechDefaults(t *testing.T) {
	cfg, err := buildConfig(options{speech: true, workersRaw: "2", set: map[string]bool{"speech": true}})
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if !cfg.Speech || cfg.Workers != 2 || cfg.UnscaledSpeechMapping {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestBuildConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.json")
	content := `{"mode": "audio", "model_path": "svr.model", "search_radius": 10, "workers": 3}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := buildConfig(options{
		configPath:   path,
		searchRadius: 4,
		workersRaw:   "1",
		set:          map[string]bool{"config": true, "search-radius": true},
	})
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.ModelPath != filepath.Join(dir, "svr.model") {
		t.Fatalf("model path %q", cfg.ModelPath)
	}
	if cfg.SearchRadius != 4 {
		t.Fatalf("search radius %d, want flag value 4", cfg.SearchRadius)
	}
	if cfg.Workers != 3 {
		t.Fatalf("workers %d, want config value 3", cfg.Workers)
	}
}

func TestBuildConfigRejectsBadWorkers(t *testing.T) {
	_, err := buildConfig(options{speech: true, workersRaw: "zero", set: map[string]bool{"workers": true}})
	if err == nil {
		t.Fatal("expected workers error")
	}
}
