package adapter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
source:
  type: fixture
  path: ./entries.toml
  latency: 250ms
list:
  chunk_size: 25
  separators: true
cache:
  enabled: true
  ttl: 1h
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Source.Type != SourceTypeFixture || cfg.Source.Path != "./entries.toml" {
		t.Fatalf("source = %+v, want fixture ./entries.toml", cfg.Source)
	}
	if cfg.Source.Latency != 250*time.Millisecond {
		t.Fatalf("latency = %v, want 250ms", cfg.Source.Latency)
	}
	if cfg.List.ChunkSize != 25 || !cfg.List.Separators {
		t.Fatalf("list = %+v, want chunk 25 with separators", cfg.List)
	}
	// Untouched keys keep their defaults
	if cfg.List.BatchSize != 10 || cfg.Source.OffsetParam != "offset" {
		t.Fatalf("defaults lost: batch=%d offset_param=%q", cfg.List.BatchSize, cfg.Source.OffsetParam)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != time.Hour {
		t.Fatalf("cache = %+v, want enabled 1h", cfg.Cache)
	}
	if !cfg.IsConfigured() {
		t.Fatal("IsConfigured() = false for a fixture with a path")
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("VSCROLL_SOURCE_URL", "https://api.example.com/items")
	t.Setenv("VSCROLL_LIST_CHUNK_SIZE", "7")
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Source.URL != "https://api.example.com/items" {
		t.Fatalf("source.url = %q, want env override", cfg.Source.URL)
	}
	if cfg.List.ChunkSize != 7 {
		t.Fatalf("list.chunk_size = %d, want 7", cfg.List.ChunkSize)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	want := DefaultConfig()
	want.Source.URL = "https://api.example.com"
	want.List.FrameInterval = 40 * time.Millisecond
	want.UI.Tombstones = 5

	path, err := SaveConfig(want, filepath.Join(t.TempDir(), "nested", "config.yaml"))
	if err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]string{"debug": "DEBUG", "warning": "WARN", "ERROR": "ERROR", "bogus": "INFO"} {
		if got := parseLogLevel(in).String(); got != want {
			t.Fatalf("parseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSetupLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "vscroll.log")
	logger, closer, err := SetupLogger(&LoggingConfig{File: path, Level: "debug"})
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	logger.Info("hello", "k", 1)
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}
}
