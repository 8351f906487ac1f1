package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/agentcore/internal/model"
)

func TestInitViperDefaults(t *testing.T) {
	dir := t.TempDir()
	v, err := InitViper(dir)
	if err != nil {
		t.Fatalf("init viper: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	d := NewDefaultConfig()
	if cfg.Storage.Provider != d.Storage.Provider {
		t.Errorf("storage.provider = %q, want %q", cfg.Storage.Provider, d.Storage.Provider)
	}
	if cfg.Storage.SQLitePath != filepath.Join(dir, defaultSQLiteFile) {
		t.Errorf("storage.sqlite_path = %q", cfg.Storage.SQLitePath)
	}
	if cfg.Memory.MinConfidence != 0.5 {
		t.Errorf("memory.min_confidence = %v, want 0.5", cfg.Memory.MinConfidence)
	}
	if cfg.Embedding.CacheSize != d.Embedding.CacheSize {
		t.Errorf("embedding.cache_size = %d", cfg.Embedding.CacheSize)
	}
	if got := cfg.Composer.ProviderTimeoutDuration(); got != 10*time.Second {
		t.Errorf("provider timeout = %v", got)
	}
}

func TestInitViperPrecedence(t *testing.T) {
	dir := t.TempDir()
	data := `version = 0

[storage]
provider = "memory"

[memory]
min_confidence = 0.7
long_term_limit = 5
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AGENTCORE_MEMORY_LONG_TERM_LIMIT", "9")

	v, err := InitViper(dir)
	if err != nil {
		t.Fatalf("init viper: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Provider != "memory" {
		t.Errorf("file value not applied: %q", cfg.Storage.Provider)
	}
	if cfg.Memory.MinConfidence != 0.7 {
		t.Errorf("min_confidence = %v, want 0.7", cfg.Memory.MinConfidence)
	}
	if cfg.Memory.LongTermLimit != 9 {
		t.Errorf("env should override file: long_term_limit = %d", cfg.Memory.LongTermLimit)
	}
	if cfg.Agent.ID != defaultAgentID {
		t.Errorf("default not applied: agent.id = %q", cfg.Agent.ID)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"storage provider", "AGENTCORE_STORAGE_PROVIDER", "mongo"},
		{"embedding provider", "AGENTCORE_EMBEDDING_PROVIDER", "cohere"},
		{"confidence range", "AGENTCORE_MEMORY_MIN_CONFIDENCE", "1.5"},
		{"duration", "AGENTCORE_COMPOSER_TURN_TIMEOUT", "soon"},
		{"cache size", "AGENTCORE_EMBEDDING_CACHE_SIZE", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			v, err := InitViper(t.TempDir())
			if err != nil {
				t.Fatalf("init viper: %v", err)
			}
			_, err = Load(v)
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := NewDefaultConfig()
	cfg.Agent.ID = "eliza"
	cfg.Storage.Provider = "redis"
	cfg.Memory.UseSimilarity = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if got.Agent.ID != "eliza" || got.Storage.Provider != "redis" || !got.Memory.UseSimilarity {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Memory.MinConfidence != cfg.Memory.MinConfidence {
		t.Errorf("min_confidence = %v", got.Memory.MinConfidence)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Provider != defaultStorageProvider {
		t.Errorf("expected defaults, got %+v", cfg.Storage)
	}
}

func TestParseTOMLVersion(t *testing.T) {
	if _, err := ParseTOML([]byte("version = 3\n")); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := ParseTOML([]byte("version = \n")); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveNil(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), FileName), nil); err == nil {
		t.Error("expected error")
	}
}
