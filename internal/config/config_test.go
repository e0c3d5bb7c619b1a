package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// TestNewConfig pins the default values so changes to them are intentional.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default BaseURL", func(t *testing.T) {
		t.Parallel()
		if cfg.BaseURL != "https://www.librarything.com/mds/" {
			t.Errorf("unexpected BaseURL %q", cfg.BaseURL)
		}
	})

	t.Run("default range covers the whole keyspace", func(t *testing.T) {
		t.Parallel()
		if cfg.From != "000.0" || cfg.To != "999.9" {
			t.Errorf("expected 000.0..999.9, got %s..%s", cfg.From, cfg.To)
		}
	})

	t.Run("default Workers is NumCPU", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != runtime.NumCPU() {
			t.Errorf("expected %d workers, got %d", runtime.NumCPU(), cfg.Workers)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default MaxBodySize is 5MB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxBodySize != 5*1024*1024 {
			t.Errorf("expected 5MB, got %d", cfg.MaxBodySize)
		}
	})

	t.Run("default RootKey is root", func(t *testing.T) {
		t.Parallel()
		if cfg.RootKey != "root" {
			t.Errorf("expected root, got %q", cfg.RootKey)
		}
	})

	t.Run("default formats are csv and json", func(t *testing.T) {
		t.Parallel()
		if !cfg.HasFormat(FormatCSV) || !cfg.HasFormat(FormatJSON) {
			t.Errorf("expected csv and json, got %v", cfg.Formats)
		}
		if cfg.HasFormat(FormatXLSX) {
			t.Error("xlsx should not be selected by default")
		}
	})

	t.Run("runs are saved to the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("Headers map is initialized", func(t *testing.T) {
		t.Parallel()
		if cfg.Headers == nil {
			t.Error("expected Headers to be non-nil")
		}
	})

	t.Run("defaults validate", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected defaults to validate, got %v", err)
		}
	})
}

func TestNewConfigFormatsAreIndependent(t *testing.T) {
	t.Parallel()

	a := NewConfig()
	a.Formats[0] = FormatXLSX

	b := NewConfig()
	if b.Formats[0] != FormatCSV {
		t.Errorf("mutating one config leaked into another: %v", b.Formats)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty base URL", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: ErrEmptyBaseURL},
		{name: "zero workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: ErrInvalidWorkers},
		{name: "negative workers", mutate: func(c *Config) { c.Workers = -2 }, wantErr: ErrInvalidWorkers},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "zero body size", mutate: func(c *Config) { c.MaxBodySize = 0 }, wantErr: ErrInvalidMaxBodySize},
		{name: "empty root key", mutate: func(c *Config) { c.RootKey = "" }, wantErr: ErrEmptyRootKey},
		{name: "no formats", mutate: func(c *Config) { c.Formats = nil }, wantErr: ErrNoOutputFormat},
		{name: "unknown format", mutate: func(c *Config) { c.Formats = []string{"csv", "pdf"} }, wantErr: ErrUnknownFormat},
		{name: "all formats", mutate: func(c *Config) { c.Formats = SupportedFormats }},
		{name: "db without dir", mutate: func(c *Config) { c.DBDir = "" }, wantErr: ErrEmptyDBDir},
		{name: "no db and no dir", mutate: func(c *Config) { c.SaveToDB = false; c.DBDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFileApply(t *testing.T) {
	t.Parallel()

	t.Run("empty file keeps defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		(&File{}).Apply(cfg)

		want := NewConfig()
		if cfg.BaseURL != want.BaseURL || cfg.Workers != want.Workers || cfg.RootKey != want.RootKey {
			t.Errorf("empty file changed config: %+v", cfg)
		}
	})

	t.Run("file values override defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		f := &File{
			Source: SourceConfig{
				BaseURL:   "http://localhost:8080/mds/",
				UserAgent: "test-agent",
				Headers:   map[string]string{"Accept-Language": "en"},
				Workers:   3,
				Timeout:   5 * time.Second,
			},
			Output: OutputConfig{
				Dir:     "out",
				Formats: []string{FormatXLSX},
				RootKey: "ddc",
			},
		}
		f.Apply(cfg)

		if cfg.BaseURL != "http://localhost:8080/mds/" {
			t.Errorf("BaseURL = %q", cfg.BaseURL)
		}
		if cfg.UserAgent != "test-agent" {
			t.Errorf("UserAgent = %q", cfg.UserAgent)
		}
		if cfg.Headers["Accept-Language"] != "en" {
			t.Errorf("Headers = %v", cfg.Headers)
		}
		if cfg.Workers != 3 {
			t.Errorf("Workers = %d", cfg.Workers)
		}
		if cfg.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v", cfg.Timeout)
		}
		if cfg.OutputDir != "out" {
			t.Errorf("OutputDir = %q", cfg.OutputDir)
		}
		if len(cfg.Formats) != 1 || cfg.Formats[0] != FormatXLSX {
			t.Errorf("Formats = %v", cfg.Formats)
		}
		if cfg.RootKey != "ddc" {
			t.Errorf("RootKey = %q", cfg.RootKey)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.mdscrape")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".mdscrape")
		content := `source:
  base_url: "http://127.0.0.1/mds/"
  workers: 4
  timeout: 10s
  headers:
    Accept-Language: "en-US"
output:
  dir: "artifacts"
  formats:
    - csv
    - markdown
  root_key: "classes"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cf.Source.BaseURL != "http://127.0.0.1/mds/" {
			t.Errorf("base_url = %q", cf.Source.BaseURL)
		}
		if cf.Source.Workers != 4 {
			t.Errorf("workers = %d", cf.Source.Workers)
		}
		if cf.Source.Timeout != 10*time.Second {
			t.Errorf("timeout = %v", cf.Source.Timeout)
		}
		if cf.Source.Headers["Accept-Language"] != "en-US" {
			t.Errorf("headers = %v", cf.Source.Headers)
		}
		if cf.Output.Dir != "artifacts" {
			t.Errorf("dir = %q", cf.Output.Dir)
		}
		if strings.Join(cf.Output.Formats, ",") != "csv,markdown" {
			t.Errorf("formats = %v", cf.Output.Formats)
		}
		if cf.Output.RootKey != "classes" {
			t.Errorf("root_key = %q", cf.Output.RootKey)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".mdscrape")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("source: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if got := FindConfigFile(configPath); got != configPath {
			t.Errorf("expected %q, got %q", configPath, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("XDGDataDir %q should end with %q", XDGDataDir(), AppName)
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("XDGConfigDir %q should end with %q", XDGConfigDir(), AppName)
	}
}
