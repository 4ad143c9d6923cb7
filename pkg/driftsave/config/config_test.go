package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GzipLevel != DefaultGzipLevel {
		t.Errorf("GzipLevel = %d, want %d", cfg.GzipLevel, DefaultGzipLevel)
	}
	if cfg.Checksum != DefaultChecksum {
		t.Errorf("Checksum = %q, want %q", cfg.Checksum, DefaultChecksum)
	}
	if cfg.Format != DefaultFormat {
		t.Errorf("Format = %q, want %q", cfg.Format, DefaultFormat)
	}
	if cfg.Report.MaxWarnings != DefaultMaxWarnings {
		t.Errorf("Report.MaxWarnings = %d, want %d", cfg.Report.MaxWarnings, DefaultMaxWarnings)
	}
	if !cfg.History.Enabled {
		t.Error("History.Enabled = false, want true")
	}
	if cfg.History.RetentionDays != DefaultRetentionDays {
		t.Errorf("History.RetentionDays = %d, want %d", cfg.History.RetentionDays, DefaultRetentionDays)
	}
	if !cfg.Index.Enabled {
		t.Error("Index.Enabled = false, want true")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Watch.Debounce = %v, want 500ms", cfg.Watch.Debounce)
	}
	if cfg.Logging.Rotation.MaxSize != "10MB" {
		t.Errorf("Logging.Rotation.MaxSize = %q, want 10MB", cfg.Logging.Rotation.MaxSize)
	}
	if cfg.WorkRoot != DefaultWorkRoot() {
		t.Errorf("WorkRoot = %q, want %q", cfg.WorkRoot, DefaultWorkRoot())
	}
}

func TestLoad_FromFile(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, ".config", "driftsave")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
work_root: ~/saves/work
gzip_level: 6
checksum: blake3
workers: 2
format: json
report:
  max_warnings: 3
history:
  enabled: false
  retention_days: 7
watch:
  debounce: 2s
logging:
  level: debug
`
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := filepath.Join(tempDir, "saves", "work"); cfg.WorkRoot != want {
		t.Errorf("WorkRoot = %q, want %q", cfg.WorkRoot, want)
	}
	if cfg.GzipLevel != 6 {
		t.Errorf("GzipLevel = %d, want 6", cfg.GzipLevel)
	}
	if cfg.Checksum != "blake3" {
		t.Errorf("Checksum = %q, want blake3", cfg.Checksum)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.Report.MaxWarnings != 3 {
		t.Errorf("Report.MaxWarnings = %d, want 3", cfg.Report.MaxWarnings)
	}
	if cfg.History.Enabled {
		t.Error("History.Enabled = true, want false")
	}
	if cfg.History.RetentionDays != 7 {
		t.Errorf("History.RetentionDays = %d, want 7", cfg.History.RetentionDays)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("Watch.Debounce = %v, want 2s", cfg.Watch.Debounce)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_XDGConfigHome(t *testing.T) {
	tempDir := t.TempDir()
	configDir := filepath.Join(tempDir, "driftsave")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("gzip_level: 1\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", tempDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GzipLevel != 1 {
		t.Errorf("GzipLevel = %d, want 1", cfg.GzipLevel)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("DRIFTSAVE_CHECKSUM", "blake3")
	t.Setenv("DRIFTSAVE_REPORT_MAX_WARNINGS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Checksum != "blake3" {
		t.Errorf("Checksum = %q, want blake3", cfg.Checksum)
	}
	if cfg.Report.MaxWarnings != 5 {
		t.Errorf("Report.MaxWarnings = %d, want 5", cfg.Report.MaxWarnings)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"gzip level", "gzip_level: 12\n", "gzip_level"},
		{"checksum", "checksum: md5\n", "checksum"},
		{"workers", "workers: -1\n", "workers"},
		{"yaml", "gzip_level: [\n", "failed to read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			configDir := filepath.Join(tempDir, "driftsave")
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				t.Fatalf("failed to create config dir: %v", err)
			}
			if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}
			t.Setenv("HOME", t.TempDir())
			t.Setenv("XDG_CONFIG_HOME", tempDir)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	want := filepath.Join(tempDir, ".config", "driftsave", "config.yaml")
	if path != want {
		t.Errorf("WriteDefault() path = %q, want %q", path, want)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	if !strings.Contains(string(content), "gzip_level: 9") {
		t.Error("default config missing gzip_level")
	}

	// The written file must load cleanly.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() after WriteDefault error = %v", err)
	}
	if cfg.Checksum != DefaultChecksum {
		t.Errorf("Checksum = %q, want %q", cfg.Checksum, DefaultChecksum)
	}

	// A second call leaves an existing file alone.
	if err := os.WriteFile(path, []byte("checksum: blake3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteDefault(); err != nil {
		t.Fatalf("WriteDefault() second call error = %v", err)
	}
	content, _ = os.ReadFile(path)
	if string(content) != "checksum: blake3\n" {
		t.Errorf("WriteDefault() overwrote existing config: %q", content)
	}
}

func TestExpandPath(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	tests := []struct {
		in   string
		want string
	}{
		{"~/work", filepath.Join(homeDir, "work")},
		{"/abs/path", "/abs/path"},
		{"relative", "relative"},
		{"", ""},
	}

	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		if err != nil {
			t.Fatalf("ExpandPath(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if dir != filepath.Join("/xdg", "driftsave") {
		t.Errorf("ConfigDir() = %q", dir)
	}
}
