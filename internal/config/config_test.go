package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network.GCSListenPort != 14550 {
		t.Errorf("expected default gcs_listen_port 14550, got %d", cfg.Network.GCSListenPort)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default logging level info, got %q", cfg.Logging.Level)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
network:
  gcs_listen_address: "192.168.1.1"
  gcs_listen_port: 15000
  router_address: "10.0.0.1"
  router_port: 15001
logging:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network.GCSListenPort != 15000 {
		t.Errorf("expected overridden gcs_listen_port 15000, got %d", cfg.Network.GCSListenPort)
	}
	if cfg.Network.RouterAddress != "10.0.0.1" {
		t.Errorf("expected overridden router_address, got %q", cfg.Network.RouterAddress)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected overridden logging level debug, got %q", cfg.Logging.Level)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
network:
  gcs_listen_port: 15000
  router_address: "10.0.0.1"
  router_port: 15001
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	os.Setenv("MADBRIDGE_NETWORK_GCS_LISTEN_PORT", "16000")
	defer os.Unsetenv("MADBRIDGE_NETWORK_GCS_LISTEN_PORT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Network.GCSListenPort != 16000 {
		t.Errorf("expected env override to win, got %d", cfg.Network.GCSListenPort)
	}
}

func TestLoadRejectsInvalidLoggingLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: "verbose"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid logging level")
	}
}

func TestLoadRejectsOutOfRangePort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
network:
  gcs_listen_port: 70000
  router_address: "10.0.0.1"
  router_port: 15001
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}
