package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if cfg.Device.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", cfg.Device.BaudRate)
	}
	if cfg.Device.ReadTimeoutMs != 10000 {
		t.Errorf("ReadTimeoutMs = %d, want 10000", cfg.Device.ReadTimeoutMs)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "device:\n  port: /dev/ttyUSB3\n  baud_rate: 9600\nserver:\n  listen_addr: :9090\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.Device.Port != "/dev/ttyUSB3" {
		t.Errorf("Port = %q", cfg.Device.Port)
	}
	if cfg.Device.BaudRate != 9600 {
		t.Errorf("BaudRate = %d", cfg.Device.BaudRate)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	// Unset values keep defaults.
	if cfg.Device.ReadTimeoutMs != 10000 {
		t.Errorf("ReadTimeoutMs = %d, want default", cfg.Device.ReadTimeoutMs)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPUSBENCH_PORT", "/dev/ttyACM9")
	t.Setenv("OPUSBENCH_BAUD", "57600")

	cfg := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if cfg.Device.Port != "/dev/ttyACM9" {
		t.Errorf("Port = %q", cfg.Device.Port)
	}
	if cfg.Device.BaudRate != 57600 {
		t.Errorf("BaudRate = %d", cfg.Device.BaudRate)
	}
}
