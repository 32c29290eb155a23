// Package config loads harness configuration from a YAML file with
// environment variable overrides.
package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all harness configuration.
type Config struct {
	Device DeviceConfig `yaml:"device" json:"device"`
	Server ServerConfig `yaml:"server" json:"server"`
}

// DeviceConfig describes the serial connection to the benchmark device.
type DeviceConfig struct {
	Port          string `yaml:"port" json:"port"`                     // e.g. /dev/ttyACM0
	BaudRate      int    `yaml:"baud_rate" json:"baudRate"`            // default 115200
	ReadTimeoutMs int    `yaml:"read_timeout_ms" json:"readTimeoutMs"` // per-read bound
}

// ServerConfig describes the optional live-results server.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listenAddr"` // empty disables the server
}

// Default returns a config with sensible defaults.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Port:          "/dev/ttyACM0",
			BaudRate:      115200,
			ReadTimeoutMs: 10000,
		},
		Server: ServerConfig{
			ListenAddr: "",
		},
	}
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Falls back to defaults when the file is absent.
func Load(path string) *Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[config] no config at %s, using defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("[config] error parsing %s: %v, using defaults", path, err)
		cfg = Default()
	} else {
		log.Printf("[config] loaded from %s", path)
	}

	cfg.applyEnvOverrides()
	return cfg
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: OPUSBENCH_PORT, OPUSBENCH_BAUD, OPUSBENCH_READ_TIMEOUT_MS,
// OPUSBENCH_LISTEN.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OPUSBENCH_PORT"); v != "" {
		c.Device.Port = v
	}
	if v := os.Getenv("OPUSBENCH_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Device.BaudRate = n
		}
	}
	if v := os.Getenv("OPUSBENCH_READ_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Device.ReadTimeoutMs = n
		}
	}
	if v := os.Getenv("OPUSBENCH_LISTEN"); v != "" {
		c.Server.ListenAddr = v
	}
}
