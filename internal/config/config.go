// Package config loads server configuration, layered defaults → file → env,
// in the style of the anonymizing-proxy config loader this module borrows
// its structure from.
package config

import (
	"encoding/json"
	"os"
)

// Profile mirrors heparams.Profile's values. Kept as its own string type
// so this package stays free of an internal/heparams import; cmd/server
// converts it at the boundary.
type Profile string

const (
	ProfileStandard Profile = "standard"
	ProfileRadius   Profile = "radius"
)

// Config holds server-side configuration.
type Config struct {
	ListenAddr  string  `json:"listenAddr"`
	TLSCertFile string  `json:"tlsCertFile"`
	TLSKeyFile  string  `json:"tlsKeyFile"`
	DatasetFile string  `json:"datasetFile"`
	PublicKey   string  `json:"publicKeyFile"`
	RelinKeys   string  `json:"relinKeysFile"`
	Profile     Profile `json:"profile"`
	LogLevel    string  `json:"logLevel"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:  ":8443",
		DatasetFile: "dataset.json",
		PublicKey:   "public_key.bin",
		RelinKeys:   "relin_keys.bin",
		Profile:     ProfileStandard,
		LogLevel:    "info",
	}
}

// Load returns config with defaults overridden by the JSON file at path (if
// it exists) and then by environment variables (env wins).
func Load(path string) *Config {
	cfg := defaults()
	loadFile(cfg, path)
	loadEnv(cfg)
	return cfg
}

func loadFile(cfg *Config, path string) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, cfg)
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("PIR_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("PIR_TLS_CERT"); v != "" {
		cfg.TLSCertFile = v
	}
	if v := os.Getenv("PIR_TLS_KEY"); v != "" {
		cfg.TLSKeyFile = v
	}
	if v := os.Getenv("PIR_DATASET"); v != "" {
		cfg.DatasetFile = v
	}
	if v := os.Getenv("PIR_PUBLIC_KEY"); v != "" {
		cfg.PublicKey = v
	}
	if v := os.Getenv("PIR_PROFILE"); v != "" {
		cfg.Profile = Profile(v)
	}
	if v := os.Getenv("PIR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
