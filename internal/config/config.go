// Package config loads runtime configuration for roomwire.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr     = "0.0.0.0:3001"
	defaultDataDir        = "./data"
	defaultConfigFile     = "roomwire.yaml"
	defaultWSPath         = "/ws"
	defaultLogLevel       = "info"
	defaultReadLimitBytes = 1 << 20
	defaultMaxPeers       = 256
	defaultNegotiate      = true
	defaultICEServer      = "stun:stun.l.google.com:19302"
)

// Config holds runtime configuration values.
type Config struct {
	ListenAddr          string
	DataDir             string
	ConfigPath          string
	WSPath              string
	LogLevel            string
	LogDevelopment      bool
	ReadLimitBytes      int64
	MaxPeers            int64
	ICEServers          []string
	Negotiate           bool
	LegacyCandidateType bool
}

// fileConfig is the optional YAML file. Pointers tell absent keys apart from
// zero values.
type fileConfig struct {
	ListenAddr          string   `yaml:"listen_addr"`
	WSPath              string   `yaml:"ws_path"`
	LogLevel            string   `yaml:"log_level"`
	LogDevelopment      *bool    `yaml:"log_development"`
	ReadLimitBytes      *int64   `yaml:"read_limit_bytes"`
	MaxPeers            *int64   `yaml:"max_peers"`
	ICEServers          []string `yaml:"ice_servers"`
	Negotiate           *bool    `yaml:"negotiate"`
	LegacyCandidateType *bool    `yaml:"legacy_candidate_type"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:     defaultListenAddr,
		DataDir:        defaultDataDir,
		ConfigPath:     filepath.Join(defaultDataDir, defaultConfigFile),
		WSPath:         defaultWSPath,
		LogLevel:       defaultLogLevel,
		ReadLimitBytes: defaultReadLimitBytes,
		MaxPeers:       defaultMaxPeers,
		ICEServers:     []string{defaultICEServer},
		Negotiate:      defaultNegotiate,
	}
}

// Load reads configuration from DATA_DIR/.env, the optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (Config, error) {
	cfg := Default()
	cfg.DataDir = envString("DATA_DIR", cfg.DataDir)

	if err := loadEnvFile(filepath.Join(cfg.DataDir, ".env")); err != nil {
		return Config{}, err
	}
	cfg.DataDir = envString("DATA_DIR", cfg.DataDir)
	cfg.ConfigPath = envString("CONFIG_PATH", filepath.Join(cfg.DataDir, defaultConfigFile))

	if err := loadFile(cfg.ConfigPath, &cfg); err != nil {
		return Config{}, err
	}

	cfg.ListenAddr = envString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.WSPath = envString("WS_PATH", cfg.WSPath)
	cfg.LogLevel = strings.ToLower(envString("LOG_LEVEL", cfg.LogLevel))
	cfg.LogDevelopment = envBool("LOG_DEV", cfg.LogDevelopment)
	cfg.ICEServers = envList("ICE_SERVERS", cfg.ICEServers)
	cfg.Negotiate = envBool("NEGOTIATE", cfg.Negotiate)
	cfg.LegacyCandidateType = envBool("LEGACY_CANDIDATE_TYPE", cfg.LegacyCandidateType)

	limit, err := envInt("READ_LIMIT_BYTES", int(cfg.ReadLimitBytes))
	if err != nil {
		return Config{}, err
	}
	cfg.ReadLimitBytes = int64(limit)

	maxPeers, err := envInt("MAX_PEERS", int(cfg.MaxPeers))
	if err != nil {
		return Config{}, err
	}
	cfg.MaxPeers = int64(maxPeers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("LISTEN_ADDR is required")
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return fmt.Errorf("WS_PATH must start with /: %q", c.WSPath)
	}
	if c.ReadLimitBytes <= 0 {
		return fmt.Errorf("READ_LIMIT_BYTES must be > 0")
	}
	if c.MaxPeers < 0 {
		return fmt.Errorf("MAX_PEERS must be >= 0")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	for _, server := range c.ICEServers {
		if !strings.HasPrefix(server, "stun:") && !strings.HasPrefix(server, "turn:") && !strings.HasPrefix(server, "turns:") {
			return fmt.Errorf("ICE_SERVERS entry %q must be a stun: or turn: URL", server)
		}
	}
	return nil
}

// loadFile applies the optional YAML file on top of cfg.
func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	var fc fileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if fc.ListenAddr != "" {
		cfg.ListenAddr = fc.ListenAddr
	}
	if fc.WSPath != "" {
		cfg.WSPath = fc.WSPath
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogDevelopment != nil {
		cfg.LogDevelopment = *fc.LogDevelopment
	}
	if fc.ReadLimitBytes != nil {
		cfg.ReadLimitBytes = *fc.ReadLimitBytes
	}
	if fc.MaxPeers != nil {
		cfg.MaxPeers = *fc.MaxPeers
	}
	if fc.ICEServers != nil {
		cfg.ICEServers = fc.ICEServers
	}
	if fc.Negotiate != nil {
		cfg.Negotiate = *fc.Negotiate
	}
	if fc.LegacyCandidateType != nil {
		cfg.LegacyCandidateType = *fc.LegacyCandidateType
	}
	return nil
}

// envString returns an env override when present, otherwise a default.
func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt returns an int env override when present, otherwise a default.
func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

// envBool returns a bool env override when present, otherwise a default.
func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// envList returns a comma separated env override when present. "none"
// clears the list.
func envList(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if strings.EqualFold(raw, "none") {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads KEY=VALUE pairs from a .env file without overriding the
// real environment.
func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
