// Package config loads tensorpath.yaml, the configuration shared by the
// tensorpath command and embedding programs.
//
// Durations are Go duration strings ("30s", "2m"). Empty or unparsable
// values fall back to the documented defaults; Validate reports the
// unparsable ones.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/tensorpath/interp"
	"github.com/zero-day-ai/tensorpath/path"
	"github.com/zero-day-ai/tensorpath/registry"
)

// FileNames are the names Load looks for inside a directory.
var FileNames = []string{"tensorpath.yaml", "tensorpath.yml"}

// Environment overrides applied by ApplyEnv.
const (
	EnvPython            = "TENSORPATH_PYTHON"
	EnvRedisURL          = "TENSORPATH_REDIS_URL"
	EnvRegistryEndpoints = registry.EndpointsEnv
	EnvLogLevel          = "TENSORPATH_LOG_LEVEL"
)

// Config is the root of tensorpath.yaml.
type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge,omitempty"`
	Cache    CacheConfig    `yaml:"cache,omitempty"`
	Remote   RemoteConfig   `yaml:"remote,omitempty"`
	Registry RegistryConfig `yaml:"registry,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

// BridgeConfig configures the cotengra interpreter.
type BridgeConfig struct {
	// Python is the interpreter command. Default: python3
	Python string `yaml:"python,omitempty"`

	// Args are passed to the interpreter before -c.
	Args []string `yaml:"args,omitempty"`

	// Timeout bounds each optimizer call. Default: none
	Timeout string `yaml:"timeout,omitempty"`
}

// GetTimeout returns the parsed call timeout, or zero.
func (b BridgeConfig) GetTimeout() time.Duration {
	return parseDuration(b.Timeout, 0)
}

// Interp returns the interpreter configuration.
func (b BridgeConfig) Interp() interp.Config {
	return interp.Config{
		Command: b.Python,
		Args:    b.Args,
		Timeout: b.GetTimeout(),
	}
}

// CacheConfig configures the Redis result cache. The cache is disabled when
// URL is empty.
type CacheConfig struct {
	URL    string `yaml:"url,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`

	// TTL is how long cached paths live. Default: 24h
	TTL string `yaml:"ttl,omitempty"`
}

// Enabled reports whether a cache URL is configured.
func (c CacheConfig) Enabled() bool {
	return c.URL != ""
}

// GetTTL returns the parsed TTL or 24h.
func (c CacheConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, 24*time.Hour)
}

// RemoteConfig configures the gRPC server and client.
type RemoteConfig struct {
	// Address is the server listen address. Default: ":50051"
	Address string `yaml:"address,omitempty"`

	// Advertise is the endpoint published to the registry. Default: Address
	Advertise string `yaml:"advertise,omitempty"`

	// Endpoint is the server a client dials. When empty and the registry
	// is configured, clients discover a server by Name.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Name is the registry service name. Default: "cotengra"
	Name string `yaml:"name,omitempty"`

	// GracefulTimeout bounds server shutdown. Default: 30s
	GracefulTimeout string `yaml:"graceful_timeout,omitempty"`

	TLSCertFile string `yaml:"tls_cert_file,omitempty"`
	TLSKeyFile  string `yaml:"tls_key_file,omitempty"`
}

// GetAddress returns the listen address or ":50051".
func (r RemoteConfig) GetAddress() string {
	if r.Address == "" {
		return ":50051"
	}
	return r.Address
}

// GetName returns the registry service name or "cotengra".
func (r RemoteConfig) GetName() string {
	if r.Name == "" {
		return "cotengra"
	}
	return r.Name
}

// GetGracefulTimeout returns the parsed shutdown timeout or 30s.
func (r RemoteConfig) GetGracefulTimeout() time.Duration {
	return parseDuration(r.GracefulTimeout, 30*time.Second)
}

// RegistryConfig configures etcd discovery. The registry is disabled when
// Endpoints is empty.
type RegistryConfig struct {
	Endpoints   []string            `yaml:"endpoints,omitempty"`
	Namespace   string              `yaml:"namespace,omitempty"`
	TTL         int                 `yaml:"ttl,omitempty"`
	DialTimeout string              `yaml:"dial_timeout,omitempty"`
	TLS         *registry.TLSConfig `yaml:"tls,omitempty"`
}

// Enabled reports whether registry endpoints are configured.
func (r RegistryConfig) Enabled() bool {
	return len(r.Endpoints) > 0
}

// Registry returns the registry client configuration.
func (r RegistryConfig) Registry() registry.Config {
	return registry.Config{
		Endpoints:   r.Endpoints,
		Namespace:   r.Namespace,
		TTL:         r.TTL,
		DialTimeout: parseDuration(r.DialTimeout, 0),
		TLS:         r.TLS,
	}
}

// DefaultsConfig holds defaults for optimizer calls.
type DefaultsConfig struct {
	// SubtreeSize bounds subtree reconfiguration. Default: 8
	SubtreeSize int `yaml:"subtree_size,omitempty"`

	// OutputEncoding is "slot-reuse" or "assign". Default: slot-reuse
	OutputEncoding string `yaml:"output_encoding,omitempty"`
}

// GetSubtreeSize returns the subtree size or 8.
func (d DefaultsConfig) GetSubtreeSize() int {
	if d.SubtreeSize <= 0 {
		return 8
	}
	return d.SubtreeSize
}

// GetOutputEncoding returns the parsed output encoding or path.SlotReuse.
func (d DefaultsConfig) GetOutputEncoding() path.Encoding {
	if d.OutputEncoding == "" {
		return path.SlotReuse
	}
	enc, err := path.ParseEncoding(d.OutputEncoding)
	if err != nil {
		return path.SlotReuse
	}
	return enc
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level,omitempty"`

	// Format is text or json. Default: text
	Format string `yaml:"format,omitempty"`
}

// GetLevel returns the parsed slog level or slog.LevelInfo.
func (l LogConfig) GetLevel() slog.Level {
	var level slog.Level
	if l.Level == "" || level.UnmarshalText([]byte(l.Level)) != nil {
		return slog.LevelInfo
	}
	return level
}

// Logger builds a logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Log.GetLevel()}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Validate reports every setting that cannot be used as written.
func (c *Config) Validate() error {
	var errs []error

	checkDuration := func(field, value string) {
		if value == "" {
			return
		}
		if d, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		} else if d < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", field))
		}
	}
	checkDuration("bridge.timeout", c.Bridge.Timeout)
	checkDuration("cache.ttl", c.Cache.TTL)
	checkDuration("remote.graceful_timeout", c.Remote.GracefulTimeout)
	checkDuration("registry.dial_timeout", c.Registry.DialTimeout)

	if c.Defaults.SubtreeSize < 0 {
		errs = append(errs, fmt.Errorf("defaults.subtree_size: must not be negative, got %d", c.Defaults.SubtreeSize))
	}
	if c.Defaults.OutputEncoding != "" {
		if _, err := path.ParseEncoding(c.Defaults.OutputEncoding); err != nil {
			errs = append(errs, fmt.Errorf("defaults.output_encoding: %w", err))
		}
	}
	if c.Log.Level != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}
	if c.Registry.TTL < 0 {
		errs = append(errs, fmt.Errorf("registry.ttl: must not be negative, got %d", c.Registry.TTL))
	}
	if (c.Remote.TLSCertFile == "") != (c.Remote.TLSKeyFile == "") {
		errs = append(errs, errors.New("remote: tls_cert_file and tls_key_file must be set together"))
	}

	return errors.Join(errs...)
}

// ApplyEnv overrides settings from the TENSORPATH_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvPython); v != "" {
		c.Bridge.Python = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Cache.URL = v
	}
	if v := registry.ParseEndpoints(os.Getenv(EnvRegistryEndpoints)); len(v) > 0 {
		c.Registry.Endpoints = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Load reads a configuration file. If path is a directory, Load looks for
// tensorpath.yaml or tensorpath.yml inside it.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range FileNames {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("no tensorpath.yaml or tensorpath.yml found in %s", path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// LoadFromDir searches dir and then its parents for a configuration file.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		if cfg, err := Load(absDir); err == nil {
			return cfg, nil
		}
		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("no tensorpath.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}
