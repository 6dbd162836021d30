package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/tensorpath/path"
)

const sample = `
bridge:
  python: /opt/venv/bin/python
  args: ["-I"]
  timeout: 2m
cache:
  url: redis://localhost:6379/0
  ttl: 1h
remote:
  address: ":6000"
  endpoint: optimizer:6000
  graceful_timeout: 5s
registry:
  endpoints: ["etcd-0:2379", "etcd-1:2379"]
  namespace: lab
  ttl: 15
defaults:
  subtree_size: 12
  output_encoding: assign
log:
  level: debug
  format: json
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/opt/venv/bin/python", cfg.Bridge.Python)
	assert.Equal(t, 2*time.Minute, cfg.Bridge.GetTimeout())
	in := cfg.Bridge.Interp()
	assert.Equal(t, []string{"-I"}, in.Args)
	assert.Equal(t, 2*time.Minute, in.Timeout)

	assert.True(t, cfg.Cache.Enabled())
	assert.Equal(t, time.Hour, cfg.Cache.GetTTL())

	assert.Equal(t, ":6000", cfg.Remote.GetAddress())
	assert.Equal(t, "cotengra", cfg.Remote.GetName())
	assert.Equal(t, 5*time.Second, cfg.Remote.GetGracefulTimeout())

	assert.True(t, cfg.Registry.Enabled())
	reg := cfg.Registry.Registry()
	assert.Equal(t, []string{"etcd-0:2379", "etcd-1:2379"}, reg.Endpoints)
	assert.Equal(t, "lab", reg.Namespace)
	assert.Equal(t, 15, reg.TTL)

	assert.Equal(t, 12, cfg.Defaults.GetSubtreeSize())
	assert.Equal(t, path.Assign, cfg.Defaults.GetOutputEncoding())
	assert.Equal(t, slog.LevelDebug, cfg.Log.GetLevel())
}

func TestDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, time.Duration(0), cfg.Bridge.GetTimeout())
	assert.False(t, cfg.Cache.Enabled())
	assert.Equal(t, 24*time.Hour, cfg.Cache.GetTTL())
	assert.Equal(t, ":50051", cfg.Remote.GetAddress())
	assert.Equal(t, 30*time.Second, cfg.Remote.GetGracefulTimeout())
	assert.False(t, cfg.Registry.Enabled())
	assert.Equal(t, 8, cfg.Defaults.GetSubtreeSize())
	assert.Equal(t, path.SlotReuse, cfg.Defaults.GetOutputEncoding())
	assert.Equal(t, slog.LevelInfo, cfg.Log.GetLevel())
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("bridge:\n  pyhton: python3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Bridge:   BridgeConfig{Timeout: "soon"},
		Cache:    CacheConfig{TTL: "-1h"},
		Defaults: DefaultsConfig{SubtreeSize: -1, OutputEncoding: "linear"},
		Log:      LogConfig{Level: "loud", Format: "xml"},
		Remote:   RemoteConfig{TLSCertFile: "cert.pem"},
		Registry: RegistryConfig{TTL: -5},
	}

	err := cfg.Validate()
	require.Error(t, err)
	for _, field := range []string{
		"bridge.timeout",
		"cache.ttl",
		"defaults.subtree_size",
		"defaults.output_encoding",
		"log.level",
		"log.format",
		"registry.ttl",
		"tls_cert_file and tls_key_file",
	} {
		assert.Contains(t, err.Error(), field)
	}

	assert.Equal(t, time.Duration(0), cfg.Bridge.GetTimeout())
	assert.Equal(t, 24*time.Hour, cfg.Cache.GetTTL())
	assert.Equal(t, path.SlotReuse, cfg.Defaults.GetOutputEncoding())
	assert.Equal(t, slog.LevelInfo, cfg.Log.GetLevel())
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPython, "python3.12")
	t.Setenv(EnvRedisURL, "redis://cache:6379")
	t.Setenv(EnvRegistryEndpoints, "a:2379, b:2379")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	cfg.ApplyEnv()

	assert.Equal(t, "python3.12", cfg.Bridge.Python)
	assert.Equal(t, "redis://cache:6379", cfg.Cache.URL)
	assert.Equal(t, []string{"a:2379", "b:2379"}, cfg.Registry.Endpoints)
	assert.Equal(t, slog.LevelWarn, cfg.Log.GetLevel())
}

func TestApplyEnvUnset(t *testing.T) {
	for _, env := range []string{EnvPython, EnvRedisURL, EnvRegistryEndpoints, EnvLogLevel} {
		t.Setenv(env, "")
	}

	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)
	cfg.ApplyEnv()
	assert.Equal(t, "/opt/venv/bin/python", cfg.Bridge.Python)
	assert.Equal(t, []string{"etcd-0:2379", "etcd-1:2379"}, cfg.Registry.Endpoints)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Log: LogConfig{Level: "warn", Format: "json"}}
	logger := cfg.Logger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	cfg.Log.Format = ""
	cfg.Logger(&buf).Warn("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "tensorpath.yml")
	require.NoError(t, os.WriteFile(file, []byte(sample), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Defaults.SubtreeSize)

	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "lab", cfg.Registry.Namespace)

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	cfg, err = LoadFromDir(nested)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tensorpath.yaml")
}
