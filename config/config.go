// Package config loads server settings.
//
// Settings are layered, later layers winning: built-in defaults, an optional
// YAML file, optional dotenv files, then the process environment. Dotenv
// files and the environment use the TINYRPC_ prefixed names listed on the
// Config fields.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TINYRPC_"

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	// Addr is the listen address. TINYRPC_ADDR.
	Addr string `yaml:"addr"`
	// Path is the endpoint path. TINYRPC_PATH.
	Path string `yaml:"path"`
	// Capacity is the method registry capacity. TINYRPC_CAPACITY.
	Capacity int `yaml:"capacity"`
	// MaxBodyBytes bounds request bodies. TINYRPC_MAX_BODY_BYTES.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// LogLevel is a zerolog level name. TINYRPC_LOG_LEVEL.
	LogLevel string `yaml:"log_level"`

	// SealKeyID selects the key used to seal. TINYRPC_SEAL_KEY_ID.
	SealKeyID string `yaml:"seal_key_id"`
	// SealKeys maps key ids to hex-encoded keys.
	// TINYRPC_SEAL_KEYS, as comma-separated id=hex pairs.
	SealKeys map[string]string `yaml:"seal_keys"`

	// OIDCIssuer and OIDCClientID enable bearer token authentication.
	// TINYRPC_OIDC_ISSUER, TINYRPC_OIDC_CLIENT_ID.
	OIDCIssuer   string `yaml:"oidc_issuer"`
	OIDCClientID string `yaml:"oidc_client_id"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Addr:         "127.0.0.1:8080",
		Path:         "/rpc",
		Capacity:     16,
		MaxBodyBytes: 16 << 10,
		LogLevel:     "info",
	}
}

// Load builds a Config from the defaults, the YAML file at path and the
// dotenv files, then applies the environment. Empty or missing paths are
// skipped. The result is validated.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: %s: %w", path, err)
			}
		}
	}

	env := map[string]string{}
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		vars, err := godotenv.Read(f)
		if err != nil {
			return cfg, fmt.Errorf("config: %s: %w", f, err)
		}
		for k, v := range vars {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}
	if err := cfg.apply(env); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) apply(env map[string]string) error {
	get := func(name string) (string, bool) {
		v, ok := env[EnvPrefix+name]
		return v, ok
	}
	if v, ok := get("ADDR"); ok {
		c.Addr = v
	}
	if v, ok := get("PATH"); ok {
		c.Path = v
	}
	if v, ok := get("CAPACITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sCAPACITY: %w", ErrInvalid, EnvPrefix, err)
		}
		c.Capacity = n
	}
	if v, ok := get("MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sMAX_BODY_BYTES: %w", ErrInvalid, EnvPrefix, err)
		}
		c.MaxBodyBytes = n
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("SEAL_KEY_ID"); ok {
		c.SealKeyID = v
	}
	if v, ok := get("SEAL_KEYS"); ok {
		keys, err := parseKeyList(v)
		if err != nil {
			return err
		}
		c.SealKeys = keys
	}
	if v, ok := get("OIDC_ISSUER"); ok {
		c.OIDCIssuer = v
	}
	if v, ok := get("OIDC_CLIENT_ID"); ok {
		c.OIDCClientID = v
	}
	return nil
}

// parseKeyList parses "id=hex,id=hex".
func parseKeyList(s string) (map[string]string, error) {
	keys := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, key, ok := strings.Cut(pair, "=")
		if !ok || id == "" || key == "" {
			return nil, fmt.Errorf("%w: %sSEAL_KEYS: malformed entry %q", ErrInvalid, EnvPrefix, pair)
		}
		keys[strings.TrimSpace(id)] = strings.TrimSpace(key)
	}
	return keys, nil
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr is empty", ErrInvalid)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("%w: path %q must start with /", ErrInvalid, c.Path)
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrInvalid)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalid)
	}
	if (c.SealKeyID == "") != (len(c.SealKeys) == 0) {
		return fmt.Errorf("%w: seal_key_id and seal_keys must be set together", ErrInvalid)
	}
	if c.SealKeyID != "" {
		if _, ok := c.SealKeys[c.SealKeyID]; !ok {
			return fmt.Errorf("%w: seal key %q not in seal_keys", ErrInvalid, c.SealKeyID)
		}
		if _, err := c.DecodeSealKeys(); err != nil {
			return err
		}
	}
	if (c.OIDCIssuer == "") != (c.OIDCClientID == "") {
		return fmt.Errorf("%w: oidc_issuer and oidc_client_id must be set together", ErrInvalid)
	}
	return nil
}

// Sealed reports whether bodies are sealed.
func (c Config) Sealed() bool {
	return c.SealKeyID != ""
}

// DecodeSealKeys returns the seal keys as bytes.
func (c Config) DecodeSealKeys() (map[string][]byte, error) {
	keys := make(map[string][]byte, len(c.SealKeys))
	for id, h := range c.SealKeys {
		k, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("%w: seal key %q: %w", ErrInvalid, id, err)
		}
		keys[id] = k
	}
	return keys, nil
}
