package blobstore

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Supported backends.
const (
	BackendFilesystem = "filesystem"
	BackendMemory     = "memory"
	BackendS3         = "s3"
	BackendMinIO      = "minio"
)

// Config selects and parameterizes a storage backend.
//
// Open constructs the filesystem and memory backends directly. The s3 and
// minio backends live in their own packages to keep their SDKs out of the
// core dependency graph; construct those with s3.FromConfig and
// minio.FromConfig, which honor the same decorator fields.
type Config struct {
	Backend string `yaml:"backend"`

	// Filesystem
	Root string `yaml:"root,omitempty"`

	// Object stores
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`

	// Decorators, applied to any backend.
	CacheDir               string `yaml:"cache_dir,omitempty"`
	ThrottleBytesPerSecond int    `yaml:"throttle_bytes_per_second,omitempty"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML config bytes.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse storage config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the config names a backend and carries the fields
// that backend needs.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFilesystem:
		if c.Root == "" {
			return fmt.Errorf("storage config: filesystem backend requires root")
		}
	case BackendMemory:
	case BackendS3:
		if c.Bucket == "" {
			return fmt.Errorf("storage config: s3 backend requires bucket")
		}
	case BackendMinIO:
		if c.Bucket == "" || c.Endpoint == "" {
			return fmt.Errorf("storage config: minio backend requires bucket and endpoint")
		}
	case "":
		return fmt.Errorf("storage config: backend is required")
	default:
		return fmt.Errorf("storage config: unknown backend %q", c.Backend)
	}
	return nil
}

// Open constructs a Store for the filesystem or memory backend and applies
// the configured decorators.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var store Store
	switch cfg.Backend {
	case BackendFilesystem:
		s, err := NewLocalStore(cfg.Root)
		if err != nil {
			return nil, err
		}
		store = s
	case BackendMemory:
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("storage config: backend %q is constructed by its driver package", cfg.Backend)
	}

	return Decorate(store, cfg)
}

// Decorate applies the config's cache and throttle decorators to a store.
// Driver packages call this after constructing their backend.
func Decorate(store Store, cfg Config) (Store, error) {
	if cfg.CacheDir != "" {
		cache, err := NewLocalStore(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		store = NewCachingStore(store, cache)
	}
	if cfg.ThrottleBytesPerSecond > 0 {
		store = NewThrottledStore(store, cfg.ThrottleBytesPerSecond)
	}
	return store, nil
}
