// Package config loads server settings from an optional YAML file with
// STAYSYNC_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Media backends.
const (
	MediaLocal = "local"
	MediaS3    = "s3"
)

// Config holds every runtime setting.
type Config struct {
	Addr        string        `yaml:"addr"`
	DataDir     string        `yaml:"dataDir"`
	BackupDir   string        `yaml:"backupDir"`
	LedgerPath  string        `yaml:"ledgerPath"`
	CacheTTL    time.Duration `yaml:"cacheTTL"`
	JWTSecret   string        `yaml:"jwtSecret"`
	TokenExpiry time.Duration `yaml:"tokenExpiry"`
	LogPath     string        `yaml:"logPath"`
	Media       Media         `yaml:"media"`
}

// Media selects where uploaded images are stored.
type Media struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"baseURL"`
	S3      S3     `yaml:"s3"`
}

// S3 configures the S3 media backend.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	PublicURL string `yaml:"publicURL"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:        ":3001",
		DataDir:     "data",
		LedgerPath:  "staysync.sqlite3",
		CacheTTL:    5 * time.Second,
		TokenExpiry: 24 * time.Hour,
		Media: Media{
			Backend: MediaLocal,
			Dir:     "images",
			BaseURL: "/images",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error when path is empty or does not exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(cfg.DataDir, "backups")
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"STAYSYNC_ADDR":          &c.Addr,
		"STAYSYNC_DATA_DIR":      &c.DataDir,
		"STAYSYNC_BACKUP_DIR":    &c.BackupDir,
		"STAYSYNC_LEDGER":        &c.LedgerPath,
		"STAYSYNC_JWT_SECRET":    &c.JWTSecret,
		"STAYSYNC_LOG":           &c.LogPath,
		"STAYSYNC_MEDIA_BACKEND": &c.Media.Backend,
		"STAYSYNC_MEDIA_DIR":     &c.Media.Dir,
		"STAYSYNC_MEDIA_URL":     &c.Media.BaseURL,
		"STAYSYNC_S3_BUCKET":     &c.Media.S3.Bucket,
		"STAYSYNC_S3_REGION":     &c.Media.S3.Region,
		"STAYSYNC_S3_ENDPOINT":   &c.Media.S3.Endpoint,
		"STAYSYNC_S3_ACCESS_KEY": &c.Media.S3.AccessKey,
		"STAYSYNC_S3_SECRET_KEY": &c.Media.S3.SecretKey,
		"STAYSYNC_S3_PUBLIC_URL": &c.Media.S3.PublicURL,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"STAYSYNC_CACHE_TTL":    &c.CacheTTL,
		"STAYSYNC_TOKEN_EXPIRY": &c.TokenExpiry,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// parseDuration accepts Go durations and plain milliseconds.
func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// Validate checks settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DataDir == "" {
		return errors.New("dataDir is required")
	}
	if c.CacheTTL < 0 {
		return errors.New("cacheTTL cannot be negative")
	}
	switch c.Media.Backend {
	case MediaLocal:
		if c.Media.Dir == "" {
			return errors.New("media.dir is required for the local backend")
		}
	case MediaS3:
		if c.Media.S3.Bucket == "" {
			return errors.New("media.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown media backend %q", c.Media.Backend)
	}
	return nil
}
