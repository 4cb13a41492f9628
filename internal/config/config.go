package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at configPath, applies environment overrides and
// validates the result. A missing file is only tolerated for the default
// path, so an env-only deployment works without a config file.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DefaultEnvFile, err)
	}

	var raw rawAppConfig
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if raw, err = decode(content); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultConfigPath:
	default:
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	return fromRaw(raw, os.Getenv)
}

// Parse builds a config from YAML bytes without touching the filesystem or
// the process environment.
func Parse(content []byte) (*AppConfig, error) {
	raw, err := decode(content)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return fromRaw(raw, func(string) string { return "" })
}

func decode(content []byte) (rawAppConfig, error) {
	raw := rawAppConfig{}
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return rawAppConfig{}, err
	}
	return raw, nil
}

// fromRaw applies defaults, env overrides and validation to a decoded file.
func fromRaw(raw rawAppConfig, getenv func(string) string) (*AppConfig, error) {
	cfg := defaultAppConfig()
	if err := applyRawAppConfig(&cfg, raw); err != nil {
		return nil, err
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return nil, err
	}
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.Backup = normalizeBackupConfig(cfg.Backup)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Driver: defaultDBDriver,
		},
		Redis: RedisRuntimeConfig{
			Channel: defaultRedisChannel,
		},
		Auth: AuthConfig{
			PasswordScheme: defaultPasswordScheme,
		},
		Fingerprint: FingerprintConfig{
			EndpointScheme: defaultScriptScheme,
		},
		Announcement: AnnouncementConfig{
			Title:     defaultAnnouncementTitle,
			Heading:   defaultAnnouncementHeading,
			Markdown:  defaultAnnouncementMarkdown,
			ScriptSrc: defaultScriptSrc,
		},
		Backup: BackupConfig{
			Interval: defaultBackupInterval,
			Dir:      defaultBackupDir,
			S3:       S3Config{Prefix: defaultS3Prefix},
		},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = normalizeEnv(v)
	}
	cfg.JWTSecret = raw.JWTSecret
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	if v := strings.TrimSpace(raw.Database.Driver); v != "" {
		cfg.Database.Driver = strings.ToLower(v)
	}
	cfg.Database.DSN = raw.Database.DSN
	cfg.Database.Host = raw.Database.Host
	cfg.Database.Port = raw.Database.Port
	cfg.Database.User = raw.Database.User
	cfg.Database.Password = raw.Database.Password
	cfg.Database.Name = raw.Database.Name
	cfg.Database.Params = raw.Database.Params

	cfg.Redis.URL = raw.Redis.URL
	if v := strings.TrimSpace(raw.Redis.Channel); v != "" {
		cfg.Redis.Channel = v
	}

	if v := strings.TrimSpace(raw.Auth.PasswordScheme); v != "" {
		cfg.Auth.PasswordScheme = strings.ToLower(v)
	}

	if v := strings.TrimSpace(raw.Fingerprint.EndpointScheme); v != "" {
		cfg.Fingerprint.EndpointScheme = strings.ToLower(v)
	}
	if raw.Fingerprint.MinifyScript != nil {
		cfg.Fingerprint.MinifyScript = *raw.Fingerprint.MinifyScript
	}

	if v := strings.TrimSpace(raw.Announcement.Title); v != "" {
		cfg.Announcement.Title = v
	}
	if v := strings.TrimSpace(raw.Announcement.Heading); v != "" {
		cfg.Announcement.Heading = v
	}
	if v := strings.TrimSpace(raw.Announcement.Markdown); v != "" {
		cfg.Announcement.Markdown = v
	}
	cfg.Announcement.ImageURL = strings.TrimSpace(raw.Announcement.ImageURL)
	if v := strings.TrimSpace(raw.Announcement.ScriptSrc); v != "" {
		cfg.Announcement.ScriptSrc = v
	}

	cfg.Log.Dir = strings.TrimSpace(raw.Log.Dir)

	if raw.Backup.Enable != nil {
		cfg.Backup.Enable = *raw.Backup.Enable
	}
	if v := strings.TrimSpace(raw.Backup.Interval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid backup.interval %q: %w", v, err)
		}
		cfg.Backup.Interval = d
	}
	if v := strings.TrimSpace(raw.Backup.Dir); v != "" {
		cfg.Backup.Dir = v
	}
	cfg.Backup.S3.Bucket = raw.Backup.S3.Bucket
	cfg.Backup.S3.Region = raw.Backup.S3.Region
	cfg.Backup.S3.Endpoint = raw.Backup.S3.Endpoint
	cfg.Backup.S3.AccessKeyID = raw.Backup.S3.AccessKeyID
	cfg.Backup.S3.SecretAccessKey = raw.Backup.S3.SecretAccessKey
	if raw.Backup.S3.PathStyle != nil {
		cfg.Backup.S3.PathStyle = *raw.Backup.S3.PathStyle
	}
	if v := strings.TrimSpace(raw.Backup.S3.Prefix); v != "" {
		cfg.Backup.S3.Prefix = v
	}
	return nil
}

func applyEnv(cfg *AppConfig, getenv func(string) string) error {
	if v := getenv(EnvJWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Port = port
	}
	if v := strings.TrimSpace(getenv(EnvDatabaseDriver)); v != "" {
		cfg.Database.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(getenv(EnvDatabaseDSN)); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(getenv(EnvRedisURL)); v != "" {
		cfg.Redis.URL = v
	}
	if v := strings.TrimSpace(getenv(EnvAppEnv)); v != "" {
		cfg.Env = normalizeEnv(v)
	}
	return nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required (or set %s)", EnvJWTSecret)
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
	}
	switch c.Auth.PasswordScheme {
	case PasswordSchemePlain, PasswordSchemeBcrypt:
	default:
		return fmt.Errorf("unsupported auth.password_scheme %q", c.Auth.PasswordScheme)
	}
	switch c.Fingerprint.EndpointScheme {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported fingerprint.endpoint_scheme %q", c.Fingerprint.EndpointScheme)
	}
	if c.Backup.Enable && c.Backup.Interval < minBackupInterval {
		return fmt.Errorf("backup.interval %s is below %s", c.Backup.Interval, minBackupInterval)
	}
	if c.Backup.S3.Enabled() && c.Backup.S3.Region == "" {
		return errors.New("backup.s3.region is required when backup.s3.bucket is set")
	}
	return nil
}

// IsDev reports whether the service runs in development mode.
func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}

// Addr returns the listen address.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// BackupDir resolves the backup directory against the executable directory.
func (c *AppConfig) BackupDir() string {
	return ResolveRuntimePath(c.Backup.Dir, defaultBackupDir)
}

// LogDir resolves the optional log directory. Empty means stdout only.
func (c *AppConfig) LogDir() string {
	if c.Log.Dir == "" {
		return ""
	}
	return ResolveRuntimePath(c.Log.Dir, "logs")
}
