package config

import "time"

// AppConfig holds runtime startup configuration. It is loaded once and never
// mutated afterwards.
type AppConfig struct {
	Port         int
	Env          string // "development" | "production"
	JWTSecret    string
	MetricsAddr  string
	Database     DatabaseRuntimeConfig
	Redis        RedisRuntimeConfig
	Auth         AuthConfig
	Fingerprint  FingerprintConfig
	Announcement AnnouncementConfig
	Log          LogConfig
	Backup       BackupConfig
}

type DatabaseRuntimeConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Params   map[string]string
}

type RedisRuntimeConfig struct {
	URL     string
	Channel string
}

type AuthConfig struct {
	PasswordScheme string
}

type FingerprintConfig struct {
	EndpointScheme string
	MinifyScript   bool
}

type AnnouncementConfig struct {
	Title     string
	Heading   string
	Markdown  string
	ImageURL  string
	ScriptSrc string
}

type LogConfig struct {
	Dir string
}

type BackupConfig struct {
	Enable   bool
	Interval time.Duration
	Dir      string
	S3       S3Config
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	Prefix          string
}

// Enabled reports whether backups should also be uploaded.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

type rawAppConfig struct {
	Port         int               `yaml:"port"`
	Env          string            `yaml:"env"`
	JWTSecret    string            `yaml:"jwt_secret"`
	MetricsAddr  string            `yaml:"metrics_addr"`
	Database     rawDatabaseConfig `yaml:"database"`
	Redis        rawRedisConfig    `yaml:"redis"`
	Auth         rawAuthConfig     `yaml:"auth"`
	Fingerprint  rawFingerprint    `yaml:"fingerprint"`
	Announcement rawAnnouncement   `yaml:"announcement"`
	Log          rawLogConfig      `yaml:"log"`
	Backup       rawBackupConfig   `yaml:"backup"`
}

type rawDatabaseConfig struct {
	Driver   string            `yaml:"driver"`
	DSN      string            `yaml:"dsn"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	User     string            `yaml:"user"`
	Password string            `yaml:"password"`
	Name     string            `yaml:"name"`
	Params   map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

type rawAuthConfig struct {
	PasswordScheme string `yaml:"password_scheme"`
}

type rawFingerprint struct {
	EndpointScheme string `yaml:"endpoint_scheme"`
	MinifyScript   *bool  `yaml:"minify_script"`
}

type rawAnnouncement struct {
	Title     string `yaml:"title"`
	Heading   string `yaml:"heading"`
	Markdown  string `yaml:"markdown"`
	ImageURL  string `yaml:"image_url"`
	ScriptSrc string `yaml:"script_src"`
}

type rawLogConfig struct {
	Dir string `yaml:"dir"`
}

type rawBackupConfig struct {
	Enable   *bool       `yaml:"enable"`
	Interval string      `yaml:"interval"`
	Dir      string      `yaml:"dir"`
	S3       rawS3Config `yaml:"s3"`
}

type rawS3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       *bool  `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
}
