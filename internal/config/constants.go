package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	// DefaultEnvFile is loaded into the process environment when present.
	DefaultEnvFile = ".env"

	defaultPort           = 8787
	defaultEnv            = "production"
	defaultDBDriver       = DriverSQLite
	defaultSQLiteDSN      = "fpcollector.db"
	defaultDBHost         = "127.0.0.1"
	defaultMySQLPort      = 3306
	defaultPostgresPort   = 5432
	defaultDBUser         = "root"
	defaultDBName         = "fpcollector"
	defaultRedisChannel   = "fingerprint:ingested"
	defaultPasswordScheme = PasswordSchemePlain
	defaultScriptScheme   = "https"
	defaultScriptSrc      = "/fingerprint.js"
	defaultBackupInterval = 24 * time.Hour
	minBackupInterval     = time.Minute
	defaultBackupDir      = "backups"
	defaultS3Prefix       = "fingerprints"

	defaultAnnouncementTitle    = "Anúncio de Produto"
	defaultAnnouncementHeading  = "Bem-vindo ao anúncio do Produto X"
	defaultAnnouncementMarkdown = "Este é um produto genérico incrível que pode ajudar você de diversas formas.\nConfira as vantagens e aproveite!"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Supported password schemes for the credential table.
const (
	PasswordSchemePlain  = "plain"
	PasswordSchemeBcrypt = "bcrypt"
)

// Environment variables that override file values.
const (
	EnvJWTSecret      = "JWT_SECRET"
	EnvPort           = "PORT"
	EnvDatabaseDriver = "DATABASE_DRIVER"
	EnvDatabaseDSN    = "DATABASE_DSN"
	EnvRedisURL       = "REDIS_URL"
	EnvAppEnv         = "APP_ENV"
)
