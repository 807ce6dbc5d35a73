// Package config holds the fileserver and client binaries' configuration,
// its environment variable names, and validation.
package config

import "fmt"

// Environment variable names, passed to urfave/cli's EnvVars so every flag
// can also be set without the command line.
const (
	EnvFileserverPort          = "FILESERVER_PORT"
	EnvFileserverFilesDir      = "FILESERVER_FILES_DIR"
	EnvFileserverMaxUploadSize = "FILESERVER_MAX_UPLOAD_BYTES"
	EnvFileserverVerbose       = "FILESERVER_VERBOSE"

	EnvPersistenceType     = "FILESERVER_PERSISTENCE_TYPE"
	EnvPersistenceDataPath = "FILESERVER_PERSISTENCE_DATA_PATH"
	EnvRedisAddress        = "FILESERVER_REDIS_ADDRESS"
	EnvRedisPassword       = "FILESERVER_REDIS_PASSWORD"
	EnvRedisDB             = "FILESERVER_REDIS_DB"
	EnvRedisKeyPrefix      = "FILESERVER_REDIS_KEY_PREFIX"

	EnvClientPort          = "MERKLE_CLIENT_PORT"
	EnvClientTempDir       = "MERKLE_CLIENT_TEMP_DIR"
	EnvClientMaxUploadSize = "MERKLE_CLIENT_MAX_UPLOAD_BYTES"
	EnvClientVerbose       = "MERKLE_CLIENT_VERBOSE"
)

// PersistenceType selects a Proof Store backend.
type PersistenceType string

const (
	PersistenceBadger PersistenceType = "badger"
	PersistenceRedis  PersistenceType = "redis"
	PersistenceMemory PersistenceType = "memory"
)

// DefaultMaxUploadBytes is the default per-request multipart upload cap.
const DefaultMaxUploadBytes = 10 << 20

// RedisConfig holds the connection parameters for the Redis backend.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// PersistenceConfig selects and configures a Proof Store backend.
type PersistenceConfig struct {
	Type        PersistenceType
	DataPath    string
	RedisConfig *RedisConfig
}

// FileserverConfig configures the upload/download/list HTTP server.
type FileserverConfig struct {
	Port              int
	FilesDir          string
	MaxUploadBytes    int64
	Verbose           bool
	PersistenceConfig PersistenceConfig
}

// Validate checks a FileserverConfig for internal consistency.
func (c *FileserverConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.FilesDir == "" {
		return fmt.Errorf("config: files directory must be set")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: max upload bytes must be positive")
	}

	switch c.PersistenceConfig.Type {
	case PersistenceBadger:
		if c.PersistenceConfig.DataPath == "" {
			return fmt.Errorf("config: badger persistence requires a data path")
		}
	case PersistenceRedis:
		if c.PersistenceConfig.RedisConfig == nil || c.PersistenceConfig.RedisConfig.Address == "" {
			return fmt.Errorf("config: redis persistence requires an address")
		}
	case PersistenceMemory:
		// no further configuration required
	default:
		return fmt.Errorf("config: unknown persistence type %q", c.PersistenceConfig.Type)
	}
	return nil
}

// ClientConfig configures the local hash/verify HTTP server.
type ClientConfig struct {
	Port           int
	TempDir        string
	MaxUploadBytes int64
	Verbose        bool
}

// Validate checks a ClientConfig for internal consistency.
func (c *ClientConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.TempDir == "" {
		return fmt.Errorf("config: temp directory must be set")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: max upload bytes must be positive")
	}
	return nil
}
