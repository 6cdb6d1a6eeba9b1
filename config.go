package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Supported store drivers.
const (
	StoreRedis    = "redis"
	StoreBoltDB   = "boltdb"
	StorePostgres = "postgres"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string         `yaml:"git_commit" envconfig:"BRAP_GIT_COMMIT"`
	GitTag             string         `yaml:"git_tag" envconfig:"BRAP_GIT_TAG"`
	BuildTime          string         `yaml:"build_time" envconfig:"BRAP_BUILD_TIME"`
	IsProduction       bool           `yaml:"is_production" envconfig:"BRAP_IS_PRODUCTION"`
	LogLevel           zapcore.Level  `yaml:"log_level" envconfig:"BRAP_LOG_LEVEL"`
	LogFolder          string         `yaml:"log_folder" envconfig:"BRAP_LOG_FOLDER"`
	LogMaxSize         int            `yaml:"log_max_size" envconfig:"BRAP_LOG_MAX_SIZE"` // in megabytes
	OpsEndpointsEnable bool           `yaml:"ops_endpoints_enable" envconfig:"BRAP_OPS_ENDPOINTS_ENABLE"`
	ProfilerEnable     bool           `yaml:"profiler_enable" envconfig:"BRAP_PROFILER_ENABLE"`
	Server             ServerConfig   `yaml:"server"`
	Store              StoreConfig    `yaml:"store"`
	Redis              RedisConfig    `yaml:"redis"`
	BoltDB             BoltDBConfig   `yaml:"boltdb"`
	Postgres           PostgresConfig `yaml:"postgres"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"BRAP_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"BRAP_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"BRAP_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"BRAP_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"BRAP_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"BRAP_SERVER_SHUTDOWN_TIMEOUT"`
}

// StoreConfig selects the primary book store. Replicate enables the
// redis queues which copy every write into the boltdb store.
type StoreConfig struct {
	Driver    string `yaml:"driver" envconfig:"BRAP_STORE_DRIVER"`
	Replicate bool   `yaml:"replicate" envconfig:"BRAP_STORE_REPLICATE"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BRAP_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"BRAP_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BRAP_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BRAP_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BRAP_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BRAP_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BRAP_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"BRAP_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"BRAP_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BRAP_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BRAP_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BRAP_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"BRAP_BOLTDB_BUCKET_NAME"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn" envconfig:"BRAP_POSTGRES_DSN" json:"-"`
	TableName       string        `yaml:"table_name" envconfig:"BRAP_POSTGRES_TABLE_NAME"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"BRAP_POSTGRES_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"BRAP_POSTGRES_MAX_IDLE_CONNS"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" envconfig:"BRAP_POSTGRES_CONN_MAX_IDLE_TIME"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"BRAP_POSTGRES_CONN_MAX_LIFETIME"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if config.LogFolder == "" {
		config.LogFolder = "./logs"
	}
	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 50
	}
	if config.Server.RequestTimeout <= 0 {
		config.Server.RequestTimeout = 30 * time.Second
	}
	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.Store.Driver == "" {
		config.Store.Driver = StoreRedis
	}

	switch config.Store.Driver {
	case StoreRedis:
		if err := checkRedisConfig(config); err != nil {
			return err
		}
	case StoreBoltDB:
		if err := checkBoltDBConfig(config); err != nil {
			return err
		}
	case StorePostgres:
		if len(config.Postgres.DSN) == 0 {
			return errors.New("make sure to set a valid postgres dsn in configuration file")
		}
		if config.Postgres.TableName == "" {
			config.Postgres.TableName = "books"
		}
	default:
		return fmt.Errorf("unsupported store driver %q", config.Store.Driver)
	}

	if config.Store.Replicate {
		if config.Store.Driver == StoreBoltDB {
			return errors.New("replication requires a store driver other than boltdb")
		}
		if err := checkRedisConfig(config); err != nil {
			return err
		}
		if err := checkBoltDBConfig(config); err != nil {
			return err
		}
	}

	return nil
}

func checkRedisConfig(config *Config) error {
	if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}
	return nil
}

func checkBoltDBConfig(config *Config) error {
	if len(config.BoltDB.FilePath) == 0 {
		return errors.New("make sure to set a valid boltdb file path in configuration file")
	}
	if config.BoltDB.BucketName == "" {
		config.BoltDB.BucketName = "books"
	}
	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The config.env file is optional.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	if err = godotenv.Load("./config.env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `BRAP`.
	err = LoadConfigEnvs("BRAP", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
