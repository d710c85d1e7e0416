/*
config.go - Runtime configuration

PURPOSE:
  Collects server, database, store-zone, CORS and logger settings from the
  environment. A .env file in the working directory is loaded first by the
  entry point; command-line flags override what the environment says.

ENVIRONMENT:
  PORT                       HTTP port (default 8080)
  DB_PATH                    SQLite path, ":memory:" allowed (default caseledger.db)
  STORE_ZONE                 IANA zone for local dates (default America/Phoenix)
  CORS_ORIGINS               Comma-separated allowed origins
  LOG_LEVEL                  debug | info | warn | error (default info)
  LOG_ENCODING               json | console (default json)
  LOG_FILE                   Extra output path for the logger
  LOG_DISABLE_CALLER         bool
  LOG_DISABLE_STACKTRACE     bool (default true)

SEE ALSO:
  - cmd/server/main.go: Flag overrides
  - logging/logging.go: Builds the zap logger from LoggerConfig
*/
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/warp/caseledger/inventory"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Store  StoreConfig
	Logger LoggerConfig
}

type ServerConfig struct {
	Port        int
	CORSOrigins []string
}

type DBConfig struct {
	Path string
}

type StoreConfig struct {
	Zone string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	File              string
	DisableCaller     bool
	DisableStacktrace bool
}

// LoadEnv reads the configuration from the environment.
func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnvInt("PORT", 8080),
			CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
		},
		DB: DBConfig{
			Path: getEnv("DB_PATH", "caseledger.db"),
		},
		Store: StoreConfig{
			Zone: getEnv("STORE_ZONE", inventory.DefaultStoreZone),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOG_LEVEL", "info"),
			Encoding:          getEnv("LOG_ENCODING", "json"),
			File:              getEnv("LOG_FILE", ""),
			DisableCaller:     getEnvBool("LOG_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOG_DISABLE_STACKTRACE", true),
		},
	}
}

// BindFlags registers -port and -db on fs with the current values as
// defaults, so parsed flags override the environment.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Server.Port, "port", c.Server.Port, "HTTP server port")
	fs.StringVar(&c.DB.Path, "db", c.DB.Path, "SQLite database path (\":memory:\" for in-memory)")
	fs.StringVar(&c.Store.Zone, "zone", c.Store.Zone, "store time zone")
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("database path is required")
	}
	if _, err := inventory.NewStoreClock(c.Store.Zone); err != nil {
		return err
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
