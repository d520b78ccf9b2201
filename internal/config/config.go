package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var (
	cfg     *APIConfig
	cfgErr  error
	once    sync.Once
	envFile = ".env"
)

// APIConfig represents the root element.
type APIConfig struct {
	XMLName        xml.Name             `xml:"API"`
	RequestDump    bool                 `xml:"REQUEST_DUMP,attr"`
	Mode           string               `xml:"MODE,attr"`
	Context        ContextConfig        `xml:"CONTEXT"`
	Authentication AuthenticationConfig `xml:"AUTHENTICATION"`
	DB             DBConfig             `xml:"DB"`
	Logging        LoggingConfig        `xml:"LOGGING"`
	RateLimit      RateLimitConfig      `xml:"RATE_LIMIT"`
	Export         ExportConfig         `xml:"EXPORT"`
	AI             AIConfig             `xml:"AI"`
}

// ContextConfig holds basic server settings.
type ContextConfig struct {
	Port            int    `xml:"PORT"`
	Host            string `xml:"HOST"`
	Path            string `xml:"PATH"`
	TimeZone        string `xml:"TIME_ZONE"`
	ShutdownTimeout int    `xml:"SHUTDOWN_TIMEOUT"`
}

// AuthenticationConfig holds authentication settings. SessionTimeout is in minutes.
type AuthenticationConfig struct {
	TokenSecret    string `xml:"TOKEN_SECRET"`
	SessionTimeout int    `xml:"SESSION_TIMEOUT"`
}

// DBConfig holds database connection settings.
type DBConfig struct {
	Initialize bool         `xml:"INITIALIZE"`
	Driver     string       `xml:"DRIVER"`
	DSN        string       `xml:"DSN"`
	Host       string       `xml:"HOST"`
	Port       int          `xml:"PORT"`
	SSLMode    string       `xml:"SSL_MODE"`
	Names      DBNames      `xml:"NAMES"`
	Username   string       `xml:"USERNAME"`
	Password   DBPassword   `xml:"PASSWORD"`
	Pool       DBPoolConfig `xml:"POOL"`
}

// DBNames holds the names defined in the DB section.
type DBNames struct {
	Essays string `xml:"ESSAYS,attr"`
}

// DBPassword holds password details.
type DBPassword struct {
	Type  string `xml:"TYPE,attr"`
	Value string `xml:",chardata"`
}

// DBPoolConfig holds database connection pooling settings. ConnMaxLifetime is in seconds.
type DBPoolConfig struct {
	MaxOpenConns    int `xml:"MAX_OPEN_CONNS"`
	MaxIdleConns    int `xml:"MAX_IDLE_CONNS"`
	ConnMaxLifetime int `xml:"CONN_MAX_LIFETIME"`
}

// LoggingConfig controls the zap logger and its rotated file sink.
type LoggingConfig struct {
	Dir        string `xml:"DIR"`
	Level      string `xml:"LEVEL"`
	MaxSizeMB  int    `xml:"MAX_SIZE_MB"`
	MaxBackups int    `xml:"MAX_BACKUPS"`
	MaxAgeDays int    `xml:"MAX_AGE_DAYS"`
}

// RateLimitConfig throttles the public /auth routes per client IP.
type RateLimitConfig struct {
	AuthPerMinute int `xml:"AUTH_PER_MINUTE"`
	AuthBurst     int `xml:"AUTH_BURST"`
}

type ExportConfig struct {
	FontPath string `xml:"FONT_PATH"`
}

type AIConfig struct {
	Provider string `xml:"PROVIDER"`
	Seed     int64  `xml:"SEED"`
}

// LoadDefaults populates the config with development defaults.
func (c *APIConfig) LoadDefaults() {
	c.Mode = "debug"
	c.Context = ContextConfig{Port: 4000, Host: "0.0.0.0", Path: "/", TimeZone: "Asia/Taipei", ShutdownTimeout: 10}
	c.Authentication = AuthenticationConfig{SessionTimeout: 7 * 24 * 60}
	c.DB = DBConfig{
		Initialize: true,
		Driver:     "postgres",
		Host:       "localhost",
		Port:       5432,
		SSLMode:    "disable",
		Names:      DBNames{Essays: "essay_tutor"},
		Username:   "postgres",
		Pool:       DBPoolConfig{MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 300},
	}
	c.Logging = LoggingConfig{Dir: "logs", Level: "info", MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 28}
	c.RateLimit = RateLimitConfig{AuthPerMinute: 30, AuthBurst: 10}
	c.AI = AIConfig{Provider: "heuristic"}
}

// SessionDuration is the lifetime of issued access tokens.
func (c *APIConfig) SessionDuration() time.Duration {
	return time.Duration(c.Authentication.SessionTimeout) * time.Minute
}

func (c *APIConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.Context.ShutdownTimeout) * time.Second
}

// Addr is the listen address of the HTTP server.
func (c *APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Context.Host, c.Context.Port)
}

// Validate reports settings the server cannot start with.
func (c *APIConfig) Validate() error {
	var errs []error
	if c.Authentication.TokenSecret == "" {
		errs = append(errs, errors.New("AUTHENTICATION/TOKEN_SECRET (or JWT_SECRET) is required"))
	}
	if c.Authentication.SessionTimeout <= 0 {
		errs = append(errs, errors.New("AUTHENTICATION/SESSION_TIMEOUT must be positive"))
	}
	if c.Context.Port <= 0 || c.Context.Port > 65535 {
		errs = append(errs, fmt.Errorf("CONTEXT/PORT out of range: %d", c.Context.Port))
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB/DRIVER must be postgres or sqlite, got %q", c.DB.Driver))
	}
	switch c.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("MODE must be debug, release or test, got %q", c.Mode))
	}
	if c.AI.Provider != "heuristic" {
		errs = append(errs, fmt.Errorf("AI/PROVIDER %q is not supported", c.AI.Provider))
	}
	return errors.Join(errs...)
}

// Parse builds a config from defaults overlaid with the given XML document.
func Parse(data []byte) (*APIConfig, error) {
	var c APIConfig
	c.LoadDefaults()
	if len(data) > 0 {
		if err := xml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return &c, nil
}

// applyEnv overlays environment variables on top of the XML values.
func (c *APIConfig) applyEnv() error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DB.DSN = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.DB.Driver = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Authentication.TokenSecret = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("EXPORT_FONT_PATH"); v != "" {
		c.Export.FontPath = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Context.Port = port
	}
	return nil
}

// LoadConfig loads the XML configuration from the given file, applies .env and
// environment overrides, and validates the result. A missing file is not an
// error: defaults plus environment are used.
func LoadConfig(xmlPath string) (*APIConfig, error) {
	once.Do(func() {
		cfg, cfgErr = load(xmlPath)
	})
	return cfg, cfgErr
}

func load(xmlPath string) (*APIConfig, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	var data []byte
	f, err := os.Open(xmlPath)
	switch {
	case err == nil:
		defer f.Close()
		data, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("open config: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *APIConfig {
	return cfg
}
