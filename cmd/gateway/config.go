package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/susek555/carmarket-gateway/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8000"
	defaultBackendURL   = "http://localhost:3000"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address on which the gateway will be run
	ListenAddr string

	// Base URL of the marketplace backend the gateway fronts
	BackendURL string

	// Secret key
	// The session cookie signing key is derived from it, so it must be set
	SecretKey string

	// Environment
	Environment string

	// Session cookie attributes and token lifetimes
	CookieSecure   bool
	AccessTokenTTL time.Duration
	SessionTTL     time.Duration

	// Per-call timeout for backend requests
	BackendTimeout time.Duration
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		ListenAddr:  defaultListenAddr,
		BackendURL:  defaultBackendURL,
		Environment: defaultEnvironment,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setBool := func(o *bool) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value == "true" || value == "1"
			}
		}
	}
	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			if d, err := time.ParseDuration(value); err == nil {
				*o = d
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":      setString(&c.ListenAddr),
		"API_URL":          setString(&c.BackendURL),
		"SECRET_KEY":       setString(&c.SecretKey),
		"LOG_LEVEL":        setString(&c.LogLevel),
		"ENVIRONMENT":      setString(&c.Environment),
		"COOKIE_SECURE":    setBool(&c.CookieSecure),
		"ACCESS_TOKEN_TTL": setDuration(&c.AccessTokenTTL),
		"SESSION_TTL":      setDuration(&c.SessionTTL),
		"BACKEND_TIMEOUT":  setDuration(&c.BackendTimeout),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("gateway", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.BackendURL, "backend", "b", c.BackendURL, "Marketplace backend base URL")
	fs.StringVarP(&c.SecretKey, "secret-key", "s", c.SecretKey, "Secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, production)")
	fs.BoolVar(&c.CookieSecure, "cookie-secure", c.CookieSecure, "Mark the session cookie Secure")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.SessionTTL, "session-ttl", c.SessionTTL, "Session cookie lifetime")
	fs.DurationVar(&c.BackendTimeout, "backend-timeout", c.BackendTimeout, "Per-call backend timeout")

	return fs.Parse(args)
}
