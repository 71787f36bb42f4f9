// Package config reads server and simulation settings from the environment.
//
// A .env file in the working directory is loaded first when present; real
// environment variables win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev_secret_change_me"

// Config holds the complete server configuration.
type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Game   GameConfig
	Sim    SimConfig
}

// ServerConfig holds HTTP and storage settings.
type ServerConfig struct {
	Port         string
	LogLevel     string
	DBPath       string
	ClientOrigin string
	Production   bool
	Timeout      time.Duration
}

// AuthConfig holds player token settings.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	CookieName string
	AnonCookie string
}

// GameConfig holds rule and solver defaults.
type GameConfig struct {
	RulesFile     string
	DefaultPreset string
	Strategy      string
	DailySalt     string
}

// SimConfig bounds batch simulations started over HTTP.
type SimConfig struct {
	Workers  int
	MaxGames int
}

// Load reads .env (if any) and the environment.
//
// Environment variables:
//   - PORT (5175), LOG_LEVEL (info), DB_PATH (./data/mastermind.db)
//   - CLIENT_ORIGIN (http://localhost:5173), NODE_ENV, REQUEST_TIMEOUT (30s)
//   - JWT_SECRET, JWT_EXPIRES_DAYS (14), COOKIE_NAME (mastermind_token)
//   - RULES_FILE, DEFAULT_PRESET (classic), SOLVER_STRATEGY (minimax), DAILY_SALT
//   - SIM_WORKERS (NumCPU), SIM_MAX_GAMES (2000)
func Load() *Config {
	_ = godotenv.Load()
	return &Config{
		Server: ServerConfig{
			Port:         getEnvString("PORT", "5175"),
			LogLevel:     getEnvString("LOG_LEVEL", "info"),
			DBPath:       getEnvString("DB_PATH", "./data/mastermind.db"),
			ClientOrigin: getEnvString("CLIENT_ORIGIN", "http://localhost:5173"),
			Production:   os.Getenv("NODE_ENV") == "production",
			Timeout:      getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnvString("JWT_SECRET", devJWTSecret),
			TokenTTL:   time.Duration(getEnvInt("JWT_EXPIRES_DAYS", 14)) * 24 * time.Hour,
			CookieName: getEnvString("COOKIE_NAME", "mastermind_token"),
			AnonCookie: "mastermind_anon",
		},
		Game: GameConfig{
			RulesFile:     os.Getenv("RULES_FILE"),
			DefaultPreset: getEnvString("DEFAULT_PRESET", "classic"),
			Strategy:      getEnvString("SOLVER_STRATEGY", "minimax"),
			DailySalt:     getEnvString("DAILY_SALT", "local_dev_salt"),
		},
		Sim: SimConfig{
			Workers:  getEnvInt("SIM_WORKERS", runtime.NumCPU()),
			MaxGames: getEnvInt("SIM_MAX_GAMES", 2000),
		},
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if p, err := strconv.Atoi(c.Server.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid port: %q (must be 1-65535)", c.Server.Port)
	}
	if c.Server.Production && c.Auth.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("JWT_EXPIRES_DAYS must be positive")
	}
	if c.Sim.Workers < 1 {
		return errors.New("SIM_WORKERS must be positive")
	}
	if c.Sim.MaxGames < 1 {
		return errors.New("SIM_MAX_GAMES must be positive")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
