package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port              string
	TrustProxyHeaders bool // take the client address from X-Real-IP / X-Forwarded-For

	// Logging
	LogLevel  string // debug, info, warn, error
	LogPretty bool   // human readable console output
	LogFile   string // optional file receiving a copy of the log

	// Geolocation API (geo.ipify.org)
	GeoAPIURL     string
	GeoAPIKey     string
	GeoAPITimeout time.Duration

	// Rate limiting of lookups, per client address
	RateLimitType   string // "memory" or "redis"
	RateLimit       int    // number of lookups allowed
	RateLimitWindow int    // time window in seconds

	// Redis configuration (only used by the redis rate limiter)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Sessions idle longer than this are dropped
	SessionTTL   time.Duration
	CookieSecure bool // set the Secure flag on the session cookie

	// Map widget defaults
	MapDefaultLat  float64
	MapDefaultLng  float64
	MapDefaultZoom int
	MapTileURL     string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		Port:              getEnv("PORT", "3000"),
		TrustProxyHeaders: getEnvAsBool("TRUST_PROXY_HEADERS", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),
		LogFile:   getEnv("LOG_FILE", ""),

		GeoAPIURL:     getEnv("GEO_API_URL", "https://geo.ipify.org"),
		GeoAPIKey:     getEnv("GEO_API_KEY", ""),
		GeoAPITimeout: time.Duration(getEnvAsInt("GEO_API_TIMEOUT", 10)) * time.Second,

		// default: memory, 5 lookups per 10 seconds
		RateLimitType:   getEnv("RATE_LIMITER_TYPE", "memory"),
		RateLimit:       getEnvAsInt("RATE_LIMIT", 5),
		RateLimitWindow: getEnvAsInt("RATE_LIMIT_WINDOW", 10),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SessionTTL:   time.Duration(getEnvAsInt("SESSION_TTL", 30)) * time.Minute,
		CookieSecure: getEnvAsBool("COOKIE_SECURE", false),

		MapDefaultLat:  getEnvAsFloat("MAP_DEFAULT_LAT", 51.505),
		MapDefaultLng:  getEnvAsFloat("MAP_DEFAULT_LNG", -0.09),
		MapDefaultZoom: getEnvAsInt("MAP_DEFAULT_ZOOM", 13),
		MapTileURL:     getEnv("MAP_TILE_URL", "https://tile.openstreetmap.org/{z}/{x}/{y}.png"),
	}
}

// LookupsPerSecond is the effective rate limit, e.g. 5 lookups per 10s = 0.5/s
func (c *Config) LookupsPerSecond() float64 {
	if c.RateLimitWindow <= 0 {
		return float64(c.RateLimit)
	}
	return float64(c.RateLimit) / float64(c.RateLimitWindow)
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt reads an environment variable as an integer.
// Returns default if not set or invalid.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsFloat reads an environment variable as a float64.
// Returns default if not set or invalid.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
