package config

import (
	"testing"
	"time"
)

// TestLoad_Defaults tests the defaults used when nothing is configured
func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "TRUST_PROXY_HEADERS", "LOG_LEVEL", "LOG_PRETTY", "LOG_FILE", "GEO_API_URL", "GEO_API_KEY", "GEO_API_TIMEOUT",
		"RATE_LIMITER_TYPE", "RATE_LIMIT", "RATE_LIMIT_WINDOW", "SESSION_TTL",
		"MAP_DEFAULT_LAT", "MAP_DEFAULT_LNG", "MAP_DEFAULT_ZOOM", "MAP_TILE_URL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "3000" {
		t.Errorf("expected port 3000, got %s", cfg.Port)
	}
	if cfg.GeoAPIURL != "https://geo.ipify.org" {
		t.Errorf("unexpected API URL %s", cfg.GeoAPIURL)
	}
	if cfg.GeoAPITimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.GeoAPITimeout)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("expected 30m session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.MapDefaultLat != 51.505 || cfg.MapDefaultLng != -0.09 || cfg.MapDefaultZoom != 13 {
		t.Errorf("unexpected map defaults %v,%v@%d", cfg.MapDefaultLat, cfg.MapDefaultLng, cfg.MapDefaultZoom)
	}
	if !cfg.LogPretty {
		t.Error("expected pretty logging by default")
	}
	if cfg.TrustProxyHeaders {
		t.Error("expected forwarding headers to be untrusted by default")
	}
}

// TestLoad_Overrides tests that environment variables win over defaults
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GEO_API_KEY", "secret")
	t.Setenv("GEO_API_TIMEOUT", "3")
	t.Setenv("RATE_LIMITER_TYPE", "redis")
	t.Setenv("LOG_PRETTY", "false")
	t.Setenv("MAP_DEFAULT_LAT", "40.7")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg := Load()

	if !cfg.TrustProxyHeaders {
		t.Error("expected forwarding headers to be trusted")
	}

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.GeoAPIKey != "secret" {
		t.Errorf("expected api key, got %q", cfg.GeoAPIKey)
	}
	if cfg.GeoAPITimeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", cfg.GeoAPITimeout)
	}
	if cfg.RateLimitType != "redis" {
		t.Errorf("expected redis limiter, got %s", cfg.RateLimitType)
	}
	if cfg.LogPretty {
		t.Error("expected pretty logging disabled")
	}
	if cfg.MapDefaultLat != 40.7 {
		t.Errorf("expected lat 40.7, got %v", cfg.MapDefaultLat)
	}
}

// TestLoad_InvalidNumbers tests that unparsable values fall back to defaults
func TestLoad_InvalidNumbers(t *testing.T) {
	t.Setenv("RATE_LIMIT", "lots")
	t.Setenv("MAP_DEFAULT_LNG", "west")
	t.Setenv("LOG_PRETTY", "maybe")

	cfg := Load()

	if cfg.RateLimit != 5 {
		t.Errorf("expected default rate limit 5, got %d", cfg.RateLimit)
	}
	if cfg.MapDefaultLng != -0.09 {
		t.Errorf("expected default lng, got %v", cfg.MapDefaultLng)
	}
	if !cfg.LogPretty {
		t.Error("expected default pretty logging")
	}
}

func TestConfig_LookupsPerSecond(t *testing.T) {
	tests := []struct {
		limit, window int
		want          float64
	}{
		{5, 10, 0.5},
		{10, 1, 10},
		{3, 0, 3},
	}

	for _, tt := range tests {
		cfg := &Config{RateLimit: tt.limit, RateLimitWindow: tt.window}
		if got := cfg.LookupsPerSecond(); got != tt.want {
			t.Errorf("%d per %ds: expected %v, got %v", tt.limit, tt.window, tt.want, got)
		}
	}
}
