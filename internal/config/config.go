package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds command configuration derived from environment variables.
// The library itself is configured through code; this only feeds the demo
// command and the mock server.
type Config struct {
	Endpoint       string
	PublisherID    string
	ProfileID      int
	AdUnitID       string
	AdWidth        int
	AdHeight       int
	NetworkTimeout time.Duration

	AdvertisingID   string
	LimitAdTracking bool

	MockServerAddr    string
	MockServerLatency time.Duration
}

// Load parses environment variables and returns a Config populated with
// defaults when variables are absent.
func Load() Config {
	cfg := Config{}

	cfg.Endpoint = getenv("OW_ENDPOINT", "https://ow.pubmatic.com/video/json")
	cfg.PublisherID = getenv("OW_PUBLISHER_ID", "156276")
	cfg.ProfileID = envInt("OW_PROFILE_ID", 2486)
	cfg.AdUnitID = getenv("OW_AD_UNIT_ID", "/15671365/pm_ott_video")
	cfg.AdWidth = envInt("OW_AD_WIDTH", 640)
	cfg.AdHeight = envInt("OW_AD_HEIGHT", 480)
	cfg.NetworkTimeout = envDuration("OW_NETWORK_TIMEOUT", 5*time.Second)

	cfg.AdvertisingID = getenv("OW_ADVERTISING_ID", "")
	cfg.LimitAdTracking = envBool("OW_LIMIT_AD_TRACKING", false)

	cfg.MockServerAddr = getenv("OW_MOCK_ADDR", ":8787")
	cfg.MockServerLatency = envDuration("OW_MOCK_LATENCY", 0)

	return cfg
}

// getenv returns the value of the environment variable if set, otherwise def.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration parses an environment variable into a time.Duration.
// The value can be a duration string (e.g. "5s") or a number of seconds.
// If the variable is unset or invalid, def is returned.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

// envBool parses a boolean environment variable. Accepted values are those
// supported by strconv.ParseBool. When unset or invalid, def is returned.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return def
}

// envInt parses an integer environment variable. When unset or invalid, def is returned.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}
