package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig configures the loyalty CLI.
type ClientConfig struct {
	Env               string        // selects the log format, as for the server
	APIURL            string        // base URL of the gateway
	RefreshToken      string        // session to restore on start (optional)
	InitTimeout       time.Duration // bound on the startup session check
	ProfileRetryDelay time.Duration // wait before re-reading a profile missing after signup
}

// LoadClient reads the CLI settings.  Nothing is required; the defaults
// point at a gateway on localhost.
func LoadClient() ClientConfig {
	_ = godotenv.Load()
	return ClientConfig{
		Env:               envStr("APP_ENV", "dev"),
		APIURL:            strings.TrimRight(envStr("LOYALTY_API_URL", "http://localhost:8080"), "/"),
		RefreshToken:      strings.TrimSpace(os.Getenv("LOYALTY_REFRESH_TOKEN")),
		InitTimeout:       envDur("LOYALTY_INIT_TIMEOUT", 10*time.Second),
		ProfileRetryDelay: envDur("LOYALTY_PROFILE_RETRY_DELAY", 500*time.Millisecond),
	}
}
