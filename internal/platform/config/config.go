package config

import (
	"os"
	"time"
)

// Client captures configuration for the remote participants API connection.
type Client struct {
	APIURL      string
	HTTPTimeout time.Duration
}

// FromEnv builds a Client config from environment variables so main stays lean.
func FromEnv() Client {
	apiURL := os.Getenv("TRIALDESK_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:5000/api"
	}

	// Matches the 10s default the browser client shipped with.
	timeout := 10 * time.Second
	if raw := os.Getenv("TRIALDESK_HTTP_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			timeout = parsed
		}
	}

	return Client{
		APIURL:      apiURL,
		HTTPTimeout: timeout,
	}
}

// Fixture captures configuration for the standalone dev API server.
type Fixture struct {
	Addr          string
	JWTSigningKey string
}

// FixtureFromEnv builds a Fixture config from environment variables.
func FixtureFromEnv() Fixture {
	addr := os.Getenv("TRIALDESK_FIXTURE_ADDR")
	if addr == "" {
		addr = ":5000"
	}

	jwtSigningKey := os.Getenv("TRIALDESK_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Fixture{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
	}
}
