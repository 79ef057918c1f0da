package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	DatabaseURL    string
	HTTPListenAddr string
	LogLevel       string
	ServiceName    string
	// NodeID identifies the machine serving local-disk backups; it is attached
	// to every log line so multi-node deployments can be told apart.
	NodeID string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8090"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ServiceName:    getEnv("SERVICE_NAME", "vault-api"),
		NodeID:         getEnv("NODE_ID", ""),
	}

	return cfg, nil
}

// Validate checks that the fields required by the given command are set.
func (c *Config) Validate(command string) error {
	var missing []string

	switch command {
	case "vault-api":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if c.HTTPListenAddr == "" {
			missing = append(missing, "HTTP_LISTEN_ADDR")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
