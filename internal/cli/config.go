package cli

import (
	"os"
	"time"
)

// Config holds CLI configuration
type Config struct {
	// ConfigFile is the YAML file the serve commands read
	ConfigFile string
	// Addr is the server the client commands talk to
	Addr    string
	Timeout time.Duration
	Output  string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ConfigFile: os.Getenv("GAMEHUB_CONFIG"),
		Addr:       getEnvOrDefault("GAMEHUB_ADDR", "127.0.0.1:17080"),
		Timeout:    10 * time.Second,
		Output:     "text",
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
