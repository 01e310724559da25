// internal/workers/mentoring/assign-primary/config.go
package assignprimary

import "time"

type Config struct {
	Timeout       time.Duration
	MaxCohortSize int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		MaxCohortSize: 300,
	}
}
