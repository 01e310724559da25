// internal/workers/mentoring/commit-assignments/config.go
package commitassignments

import "time"

type Config struct {
	Timeout       time.Duration
	PublishEvents bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
