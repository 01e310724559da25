// internal/workers/mentoring/rank-candidates/config.go
package rankcandidates

import "time"

type Config struct {
	Timeout     time.Duration
	DefaultTopK int
	MaxPoolSize int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		DefaultTopK: 3,
		MaxPoolSize: 500,
	}
}
