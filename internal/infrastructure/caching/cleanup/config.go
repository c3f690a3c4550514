package cleanup

import "time"

// Config controls the background sweep.
type Config struct {
	Interval         time.Duration
	VerboseReporting bool
}

// NewConfig creates cleanup configuration with the given interval.
func NewConfig(interval time.Duration, verbose bool) *Config {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Config{Interval: interval, VerboseReporting: verbose}
}
