package tasks

import "time"

// Config tunes the backlite dispatcher. Zero fields fall back to
// DefaultConfig.
type Config struct {
	Workers         int
	ReleaseAfter    time.Duration // a claimed task not finished by then goes back to the queue
	CleanupInterval time.Duration // how often expired completed tasks are purged
}

func DefaultConfig() Config {
	return Config{
		Workers:         2,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: time.Hour,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = def.ReleaseAfter
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	return c
}
