package memory

import "github.com/aiox-platform/mentionbot/internal/config"

// Config holds the memory settings used by Service.
type Config struct {
	ShortTermEnabled    bool
	LongTermEnabled     bool
	MaxShortTermMsgs    int
	ShortTermTTLSec     int
	MaxLongTermResults  int
	SimilarityThreshold float64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ShortTermEnabled:    true,
		LongTermEnabled:     true,
		MaxShortTermMsgs:    20,
		ShortTermTTLSec:     7 * 24 * 3600,
		MaxLongTermResults:  5,
		SimilarityThreshold: 0.7,
	}
}

// ConfigFrom builds a Config from application settings. Non-positive sizes
// fall back to defaults; the enable flags are taken as given.
func ConfigFrom(c config.MemoryConfig) Config {
	cfg := DefaultConfig()
	cfg.ShortTermEnabled = c.ShortTermEnabled
	cfg.LongTermEnabled = c.LongTermEnabled
	if c.MaxShortTermMsgs > 0 {
		cfg.MaxShortTermMsgs = c.MaxShortTermMsgs
	}
	if c.ShortTermTTLSec > 0 {
		cfg.ShortTermTTLSec = c.ShortTermTTLSec
	}
	if c.MaxLongTermResults > 0 {
		cfg.MaxLongTermResults = c.MaxLongTermResults
	}
	if c.SimilarityThreshold > 0 {
		cfg.SimilarityThreshold = c.SimilarityThreshold
	}
	return cfg
}
