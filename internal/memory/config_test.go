package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aiox-platform/mentionbot/internal/config"
)

func TestConfigFrom_ZeroValuesUseDefaults(t *testing.T) {
	cfg := ConfigFrom(config.MemoryConfig{ShortTermEnabled: true, LongTermEnabled: true})
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigFrom_Overrides(t *testing.T) {
	cfg := ConfigFrom(config.MemoryConfig{
		ShortTermEnabled:    true,
		LongTermEnabled:     false,
		MaxShortTermMsgs:    50,
		ShortTermTTLSec:     60,
		MaxLongTermResults:  10,
		SimilarityThreshold: 0.5,
	})
	assert.True(t, cfg.ShortTermEnabled)
	assert.False(t, cfg.LongTermEnabled)
	assert.Equal(t, 50, cfg.MaxShortTermMsgs)
	assert.Equal(t, 60, cfg.ShortTermTTLSec)
	assert.Equal(t, 10, cfg.MaxLongTermResults)
	assert.Equal(t, 0.5, cfg.SimilarityThreshold)
}

func TestConfigFrom_DisabledExplicitly(t *testing.T) {
	cfg := ConfigFrom(config.MemoryConfig{})
	assert.False(t, cfg.ShortTermEnabled)
	assert.False(t, cfg.LongTermEnabled)
	assert.Equal(t, 20, cfg.MaxShortTermMsgs)
}
