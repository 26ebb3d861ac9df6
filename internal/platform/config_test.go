package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LLM_PROVIDER", "SEARCH_MAX_RESULTS", "RENDER_TIMEOUT", "TOPIC_FEEDS", "GO_ENV"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()

	// set-but-empty strings are kept; numbers and durations fall back
	assert.Equal(t, "", cfg.App.Port)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, 10*time.Minute, cfg.Avatar.Timeout)
	assert.Empty(t, cfg.Topics.Feeds)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "22", cfg.YouTube.CategoryID)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("SEARCH_MAX_RESULTS", "3")
	t.Setenv("RENDER_POLL_INTERVAL", "2s")
	t.Setenv("TOPIC_FEEDS", "https://a.example/rss, ,https://b.example/atom")

	cfg := LoadConfig()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.Search.MaxResults)
	assert.Equal(t, 2*time.Second, cfg.Avatar.PollInterval)
	assert.Equal(t, []string{"https://a.example/rss", "https://b.example/atom"}, cfg.Topics.Feeds)
}

func TestGetEnvAsInt_Invalid(t *testing.T) {
	t.Setenv("SOME_NUMBER", "many")
	assert.Equal(t, 7, getEnvAsInt("SOME_NUMBER", 7))
}
