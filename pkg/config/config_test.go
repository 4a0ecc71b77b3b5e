package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate_DefaultsLogLevel(t *testing.T) {
	cfg := &Config{}
	require := assert.New(t)
	require.NoError(cfg.Validate())
	require.Equal("info", cfg.Log.Level)
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "verbose"}}
	assert.Error(t, cfg.Validate())
}

func TestValidate_EnforcesOptimizationTimeFloor(t *testing.T) {
	cfg := &Config{Optimize: OptimizeConfig{MaxOptimizationTime: 5 * time.Second}}
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 120*time.Second, cfg.Optimize.MaxOptimizationTime)
}

func TestValidate_DefaultsAverageSpeed(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 40.0, cfg.Distance.AverageSpeedKMH)
}

func TestCacheConfig_Address(t *testing.T) {
	c := CacheConfig{Host: "localhost", Port: 6379}
	assert.Equal(t, "localhost:6379", c.Address())
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{App: AppConfig{Environment: "development"}}
	assert.True(t, cfg.IsDevelopment())
	cfg.App.Environment = "production"
	assert.False(t, cfg.IsDevelopment())
}
