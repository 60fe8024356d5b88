package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FOCUS_TELEGRAM_TOKEN", "test-token")
	t.Setenv("FOCUS_TELEGRAM_OWNER", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.TelegramToken)
	assert.Equal(t, int64(42), cfg.OwnerTelegramID)
	assert.Equal(t, "focus_planner.db", cfg.DatabaseURL)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "08:00", cfg.AgendaTime)

	assert.Equal(t, 3, cfg.SectionLimits.Limit(model.SectionPrimary, model.TimeframeDaily))
	assert.Equal(t, 5, cfg.SectionLimits.Limit(model.SectionPrimary, model.TimeframeWeekly))
	assert.Equal(t, 0, cfg.SectionLimits.Limit(model.SectionOverflow, model.TimeframeDaily), "overflow is uncapped")
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("FOCUS_TELEGRAM_TOKEN", "")
	t.Setenv("FOCUS_TELEGRAM_OWNER", "42")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FOCUS_TELEGRAM_TOKEN", "test-token")
	t.Setenv("FOCUS_TELEGRAM_OWNER", "42")
	t.Setenv("FOCUS_SECTIONS_PRIMARY_DAILY", "5")
	t.Setenv("FOCUS_REFRESH_INTERVAL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.SectionLimits.Limit(model.SectionPrimary, model.TimeframeDaily))
	assert.Equal(t, time.Hour, cfg.RefreshInterval)
}
