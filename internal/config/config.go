package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pelissiertools-cpu/focus-ios-sub000/internal/model"
)

// SectionLimits maps section and timeframe to the maximum number of
// commitments the bucket may hold. A zero or missing entry means
// unlimited.
type SectionLimits map[model.Section]map[model.Timeframe]int

// Limit returns the occupancy cap for a section at a timeframe; 0 means
// unlimited.
func (l SectionLimits) Limit(section model.Section, tf model.Timeframe) int {
	return l[section][tf]
}

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken   string
	OwnerTelegramID int64
	DatabaseURL     string
	RefreshInterval time.Duration
	AgendaTime      string // HH:MM local time for the daily agenda push; empty disables
	SectionLimits   SectionLimits
}

// Load reads configuration from an optional focusplanner.yaml and
// FOCUS_-prefixed environment variables, with sane defaults.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("focusplanner")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/focusplanner")
	v.SetEnvPrefix("focus")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database.url", "focus_planner.db")
	v.SetDefault("refresh.interval", "15m")
	v.SetDefault("agenda.time", "08:00")
	v.SetDefault("sections.primary.daily", 3)
	v.SetDefault("sections.primary.weekly", 5)
	v.SetDefault("sections.primary.monthly", 5)
	v.SetDefault("sections.primary.yearly", 3)
	// Overflow is uncapped at every timeframe.

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		TelegramToken:   strings.TrimSpace(v.GetString("telegram.token")),
		OwnerTelegramID: v.GetInt64("telegram.owner"),
		DatabaseURL:     v.GetString("database.url"),
		RefreshInterval: v.GetDuration("refresh.interval"),
		AgendaTime:      v.GetString("agenda.time"),
		SectionLimits:   loadLimits(v),
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("FOCUS_TELEGRAM_TOKEN is required")
	}
	if cfg.OwnerTelegramID == 0 {
		return cfg, fmt.Errorf("FOCUS_TELEGRAM_OWNER is required")
	}

	return cfg, nil
}

func loadLimits(v *viper.Viper) SectionLimits {
	limits := make(SectionLimits, len(model.Sections()))
	for _, section := range model.Sections() {
		perTf := make(map[model.Timeframe]int, len(model.Timeframes()))
		for _, tf := range model.Timeframes() {
			key := fmt.Sprintf("sections.%s.%s", section, tf)
			if n := v.GetInt(key); n > 0 {
				perTf[tf] = n
			}
		}
		limits[section] = perTf
	}
	return limits
}
