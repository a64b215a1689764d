package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// JobConfig is one row of the scheduled-report table. Schedule is a standard
// 5-field cron expression evaluated at minute resolution (dow 0 = Sunday).
type JobConfig struct {
	Name         string `mapstructure:"name"`
	Schedule     string `mapstructure:"schedule"`
	GuildID      string `mapstructure:"guild_id"`
	GuildName    string `mapstructure:"guild_name"`
	Kind         string `mapstructure:"kind"` // chart | deficiency
	LookbackDays int    `mapstructure:"lookback_days"`
}

type Config struct {
	DatabaseURL    string      `mapstructure:"database_url"`
	WebhookURL     string      `mapstructure:"webhook_url"`
	Port           string      `mapstructure:"port"`
	ChartPath      string      `mapstructure:"chart_path"`
	Backgrounds    []string    `mapstructure:"backgrounds"`
	Quota          int         `mapstructure:"quota"`
	SendgridAPIKey string      `mapstructure:"sendgrid_api_key"`
	ReportEmail    string      `mapstructure:"report_email"`
	Jobs           []JobConfig `mapstructure:"jobs"`
}

// EmailEnabled reports whether the optional email copy of reports is configured.
func (c *Config) EmailEnabled() bool {
	return c.SendgridAPIKey != "" && c.ReportEmail != ""
}

// Load reads config.yaml (if present) and the environment. Secrets come from
// the environment; the job table defaults to the deployed report schedule and
// can be overridden wholesale from the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.BindEnv("database_url", "DATABASE_URL")
	v.BindEnv("webhook_url", "DISCORD_WEBHOOK_URL")
	v.BindEnv("port", "PORT")
	v.BindEnv("sendgrid_api_key", "SENDGRID_API_KEY")
	v.BindEnv("report_email", "REPORT_EMAIL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("DISCORD_WEBHOOK_URL not set")
	}
	for i, jc := range cfg.Jobs {
		if jc.LookbackDays <= 0 {
			cfg.Jobs[i].LookbackDays = v.GetInt("lookback_days")
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Registered so Unmarshal sees the env-bound keys even without a file.
	v.SetDefault("database_url", "")
	v.SetDefault("webhook_url", "")
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("report_email", "")

	v.SetDefault("port", "8080")
	v.SetDefault("chart_path", "./data/tickets.png")
	v.SetDefault("backgrounds", []string{"./data/naboo.png"})
	v.SetDefault("quota", 600)
	v.SetDefault("lookback_days", 7)

	// The two fixed guilds of this deployment. Charts go out daily after each
	// guild's reset; deficiency reports follow on Sunday.
	v.SetDefault("jobs", []map[string]interface{}{
		{
			"name":       "af-tickets",
			"schedule":   "31 17 * * *",
			"guild_id":   "1HE3bh3LRcWVOto5KuGvzQ",
			"guild_name": "Awakening Fear",
			"kind":       "chart",
		},
		{
			"name":       "ah-tickets",
			"schedule":   "31 22 * * *",
			"guild_id":   "iO-khl_0TVu64OussT1Y7g",
			"guild_name": "Awakening Hope",
			"kind":       "chart",
		},
		{
			"name":       "af-tickets-missed",
			"schedule":   "32 17 * * 0",
			"guild_id":   "1HE3bh3LRcWVOto5KuGvzQ",
			"guild_name": "Awakening Fear",
			"kind":       "deficiency",
		},
		{
			"name":       "ah-tickets-missed",
			"schedule":   "32 22 * * 0",
			"guild_id":   "iO-khl_0TVu64OussT1Y7g",
			"guild_name": "Awakening Hope",
			"kind":       "deficiency",
		},
	})
}
