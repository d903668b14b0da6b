package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Path string
	}
	Server struct {
		Port      int
		JWTSecret string `mapstructure:"jwt_secret"`
	}
	Engine EngineConfig
	Notify struct {
		Slack struct {
			Token   string
			Channel string
		}
		Email struct {
			SMTPHost    string `mapstructure:"smtp_host"`
			SMTPPort    int    `mapstructure:"smtp_port"`
			From        string
			Password    string
			ToReceivers []string `mapstructure:"to_receivers"`
		}
	}
}

// EngineConfig holds the alert engine timers and detection thresholds.
type EngineConfig struct {
	DetectionInterval    time.Duration `mapstructure:"detection_interval"`
	EscalationInterval   time.Duration `mapstructure:"escalation_interval"`
	CleanupInterval      time.Duration `mapstructure:"cleanup_interval"`
	EscalationTimeout    time.Duration `mapstructure:"escalation_timeout"`
	AbsenceCheckHour     int           `mapstructure:"absence_check_hour"`
	CheckoutCheckHour    int           `mapstructure:"checkout_check_hour"`
	StandardWorkdayHours float64       `mapstructure:"standard_workday_hours"`
	// Timezone is the single IANA zone used for the hour thresholds and
	// for the calendar day embedded in alert identifiers.
	Timezone            string `mapstructure:"timezone"`
	FirstTierRecipient  string `mapstructure:"first_tier_recipient"`
	SecondTierRecipient string `mapstructure:"second_tier_recipient"`
}

// Validate rejects configurations that would misbehave once the loops
// are running. Called by the engine before any loop starts.
func (c EngineConfig) Validate() error {
	if c.DetectionInterval <= 0 {
		return fmt.Errorf("detection_interval must be positive, got %s", c.DetectionInterval)
	}
	if c.EscalationInterval <= 0 {
		return fmt.Errorf("escalation_interval must be positive, got %s", c.EscalationInterval)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval must be positive, got %s", c.CleanupInterval)
	}
	if c.EscalationTimeout <= 0 {
		return fmt.Errorf("escalation_timeout must be positive, got %s", c.EscalationTimeout)
	}
	if c.AbsenceCheckHour < 0 || c.AbsenceCheckHour > 23 {
		return fmt.Errorf("absence_check_hour must be 0-23, got %d", c.AbsenceCheckHour)
	}
	if c.CheckoutCheckHour < 0 || c.CheckoutCheckHour > 23 {
		return fmt.Errorf("checkout_check_hour must be 0-23, got %d", c.CheckoutCheckHour)
	}
	if c.StandardWorkdayHours <= 0 {
		return fmt.Errorf("standard_workday_hours must be positive, got %g", c.StandardWorkdayHours)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone. Validate must have
// accepted the config first.
func (c EngineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LoadConfig reads config.yaml from the working directory, falling
// back to defaults for anything unset.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("database.path", "data/siteeye.db")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("engine.detection_interval", "5m")
	viper.SetDefault("engine.escalation_interval", "2m")
	viper.SetDefault("engine.cleanup_interval", "1h")
	viper.SetDefault("engine.escalation_timeout", "15m")
	viper.SetDefault("engine.absence_check_hour", 9)
	viper.SetDefault("engine.checkout_check_hour", 19)
	viper.SetDefault("engine.standard_workday_hours", 10.0)
	viper.SetDefault("engine.timezone", "Local")
	viper.SetDefault("engine.first_tier_recipient", "operations")
	viper.SetDefault("engine.second_tier_recipient", "management")
}
