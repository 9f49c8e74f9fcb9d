/*
Package config loads the process-wide configuration for the tiffin
engine.

PURPOSE:
  All date/time arithmetic in the engine is driven by a handful of
  business settings: the weekly delivery window, the daily cutoff time,
  the timezone, and the renewal reminder policy. They are read once at
  startup and passed into the engines as explicit values - there is no
  global configuration state anywhere downstream.

LOADING:
  1. godotenv reads a .env file if present (non-fatal when absent)
  2. envconfig populates the struct from the environment
  3. Validate() rejects inconsistent values before anything runs

EXAMPLE:
  cfg, err := config.Load()
  loc, _ := cfg.Location()
  window, _ := cfg.Window()
  engine := tiffin.Engine{Window: window, Cutoff: cfg.CutoffAt(loc)}
*/
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/warp/tiffin-engine/calendar"
)

// Config is the explicit configuration value passed into every engine
// entry point. Immutable after Load.
type Config struct {
	// HTTP server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage
	DatabasePath string `envconfig:"DATABASE_PATH" default:"tiffin.db"`

	// Delivery window (inclusive weekday range, wrap-around aware)
	DeliveryStartDay string `envconfig:"DELIVERY_START_DAY" default:"monday"`
	DeliveryEndDay   string `envconfig:"DELIVERY_END_DAY" default:"friday"`

	// Daily accounting cutoff, local to Timezone
	CutoffHour   int    `envconfig:"CUTOFF_HOUR" default:"17"`
	CutoffMinute int    `envconfig:"CUTOFF_MINUTE" default:"0"`
	Timezone     string `envconfig:"TIMEZONE" default:"UTC"`

	// Renewal reminder policy
	RenewalReminderEnabled   bool          `envconfig:"RENEWAL_REMINDER_ENABLED" default:"true"`
	RenewalReminderThreshold int           `envconfig:"RENEWAL_REMINDER_TIFFIN_THRESHOLD" default:"3"`
	RenewalExcludeTrialMeals bool          `envconfig:"RENEWAL_REMINDER_EXCLUDE_TRIAL_MEALS" default:"true"`
	RenewalExcludedProducts  []string      `envconfig:"RENEWAL_REMINDER_EXCLUDED_PRODUCTS"`
	RenewalLinkBase          string        `envconfig:"RENEWAL_LINK_BASE" default:"http://localhost:8080/renew"`
	RenewalOfferTTL          time.Duration `envconfig:"RENEWAL_OFFER_TTL" default:"336h"`

	// How often the background scheduler checks whether the daily job
	// should run. The job itself is idempotent, so frequent checks are
	// harmless.
	JobCheckInterval time.Duration `envconfig:"JOB_CHECK_INTERVAL" default:"1h"`
}

// Load reads .env (optional), the environment, and validates.
func Load() (*Config, error) {
	_ = godotenv.Load() // absent .env is the normal production case

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field consistency beyond what envconfig can.
func (c *Config) Validate() error {
	if _, err := c.Window(); err != nil {
		return err
	}
	if c.CutoffHour < 0 || c.CutoffHour > 23 {
		return fmt.Errorf("cutoff hour %d out of range", c.CutoffHour)
	}
	if c.CutoffMinute < 0 || c.CutoffMinute > 59 {
		return fmt.Errorf("cutoff minute %d out of range", c.CutoffMinute)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.RenewalReminderThreshold < 0 {
		return fmt.Errorf("renewal threshold %d must not be negative", c.RenewalReminderThreshold)
	}
	return nil
}

// Window builds the delivery window from the configured day names.
func (c *Config) Window() (calendar.DeliveryWindow, error) {
	return calendar.ParseWindow(c.DeliveryStartDay, c.DeliveryEndDay)
}

// Location resolves the configured IANA timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CutoffAt builds the daily cutoff anchored to the given location.
func (c *Config) CutoffAt(loc *time.Location) calendar.Cutoff {
	return calendar.Cutoff{Hour: c.CutoffHour, Minute: c.CutoffMinute, Loc: loc}
}
