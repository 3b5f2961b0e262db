package entitlement

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the full service configuration, loaded once at startup and
// injected immutably into every service. Tier ordering is a total priority
// order; the first entry wins when a purchase matches more than one.
type Config struct {
	Debug bool `json:"debug" yaml:"debug"`

	Tiers    []Tier `json:"tiers" yaml:"tiers" validate:"required,min=1,dive"`
	BaseRole string `json:"base_role" yaml:"base_role" validate:"required"`

	Discord struct {
		Token   string `json:"token" yaml:"token" validate:"required"`
		GuildID string `json:"guild_id" yaml:"guild_id" validate:"required"`
	} `json:"discord" yaml:"discord"`

	Commerce struct {
		OrdersURL string `json:"orders_url" yaml:"orders_url" validate:"required,url"`
		Token     string `json:"token" yaml:"token"`
	} `json:"commerce" yaml:"commerce"`

	Audit struct {
		Enabled        bool `json:"enabled" yaml:"enabled"`
		DryRun         bool `json:"dry_run" yaml:"dry_run"`
		IntervalHours  int  `json:"interval_hours" yaml:"interval_hours"`
		StartupDelayMs int  `json:"startup_delay_ms" yaml:"startup_delay_ms"`
		GraceDays      int  `json:"grace_days" yaml:"grace_days"`
	} `json:"audit" yaml:"audit"`

	StorePath   string `json:"store_path" yaml:"store_path"`
	JournalPath string `json:"journal_path" yaml:"journal_path"`

	Web struct {
		Addr     string `json:"addr" yaml:"addr"`
		AdminKey string `json:"admin_key" yaml:"admin_key"`
	} `json:"web" yaml:"web"`
}

const (
	defaultAuditIntervalHours = 24
	defaultAuditStartupDelay  = 5 * time.Minute
	defaultGraceDays          = 35
)

// Defaults fills unset fields in place.
func (c *Config) Defaults() {
	if c.Audit.IntervalHours <= 0 {
		c.Audit.IntervalHours = defaultAuditIntervalHours
	}
	if c.Audit.GraceDays <= 0 {
		c.Audit.GraceDays = defaultGraceDays
	}
	if c.StorePath == "" {
		c.StorePath = "links.json"
	}
	if c.JournalPath == "" {
		c.JournalPath = "journal.db"
	}
	if c.Web.Addr == "" {
		c.Web.Addr = ":8084"
	}
}

func (c *Config) AuditInterval() time.Duration {
	return time.Duration(c.Audit.IntervalHours) * time.Hour
}

func (c *Config) AuditStartupDelay() time.Duration {
	if c.Audit.StartupDelayMs <= 0 {
		return defaultAuditStartupDelay
	}
	return time.Duration(c.Audit.StartupDelayMs) * time.Millisecond
}

// Validate enforces the deployment contract: at least one tier, a base role,
// and credentials for both collaborators. A config that fails here is a
// deployment defect, not a runtime condition.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	seen := map[string]bool{}
	for _, t := range c.Tiers {
		if t.RoleName == c.BaseRole {
			return fmt.Errorf("config validation: tier role %q collides with base role", t.RoleName)
		}
		if seen[t.RoleName] {
			return fmt.Errorf("config validation: duplicate tier role %q", t.RoleName)
		}
		seen[t.RoleName] = true
	}
	return nil
}
