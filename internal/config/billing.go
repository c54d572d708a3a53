package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig holds the reconciliation tunables that operators may
// change without a redeploy.
type BillingConfig struct {
	// MaxRetryAttempts is the gateway attempt count at which a failing
	// subscription is canceled instead of retried.
	MaxRetryAttempts int `mapstructure:"maxRetryAttempts"`
	// RetryInterval is the fallback delay before the next retry when the
	// gateway does not report its own next-attempt timestamp.
	RetryInterval time.Duration `mapstructure:"retryInterval"`
	// RenewalLookahead bounds the renewal sweep window (now .. now+lookahead).
	RenewalLookahead time.Duration `mapstructure:"renewalLookahead"`
	// ReminderLeadDays places the reminder window: the 24h slice ending
	// ReminderLeadDays before period end.
	ReminderLeadDays int `mapstructure:"reminderLeadDays"`
	// InvoicePageSize is the gateway page size used by invoice sync.
	InvoicePageSize int `mapstructure:"invoicePageSize"`
	// UpcomingRenewalWindowDays bounds the summary's upcoming-renewal count.
	UpcomingRenewalWindowDays int `mapstructure:"upcomingRenewalWindowDays"`
	// TopTierLimit caps the tier leaderboard in the artist summary.
	TopTierLimit int `mapstructure:"topTierLimit"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		MaxRetryAttempts:          3,
		RetryInterval:             24 * time.Hour,
		RenewalLookahead:          24 * time.Hour,
		ReminderLeadDays:          3,
		InvoicePageSize:           100,
		UpcomingRenewalWindowDays: 7,
		TopTierLimit:              5,
	}
}

// BillingConfigHolder exposes the current BillingConfig and hot-reloads
// it when the backing file changes.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/directfanz/config") // Volume-mounted config
	v.AddConfigPath("/etc/directfanz")            // System config
	v.AddConfigPath(".")                          // Current directory (dev mode)

	v.SetEnvPrefix("DIRECTFANZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.maxRetryAttempts", defaults.MaxRetryAttempts)
	v.SetDefault("billing.retryInterval", defaults.RetryInterval)
	v.SetDefault("billing.renewalLookahead", defaults.RenewalLookahead)
	v.SetDefault("billing.reminderLeadDays", defaults.ReminderLeadDays)
	v.SetDefault("billing.invoicePageSize", defaults.InvoicePageSize)
	v.SetDefault("billing.upcomingRenewalWindowDays", defaults.UpcomingRenewalWindowDays)
	v.SetDefault("billing.topTierLimit", defaults.TopTierLimit)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed config with no file
// watching.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.MaxRetryAttempts <= 0 {
		return errors.New("billing.maxRetryAttempts must be positive")
	}
	if cfg.RetryInterval <= 0 {
		return errors.New("billing.retryInterval must be positive")
	}
	if cfg.RenewalLookahead <= 0 {
		return errors.New("billing.renewalLookahead must be positive")
	}
	if cfg.ReminderLeadDays <= 0 {
		return errors.New("billing.reminderLeadDays must be positive")
	}
	if cfg.InvoicePageSize <= 0 {
		return errors.New("billing.invoicePageSize must be positive")
	}
	return nil
}
