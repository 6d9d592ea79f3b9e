package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultServiceName      = "subscriptions"
	DefaultProviderBaseURL  = "https://graph.microsoft.com/v1.0"
	DefaultMaxBatchSize     = 20
	DefaultWatchedResource  = "communications/callRecords"
	DefaultSubscriptionDays = 2
	DefaultCallbackPath     = "/api/subscriptionNotification"
	DefaultRenewalCron      = "0 */5 * * * *"
	DefaultHTTPAddr         = ":8080"
)

type ProviderConfig struct {
	BaseURL      string        `koanf:"base_url" mapstructure:"base_url"`
	MaxBatchSize int           `koanf:"max_batch_size" mapstructure:"max_batch_size"`
	Timeout      time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type SubscriptionConfig struct {
	Resource    string `koanf:"resource" mapstructure:"resource"`
	TTLDays     int    `koanf:"ttl_days" mapstructure:"ttl_days"`
	ClientState string `koanf:"client_state" mapstructure:"client_state"`
}

func (c SubscriptionConfig) TTL() time.Duration {
	return TTLFromDays(c.TTLDays)
}

type CallbackConfig struct {
	PublicBaseURL string `koanf:"public_base_url" mapstructure:"public_base_url"`
	Path          string `koanf:"path" mapstructure:"path"`
}

type ScheduleConfig struct {
	RenewalCron string `koanf:"renewal_cron" mapstructure:"renewal_cron"`
}

type PersistenceConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr" mapstructure:"addr"`
}

type Config struct {
	ServiceName  string             `koanf:"service_name" mapstructure:"service_name"`
	Provider     ProviderConfig     `koanf:"provider" mapstructure:"provider"`
	Subscription SubscriptionConfig `koanf:"subscription" mapstructure:"subscription"`
	Callback     CallbackConfig     `koanf:"callback" mapstructure:"callback"`
	Schedule     ScheduleConfig     `koanf:"schedule" mapstructure:"schedule"`
	Persistence  PersistenceConfig  `koanf:"persistence" mapstructure:"persistence"`
	HTTP         HTTPConfig         `koanf:"http" mapstructure:"http"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: DefaultServiceName,
		Provider: ProviderConfig{
			BaseURL:      DefaultProviderBaseURL,
			MaxBatchSize: DefaultMaxBatchSize,
			Timeout:      30 * time.Second,
		},
		Subscription: SubscriptionConfig{
			Resource: DefaultWatchedResource,
			TTLDays:  DefaultSubscriptionDays,
		},
		Callback: CallbackConfig{
			Path: DefaultCallbackPath,
		},
		Schedule: ScheduleConfig{
			RenewalCron: DefaultRenewalCron,
		},
		Persistence: PersistenceConfig{
			Driver: "sqlite3",
			DSN:    "file:subscriptions.db?cache=shared&_foreign_keys=on",
		},
		HTTP: HTTPConfig{
			Addr: DefaultHTTPAddr,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Provider.BaseURL) == "" {
		return fmt.Errorf("core: provider.base_url is required")
	}
	if c.Provider.MaxBatchSize < 2 {
		return fmt.Errorf("core: provider.max_batch_size must allow more than one step, got %d", c.Provider.MaxBatchSize)
	}
	if strings.TrimSpace(c.Subscription.Resource) == "" {
		return fmt.Errorf("core: subscription.resource is required")
	}
	if c.Subscription.TTLDays <= 0 {
		return fmt.Errorf("core: subscription.ttl_days must be positive, got %d", c.Subscription.TTLDays)
	}
	if strings.TrimSpace(c.Schedule.RenewalCron) == "" {
		return fmt.Errorf("core: schedule.renewal_cron is required")
	}
	return nil
}
