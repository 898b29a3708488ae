package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/hazz-dev/resmon/internal/check"
)

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// Resource describes a single monitored resource. Immutable after load.
type Resource struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"`
	Params   check.Params      `yaml:"params"`
	Enabled  bool              `yaml:"enabled"`
	TTL      Duration          `yaml:"ttl"`
	Timeout  Duration          `yaml:"timeout"`
	NotifyOn []check.Status    `yaml:"notify_on"`
	Labels   map[string]string `yaml:"labels"`
}

// ShouldNotify reports whether a transition into status is within this
// resource's notification threshold.
func (r Resource) ShouldNotify(status check.Status) bool {
	for _, s := range r.NotifyOn {
		if s == status {
			return true
		}
	}
	return false
}

// CacheConfig selects and configures the result cache backend.
type CacheConfig struct {
	Backend string `yaml:"backend"` // memory, redis, or sqlite
	Redis   struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
}

// WebhookConfig holds notification webhook settings.
type WebhookConfig struct {
	URL      string   `yaml:"url"`
	Cooldown Duration `yaml:"cooldown"`
}

// NotificationsConfig holds all notification configuration.
type NotificationsConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// SchedulerConfig holds background check settings.
type SchedulerConfig struct {
	Interval Duration `yaml:"interval"`
}

// Config is the root application configuration.
type Config struct {
	Resources     []Resource          `yaml:"resources"`
	Cache         CacheConfig         `yaml:"cache"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Server        ServerConfig        `yaml:"server"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`

	// Dropped records definitions rejected during load. The caller logs
	// them; a bad definition never blocks the rest.
	Dropped []DefinitionError `yaml:"-"`
}

// DefinitionError describes a resource definition rejected at load time.
type DefinitionError struct {
	Index  int
	Name   string
	Reason string
}

func (e DefinitionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("resource %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("resource[%d]: %s", e.Index, e.Reason)
}

// overrides are environment settings applied on top of the YAML file, so
// deployment-specific endpoints and secrets stay out of the definitions file.
type overrides struct {
	ServerAddress string `envconfig:"SERVER_ADDRESS"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	WebhookURL    string `envconfig:"WEBHOOK_URL"`
}

// rawResource is the pre-validation shape of a definition. Durations stay
// strings here so a single bad value drops one definition instead of
// failing the whole file.
type rawResource struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"`
	Params   check.Params      `yaml:"params"`
	Enabled  *bool             `yaml:"enabled"`
	TTL      string            `yaml:"ttl"`
	Timeout  string            `yaml:"timeout"`
	NotifyOn []string          `yaml:"notify_on"`
	Labels   map[string]string `yaml:"labels"`
}

type rawConfig struct {
	Resources     []rawResource       `yaml:"resources"`
	Cache         CacheConfig         `yaml:"cache"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Server        ServerConfig        `yaml:"server"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
}

// buildResource validates one raw definition and applies per-field defaults.
func buildResource(index int, rr rawResource) (Resource, *DefinitionError) {
	if rr.Name == "" {
		return Resource{}, &DefinitionError{Index: index, Reason: "name is required"}
	}
	if rr.Type == "" {
		return Resource{}, &DefinitionError{Index: index, Name: rr.Name, Reason: "type is required"}
	}

	res := Resource{
		Name:    rr.Name,
		Type:    rr.Type,
		Params:  rr.Params,
		Enabled: true,
		Labels:  rr.Labels,
	}
	if res.Params == nil {
		res.Params = check.Params{}
	}
	if rr.Enabled != nil {
		res.Enabled = *rr.Enabled
	}

	// Parse TTL with default.
	if rr.TTL == "" {
		res.TTL = Duration{30 * time.Second}
	} else {
		d, err := time.ParseDuration(rr.TTL)
		if err != nil {
			return Resource{}, &DefinitionError{Index: index, Name: rr.Name, Reason: fmt.Sprintf("invalid ttl %q: %v", rr.TTL, err)}
		}
		res.TTL = Duration{d}
	}

	// Parse timeout with default.
	if rr.Timeout == "" {
		res.Timeout = Duration{5 * time.Second}
	} else {
		d, err := time.ParseDuration(rr.Timeout)
		if err != nil {
			return Resource{}, &DefinitionError{Index: index, Name: rr.Name, Reason: fmt.Sprintf("invalid timeout %q: %v", rr.Timeout, err)}
		}
		res.Timeout = Duration{d}
	}

	// Notification threshold, default warning+error (no recovery notices).
	if len(rr.NotifyOn) == 0 {
		res.NotifyOn = []check.Status{check.StatusWarning, check.StatusError}
	} else {
		for _, s := range rr.NotifyOn {
			status := check.Status(s)
			if !status.Valid() {
				return Resource{}, &DefinitionError{Index: index, Name: rr.Name, Reason: fmt.Sprintf("invalid notify_on status %q", s)}
			}
			res.NotifyOn = append(res.NotifyOn, status)
		}
	}

	return res, nil
}

// Load reads, parses, and validates the config file at path. Structurally
// invalid resource definitions are collected in Config.Dropped rather than
// failing the load; unregistered check types are deferred to check time.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := &Config{
		Cache:         raw.Cache,
		Notifications: raw.Notifications,
		Server:        raw.Server,
		Scheduler:     raw.Scheduler,
	}
	applyDefaults(cfg)

	names := make(map[string]bool, len(raw.Resources))
	for i, rr := range raw.Resources {
		res, defErr := buildResource(i, rr)
		if defErr != nil {
			cfg.Dropped = append(cfg.Dropped, *defErr)
			continue
		}
		if names[res.Name] {
			cfg.Dropped = append(cfg.Dropped, DefinitionError{Index: i, Name: res.Name, Reason: "duplicate resource name"})
			continue
		}
		names[res.Name] = true
		cfg.Resources = append(cfg.Resources, res)
	}

	if len(cfg.Resources) == 0 {
		return nil, fmt.Errorf("no valid resources configured")
	}

	var env overrides
	if err := envconfig.Process("resmon", &env); err != nil {
		return nil, fmt.Errorf("processing environment overrides: %w", err)
	}
	applyOverrides(cfg, env)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = "localhost:6379"
	}
	if cfg.Cache.SQLite.Path == "" {
		cfg.Cache.SQLite.Path = "resmon.db"
	}
	if cfg.Scheduler.Interval.Duration == 0 {
		cfg.Scheduler.Interval = Duration{time.Minute}
	}
	if cfg.Notifications.Webhook.Cooldown.Duration == 0 {
		cfg.Notifications.Webhook.Cooldown = Duration{5 * time.Minute}
	}
}

func applyOverrides(cfg *Config, env overrides) {
	if env.ServerAddress != "" {
		cfg.Server.Address = env.ServerAddress
	}
	if env.RedisAddr != "" {
		cfg.Cache.Redis.Addr = env.RedisAddr
	}
	if env.RedisPassword != "" {
		cfg.Cache.Redis.Password = env.RedisPassword
	}
	if env.WebhookURL != "" {
		cfg.Notifications.Webhook.URL = env.WebhookURL
	}
}
