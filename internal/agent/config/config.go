package config

import (
	"fmt"
	"strings"
	"time"

	"hostexposer/internal/logger"
	"hostexposer/internal/retry"
	"hostexposer/internal/validator"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. EXPOSER_AGENT_PASSWORD
const EnvPrefix = "EXPOSER"

// DefaultIDFile is where the agent keeps its identity
const DefaultIDFile = ".exposer_id"

// Config represents agent configuration
type Config struct {
	Agent     AgentConfig     `mapstructure:"agent"`
	Collector CollectorConfig `mapstructure:"collector"`
	Log       logger.Config   `mapstructure:"log"`
}

// AgentConfig represents the connection settings
type AgentConfig struct {
	ServerURI        string        `mapstructure:"server_uri" validate:"required,wsurl"`
	Password         string        `mapstructure:"password" validate:"required"`
	IDFile           string        `mapstructure:"id_file" validate:"required"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" validate:"gt=0"`
	PongWait         time.Duration `mapstructure:"pong_wait" validate:"gt=0"`
	WriteWait        time.Duration `mapstructure:"write_wait" validate:"gt=0"`
	Reconnect        retry.Config  `mapstructure:"reconnect"`
}

// CollectorConfig controls which interfaces are reported
type CollectorConfig struct {
	IncludeLoopback bool     `mapstructure:"include_loopback"`
	IncludeVirtual  bool     `mapstructure:"include_virtual"`
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
}

// LoadConfig loads the agent configuration. path may be empty, in which case
// only defaults and EXPOSER_* environment variables apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// setDefaults registers default values for configuration
func setDefaults(v *viper.Viper) {
	reconnect := retry.DefaultRetryConfig()

	v.SetDefault("agent.server_uri", "")
	v.SetDefault("agent.password", "")
	v.SetDefault("agent.id_file", DefaultIDFile)
	v.SetDefault("agent.handshake_timeout", 10*time.Second)
	v.SetDefault("agent.pong_wait", 90*time.Second)
	v.SetDefault("agent.write_wait", 10*time.Second)
	v.SetDefault("agent.reconnect.enable", reconnect.Enable)
	v.SetDefault("agent.reconnect.initial_attempts", reconnect.InitialAttempts)
	v.SetDefault("agent.reconnect.initial_interval", reconnect.InitialInterval)
	v.SetDefault("agent.reconnect.minute_attempts", reconnect.MinuteAttempts)
	v.SetDefault("agent.reconnect.minute_interval", reconnect.MinuteInterval)
	v.SetDefault("agent.reconnect.hourly_attempts", reconnect.HourlyAttempts)
	v.SetDefault("agent.reconnect.hourly_interval", reconnect.HourlyInterval)
	v.SetDefault("agent.reconnect.final_retry_timeout", reconnect.FinalRetryTimeout)

	v.SetDefault("collector.include_loopback", true)
	v.SetDefault("collector.include_virtual", true)
	v.SetDefault("collector.exclude_patterns", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.console", true)
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
}

// Validate validates the configuration. It runs after command line overrides
// have been applied, so the server URI and password may come from flags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if err := c.Agent.Reconnect.Validate(); err != nil {
		return fmt.Errorf("invalid reconnect config: %w", err)
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}

	return nil
}
