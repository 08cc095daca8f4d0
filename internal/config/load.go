package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "FEED"

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given config file instead of
// searching for config.yaml in the working directory. An empty path searches.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.namespace", "DEV")
	v.SetDefault("cache.default_ttl", 24*time.Hour)
	v.SetDefault("cache.recent_comments", 10)
	v.SetDefault("cache.op_timeout", 500*time.Millisecond)
	v.SetDefault("cache.breaker_timeout", 30*time.Second)

	v.SetDefault("queue.transport", "memory")
	v.SetDefault("queue.nats_url", "nats://localhost:4222")
	v.SetDefault("queue.stream", "FEED")
	v.SetDefault("queue.buffer_size", 1024)

	// The post queue keeps completed and failed jobs for audit.
	v.SetDefault("queue.post.attempts", 3)
	v.SetDefault("queue.post.backoff_base", time.Second)
	v.SetDefault("queue.post.backoff_max", time.Minute)
	v.SetDefault("queue.post.remove_on_complete", false)
	v.SetDefault("queue.post.remove_on_fail", false)

	for _, q := range []string{"like", "comment"} {
		v.SetDefault("queue."+q+".attempts", 3)
		v.SetDefault("queue."+q+".backoff_base", time.Second)
		v.SetDefault("queue."+q+".backoff_max", time.Minute)
		v.SetDefault("queue."+q+".remove_on_complete", true)
		v.SetDefault("queue."+q+".remove_on_fail", false)
	}

	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.shutdown_timeout", 30*time.Second)
}

// bindEnvs makes keys without a default (and therefore unknown to
// AutomaticEnv during Unmarshal) visible to the environment.
func bindEnvs(v *viper.Viper) {
	for _, key := range []string{"database.url", "cache.password"} {
		_ = v.BindEnv(key)
	}
}
