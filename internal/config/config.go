package config

import "time"

// Config holds all application configuration.
// It is constructed once at startup and injected into the cache, queues,
// and workers; nothing reads configuration lazily at call time.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
}

// ServerConfig contains the admin server and logging settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the durable store connection settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig contains the cache backing store settings.
type CacheConfig struct {
	Addr     string `mapstructure:"addr" validate:"required,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`

	// Namespace prefixes every key so several environments can share one cluster.
	Namespace string `mapstructure:"namespace" validate:"required"`

	DefaultTTL     time.Duration `mapstructure:"default_ttl" validate:"gt=0"`
	RecentComments int           `mapstructure:"recent_comments" validate:"gte=1,lte=100"`
	OpTimeout      time.Duration `mapstructure:"op_timeout" validate:"gt=0"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout" validate:"gt=0"`
}

// QueueConfig selects the queue transport and the per-queue delivery policies.
type QueueConfig struct {
	Transport  string `mapstructure:"transport" validate:"required,oneof=memory nats"`
	NATSURL    string `mapstructure:"nats_url" validate:"required_if=Transport nats"`
	Stream     string `mapstructure:"stream" validate:"required,alphanum"`
	BufferSize int    `mapstructure:"buffer_size" validate:"gte=1"`

	Post    PolicyConfig `mapstructure:"post" validate:"required"`
	Like    PolicyConfig `mapstructure:"like" validate:"required"`
	Comment PolicyConfig `mapstructure:"comment" validate:"required"`
}

// PolicyConfig is the delivery policy of a single queue.
type PolicyConfig struct {
	Attempts         int           `mapstructure:"attempts" validate:"gte=1"`
	BackoffBase      time.Duration `mapstructure:"backoff_base" validate:"gte=0"`
	BackoffMax       time.Duration `mapstructure:"backoff_max" validate:"gte=0"`
	RemoveOnComplete bool          `mapstructure:"remove_on_complete"`
	RemoveOnFail     bool          `mapstructure:"remove_on_fail"`
}

// WorkerConfig contains the queue consumer settings.
type WorkerConfig struct {
	Concurrency     int           `mapstructure:"concurrency" validate:"gte=1"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}
