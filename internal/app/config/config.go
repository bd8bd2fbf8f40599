package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 存储驱动
const (
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// EnvPrefix 环境变量前缀，例如 CURATIRE_SMTP_PASSWORD 覆盖 smtp.password
const EnvPrefix = "CURATIRE"

// Config 应用配置（apiserver 和 notifier 共用）
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Storage      StorageConfig      `mapstructure:"storage"`
	MySQL        MySQLConfig        `mapstructure:"mysql"`
	Mongo        MongoConfig        `mapstructure:"mongo"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Lmstfy       LmstfyConfig       `mapstructure:"lmstfy"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Notification NotificationConfig `mapstructure:"notification"`
	Mutation     MutationConfig     `mapstructure:"mutation"`
	Workers      []WorkerConfig     `mapstructure:"workers"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"` // 为空只输出到 stdout
}

type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // mysql | mongo | memory
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Debug           bool          `mapstructure:"debug"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"` // 为空时关闭实时频道，smart wait 直接返回
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LmstfyConfig struct {
	Host      string `mapstructure:"host"` // 为空时不投递重试任务
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
	Queue     string `mapstructure:"queue"` // 通知重试队列
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"` // 为空时不写审计流
	Topic   string   `mapstructure:"topic"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"` // 为空时使用日志发送通道
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	Phone    string `mapstructure:"phone"` // 邮件里展示的门店电话
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type NotificationConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	RetryTTL        time.Duration `mapstructure:"retry_ttl"`
	ClaimLease      time.Duration `mapstructure:"claim_lease"` // 发送占用租约，需覆盖 timeout + retry_delay
	BulkLimit       int           `mapstructure:"bulk_limit"`
	BulkConcurrency int           `mapstructure:"bulk_concurrency"`
}

type MutationConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name       string           `mapstructure:"name"`
	QueueName  string           `mapstructure:"queue_name"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

// Load 从配置文件加载配置
// 1. 可选的 .env 先写入进程环境（不覆盖已有变量）
// 2. YAML 文件 + 默认值
// 3. CURATIRE_* 环境变量覆盖
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env failed: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	return &cfg, nil
}

// LoadDefault 加载默认配置文件路径
func LoadDefault() (*Config, error) {
	return Load("config/config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "curatire-backend")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("storage.driver", DriverMySQL)

	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.conn_max_lifetime", time.Hour)

	v.SetDefault("mongo.database", "curatire")
	v.SetDefault("mongo.max_pool_size", 20)
	v.SetDefault("mongo.connect_timeout", 10*time.Second)

	v.SetDefault("lmstfy.port", 7777)
	v.SetDefault("lmstfy.queue", "order_notify")

	v.SetDefault("kafka.topic", "order-events")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from_name", "Curatorie")

	v.SetDefault("notification.timeout", 10*time.Second)
	v.SetDefault("notification.retry_delay", time.Minute)
	v.SetDefault("notification.retry_ttl", 24*time.Hour)
	v.SetDefault("notification.claim_lease", 5*time.Minute)
	v.SetDefault("notification.bulk_limit", 50)
	v.SetDefault("notification.bulk_concurrency", 4)

	v.SetDefault("mutation.max_retries", 5)

	// 只有已知 key 才会在 Unmarshal 时读取环境变量，敏感项需要注册空默认值
	for _, key := range []string{
		"mysql.dsn", "mongo.uri", "redis.addr", "redis.password",
		"lmstfy.host", "lmstfy.token", "smtp.host", "smtp.username", "smtp.password",
		"auth.jwt_secret",
	} {
		v.SetDefault(key, "")
	}
}

// Validate 验证 apiserver 配置完整性
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	switch c.Storage.Driver {
	case DriverMySQL:
		if c.MySQL.DSN == "" {
			return fmt.Errorf("mysql.dsn is required for storage driver %q", c.Storage.Driver)
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri is required for storage driver %q", c.Storage.Driver)
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("mongo.database is required for storage driver %q", c.Storage.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Lmstfy.Host != "" {
		if c.Lmstfy.Token == "" {
			return fmt.Errorf("lmstfy.token is required when lmstfy.host is set")
		}
		if c.Lmstfy.Queue == "" {
			return fmt.Errorf("lmstfy.queue is required when lmstfy.host is set")
		}
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka.brokers is set")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from is required when smtp.host is set")
	}
	if c.Notification.ClaimLease < c.Notification.Timeout+c.Notification.RetryDelay {
		return fmt.Errorf("notification.claim_lease must cover notification.timeout + notification.retry_delay")
	}
	if c.Mutation.MaxRetries < 1 {
		return fmt.Errorf("mutation.max_retries must be at least 1")
	}
	return nil
}

// ValidateWorker 验证 notifier 配置
// notifier 需要读写订单，因此存储要求与 apiserver 相同，另外必须有队列和 Worker
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Storage.Driver == DriverMemory {
		return fmt.Errorf("storage driver %q cannot be shared with the notifier", DriverMemory)
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	for _, w := range c.Workers {
		if w.Name == "" || w.QueueName == "" {
			return fmt.Errorf("worker name and queue_name are required")
		}
		if w.Subscriber.Threads < 1 || w.Processor.Threads < 1 {
			return fmt.Errorf("worker %s needs at least one subscriber and processor thread", w.Name)
		}
	}
	return nil
}
