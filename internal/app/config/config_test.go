package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
app:
  name: curatire-test
  log_level: debug
server:
  port: "9090"
storage:
  driver: mysql
mysql:
  dsn: "user:pass@tcp(localhost:3306)/curatire?parseTime=true"
auth:
  jwt_secret: secret
lmstfy:
  host: localhost
  token: token
notification:
  timeout: 3s
workers:
  - name: notify
    queue_name: order_notify
    subscriber:
      threads: 2
      timeout: 3s
      ttr: 30s
    processor:
      threads: 4
      buffer_size: 16
      timeout: 20s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "curatire-test", cfg.App.Name)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Notification.Timeout)
	require.Len(t, cfg.Workers, 1)
	assert.Equal(t, 30*time.Second, cfg.Workers[0].Subscriber.TTR)

	// 默认值
	assert.Equal(t, "order_notify", cfg.Lmstfy.Queue)
	assert.Equal(t, 7777, cfg.Lmstfy.Port)
	assert.Equal(t, time.Minute, cfg.Notification.RetryDelay)
	assert.Equal(t, 50, cfg.Notification.BulkLimit)
	assert.Equal(t, 5*time.Minute, cfg.Notification.ClaimLease)
	assert.Equal(t, 5, cfg.Mutation.MaxRetries)

	assert.NoError(t, cfg.Validate())
	assert.NoError(t, cfg.ValidateWorker())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CURATIRE_SMTP_PASSWORD", "from-env")
	t.Setenv("CURATIRE_SERVER_PORT", "7070")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.SMTP.Password)
	assert.Equal(t, "7070", cfg.Server.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{Name: "curatire"},
			Storage:  StorageConfig{Driver: DriverMemory},
			Auth:     AuthConfig{JWTSecret: "secret"},
			Mutation: MutationConfig{MaxRetries: 5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "memory driver", mutate: func(c *Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "auth.jwt_secret"},
		{name: "mysql without dsn", mutate: func(c *Config) { c.Storage.Driver = DriverMySQL }, wantErr: "mysql.dsn"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Storage.Driver = DriverMongo }, wantErr: "mongo.uri"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "unknown storage driver"},
		{name: "lmstfy without token", mutate: func(c *Config) { c.Lmstfy.Host = "localhost"; c.Lmstfy.Queue = "q" }, wantErr: "lmstfy.token"},
		{name: "kafka without topic", mutate: func(c *Config) { c.Kafka.Brokers = []string{"localhost:9092"} }, wantErr: "kafka.topic"},
		{name: "smtp without sender", mutate: func(c *Config) { c.SMTP.Host = "smtp.example.com" }, wantErr: "smtp.from"},
		{name: "claim lease shorter than send", mutate: func(c *Config) {
			c.Notification = NotificationConfig{Timeout: 10 * time.Second, RetryDelay: time.Minute, ClaimLease: 30 * time.Second}
		}, wantErr: "notification.claim_lease"},
		{name: "no retries", mutate: func(c *Config) { c.Mutation.MaxRetries = 0 }, wantErr: "mutation.max_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateWorkerRejectsMemoryStorage(t *testing.T) {
	cfg := &Config{
		App:      AppConfig{Name: "curatire"},
		Storage:  StorageConfig{Driver: DriverMemory},
		Auth:     AuthConfig{JWTSecret: "secret"},
		Mutation: MutationConfig{MaxRetries: 5},
	}
	err := cfg.ValidateWorker()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be shared")
}
