package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Z-Wave core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	ZWave     ZWaveConfig     `yaml:"zwave"`
	Security  SecurityConfig  `yaml:"security"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
// An empty AllowedOrigins list allows every origin.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the live event stream.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT settings for the HTTP API. Tokens are issued by
// an external identity service and signed with the shared Secret (HS256).
// An empty Secret leaves the API unauthenticated.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ZWaveConfig contains settings for the Z-Wave event core and its bridge.
type ZWaveConfig struct {
	// TopicPrefix is the root of every Z-Wave topic.
	// Default: "zwave"
	TopicPrefix string `yaml:"topic_prefix"`

	// DriverTopicPrefix is where the driver daemon publishes notifications
	// and listens for controller commands.
	// Default: "zwave/driver"
	DriverTopicPrefix string `yaml:"driver_topic_prefix"`

	// QueueWarnDepth logs a warning when a single dispatch pass drains at
	// least this many records. 0 disables the warning.
	// Default: 1000
	QueueWarnDepth int `yaml:"queue_warn_depth"`

	// HealthInterval is the health report period in seconds.
	// Default: 30
	HealthInterval int `yaml:"health_interval"`

	Journal JournalConfig `yaml:"journal"`
	Publish PublishConfig `yaml:"publish"`
	Driver  DriverConfig  `yaml:"driver"`

	// Commands adds names to the controller command table, mapping a name
	// to the driver's numeric command identifier.
	Commands map[string]int `yaml:"commands,omitempty"`
}

// JournalConfig controls the on-disk event journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// PublishConfig controls how events are published to MQTT.
type PublishConfig struct {
	QoS             int  `yaml:"qos"`
	RetainNodeState bool `yaml:"retain_node_state"`
}

// DriverConfig controls the optional supervised driver daemon. When Managed
// is false the daemon is expected to be run by something else.
type DriverConfig struct {
	Managed bool     `yaml:"managed"`
	Binary  string   `yaml:"binary"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
	WorkDir string   `yaml:"work_dir"`

	// RestartDelay is the first restart delay in seconds; it doubles on
	// each consecutive failure up to MaxRestartDelay.
	RestartDelay    int `yaml:"restart_delay"`
	MaxRestartDelay int `yaml:"max_restart_delay"`

	// MaxRestarts gives up after this many consecutive failures. 0 = never.
	MaxRestarts int `yaml:"max_restarts"`

	// StopTimeout is the grace period in seconds between SIGTERM and SIGKILL.
	StopTimeout int `yaml:"stop_timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ZWAVECORE_SECTION_KEY
// For example: ZWAVECORE_DATABASE_PATH, ZWAVECORE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Z-Wave",
		},
		Database: DatabaseConfig{
			Path:        "./data/zwavecore.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "zwavecore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		ZWave: ZWaveConfig{
			TopicPrefix:       "zwave",
			DriverTopicPrefix: "zwave/driver",
			QueueWarnDepth:    1000,
			HealthInterval:    30,
			Journal: JournalConfig{
				Path: "./data/events.cbor",
			},
			Publish: PublishConfig{
				QoS:             1,
				RetainNodeState: true,
			},
			Driver: DriverConfig{
				RestartDelay:    2,
				MaxRestartDelay: 120,
				StopTimeout:     10,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ZWAVECORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("ZWAVECORE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("ZWAVECORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ZWAVECORE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("ZWAVECORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ZWAVECORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("ZWAVECORE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("ZWAVECORE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	// InfluxDB
	if v := os.Getenv("ZWAVECORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("ZWAVECORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Z-Wave
	if v := os.Getenv("ZWAVECORE_JOURNAL_PATH"); v != "" {
		cfg.ZWave.Journal.Path = v
		cfg.ZWave.Journal.Enabled = true
	}
	if v := os.Getenv("ZWAVECORE_DRIVER_BINARY"); v != "" {
		cfg.ZWave.Driver.Binary = v
		cfg.ZWave.Driver.Managed = true
	}
}

// minJWTSecretLength is the shortest accepted HS256 signing secret.
const minJWTSecretLength = 32

// Validate checks the configuration for errors.
// All problems are collected so one run reports everything wrong.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled {
		if c.API.Port < 0 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be 0-65535")
		}
		if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
			errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
		}
		if c.WebSocket.PingInterval < 1 || c.WebSocket.PongTimeout < 1 || c.WebSocket.MaxMessageSize < 1 {
			errs = append(errs, "websocket timings and max_message_size must be positive")
		}
		if s := c.Security.JWT.Secret; s != "" && len(s) < minJWTSecretLength {
			errs = append(errs, fmt.Sprintf("security.jwt.secret must be at least %d characters", minJWTSecretLength))
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.ZWave.TopicPrefix == "" {
		errs = append(errs, "zwave.topic_prefix is required")
	}
	if c.ZWave.DriverTopicPrefix == "" {
		errs = append(errs, "zwave.driver_topic_prefix is required")
	}
	if c.ZWave.QueueWarnDepth < 0 {
		errs = append(errs, "zwave.queue_warn_depth must not be negative")
	}
	if c.ZWave.HealthInterval < 1 {
		errs = append(errs, "zwave.health_interval must be at least 1 second")
	}
	if c.ZWave.Publish.QoS < 0 || c.ZWave.Publish.QoS > 2 {
		errs = append(errs, "zwave.publish.qos must be 0, 1, or 2")
	}
	if c.ZWave.Journal.Enabled && c.ZWave.Journal.Path == "" {
		errs = append(errs, "zwave.journal.path is required when the journal is enabled")
	}
	if d := c.ZWave.Driver; d.Managed {
		if d.Binary == "" {
			errs = append(errs, "zwave.driver.binary is required when the driver is managed")
		}
		if d.RestartDelay < 1 || d.MaxRestartDelay < d.RestartDelay {
			errs = append(errs, "zwave.driver.restart_delay must be at least 1 and not above max_restart_delay")
		}
		if d.MaxRestarts < 0 || d.StopTimeout < 1 {
			errs = append(errs, "zwave.driver.max_restarts must not be negative and stop_timeout must be at least 1")
		}
	}
	for name, id := range c.ZWave.Commands {
		if name == "" || id < 0 || id > 255 {
			errs = append(errs, fmt.Sprintf("zwave.commands[%q] must map a name to 0-255", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetHealthInterval returns the health report period as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.ZWave.HealthInterval) * time.Second
}

// DriverBackoff returns the driver daemon's first and maximum restart delays.
func (c *Config) DriverBackoff() (initial, maximum time.Duration) {
	return time.Duration(c.ZWave.Driver.RestartDelay) * time.Second,
		time.Duration(c.ZWave.Driver.MaxRestartDelay) * time.Second
}

// GetFlushInterval returns the InfluxDB flush interval as a Duration.
func (c *Config) GetFlushInterval() time.Duration {
	return time.Duration(c.InfluxDB.FlushInterval) * time.Second
}
