package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the device SDK tooling.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Thing           ThingConfig           `yaml:"thing"`
	MQTT            MQTTConfig            `yaml:"mqtt"`
	RequestResponse RequestResponseConfig `yaml:"request_response"`
	Journal         JournalConfig         `yaml:"journal"`
	InfluxDB        InfluxDBConfig        `yaml:"influxdb"`
	Metrics         MetricsConfig         `yaml:"metrics"`
	Logging         LoggingConfig         `yaml:"logging"`
}

// ThingConfig identifies the device this process acts for.
type ThingConfig struct {
	Name string `yaml:"name"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
//
// CertFile and KeyFile enable mutual TLS (the usual way a device
// authenticates against an IoT endpoint). CAFile overrides the system roots.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
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
}

// RequestResponseConfig tunes the request/response transport.
type RequestResponseConfig struct {
	// OperationTimeout bounds each request/response exchange (seconds).
	OperationTimeout int `yaml:"operation_timeout"`

	// MaxRequestResponseSubscriptions caps the topic filters held for
	// request/response operations. Each correlated operation needs two.
	MaxRequestResponseSubscriptions int `yaml:"max_request_response_subscriptions"`

	// MaxStreamingSubscriptions caps concurrently open streaming operations.
	MaxStreamingSubscriptions int `yaml:"max_streaming_subscriptions"`
}

// JournalConfig contains settings for the SQLite exchange journal.
type JournalConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
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

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: IOTDEVICE_SECTION_KEY
// For example: IOTDEVICE_MQTT_HOST, IOTDEVICE_THING_NAME
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
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     8883,
				TLS:      true,
				ClientID: "iot-device",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		RequestResponse: RequestResponseConfig{
			OperationTimeout:                30,
			MaxRequestResponseSubscriptions: 6,
			MaxStreamingSubscriptions:       10,
		},
		Journal: JournalConfig{
			Path:        "./data/journal.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Metrics: MetricsConfig{
			ListenAddress: "127.0.0.1:9464",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: IOTDEVICE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Thing
	if v := os.Getenv("IOTDEVICE_THING_NAME"); v != "" {
		cfg.Thing.Name = v
	}

	// MQTT
	if v := os.Getenv("IOTDEVICE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IOTDEVICE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("IOTDEVICE_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("IOTDEVICE_MQTT_CERT_FILE"); v != "" {
		cfg.MQTT.Broker.CertFile = v
	}
	if v := os.Getenv("IOTDEVICE_MQTT_KEY_FILE"); v != "" {
		cfg.MQTT.Broker.KeyFile = v
	}
	if v := os.Getenv("IOTDEVICE_MQTT_CA_FILE"); v != "" {
		cfg.MQTT.Broker.CAFile = v
	}
	if v := os.Getenv("IOTDEVICE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IOTDEVICE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Journal
	if v := os.Getenv("IOTDEVICE_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	// InfluxDB
	if v := os.Getenv("IOTDEVICE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 1 {
		// IoT endpoints do not support QoS 2.
		errs = append(errs, "mqtt.qos must be 0 or 1")
	}
	if (c.MQTT.Broker.CertFile == "") != (c.MQTT.Broker.KeyFile == "") {
		errs = append(errs, "mqtt.broker.cert_file and mqtt.broker.key_file must be set together")
	}
	if c.MQTT.Broker.CertFile != "" && !c.MQTT.Broker.TLS {
		errs = append(errs, "mqtt.broker.tls must be enabled when a client certificate is configured")
	}

	// Request/response validation
	if c.RequestResponse.OperationTimeout <= 0 {
		errs = append(errs, "request_response.operation_timeout must be positive")
	}
	const minRequestResponseSubscriptions = 2
	if c.RequestResponse.MaxRequestResponseSubscriptions < minRequestResponseSubscriptions {
		errs = append(errs, "request_response.max_request_response_subscriptions must be at least 2")
	}
	if c.RequestResponse.MaxStreamingSubscriptions < 1 {
		errs = append(errs, "request_response.max_streaming_subscriptions must be at least 1")
	}

	// Optional sinks
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when the journal is enabled")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		errs = append(errs, "metrics.listen_address is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetOperationTimeout returns the request/response timeout as a Duration.
func (c *Config) GetOperationTimeout() time.Duration {
	return time.Duration(c.RequestResponse.OperationTimeout) * time.Second
}
