package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	NodeRed  NodeRedConfig
	NewRelic NewRelicConfig
	Session  SessionConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int
	Mode string // debug, release, test
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// MQTTConfig holds the device-broker configuration
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

// NodeRedConfig holds the Node-RED bridge configuration
type NodeRedConfig struct {
	BaseURL string
	Timeout int // seconds
}

// NewRelicConfig holds the New Relic configuration
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// SessionConfig holds the dashboard session configuration
type SessionConfig struct {
	CookieName string
	TTLHours   int
	Secure     bool
}

// InitConfig initializes the configuration using Viper
func InitConfig(cfgFile string) error {
	// Set defaults for configuration
	setDefaults()

	// Use config file from the flag if provided
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common directories with name "config"
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/medipi-hub")
		viper.SetConfigName("config")
	}

	// Set environment variable prefix for config overrides
	viper.SetEnvPrefix("MEDIPI")

	// Enable automatic environment variable binding
	// For example, MEDIPI_SERVER_PORT will override server.port
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, using defaults and environment variables
			fmt.Println("No config file found, using defaults and environment variables")
		} else {
			// Config file was found but another error occurred
			return fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8090)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "medipi")
	viper.SetDefault("database.password", "medipi")
	viper.SetDefault("database.dbname", "medipi_hub_db")
	viper.SetDefault("database.sslmode", "disable")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// MQTT defaults
	viper.SetDefault("mqtt.brokerurl", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientid", "medipi-hub")

	// Node-RED defaults
	viper.SetDefault("nodered.baseurl", "http://localhost:1880")
	viper.SetDefault("nodered.timeout", 10)

	// New Relic defaults
	viper.SetDefault("newrelic.appname", "MediPi Hub Local")
	viper.SetDefault("newrelic.enabled", false)

	// Session defaults
	viper.SetDefault("session.cookiename", "medipi_session")
	viper.SetDefault("session.ttlhours", 24)
	viper.SetDefault("session.secure", false)
}

// Load loads the configuration
func Load() (*Config, error) {
	// Server
	serverConfig := ServerConfig{
		Port: viper.GetInt("server.port"),
		Mode: viper.GetString("server.mode"),
	}

	// Database
	dbConfig := DatabaseConfig{
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
	}

	// Redis
	redisConfig := RedisConfig{
		Host:     viper.GetString("redis.host"),
		Port:     viper.GetInt("redis.port"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	}

	// MQTT
	mqttConfig := MQTTConfig{
		BrokerURL: viper.GetString("mqtt.brokerurl"),
		ClientID:  viper.GetString("mqtt.clientid"),
		Username:  viper.GetString("mqtt.username"),
		Password:  viper.GetString("mqtt.password"),
	}

	// Node-RED
	nodeRedConfig := NodeRedConfig{
		BaseURL: viper.GetString("nodered.baseurl"),
		Timeout: viper.GetInt("nodered.timeout"),
	}

	// New Relic
	newRelicConfig := NewRelicConfig{
		AppName:    viper.GetString("newrelic.appname"),
		LicenseKey: viper.GetString("newrelic.licensekey"),
		Enabled:    viper.GetBool("newrelic.enabled"),
	}

	// Session
	sessionConfig := SessionConfig{
		CookieName: viper.GetString("session.cookiename"),
		TTLHours:   viper.GetInt("session.ttlhours"),
		Secure:     viper.GetBool("session.secure"),
	}

	return &Config{
		Server:   serverConfig,
		Database: dbConfig,
		Redis:    redisConfig,
		MQTT:     mqttConfig,
		NodeRed:  nodeRedConfig,
		NewRelic: newRelicConfig,
		Session:  sessionConfig,
	}, nil
}
