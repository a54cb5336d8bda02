package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"dravyalabs/internal/dravya"
	"dravyalabs/internal/events"
)

// Environment variable names
const (
	EnvAddr       = "DRAVYA_ADDR"
	EnvAPIURL     = "DRAVYA_API_URL"
	EnvDebug      = "DRAVYA_DEBUG"
	EnvEventsSize = "DRAVYA_EVENTS_SIZE"
	// MQTT settings
	EnvMQTTBroker   = "DRAVYA_MQTT_BROKER"
	EnvMQTTClientID = "DRAVYA_MQTT_CLIENT_ID"
	EnvMQTTUsername = "DRAVYA_MQTT_USERNAME"
	EnvMQTTPassword = "DRAVYA_MQTT_PASSWORD"
	EnvMQTTPrefix   = "DRAVYA_MQTT_PREFIX"
	EnvMQTTUseTLS   = "DRAVYA_MQTT_USE_TLS"

	// EnvLegacyAPIURL is the frontend build variable older deployments still set.
	EnvLegacyAPIURL = "VITE_API_URL"
)

// Default values
const (
	DefaultAddr       = ":8080"
	DefaultAPIURL     = dravya.DefaultBaseURL
	DefaultDebug      = false
	DefaultEventsSize = events.DefaultSize
	DefaultMQTTPrefix = "dravyalabs"
)

// Config holds all application configuration.
// It is resolved once at startup and read-only afterwards.
type Config struct {
	filePath string

	// Server settings
	addr       string
	debug      bool
	eventsSize int

	// Backend settings
	apiURL string

	// MQTT settings
	mqttBroker   string
	mqttClientID string
	mqttUsername string
	mqttPassword string
	mqttPrefix   string
	mqttUseTLS   bool
}

// Load builds the configuration from defaults, then the .env file at filePath
// (optional), then the process environment.
func Load(filePath string) (*Config, error) {
	cfg := &Config{
		filePath: filePath,
	}
	cfg.setDefaults()

	if filePath != "" {
		if err := cfg.loadFromFile(); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg.applyValues(environ())

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults initializes all fields with default values.
func (c *Config) setDefaults() {
	c.addr = DefaultAddr
	c.debug = DefaultDebug
	c.eventsSize = DefaultEventsSize
	c.apiURL = DefaultAPIURL
	c.mqttPrefix = DefaultMQTTPrefix
}

// loadFromFile reads configuration from .env file.
func (c *Config) loadFromFile() error {
	file, err := os.Open(c.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	values, err := ParseEnvFile(file)
	if err != nil {
		return fmt.Errorf("%s: %w", c.filePath, err)
	}

	c.applyValues(values)
	return nil
}

// environ returns the process environment. Exported but empty variables are
// left out so they do not clear values from the file.
func environ() map[string]string {
	values := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && v != "" {
			values[k] = v
		}
	}
	return values
}

// applyValues applies parsed key-value pairs to config.
func (c *Config) applyValues(values map[string]string) {
	if v, ok := values[EnvAddr]; ok && v != "" {
		c.addr = v
	}

	if v, ok := values[EnvLegacyAPIURL]; ok && v != "" {
		c.apiURL = v
	}
	if v, ok := values[EnvAPIURL]; ok && v != "" {
		c.apiURL = v
	}

	if v, ok := values[EnvDebug]; ok {
		c.debug = parseBool(v)
	}

	if v, ok := values[EnvEventsSize]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.eventsSize = n
		}
	}

	// MQTT settings
	if v, ok := values[EnvMQTTBroker]; ok {
		c.mqttBroker = v
	}
	if v, ok := values[EnvMQTTClientID]; ok {
		c.mqttClientID = v
	}
	if v, ok := values[EnvMQTTUsername]; ok {
		c.mqttUsername = v
	}
	if v, ok := values[EnvMQTTPassword]; ok {
		c.mqttPassword = v
	}
	if v, ok := values[EnvMQTTPrefix]; ok && v != "" {
		c.mqttPrefix = v
	}
	if v, ok := values[EnvMQTTUseTLS]; ok {
		c.mqttUseTLS = parseBool(v)
	}
}

// validate checks if configuration is valid.
func (c *Config) validate() error {
	if c.addr == "" {
		return errors.New("server address cannot be empty")
	}

	_, port, err := net.SplitHostPort(c.addr)
	if err != nil {
		return fmt.Errorf("invalid server address format: %s", c.addr)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid port number: %s", port)
	}

	u, err := url.Parse(c.apiURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend URL: %s", c.apiURL)
	}

	if c.eventsSize < 1 {
		return errors.New("events size must be positive")
	}

	return nil
}

// Override replaces selected values after loading (command-line flags).
// Empty strings leave the loaded value in place.
func (c *Config) Override(addr, apiURL string, debug bool) error {
	if addr != "" {
		c.addr = addr
	}
	if apiURL != "" {
		c.apiURL = apiURL
	}
	if debug {
		c.debug = true
	}
	return c.validate()
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string { return c.addr }

// APIURL returns the identification backend origin.
func (c *Config) APIURL() string { return c.apiURL }

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool { return c.debug }

// EventsSize returns the audit log capacity.
func (c *Config) EventsSize() int { return c.eventsSize }

// FilePath returns the path to the .env file.
func (c *Config) FilePath() string { return c.filePath }

// MQTT Getters

// MQTTEnabled reports whether a broker is configured.
func (c *Config) MQTTEnabled() bool { return c.mqttBroker != "" }

func (c *Config) MQTTBroker() string   { return c.mqttBroker }
func (c *Config) MQTTClientID() string { return c.mqttClientID }
func (c *Config) MQTTUsername() string { return c.mqttUsername }
func (c *Config) MQTTPassword() string { return c.mqttPassword }
func (c *Config) MQTTPrefix() string   { return c.mqttPrefix }
func (c *Config) MQTTUseTLS() bool     { return c.mqttUseTLS }

// parseBool parses a boolean string value.
// Accepts: true, false, 1, 0, yes, no, on (case-insensitive)
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// String returns a string representation of the config (without secrets).
func (c *Config) String() string {
	passwordDisplay := "[not set]"
	if c.mqttPassword != "" {
		passwordDisplay = "[set]"
	}

	return fmt.Sprintf(
		"Config{Addr: %q, APIURL: %q, Debug: %v, EventsSize: %d, MQTTBroker: %q, MQTTPassword: %s}",
		c.addr, c.apiURL, c.debug, c.eventsSize, c.mqttBroker, passwordDisplay,
	)
}
