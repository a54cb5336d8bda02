// Package mqtt publishes sensor readings and identifications to an MQTT broker
package mqtt

import (
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Config holds MQTT client configuration
type Config struct {
	Broker   string // MQTT broker address (e.g., "tcp://localhost:1883")
	ClientID string // Unique client ID
	Username string // MQTT username (optional)
	Password string // MQTT password (optional)
	Prefix   string // Topic prefix for all messages
	UseTLS   bool   // Enable TLS connection
}

// Client wraps the paho client with prefixed topics
type Client struct {
	client    mqtt.Client
	config    Config
	mu        sync.RWMutex
	logger    *zap.Logger
	isActive  bool
	onConnect func()
}

// New creates a new MQTT client
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required")
	}

	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("dravyalabs-%d", time.Now().Unix())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		config: cfg,
		logger: logger.With(zap.String("broker", cfg.Broker)),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	if cfg.UseTLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		c.logger.Warn("mqtt connection lost", zap.Error(err))
	})

	// Runs on the first connect and on every reconnect.
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.logger.Info("mqtt connected")
		c.mu.RLock()
		fn := c.onConnect
		c.mu.RUnlock()
		if fn != nil {
			go fn()
		}
	})

	opts.SetReconnectingHandler(func(client mqtt.Client, options *mqtt.ClientOptions) {
		c.logger.Debug("mqtt reconnecting")
	})

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// OnConnect registers fn to run after every successful (re)connect.
func (c *Client) OnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// Connect establishes connection to MQTT broker
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.isActive {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.logger.Info("mqtt connecting")

	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	c.mu.Lock()
	c.isActive = true
	c.mu.Unlock()
	return nil
}

// Disconnect closes connection to MQTT broker
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isActive {
		return
	}

	c.client.Disconnect(250) // Wait up to 250ms for graceful disconnect
	c.isActive = false
	c.logger.Info("mqtt disconnected")
}

// Publish publishes a message under the configured prefix with QoS 0
func (c *Client) Publish(topic string, payload interface{}) error {
	return c.PublishWithQoS(topic, 0, false, payload)
}

// PublishWithQoS publishes a message with explicit QoS and retained settings
func (c *Client) PublishWithQoS(topic string, qos byte, retained bool, payload interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isActive {
		return fmt.Errorf("MQTT client is not connected")
	}

	fullTopic := buildTopic(c.config.Prefix, topic)

	token := c.client.Publish(fullTopic, qos, retained, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}

	c.logger.Debug("mqtt published", zap.String("topic", fullTopic), zap.Uint8("qos", qos), zap.Bool("retained", retained))
	return nil
}

// PublishRaw publishes a message without adding prefix (for discovery topics)
func (c *Client) PublishRaw(topic string, payload interface{}, retained bool) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isActive {
		return fmt.Errorf("MQTT client is not connected")
	}

	token := c.client.Publish(topic, 1, retained, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish message: %w", token.Error())
	}

	c.logger.Debug("mqtt published raw", zap.String("topic", topic))
	return nil
}

// Prefix returns the topic prefix
func (c *Client) Prefix() string {
	return c.config.Prefix
}

// IsConnected returns true if client is connected to broker
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isActive && c.client.IsConnected()
}

// buildTopic constructs full topic path with prefix
func buildTopic(prefix, topic string) string {
	if prefix == "" {
		return topic
	}
	return prefix + "/" + topic
}
