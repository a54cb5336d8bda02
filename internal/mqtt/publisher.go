package mqtt

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Sink is the publishing side of Client
type Sink interface {
	Publish(topic string, payload interface{}) error
	PublishRaw(topic string, payload interface{}, retained bool) error
}

// Publisher provides MQTT publishing for sensor data
type Publisher struct {
	sink   Sink
	logger *zap.Logger

	sensorIDCache   map[string]string
	sensorIDCacheMu sync.RWMutex
}

// NewPublisher creates a new Publisher instance
func NewPublisher(sink Sink, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		sink:          sink,
		logger:        logger,
		sensorIDCache: make(map[string]string),
	}
}

// PublishSensorState publishes a single sensor's state and attributes
func (p *Publisher) PublishSensorState(data *SensorData) error {
	if data == nil {
		return nil
	}

	sensorID := p.getSanitizedID(data.ID)

	stateJSON, err := json.Marshal(data.Value)
	if err != nil {
		p.logger.Warn("failed to marshal sensor state", zap.String("sensor", sensorID), zap.Error(err))
		return err
	}

	if err := p.sink.Publish("sensor/"+sensorID+"/state", stateJSON); err != nil {
		return err
	}

	if len(data.Attributes) > 0 {
		attrsJSON, err := json.Marshal(data.Attributes)
		if err != nil {
			return err
		}
		if err := p.sink.Publish("sensor/"+sensorID+"/attributes", attrsJSON); err != nil {
			return err
		}
	}

	return nil
}

// PublishMultipleSensors publishes every sensor and returns the first error
func (p *Publisher) PublishMultipleSensors(sensors []*SensorData) error {
	var first error
	for _, sensor := range sensors {
		if err := p.PublishSensorState(sensor); err != nil {
			// Log error but continue publishing others
			p.logger.Warn("failed to publish sensor", zap.String("sensor", sensor.ID), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// getSanitizedID returns cached sanitized sensor ID
func (p *Publisher) getSanitizedID(label string) string {
	p.sensorIDCacheMu.RLock()
	if id, ok := p.sensorIDCache[label]; ok {
		p.sensorIDCacheMu.RUnlock()
		return id
	}
	p.sensorIDCacheMu.RUnlock()

	id := sanitizeSensorID(label)

	p.sensorIDCacheMu.Lock()
	p.sensorIDCache[label] = id
	p.sensorIDCacheMu.Unlock()

	return id
}

// sanitizeSensorID creates a safe ID for MQTT topics
func sanitizeSensorID(name string) string {
	b := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			b[i] = c + ('a' - 'A')
		case c == ' ' || c == '/' || c == '.' || c == '+' || c == '#':
			b[i] = '_'
		default:
			b[i] = c
		}
	}
	return string(b)
}
