package mqtt

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// discoveryNode is the node_id segment of Home Assistant discovery topics
const discoveryNode = "dravyalabs"

// DiscoveryManager manages Home Assistant MQTT Discovery
type DiscoveryManager struct {
	sink   Sink
	prefix string
	logger *zap.Logger

	// Cache of pre-generated discovery configs
	discoveryConfigs map[string][]byte
	discoveryMu      sync.RWMutex
}

// NewDiscoveryManager creates a new DiscoveryManager; prefix is the state topic prefix.
func NewDiscoveryManager(sink Sink, prefix string, logger *zap.Logger) *DiscoveryManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscoveryManager{
		sink:             sink,
		prefix:           prefix,
		logger:           logger,
		discoveryConfigs: make(map[string][]byte),
	}
}

// PublishDiscoveryConfig publishes the retained discovery config for one sensor
func (d *DiscoveryManager) PublishDiscoveryConfig(cfg *SensorConfig) error {
	if cfg == nil {
		return nil
	}

	configJSON, err := d.generateDiscoveryConfig(cfg)
	if err != nil {
		return err
	}

	// Topic: homeassistant/sensor/{node}/{sensor_id}/config
	topic := "homeassistant/sensor/" + discoveryNode + "/" + cfg.SensorID + "/config"
	return d.sink.PublishRaw(topic, configJSON, true)
}

// PublishAll publishes discovery configs for every sensor; failures are logged.
func (d *DiscoveryManager) PublishAll(configs []*SensorConfig) int {
	published := 0
	for _, cfg := range configs {
		if err := d.PublishDiscoveryConfig(cfg); err != nil {
			d.logger.Warn("failed to publish discovery", zap.String("sensor", cfg.SensorID), zap.Error(err))
			continue
		}
		published++
	}
	d.logger.Info("published mqtt discovery", zap.Int("sensors", published))
	return published
}

// generateDiscoveryConfig generates and caches Home Assistant discovery config
func (d *DiscoveryManager) generateDiscoveryConfig(cfg *SensorConfig) ([]byte, error) {
	d.discoveryMu.RLock()
	if config, ok := d.discoveryConfigs[cfg.SensorID]; ok {
		d.discoveryMu.RUnlock()
		return config, nil
	}
	d.discoveryMu.RUnlock()

	discoveryConfig := map[string]interface{}{
		"name":        cfg.Name,
		"unique_id":   discoveryNode + "_" + cfg.SensorID,
		"state_topic": buildTopic(d.prefix, cfg.StateTopic),
	}

	if cfg.Unit != "" {
		discoveryConfig["unit_of_measurement"] = cfg.Unit
	}
	if cfg.Icon != "" {
		discoveryConfig["icon"] = cfg.Icon
	}
	if cfg.AttributesTopic != "" {
		discoveryConfig["json_attributes_topic"] = buildTopic(d.prefix, cfg.AttributesTopic)
	}
	if cfg.DeviceClass != "" {
		discoveryConfig["device_class"] = cfg.DeviceClass
	}
	if cfg.StateClass != "" {
		discoveryConfig["state_class"] = cfg.StateClass
	}

	if cfg.DeviceInfo != nil {
		discoveryConfig["device"] = map[string]interface{}{
			"identifiers":  cfg.DeviceInfo.Identifiers,
			"name":         cfg.DeviceInfo.Name,
			"model":        cfg.DeviceInfo.Model,
			"manufacturer": cfg.DeviceInfo.Manufacturer,
		}
	}

	configJSON, err := json.Marshal(discoveryConfig)
	if err != nil {
		return nil, err
	}

	d.discoveryMu.Lock()
	d.discoveryConfigs[cfg.SensorID] = configJSON
	d.discoveryMu.Unlock()

	return configJSON, nil
}
