package mqtt

import "dravyalabs/internal/dravya"

// SensorData represents sensor data for MQTT publishing
type SensorData struct {
	ID         string                 // Unique sensor ID (will be sanitized)
	Label      string                 // Human-readable label
	Value      interface{}            // Current value
	Attributes map[string]interface{} // Additional attributes
}

// SensorConfig contains sensor configuration for Home Assistant Discovery
type SensorConfig struct {
	SensorID string
	Name     string
	Unit     string
	Icon     string

	// Topics relative to the client prefix
	StateTopic      string
	AttributesTopic string

	DeviceClass string // temperature, ph, etc
	StateClass  string // measurement, total, total_increasing

	DeviceInfo *DeviceInfo
}

// DeviceInfo contains device information for grouping in Home Assistant
type DeviceInfo struct {
	Identifiers  []string
	Name         string
	Model        string
	Manufacturer string
}

// DravyaSensorID is the sensor carrying the identified substance name
const DravyaSensorID = "dravya"

var device = &DeviceInfo{
	Identifiers:  []string{"dravyalabs"},
	Name:         "Dravya Labs",
	Model:        "Water quality identification",
	Manufacturer: "Dravya Labs",
}

type readingSensor struct {
	id, name, unit, deviceClass, icon string
	value                             func(dravya.IdentifyRequest) float64
}

var readingSensors = []readingSensor{
	{"ph", "pH", "", "ph", "", func(r dravya.IdentifyRequest) float64 { return r.PH }},
	{"tds", "TDS", "ppm", "", "mdi:water-opacity", func(r dravya.IdentifyRequest) float64 { return r.TDS }},
	{"turbidity", "Turbidity", "NTU", "", "mdi:blur", func(r dravya.IdentifyRequest) float64 { return r.Turbidity }},
	{"gas", "Gas", "ppm", "", "mdi:molecule", func(r dravya.IdentifyRequest) float64 { return r.Gas }},
	{"color_index", "Color Index", "", "", "mdi:palette", func(r dravya.IdentifyRequest) float64 { return r.ColorIndex }},
	{"temp", "Temperature", "°C", "temperature", "", func(r dravya.IdentifyRequest) float64 { return r.Temp }},
}

// ReadingData converts an identify request into one SensorData per field.
func ReadingData(req dravya.IdentifyRequest) []*SensorData {
	out := make([]*SensorData, 0, len(readingSensors))
	for _, s := range readingSensors {
		out = append(out, &SensorData{ID: s.id, Label: s.name, Value: s.value(req)})
	}
	return out
}

// SensorConfigs returns discovery configs for the six readings and the dravya sensor.
func SensorConfigs() []*SensorConfig {
	configs := make([]*SensorConfig, 0, len(readingSensors)+1)
	for _, s := range readingSensors {
		configs = append(configs, &SensorConfig{
			SensorID:    s.id,
			Name:        s.name,
			Unit:        s.unit,
			Icon:        s.icon,
			StateTopic:  "sensor/" + s.id + "/state",
			DeviceClass: s.deviceClass,
			StateClass:  "measurement",
			DeviceInfo:  device,
		})
	}
	configs = append(configs, &SensorConfig{
		SensorID:        DravyaSensorID,
		Name:            "Identified Dravya",
		Icon:            "mdi:leaf",
		StateTopic:      "sensor/" + DravyaSensorID + "/state",
		AttributesTopic: "sensor/" + DravyaSensorID + "/attributes",
		DeviceInfo:      device,
	})
	return configs
}
