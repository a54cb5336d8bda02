package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dravyalabs/internal/dravya"
	"dravyalabs/internal/form"
)

type message struct {
	topic    string
	payload  []byte
	retained bool
	raw      bool
}

type fakeSink struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (f *fakeSink) Publish(topic string, payload interface{}) error {
	return f.add(message{topic: topic, payload: payload.([]byte)})
}

func (f *fakeSink) PublishRaw(topic string, payload interface{}, retained bool) error {
	return f.add(message{topic: topic, payload: payload.([]byte), retained: retained, raw: true})
}

func (f *fakeSink) add(m message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeSink) byTopic() map[string]message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]message, len(f.msgs))
	for _, m := range f.msgs {
		out[m.topic] = m
	}
	return out
}

type stubIdentifier struct {
	res *dravya.IdentifyResult
	err error
}

func (s stubIdentifier) Identify(context.Context, dravya.IdentifyRequest) (*dravya.IdentifyResult, error) {
	return s.res, s.err
}

func submit(t *testing.T, id stubIdentifier, r form.Reading) form.Outcome {
	t.Helper()
	out, err := form.NewController(id, nil).Submit(context.Background(), r)
	require.NoError(t, err)
	return out
}

var reading = form.Reading{PH: "7.2", TDS: "220", Turbidity: "3.5", Gas: "15", ColorIndex: "12", Temp: "24.6"}

func TestSanitizeSensorID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"CPU0_TEMP", "cpu0_temp"},
		{"Color Index", "color_index"},
		{"a/b.c", "a_b_c"},
		{"wild+card#", "wild_card_"},
		{"temp", "temp"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeSensorID(tt.input))
		})
	}
}

func TestBuildTopic(t *testing.T) {
	assert.Equal(t, "sensor/ph/state", buildTopic("", "sensor/ph/state"))
	assert.Equal(t, "dravyalabs/sensor/ph/state", buildTopic("dravyalabs", "sensor/ph/state"))
}

func TestNewRequiresBroker(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)

	c, err := New(Config{Broker: "tcp://127.0.0.1:1883", Prefix: "p"}, nil)
	require.NoError(t, err)
	assert.False(t, c.IsConnected())
	assert.Equal(t, "p", c.Prefix())
	assert.Error(t, c.Publish("x", []byte("1")), "publishing before Connect must fail")
}

func TestBridgePublishesSuccess(t *testing.T) {
	sink := &fakeSink{}
	b := NewBridge(sink, "dravyalabs", nil)

	out := submit(t, stubIdentifier{res: &dravya.IdentifyResult{Dravya: "Ganga Jal", Description: "river"}}, reading)
	require.NoError(t, b.HandleOutcome(out))

	msgs := sink.byTopic()
	assert.Equal(t, "7.2", string(msgs["sensor/ph/state"].payload))
	assert.Equal(t, "220", string(msgs["sensor/tds/state"].payload))
	assert.Equal(t, "24.6", string(msgs["sensor/temp/state"].payload))
	assert.Equal(t, `"Ganga Jal"`, string(msgs["sensor/dravya/state"].payload))

	var attrs map[string]interface{}
	require.NoError(t, json.Unmarshal(msgs["sensor/dravya/attributes"].payload, &attrs))
	assert.Equal(t, "river", attrs["description"])
	assert.Equal(t, false, attrs["has_image"])
	assert.Equal(t, out.Attempt().String(), attrs["attempt"])
}

func TestBridgeIgnoresErrors(t *testing.T) {
	sink := &fakeSink{}
	b := NewBridge(sink, "", nil)

	bad := reading
	bad.Gas = "lots"
	require.NoError(t, b.HandleOutcome(submit(t, stubIdentifier{}, bad)))
	require.NoError(t, b.HandleOutcome(form.Idle()))
	require.NoError(t, b.HandleOutcome(submit(t, stubIdentifier{err: errors.New("down")}, reading)))
	assert.Empty(t, sink.byTopic())
}

func TestBridgeReportsPublishFailure(t *testing.T) {
	sink := &fakeSink{err: errors.New("not connected")}
	b := NewBridge(sink, "", nil)

	out := submit(t, stubIdentifier{res: &dravya.IdentifyResult{Dravya: "Neem"}}, reading)
	assert.Error(t, b.HandleOutcome(out))
}

func TestBridgeRunStopsOnClose(t *testing.T) {
	sink := &fakeSink{}
	b := NewBridge(sink, "", nil)

	ch := make(chan form.Outcome, 1)
	ch <- submit(t, stubIdentifier{res: &dravya.IdentifyResult{Dravya: "Neem"}}, reading)
	close(ch)

	done := make(chan struct{})
	go func() {
		b.Run(context.Background(), ch)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after channel close")
	}
	assert.Contains(t, sink.byTopic(), "sensor/dravya/state")
}

func TestDiscoveryConfigs(t *testing.T) {
	sink := &fakeSink{}
	d := NewDiscoveryManager(sink, "dravyalabs", nil)

	n := d.PublishAll(SensorConfigs())
	assert.Equal(t, 7, n)

	msgs := sink.byTopic()
	phMsg, ok := msgs["homeassistant/sensor/dravyalabs/ph/config"]
	require.True(t, ok)
	assert.True(t, phMsg.raw)
	assert.True(t, phMsg.retained)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal(phMsg.payload, &cfg))
	assert.Equal(t, "dravyalabs/sensor/ph/state", cfg["state_topic"])
	assert.Equal(t, "dravyalabs_ph", cfg["unique_id"])
	assert.NotContains(t, cfg, "unit_of_measurement")

	require.NoError(t, json.Unmarshal(msgs["homeassistant/sensor/dravyalabs/temp/config"].payload, &cfg))
	assert.Equal(t, "°C", cfg["unit_of_measurement"])

	var dcfg map[string]interface{}
	require.NoError(t, json.Unmarshal(msgs["homeassistant/sensor/dravyalabs/dravya/config"].payload, &dcfg))
	assert.Equal(t, "dravyalabs/sensor/dravya/attributes", dcfg["json_attributes_topic"])
}

func TestDiscoveryCountsFailures(t *testing.T) {
	d := NewDiscoveryManager(&fakeSink{err: errors.New("offline")}, "", nil)
	assert.Zero(t, d.PublishAll(SensorConfigs()))
}
