package mqtt

import (
	"context"

	"go.uber.org/zap"

	"dravyalabs/internal/form"
)

// Bridge forwards successful identifications from the form to MQTT.
type Bridge struct {
	publisher *Publisher
	discovery *DiscoveryManager
	logger    *zap.Logger
}

// NewBridge creates a bridge publishing through sink under prefix
func NewBridge(sink Sink, prefix string, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mqtt")
	return &Bridge{
		publisher: NewPublisher(sink, logger),
		discovery: NewDiscoveryManager(sink, prefix, logger),
		logger:    logger,
	}
}

// PublishDiscovery announces every sensor to Home Assistant
func (b *Bridge) PublishDiscovery() {
	b.discovery.PublishAll(SensorConfigs())
}

// Run publishes outcomes until ctx ends or the channel is closed.
func (b *Bridge) Run(ctx context.Context, outcomes <-chan form.Outcome) {
	for {
		select {
		case <-ctx.Done():
			return
		case o, ok := <-outcomes:
			if !ok {
				return
			}
			if err := b.HandleOutcome(o); err != nil {
				b.logger.Warn("failed to publish identification", zap.String("attempt", o.Attempt().String()), zap.Error(err))
			}
		}
	}
}

// HandleOutcome publishes the readings and identification of a Success outcome.
// Other phases are ignored.
func (b *Bridge) HandleOutcome(o form.Outcome) error {
	res, ok := o.Result()
	if !ok {
		return nil
	}
	req, ok := o.Request()
	if !ok {
		return nil
	}

	if err := b.publisher.PublishMultipleSensors(ReadingData(req)); err != nil {
		return err
	}

	return b.publisher.PublishSensorState(&SensorData{
		ID:    DravyaSensorID,
		Label: "Identified Dravya",
		Value: res.Dravya,
		Attributes: map[string]interface{}{
			"description": res.Description,
			"has_image":   res.HasImage(),
			"attempt":     o.Attempt().String(),
		},
	})
}
