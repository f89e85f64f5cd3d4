package mqtt

import "github.com/sweeney/climate-node/internal/sensor"

// NopPublisher discards every message. It stands in for the broker when
// publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishReading(sensor.Reading) error { return nil }
func (NopPublisher) PublishButton(ButtonEvent) error     { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error     { return nil }
func (NopPublisher) Close() error                        { return nil }
func (NopPublisher) IsConnected() bool                   { return false }
