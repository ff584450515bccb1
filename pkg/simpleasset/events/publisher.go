package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
)

// Publisher drivers.
const (
	DriverGoChannel = "gochannel"
	DriverNATS      = "nats"
)

// Config selects and configures the publisher backend.
type Config struct {
	Driver string

	// gochannel
	BufferSize int64

	// nats
	URL           string
	ClientID      string
	JetStream     bool
	MaxReconnects int
	ReconnectWait time.Duration
}

// NewPublisher builds a watermill publisher. The in-process gochannel driver
// is the default and is also returned as a subscriber for local consumers.
func NewPublisher(cfg Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	switch cfg.Driver {
	case "", DriverGoChannel:
		return NewGoChannel(cfg, logger), nil
	case DriverNATS:
		return newNATSPublisher(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported event driver: %s", cfg.Driver)
	}
}

// NewGoChannel returns an in-process pub/sub.
func NewGoChannel(cfg Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 64
	}
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, logger)
}

func newNATSPublisher(cfg Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	maxReconnects := cfg.MaxReconnects
	if maxReconnects == 0 {
		maxReconnects = 10
	}
	reconnectWait := cfg.ReconnectWait
	if reconnectWait == 0 {
		reconnectWait = 2 * time.Second
	}

	opts := []nc.Option{
		nc.MaxReconnects(maxReconnects),
		nc.ReconnectWait(reconnectWait),
		nc.RetryOnFailedConnect(true),
	}
	if cfg.ClientID != "" {
		opts = append(opts, nc.Name(cfg.ClientID))
	}

	return nats.NewPublisher(nats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: opts,
		Marshaler:   &nats.JSONMarshaler{},
		JetStream:   nats.JetStreamConfig{Disabled: !cfg.JetStream, AutoProvision: cfg.JetStream},
	}, logger)
}
