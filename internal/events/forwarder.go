// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package events

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/proctorlens/internal/metrics"
)

const sinkNATS = "nats"

// ForwarderConfig configures snapshot forwarding to NATS.
type ForwarderConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NATSForwarder republishes bus messages to a NATS subject.
type NATSForwarder struct {
	subject   string
	publisher message.Publisher
	logger    watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewNATSForwarder connects a core NATS publisher. JetStream is not used.
func NewNATSForwarder(cfg ForwarderConfig, logger watermill.LoggerAdapter) (*NATSForwarder, error) {
	if cfg.URL == "" || cfg.Subject == "" {
		return nil, errors.New("nats forwarder requires url and subject")
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("proctorlens"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled: true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill nats publisher: %w", err)
	}

	return &NATSForwarder{
		subject:   cfg.Subject,
		publisher: pub,
		logger:    logger,
	}, nil
}

// Attach registers the forwarder as a handler on bus.
func (f *NATSForwarder) Attach(bus *Bus) error {
	return bus.SubscribeRaw("nats-forwarder", f.Forward)
}

// Forward publishes a copy of msg to the NATS subject.
func (f *NATSForwarder) Forward(msg *message.Message) (err error) {
	defer func() { metrics.RecordEventPublish(sinkNATS, err) }()

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrBusClosed
	}

	out := msg.Copy()
	if out.Metadata.Get(natsgo.MsgIdHdr) == "" {
		out.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}
	if err := f.publisher.Publish(f.subject, out); err != nil {
		return fmt.Errorf("forward snapshot to nats: %w", err)
	}
	return nil
}

// Subject returns the target NATS subject.
func (f *NATSForwarder) Subject() string {
	return f.subject
}

// Close shuts down the NATS publisher.
func (f *NATSForwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.publisher.Close()
}
