// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/proctorlens/internal/config"
	"github.com/tomtom215/proctorlens/internal/metrics"
	"github.com/tomtom215/proctorlens/internal/models"
)

// MetadataSession is the message metadata key holding the session token.
const MetadataSession = "session"

const (
	sinkBus          = "bus"
	routerCloseAfter = 5 * time.Second
)

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// ErrBusRunning is returned by Subscribe once the bus is being served.
var ErrBusRunning = errors.New("event bus already running")

// SnapshotHandler consumes one decoded snapshot.
type SnapshotHandler func(ctx context.Context, snap models.Snapshot) error

// Bus is the in-process snapshot event bus.
type Bus struct {
	topic  string
	pubsub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter

	mu       sync.RWMutex
	closed   bool
	served   bool
	handlers []string
}

// NewBus creates a Bus for cfg.Topic. logger may be nil.
func NewBus(cfg config.EventsConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if cfg.Topic == "" {
		return nil, errors.New("event bus topic is required")
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: routerCloseAfter}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	return &Bus{
		topic:  cfg.Topic,
		pubsub: pubsub,
		router: router,
		logger: logger,
	}, nil
}

// Topic returns the topic snapshots are published on.
func (b *Bus) Topic() string {
	return b.topic
}

// Publisher exposes the underlying pub/sub for watermill components.
func (b *Bus) Publisher() message.Publisher {
	return b.pubsub
}

// PublishSnapshot encodes snap and publishes it on the bus topic.
func (b *Bus) PublishSnapshot(snap models.Snapshot) (err error) {
	defer func() { metrics.RecordEventPublish(sinkBus, err) }()

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrBusClosed
	}

	msg, err := NewSnapshotMessage(snap)
	if err != nil {
		return err
	}
	return b.pubsub.Publish(b.topic, msg)
}

// Subscribe registers a handler that receives every snapshot. Handlers must
// be registered before Serve. Decoding failures are logged and acknowledged.
func (b *Bus) Subscribe(name string, fn SnapshotHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.served {
		return ErrBusRunning
	}

	b.router.AddConsumerHandler(name, b.topic, b.pubsub, func(msg *message.Message) error {
		snap, err := DecodeSnapshot(msg)
		if err != nil {
			b.logger.Error("Dropping undecodable snapshot event", err, watermill.LogFields{
				"handler": name,
				"uuid":    msg.UUID,
			})
			return nil
		}
		return fn(msg.Context(), snap)
	})
	b.handlers = append(b.handlers, name)
	return nil
}

// SubscribeRaw registers a handler for undecoded messages.
func (b *Bus) SubscribeRaw(name string, fn message.NoPublishHandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.served {
		return ErrBusRunning
	}
	b.router.AddConsumerHandler(name, b.topic, b.pubsub, fn)
	b.handlers = append(b.handlers, name)
	return nil
}

// Handlers lists registered handler names.
func (b *Bus) Handlers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.handlers...)
}

// Serve runs the router until ctx is done. It implements suture.Service.
func (b *Bus) Serve(ctx context.Context) error {
	b.mu.Lock()
	b.served = true
	b.mu.Unlock()

	if err := b.router.Run(ctx); err != nil {
		return fmt.Errorf("event bus router: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (b *Bus) String() string {
	return "event-bus"
}

// Running is closed once the router has started all handlers.
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

// Close stops the router and the pub/sub.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	routerErr := b.router.Close()
	pubsubErr := b.pubsub.Close()
	return errors.Join(routerErr, pubsubErr)
}

// NewSnapshotMessage builds the watermill message for one snapshot.
func NewSnapshotMessage(snap models.Snapshot) (*message.Message, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataSession, snap.Session)
	return msg, nil
}

// DecodeSnapshot parses a snapshot message payload.
func DecodeSnapshot(msg *message.Message) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(msg.Payload, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Session == "" {
		snap.Session = msg.Metadata.Get(MetadataSession)
	}
	return snap, nil
}
