// Package notify forwards selected engine events to an MQTT broker so
// external consumers (home automation, stage lighting) can react to the
// audio in real time.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/musicv-go/internal/conf"
	"github.com/tphakala/musicv-go/internal/errors"
	"github.com/tphakala/musicv-go/internal/events"
	"github.com/tphakala/musicv-go/internal/logging"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	queueSize      = 64
)

// forwardedTypes are the event types mirrored onto the broker. Per-frame
// events stay local; only state changes and beats go out.
var forwardedTypes = []events.Type{
	events.AudioLoaded,
	events.AudioPlaying,
	events.AudioStopped,
	events.BeatDetected,
	events.ErrorOccurred,
}

// Client publishes engine events to an MQTT broker. Bus listeners only
// enqueue; a delivery goroutine does the actual publishing so a slow or
// reconnecting broker never stalls the emitting loop.
type Client struct {
	client  mqtt.Client
	topic   string
	logger  *slog.Logger
	queue   chan events.Event
	stop    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

// NewClient connects to the broker named in the settings. Connection failure
// is an error; notify is optional, so callers typically log and continue.
func NewClient(ctx context.Context, settings conf.MQTTSettings) (*Client, error) {
	logger := logging.ForService("notify")
	if logger == nil {
		logger = slog.Default().With("service", "notify")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(settings.Broker).
		SetClientID(fmt.Sprintf("musicv-%d", time.Now().UnixNano())).
		SetUsername(settings.Username).
		SetPassword(settings.Password).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		logger.Info("connected to MQTT broker", "broker", settings.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	}

	client := mqtt.NewClient(opts)

	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, errors.New(ctx.Err()).
			Component("notify").
			Category(errors.CategoryCancellation).
			Build()
	}
	if err := token.Error(); err != nil {
		return nil, errors.New(fmt.Errorf("connecting to MQTT broker: %w", err)).
			Component("notify").
			Category(errors.CategoryMQTTConnect).
			Context("broker", settings.Broker).
			Build()
	}

	c := &Client{
		client: client,
		topic:  settings.Topic,
		logger: logger,
		queue:  make(chan events.Event, queueSize),
		stop:   make(chan struct{}),
	}

	c.wg.Add(1)
	go c.deliver()

	return c, nil
}

// Attach subscribes the client to the bus, forwarding the exported event
// types. Publish failures are logged, never propagated into the emitter.
func (c *Client) Attach(bus *events.Bus) {
	for _, t := range forwardedTypes {
		bus.Subscribe(t, c.forward)
	}
}

// forward runs on the emitter's goroutine, so it never blocks: a full queue
// drops the event and counts it.
func (c *Client) forward(e events.Event) {
	select {
	case c.queue <- e:
	default:
		c.dropped.Add(1)
		c.logger.Warn("notify queue full, dropping event", "type", e.Type)
	}
}

// deliver drains the queue and publishes until Close.
func (c *Client) deliver() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		case e := <-c.queue:
			c.publish(e)
		}
	}
}

func (c *Client) publish(e events.Event) {
	payload, err := json.Marshal(map[string]any{
		"type":      string(e.Type),
		"timestamp": e.Timestamp.UTC().Format(time.RFC3339Nano),
		"payload":   e.Payload,
	})
	if err != nil {
		c.logger.Error("encoding event for MQTT", "type", e.Type, "error", err)
		return
	}

	topic := fmt.Sprintf("%s/%s", c.topic, e.Type)
	token := c.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		c.dropped.Add(1)
		c.logger.Warn("MQTT publish timed out", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		c.dropped.Add(1)
		c.logger.Error("MQTT publish failed", "topic", topic, "error", err)
	}
}

// Dropped returns the number of events lost to a full queue or to publish
// failures.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

// Close stops the delivery goroutine and disconnects from the broker,
// allowing in-flight publishes a moment to complete.
func (c *Client) Close() {
	close(c.stop)
	c.wg.Wait()
	c.client.Disconnect(250)
}
