// Package statemqtt periodically publishes controller state snapshots to an
// MQTT broker as JSON, for dashboards and recorders that watch the robot from
// outside the control loop.
package statemqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/trajctl/controller"
)

const (
	defaultRate    = 10.0
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Config describes the broker connection and publish cadence.
type Config struct {
	Broker   string  `yaml:"broker"`
	ClientID string  `yaml:"client_id"`
	Topic    string  `yaml:"topic"`
	QoS      byte    `yaml:"qos"`
	Rate     float64 `yaml:"rate"`
}

// Validate checks the publisher description, reporting every problem found.
func (cfg Config) Validate() error {
	var err error
	if cfg.Broker == "" {
		err = multierr.Append(err, errors.New("a broker URL is required"))
	}
	if cfg.ClientID == "" {
		err = multierr.Append(err, errors.New("a client ID is required"))
	}
	if cfg.Topic == "" {
		err = multierr.Append(err, errors.New("a topic is required"))
	}
	if cfg.QoS > 2 {
		err = multierr.Append(err, errors.New("QoS must be 0, 1 or 2"))
	}
	if cfg.Rate < 0 {
		err = multierr.Append(err, errors.New("rate must be non-negative"))
	}
	return err
}

func (cfg Config) period() time.Duration {
	rate := cfg.Rate
	if rate == 0 {
		rate = defaultRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// Source supplies the snapshots to publish. The controller satisfies it.
type Source interface {
	LatestState(out *controller.Snapshot) bool
}

// Publisher owns one broker connection and its publishing worker.
type Publisher struct {
	cfg    Config
	logger golog.Logger
	clk    clock.Clock
	client mqtt.Client
	source Source

	cancelCtx               context.Context
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewPublisher connects to the broker and returns an idle publisher; call
// Start to begin publishing.
func NewPublisher(cfg Config, source Source, clk clock.Clock, logger golog.Logger) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("a snapshot source is required")
	}
	if clk == nil {
		clk = clock.New()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errors.Errorf("timed out connecting to broker %q", cfg.Broker)
	}
	if token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "failed to connect to broker %q", cfg.Broker)
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	return &Publisher{
		cfg:       cfg,
		logger:    logger,
		clk:       clk,
		client:    client,
		source:    source,
		cancelCtx: cancelCtx,
		cancel:    cancel,
	}, nil
}

// Start launches the publishing worker.
func (p *Publisher) Start() {
	p.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		p.publishLoop(p.cancelCtx)
	}, p.activeBackgroundWorkers.Done)
}

// Close stops the worker and disconnects from the broker.
func (p *Publisher) Close() {
	p.cancel()
	p.activeBackgroundWorkers.Wait()
	p.client.Disconnect(250)
}

func (p *Publisher) publishLoop(ctx context.Context) {
	ticker := p.clk.Ticker(p.cfg.period())
	defer ticker.Stop()
	var snap controller.Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !p.source.LatestState(&snap) {
			continue
		}
		payload, err := snapshotPayload(&snap)
		if err != nil {
			p.logger.Errorw("failed to encode state snapshot", "error", err)
			continue
		}
		token := p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, payload)
		if !token.WaitTimeout(publishTimeout) {
			p.logger.Errorw("timed out publishing state snapshot", "topic", p.cfg.Topic)
			continue
		}
		if token.Error() != nil {
			p.logger.Errorw("failed to publish state snapshot", "topic", p.cfg.Topic, "error", token.Error())
		}
	}
}

func snapshotPayload(snap *controller.Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}
