package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// ConsumerConfig configures the JetStream consumer that feeds the clock.
type ConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "DRAFT_EVENTS",
		ConsumerName:  "draft-orchestrator",
		SubjectFilter: "draft.events.>",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Consumer is the orchestrator's JetStream subscription. Last-per-subject
// delivery means a restarted orchestrator sees each season's most recent
// events and re-arms its clocks from them; no deadline table needed.
type Consumer struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   ConsumerConfig
}

func NewConsumer(config ConsumerConfig) (*Consumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	c := &Consumer{nc: nc, js: js, config: config}
	if err := c.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return c, nil
}

func (c *Consumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.Stream(ctx, c.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	cfg := jetstream.ConsumerConfig{
		Name:          c.config.ConsumerName,
		Durable:       c.config.ConsumerName,
		Description:   "draft pick-clock orchestrator",
		FilterSubject: c.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverLastPerSubjectPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    c.config.MaxDeliver,
		AckWait:       c.config.AckWait,
	}

	consumer, err := stream.Consumer(ctx, c.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", c.config.ConsumerName).
			Str("stream", c.config.StreamName).
			Msg("created JetStream consumer")
	}
	c.consumer = consumer
	return nil
}

func (c *Consumer) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}

// WithConsumer attaches the JetStream subscription the orchestrator runs on.
func (o *Orchestrator) WithConsumer(c *Consumer) *Orchestrator {
	o.consumer = c
	return o
}

// Run consumes draft events and processes expired clocks until ctx is
// cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.consumer == nil {
		return fmt.Errorf("orchestrator has no consumer attached")
	}

	log.Info().
		Str("instance", o.instanceID).
		Int("workers", o.numWorkers).
		Msg("orchestrator started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < o.numWorkers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i)
	}
	defer func() {
		cancelWorkers()
		close(o.workCh)
		wg.Wait()
		log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	}()

	cc, err := o.consumer.consumer.Consume(func(msg jetstream.Msg) {
		if err := o.processMessage(ctx, msg); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process event")
			if nakErr := msg.Nak(); nakErr != nil {
				log.Error().Err(nakErr).Msg("failed to NAK message")
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer cc.Stop()

	<-ctx.Done()
	log.Info().Str("instance", o.instanceID).Msg("orchestrator shutting down")

	o.activeTimersMu.Lock()
	for seasonID, timer := range o.activeTimers {
		stopAndDrainTimer(timer)
		log.Debug().Str("season_id", seasonID.String()).Msg("cancelled timer on shutdown")
	}
	o.activeTimers = make(map[uuid.UUID]clockwork.Timer)
	o.activeTimersMu.Unlock()

	return nil
}

func (o *Orchestrator) processMessage(ctx context.Context, msg jetstream.Msg) error {
	var env struct {
		EventID   string          `json:"eventId"`
		EventType string          `json:"eventType"`
		SeasonID  string          `json:"seasonId"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		return fmt.Errorf("unmarshal event envelope: %w", err)
	}

	seasonID, err := uuid.Parse(env.SeasonID)
	if err != nil {
		return fmt.Errorf("parse season id: %w", err)
	}
	return o.HandleEvent(ctx, env.EventType, seasonID, env.Payload)
}

// worker drains expired deadlines off the work channel.
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case seasonID, ok := <-o.workCh:
			if !ok {
				return
			}
			log.Info().
				Str("season_id", seasonID.String()).
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("pick clock expired")

			if err := o.handleDeadline(ctx, seasonID); err != nil {
				log.Error().
					Err(err).
					Str("season_id", seasonID.String()).
					Int("worker_id", workerID).
					Msg("deadline handling failed")
			}
		}
	}
}
