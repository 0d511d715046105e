package infrastructure

import (
	"context"

	"github.com/draftea/order-saga/shared/events"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	BusDriverSQS      = "sqs"
	BusDriverRabbitMQ = "rabbitmq"
	BusDriverNATS     = "nats"
	BusDriverMemory   = "memory"
)

// BusConfig selects and configures a message transport
type BusConfig struct {
	Driver   string         `mapstructure:"driver"`
	AWS      AWSConfig      `mapstructure:"aws"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	NATS     NATSConfig     `mapstructure:"nats"`
}

// NewBus builds the transport named by cfg.Driver
func NewBus(ctx context.Context, cfg BusConfig, logger zerolog.Logger) (events.Bus, error) {
	var (
		bus events.Bus
		err error
	)

	switch cfg.Driver {
	case BusDriverSQS:
		bus, err = wrapBus(NewAWSBus(ctx, cfg.AWS, logger))
	case BusDriverRabbitMQ:
		bus, err = wrapBus(NewRabbitMQBus(ctx, cfg.RabbitMQ, logger))
	case BusDriverNATS:
		bus, err = wrapBus(NewNATSBus(ctx, cfg.NATS, logger))
	case BusDriverMemory, "":
		bus = NewMemoryBus()
	default:
		return nil, errors.Errorf("unknown bus driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s bus", cfg.Driver)
	}

	logger.Info().Str("driver", cfg.Driver).Msg("message bus ready")
	return bus, nil
}

// wrapBus keeps a failed constructor from leaking a typed nil into the
// interface
func wrapBus[B events.Bus](bus B, err error) (events.Bus, error) {
	if err != nil {
		return nil, err
	}
	return bus, nil
}
