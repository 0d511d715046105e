package infrastructure

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/draftea/order-saga/shared/events"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var _ events.Bus = (*AWSBus)(nil)

// AWSConfig configures the SNS/SQS transport. Every channel is an SNS topic
// named TopicARNPrefix+channel; each consumer group reads its own SQS queue
// named QueueURLPrefix+group+"-"+channel subscribed to that topic.
type AWSConfig struct {
	TopicARNPrefix string `mapstructure:"topic_arn_prefix"`
	QueueURLPrefix string `mapstructure:"queue_url_prefix"`
	FIFO           bool   `mapstructure:"fifo"`
	Workers        int32  `mapstructure:"workers"`
}

// AWSBus publishes to SNS and consumes from SQS
type AWSBus struct {
	publisher *SNSEventPublisher
	sqsClient sqsAPI
	config    AWSConfig
	logger    zerolog.Logger
	opts      []SQSSubscriberOption

	mu          sync.Mutex
	subscribers []*SQSEventSubscriber
}

// NewAWSBus loads the default AWS configuration (honouring AWS_ENDPOINT_URL
// for LocalStack) and builds the SNS and SQS clients
func NewAWSBus(ctx context.Context, cfg AWSConfig, logger zerolog.Logger) (*AWSBus, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return NewAWSBusWithClients(sns.NewFromConfig(awsCfg), sqs.NewFromConfig(awsCfg), cfg, logger), nil
}

// NewAWSBusWithClients builds the bus on existing clients
func NewAWSBusWithClients(snsClient snsAPI, sqsClient sqsAPI, cfg AWSConfig, logger zerolog.Logger, opts ...SQSSubscriberOption) *AWSBus {
	if cfg.Workers > 0 {
		opts = append([]SQSSubscriberOption{WithWorkers(cfg.Workers)}, opts...)
	}

	return &AWSBus{
		publisher: NewSNSEventPublisher(snsClient, cfg.TopicARNPrefix, cfg.FIFO),
		sqsClient: sqsClient,
		config:    cfg,
		logger:    logger.With().Str("transport", "aws").Logger(),
		opts:      opts,
	}
}

// Publish implements events.Publisher
func (b *AWSBus) Publish(ctx context.Context, evts ...*events.Event) error {
	return b.publisher.Publish(ctx, evts...)
}

// Subscribe starts a subscriber on the group's queue for topic
func (b *AWSBus) Subscribe(ctx context.Context, topic events.Topic, group string, handler events.EventHandler) error {
	queueURL := b.QueueURL(topic, group)
	logger := b.logger.With().Str("topic", topic.String()).Str("group", group).Logger()

	subscriber := NewSQSEventSubscriber(b.sqsClient, queueURL, handler, logger, b.opts...)
	if err := subscriber.Start(ctx); err != nil {
		return errors.Wrapf(err, "failed to start SQS subscriber for %s", topic)
	}

	b.mu.Lock()
	b.subscribers = append(b.subscribers, subscriber)
	b.mu.Unlock()

	return nil
}

// QueueURL returns the queue a group reads topic from
func (b *AWSBus) QueueURL(topic events.Topic, group string) string {
	url := b.config.QueueURLPrefix + group + "-" + topic.String()
	if b.config.FIFO && !strings.HasSuffix(url, fifoSuffix) {
		url += fifoSuffix
	}
	return url
}

// Close stops every subscriber
func (b *AWSBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for _, subscriber := range b.subscribers {
		if err := subscriber.Stop(context.Background()); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "failed to stop SQS subscriber")
		}
	}
	b.subscribers = nil

	return firstErr
}
