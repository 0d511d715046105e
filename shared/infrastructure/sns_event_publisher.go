package infrastructure

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/draftea/order-saga/shared/events"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var _ events.Publisher = (*SNSEventPublisher)(nil)

const (
	maxBatchSize = 10
	fifoSuffix   = ".fifo"
)

// snsAPI is the part of the SNS client the publisher needs
type snsAPI interface {
	PublishBatch(ctx context.Context, params *sns.PublishBatchInput, optFns ...func(*sns.Options)) (*sns.PublishBatchOutput, error)
}

// SNSEventPublisher publishes events to one SNS topic per channel. The topic
// ARN is TopicARNPrefix followed by the channel name. On FIFO topics the
// orderId is the message group, so messages of one saga stay ordered.
type SNSEventPublisher struct {
	client         snsAPI
	topicARNPrefix string
	fifo           bool
}

// NewSNSEventPublisher creates a new SNSEventPublisher
func NewSNSEventPublisher(client snsAPI, topicARNPrefix string, fifo bool) *SNSEventPublisher {
	return &SNSEventPublisher{
		client:         client,
		topicARNPrefix: topicARNPrefix,
		fifo:           fifo,
	}
}

// Publish publishes events to SNS. Channels are published concurrently;
// batches of one channel go out in order.
func (p *SNSEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	var order []events.Topic
	byTopic := make(map[events.Topic][]*events.Event)
	for _, event := range evts {
		if _, ok := byTopic[event.Topic]; !ok {
			order = append(order, event.Topic)
		}
		byTopic[event.Topic] = append(byTopic[event.Topic], event)
	}

	gr, ctx := errgroup.WithContext(ctx)

	for _, topic := range order {
		topic := topic
		gr.Go(func() error {
			for _, batch := range splitToChunks(byTopic[topic], maxBatchSize) {
				if err := p.batchPublish(ctx, topic, batch); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return gr.Wait()
}

// TopicARN returns the ARN messages of topic are published to
func (p *SNSEventPublisher) TopicARN(topic events.Topic) string {
	arn := p.topicARNPrefix + topic.String()
	if p.fifo && !strings.HasSuffix(arn, fifoSuffix) {
		arn += fifoSuffix
	}
	return arn
}

func (p *SNSEventPublisher) batchPublish(ctx context.Context, topic events.Topic, evts []*events.Event) error {
	requests := make([]types.PublishBatchRequestEntry, len(evts))

	for i, event := range evts {
		body, err := event.ToJSON()
		if err != nil {
			return errors.Wrap(err, "failed to marshal event")
		}

		attrs := map[string]types.MessageAttributeValue{
			"topic": {
				DataType:    aws.String("String"),
				StringValue: aws.String(topic.String()),
			},
			"key": {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.Key()),
			},
		}

		requests[i] = types.PublishBatchRequestEntry{
			Id:                aws.String(event.ID.String()),
			Message:           aws.String(string(body)),
			MessageAttributes: attrs,
		}

		if p.fifo {
			requests[i].MessageGroupId = aws.String(event.Key())
			requests[i].MessageDeduplicationId = aws.String(event.ID.String())
		}
	}

	res, err := p.client.PublishBatch(
		ctx,
		&sns.PublishBatchInput{
			TopicArn:                   aws.String(p.TopicARN(topic)),
			PublishBatchRequestEntries: requests,
		},
	)
	if err != nil {
		return errors.Wrap(err, "failed to publish batch to SNS")
	}

	if len(res.Failed) > 0 {
		entry := res.Failed[0]
		return errors.Errorf("failed to publish %d of %d messages to %s: %s",
			len(res.Failed), len(evts), topic, aws.ToString(entry.Message))
	}

	return nil
}

// splitToChunks splits slice into chunks of specified size
func splitToChunks[T any](slice []T, chunkSize int) [][]T {
	var chunks [][]T
	for i := 0; i < len(slice); i += chunkSize {
		end := i + chunkSize
		if end > len(slice) {
			end = len(slice)
		}
		chunks = append(chunks, slice[i:end])
	}
	return chunks
}
