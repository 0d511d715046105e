package infrastructure

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	mu     sync.Mutex
	inputs []*sns.PublishBatchInput
	failID string
}

func (f *fakeSNS) PublishBatch(_ context.Context, params *sns.PublishBatchInput, _ ...func(*sns.Options)) (*sns.PublishBatchOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, params)

	out := &sns.PublishBatchOutput{}
	for _, entry := range params.PublishBatchRequestEntries {
		if aws.ToString(entry.Id) == f.failID {
			out.Failed = append(out.Failed, types.BatchResultErrorEntry{
				Id:      entry.Id,
				Code:    aws.String("InternalError"),
				Message: aws.String("boom"),
			})
		}
	}
	return out, nil
}

func (f *fakeSNS) batchesFor(arn string) []*sns.PublishBatchInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*sns.PublishBatchInput
	for _, in := range f.inputs {
		if aws.ToString(in.TopicArn) == arn {
			out = append(out, in)
		}
	}
	return out
}

func TestSNSEventPublisher_FIFOBatchesPerTopic(t *testing.T) {
	client := &fakeSNS{}
	publisher := NewSNSEventPublisher(client, "arn:aws:sns:us-east-1:000000000000:", true)

	orderID := models.GenerateUUID()
	var evts []*events.Event
	for i := 0; i < 12; i++ {
		evts = append(evts, events.NewEvent(orderID, events.TopicPaymentEvents, events.PaymentCommand{OrderID: orderID.String()}))
	}
	evts = append(evts, events.NewEvent(orderID, events.TopicOrderEvents, events.OrderCreated{OrderID: orderID.String()}))

	require.NoError(t, publisher.Publish(context.Background(), evts...))

	payments := client.batchesFor("arn:aws:sns:us-east-1:000000000000:payment-events.fifo")
	require.Len(t, payments, 2)
	assert.Len(t, payments[0].PublishBatchRequestEntries, 10)
	assert.Len(t, payments[1].PublishBatchRequestEntries, 2)
	assert.Equal(t, evts[0].ID.String(), aws.ToString(payments[0].PublishBatchRequestEntries[0].Id))
	assert.Equal(t, evts[10].ID.String(), aws.ToString(payments[1].PublishBatchRequestEntries[0].Id))

	entry := payments[0].PublishBatchRequestEntries[0]
	assert.Equal(t, orderID.String(), aws.ToString(entry.MessageGroupId))
	assert.Equal(t, evts[0].ID.String(), aws.ToString(entry.MessageDeduplicationId))
	assert.Equal(t, "payment-events", aws.ToString(entry.MessageAttributes["topic"].StringValue))

	decoded, err := events.FromJSON([]byte(aws.ToString(entry.Message)))
	require.NoError(t, err)
	assert.Equal(t, evts[0].ID, decoded.ID)
	assert.Equal(t, events.TopicPaymentEvents, decoded.Topic)

	assert.Len(t, client.batchesFor("arn:aws:sns:us-east-1:000000000000:order-events.fifo"), 1)
}

func TestSNSEventPublisher_StandardTopic(t *testing.T) {
	client := &fakeSNS{}
	publisher := NewSNSEventPublisher(client, "arn:prefix:", false)

	event := events.NewEvent(models.GenerateUUID(), events.TopicOrderEvents, events.OrderCreated{})
	require.NoError(t, publisher.Publish(context.Background(), event))

	batches := client.batchesFor("arn:prefix:order-events")
	require.Len(t, batches, 1)
	assert.Nil(t, batches[0].PublishBatchRequestEntries[0].MessageGroupId)
}

func TestSNSEventPublisher_PartialFailure(t *testing.T) {
	event := events.NewEvent(models.GenerateUUID(), events.TopicOrderEvents, events.OrderCreated{})
	client := &fakeSNS{failID: event.ID.String()}
	publisher := NewSNSEventPublisher(client, "arn:prefix:", false)

	err := publisher.Publish(context.Background(), event)
	assert.ErrorContains(t, err, "failed to publish 1 of 1")
}

func TestSNSEventPublisher_NoEvents(t *testing.T) {
	client := &fakeSNS{}
	require.NoError(t, NewSNSEventPublisher(client, "arn:prefix:", false).Publish(context.Background()))
	assert.Empty(t, client.inputs)
}
