// Package events publishes domain events about committed mentor assignments.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// AssignmentsCommitted is emitted after a ledger commit succeeds.
const AssignmentsCommitted = "mentor.assignments.committed"

// Event is the envelope every published message carries.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	RunID      string      `json:"runId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSPublisher struct {
	client   SNSAPI
	topicARN string
}

func NewSNSPublisher(client SNSAPI, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

// NewSNSPublisherFromRegion loads the default AWS credential chain.
func NewSNSPublisherFromRegion(ctx context.Context, region, topicARN string) (*SNSPublisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSNSPublisher(sns.NewFromConfig(cfg), topicARN), nil
}

func (p *SNSPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", evt.ID, err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(evt.Type)},
			"runId":     {DataType: aws.String("String"), StringValue: aws.String(evt.RunID)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", evt.Type, p.topicARN, err)
	}
	return nil
}

// NoopPublisher drops events. Used when events are disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
