package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSAPI is the subset of the SNS client used by SNSNotifier.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Compile-time check that SNSNotifier implements Notifier.
var _ Notifier = (*SNSNotifier)(nil)

// SNSNotifier publishes notification messages to an SNS topic as JSON.
// The dispatcher consumes them from a subscribed queue.
type SNSNotifier struct {
	client   SNSAPI
	topicARN string
}

// NewSNSNotifier creates a new SNSNotifier.
func NewSNSNotifier(client SNSAPI, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// Notify publishes the message to the configured topic.
func (n *SNSNotifier) Notify(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
