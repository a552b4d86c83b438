// Package queue provides at-least-once work delivery over SQS: a long-poll
// consumer loop for workers and a publisher for the upload intake.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSAPI is the subset of the SQS client used by Consumer and Publisher.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Handler processes one message body. A nil return acknowledges the message
// (it is deleted); a non-nil return leaves it on the queue for redelivery
// after the visibility timeout.
type Handler func(ctx context.Context, body []byte) error

// Consumer polls a queue and dispatches messages to a Handler, one at a time.
type Consumer struct {
	client   SQSAPI
	queueURL string
	handler  Handler
	logger   *slog.Logger
	waitTime int32
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithWaitTime sets the long-poll wait time in seconds (default 20).
func WithWaitTime(seconds int32) ConsumerOption {
	return func(c *Consumer) {
		c.waitTime = seconds
	}
}

// NewConsumer creates a new Consumer.
func NewConsumer(client SQSAPI, queueURL string, handler Handler, logger *slog.Logger, opts ...ConsumerOption) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Consumer{
		client:   client,
		queueURL: queueURL,
		handler:  handler,
		logger:   logger,
		waitTime: 20,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start polls the queue until ctx is cancelled. Messages are processed
// strictly sequentially within one consumer; run more instances for
// parallelism.
func (c *Consumer) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 1,
			WaitTimeSeconds:     c.waitTime,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("receive message failed",
				slog.String("queue_url", c.queueURL),
				slog.String("error", err.Error()),
			)
			// Back off briefly so a broken queue doesn't spin the loop
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range out.Messages {
			if err := c.handler(ctx, []byte(aws.ToString(msg.Body))); err != nil {
				c.logger.Warn("message left for redelivery",
					slog.String("message_id", aws.ToString(msg.MessageId)),
					slog.String("error", err.Error()),
				)
				continue
			}

			if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(c.queueURL),
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				// The message will be redelivered; processing must be
				// idempotent anyway.
				c.logger.Error("delete message failed",
					slog.String("message_id", aws.ToString(msg.MessageId)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Publisher sends message bodies to a queue.
type Publisher struct {
	client   SQSAPI
	queueURL string
}

// NewPublisher creates a new Publisher.
func NewPublisher(client SQSAPI, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL}
}

// Send enqueues one message body.
func (p *Publisher) Send(ctx context.Context, body []byte) error {
	_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// snsEnvelope is the wrapper SNS puts around messages delivered to a
// subscribed queue.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// ErrNotSNSEnvelope is returned when a body is not an SNS notification wrapper.
var ErrNotSNSEnvelope = errors.New("queue: body is not an SNS envelope")

// UnwrapSNSEnvelope extracts the inner message from an SNS-to-SQS delivery.
func UnwrapSNSEnvelope(body []byte) ([]byte, error) {
	var env snsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotSNSEnvelope, err)
	}
	if env.Type != "Notification" || env.Message == "" {
		return nil, ErrNotSNSEnvelope
	}
	return []byte(env.Message), nil
}
