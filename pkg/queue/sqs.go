package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type SQSPublisher struct {
	client   sqsSender
	queueURL string
}

func NewSQSPublisher(client sqsSender, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

// NewSQSPublisherFromConfig resolves credentials from the default AWS chain.
func NewSQSPublisherFromConfig(ctx context.Context, region, queueURL string) (*SQSPublisher, error) {
	if queueURL == "" {
		return nil, errors.New("SQS_QUEUE_URL is required for the sqs queue backend")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return NewSQSPublisher(sqs.NewFromConfig(awsCfg), queueURL), nil
}

func (p *SQSPublisher) Publish(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {
				DataType:    aws.String("String"),
				StringValue: aws.String(EventParserRequestCreated),
			},
			"parser_request_id": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.FormatInt(task.ParserRequestID, 10)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", p.queueURL, err)
	}
	return nil
}

func (p *SQSPublisher) Close() error {
	return nil
}
