// Package jobevents fans job ledger entries out to an SQS queue so
// downstream consumers can react to finished or failed automation runs.
package jobevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// EventType names the message kind on the queue.
const EventType = "job.status"

// SQSAPI is the subset of *sqs.Client used here.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Event is the message body.
type Event struct {
	EventType   string                 `json:"event_type"`
	EntryID     string                 `json:"entry_id"`
	WorkspaceID string                 `json:"workspace_id"`
	JobID       string                 `json:"job_id"`
	Status      domain.JobStatus       `json:"status"`
	Message     string                 `json:"message,omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// Publisher sends one SQS message per ledger entry.
type Publisher struct {
	client   SQSAPI
	queueURL string
}

// NewPublisher wraps an existing client.
func NewPublisher(client SQSAPI, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL}
}

// NewSQSPublisher loads the default AWS credential chain for region.
func NewSQSPublisher(ctx context.Context, region, queueURL string) (*Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewPublisher(sqs.NewFromConfig(cfg), queueURL), nil
}

// PublishJobEvent sends e synchronously. The status and workspace are also
// set as message attributes for subscription filtering.
func (p *Publisher) PublishJobEvent(ctx context.Context, e domain.JobLogEntry) error {
	body, err := json.Marshal(Event{
		EventType:   EventType,
		EntryID:     e.ID.String(),
		WorkspaceID: e.WorkspaceID.String(),
		JobID:       e.JobID,
		Status:      e.Status,
		Message:     e.Message,
		Meta:        e.Meta,
		Timestamp:   e.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type":   {DataType: aws.String("String"), StringValue: aws.String(EventType)},
			"status":       {DataType: aws.String("String"), StringValue: aws.String(string(e.Status))},
			"workspace_id": {DataType: aws.String("String"), StringValue: aws.String(e.WorkspaceID.String())},
		},
	})
	if err != nil {
		return fmt.Errorf("publishing job event to SQS: %w", err)
	}
	return nil
}
