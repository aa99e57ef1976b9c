package jobevents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/repository/memory"
	"github.com/auditai/insight-engine/internal/service/jobledger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	sent []*sqs.SendMessageInput
	err  error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestPublisher_PublishJobEvent(t *testing.T) {
	fake := &fakeSQS{}
	p := NewPublisher(fake, "https://sqs.us-east-1.amazonaws.com/123/job-events")
	entry := domain.JobLogEntry{
		ID:          uuid.New(),
		WorkspaceID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		JobID:       "job-42",
		Status:      domain.JobDone,
		Message:     "imported 3",
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.PublishJobEvent(context.Background(), entry))
	require.Len(t, fake.sent, 1)
	msg := fake.sent[0]
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123/job-events", aws.ToString(msg.QueueUrl))
	assert.Equal(t, "DONE", aws.ToString(msg.MessageAttributes["status"].StringValue))

	var evt Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(msg.MessageBody)), &evt))
	assert.Equal(t, EventType, evt.EventType)
	assert.Equal(t, entry.ID.String(), evt.EntryID)
	assert.Equal(t, "job-42", evt.JobID)
	assert.Equal(t, entry.CreatedAt, evt.Timestamp)
}

func TestPublisher_WiredIntoLedger(t *testing.T) {
	fake := &fakeSQS{err: errors.New("AWS.SimpleQueueService.NonExistentQueue")}
	store := memory.NewStore()
	ledger := jobledger.NewService(store, jobledger.WithPublisher(NewPublisher(fake, "q")))

	_, err := ledger.RecordJobEvent(context.Background(), uuid.New(), "job-1", domain.JobFail, "boom", nil)
	require.NoError(t, err, "queue failures never fail the ledger append")
	_, _, logs := store.Counts()
	assert.Equal(t, 1, logs)
}
