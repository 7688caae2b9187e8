package awstest

import (
	"context"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS records sent messages.
type SQS struct {
	mu   sync.Mutex
	Sent []*sqs.SendMessageInput
	Err  error
}

func (q *SQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return nil, q.Err
	}
	q.Sent = append(q.Sent, in)
	return &sqs.SendMessageOutput{MessageId: sdkaws.String(fmt.Sprintf("msg-%d", len(q.Sent)))}, nil
}

// Bodies returns the bodies of every sent message.
func (q *SQS) Bodies() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.Sent))
	for _, m := range q.Sent {
		out = append(out, sdkaws.ToString(m.MessageBody))
	}
	return out
}

// CloudWatch records published datums.
type CloudWatch struct {
	mu    sync.Mutex
	Datum []cwtypes.MetricDatum
	Err   error
}

func (c *CloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	c.Datum = append(c.Datum, in.MetricData...)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// Names returns the metric names in publish order.
func (c *CloudWatch) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.Datum))
	for _, d := range c.Datum {
		out = append(out, sdkaws.ToString(d.MetricName))
	}
	return out
}
