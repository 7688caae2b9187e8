package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes business counters to CloudWatch.
type Metrics struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetrics returns a Metrics bound to a namespace. A nil client turns
// every call into a no-op.
func NewMetrics(cw CloudWatchAPI, namespace string) *Metrics {
	return &Metrics{CloudWatch: cw, Namespace: namespace, nowFunc: time.Now}
}

// Count records one occurrence of name with the given dimensions.
func (m *Metrics) Count(ctx context.Context, name string, dims map[string]string) error {
	if m == nil || m.CloudWatch == nil {
		return nil
	}
	datum := cwtypes.MetricDatum{
		MetricName: awsString(name),
		Unit:       cwtypes.StandardUnitCount,
		Value:      float64Ptr(1),
		Timestamp:  timePtr(m.nowFunc()),
	}
	for k, v := range dims {
		datum.Dimensions = append(datum.Dimensions, cwtypes.Dimension{
			Name:  awsString(k),
			Value: awsString(v),
		})
	}

	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  awsString(m.Namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("put metric %s: %w", name, err)
	}
	return nil
}

func float64Ptr(f float64) *float64  { return &f }
func timePtr(t time.Time) *time.Time { return &t }
