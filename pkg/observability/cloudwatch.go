package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// PutMetricDataAPI is the part of the CloudWatch client the publisher uses
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatch supports up to 1000 datums per PutMetricData call
const cloudWatchBatchSize = 1000

// CloudWatchMetrics buffers metrics and publishes them with Flush. In Lambda
// Flush runs at the end of every invocation.
type CloudWatchMetrics struct {
	namespace string
	client    PutMetricDataAPI
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []types.MetricDatum
}

// NewCloudWatchMetrics creates a publisher. A nil client disables publishing.
func NewCloudWatchMetrics(namespace string, client PutMetricDataAPI, logger *zap.Logger) *CloudWatchMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudWatchMetrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *CloudWatchMetrics) Increment(metric, label string) {
	m.add(metric, label, 1, types.StandardUnitCount)
}

func (m *CloudWatchMetrics) StartTimer(metric, label string) Timer {
	return &cloudWatchTimer{m: m, metric: metric, label: label, start: m.now()}
}

type cloudWatchTimer struct {
	m      *CloudWatchMetrics
	metric string
	label  string
	start  time.Time
}

func (t *cloudWatchTimer) Stop() {
	elapsed := t.m.now().Sub(t.start)
	t.m.add(t.metric, t.label, float64(elapsed.Milliseconds()), types.StandardUnitMilliseconds)
}

func (m *CloudWatchMetrics) add(metric, label string, value float64, unit types.StandardUnit) {
	if m.client == nil {
		return
	}

	datum := types.MetricDatum{
		MetricName: aws.String(metric),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(m.now()),
	}
	if label != "" {
		datum.Dimensions = []types.Dimension{{
			Name:  aws.String("Label"),
			Value: aws.String(label),
		}}
	}

	m.mu.Lock()
	m.pending = append(m.pending, datum)
	m.mu.Unlock()
}

// Pending returns the number of buffered datums
func (m *CloudWatchMetrics) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush publishes the buffered datums. Publishing errors are logged and the
// batch is dropped.
func (m *CloudWatchMetrics) Flush(ctx context.Context) error {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	if m.client == nil || len(batch) == 0 {
		return nil
	}

	var firstErr error
	for start := 0; start < len(batch); start += cloudWatchBatchSize {
		end := min(start+cloudWatchBatchSize, len(batch))
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: batch[start:end],
		})
		if err != nil {
			m.logger.Warn("Failed to publish metrics",
				zap.String("namespace", m.namespace),
				zap.Int("datums", end-start),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

var _ Recorder = (*CloudWatchMetrics)(nil)
