package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gutenberg-analysis-api/internal/application/analysis"
	"gutenberg-analysis-api/pkg/logger"
	"gutenberg-analysis-api/pkg/tracer"
)

var otelTracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

var _ analysis.JobQueue = (*Producer)(nil)

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := otelTracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishAnalysisJob 发布分析任务，携带请求与追踪 ID 便于跨进程关联日志
func (p *Producer) PublishAnalysisJob(ctx context.Context, job *AnalysisJobMessage) (string, error) {
	msg, err := NewMessage(job.JobID, TypeAnalysisJob, job)
	if err != nil {
		return "", err
	}

	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		msg.SetMetadata("request_id", reqID)
	}
	msg.SetMetadata("trace_id", tracer.TraceID(ctx))

	return p.Publish(ctx, StreamAnalysisJobs, msg)
}

// Enqueue 实现 analysis.JobQueue
func (p *Producer) Enqueue(ctx context.Context, job *analysis.Job) error {
	_, err := p.PublishAnalysisJob(ctx, &AnalysisJobMessage{
		JobID:  job.ID,
		BookID: job.BookID,
		Task:   string(job.Task),
	})
	return err
}
