package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gutenberg-analysis-api/internal/application/analysis"
)

// JobStore 以 JSON 保存异步任务状态，每次写入刷新过期时间
type JobStore struct {
	client *Client
	ttl    time.Duration
}

var _ analysis.JobStore = (*JobStore)(nil)

// NewJobStore 创建任务状态存储
func NewJobStore(client *Client, ttl time.Duration) *JobStore {
	return &JobStore{client: client, ttl: ttl}
}

// JobKey 构建任务键
func JobKey(id string) string {
	return "job:" + id
}

// Save 写入任务
func (s *JobStore) Save(ctx context.Context, job *analysis.Job) error {
	ctx, span := tracer.Start(ctx, "jobstore.Save",
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.status", string(job.Status)),
		))
	defer span.End()

	data, err := json.Marshal(job)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.client.rdb.Set(ctx, JobKey(job.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Get 读取任务，不存在或已过期返回 analysis.ErrJobNotFound
func (s *JobStore) Get(ctx context.Context, id string) (*analysis.Job, error) {
	ctx, span := tracer.Start(ctx, "jobstore.Get",
		trace.WithAttributes(attribute.String("job.id", id)))
	defer span.End()

	data, err := s.client.rdb.Get(ctx, JobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", analysis.ErrJobNotFound, id)
		}
		span.RecordError(err)
		return nil, err
	}

	var job analysis.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
