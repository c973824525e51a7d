package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gutenberg-analysis-api/pkg/logger"
)

// JobStatus 异步分析任务状态
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job 异步分析任务
type Job struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Task      Task      `json:"task"`
	Status    JobStatus `json:"status"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobStore 任务状态存储
type JobStore interface {
	Save(ctx context.Context, job *Job) error
	// Get 不存在时返回 ErrJobNotFound
	Get(ctx context.Context, id string) (*Job, error)
}

// JobQueue 任务投递
type JobQueue interface {
	Enqueue(ctx context.Context, job *Job) error
}

// JobService 提交与执行异步分析任务
type JobService struct {
	store   JobStore
	queue   JobQueue
	service *Service
	newID   func() string
	now     func() time.Time
}

// NewJobService 创建任务服务，仅执行任务的 worker 可传入 nil queue
func NewJobService(store JobStore, queue JobQueue, service *Service) *JobService {
	return &JobService{
		store:   store,
		queue:   queue,
		service: service,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Submit 校验参数、落库并投递任务
func (s *JobService) Submit(ctx context.Context, task Task, bookID string) (*Job, error) {
	if !task.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	if err := ValidateBookID(bookID); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, fmt.Errorf("job queue not configured")
	}

	now := s.now().UTC()
	job := &Job{
		ID:        s.newID(),
		BookID:    bookID,
		Task:      task,
		Status:    JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		job.Status = JobFailed
		job.Error = "enqueue failed"
		job.UpdatedAt = s.now().UTC()
		if saveErr := s.store.Save(ctx, job); saveErr != nil {
			logger.Warn(ctx, "failed to mark unqueued job as failed",
				"job_id", job.ID,
				"error", saveErr.Error(),
			)
		}
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	logger.FromContext(ctx).Info("analysis job submitted",
		"job_id", job.ID,
		"task", job.Task,
		"book_id", job.BookID,
	)
	return job, nil
}

// Get 查询任务
func (s *JobService) Get(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// Process 执行任务；分析失败记为终态，仅存储故障返回错误以触发重投
func (s *JobService) Process(ctx context.Context, id string) error {
	ctx = logger.WithContext(ctx, logger.JobIDKey, id)
	log := logger.FromContext(ctx)

	job, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.Status == JobSucceeded || job.Status == JobFailed {
		log.Info("job already finished, skipping", "status", job.Status)
		return nil
	}

	job.Status = JobRunning
	job.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, job); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	res, runErr := s.service.AnalyzeBook(ctx, job.Task, job.BookID)
	job.UpdatedAt = s.now().UTC()
	if runErr != nil {
		logger.Error(ctx, "analysis job failed", runErr)
		job.Status = JobFailed
		job.Error = runErr.Error()
	} else {
		job.Status = JobSucceeded
		job.Result = res
		job.Error = ""
	}

	if err := s.store.Save(ctx, job); err != nil {
		return fmt.Errorf("save job result: %w", err)
	}
	return nil
}
