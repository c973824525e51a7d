package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"gutenberg-analysis-api/pkg/logger"
	"gutenberg-analysis-api/pkg/metrics"
	"gutenberg-analysis-api/pkg/tracer"
)

// Analyzer 分块推理能力，由 Orchestrator 实现
type Analyzer interface {
	Run(ctx context.Context, content, prompt string) (*Analysis, error)
}

// BookSource 按图书 ID 提供正文
type BookSource interface {
	Content(ctx context.Context, bookID string) (string, error)
}

// ResultStore 分析结果缓存
type ResultStore interface {
	// Load 命中时解码到 v 并返回 true
	Load(ctx context.Context, key string, v any) (bool, error)
	Save(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Result 一次图书分析的结果
type Result struct {
	BookID     string    `json:"book_id,omitempty"`
	Task       Task      `json:"task"`
	Analysis   string    `json:"analysis"`
	TokenCount int       `json:"token_count"`
	ChunkCount int       `json:"chunk_count"`
	WordCount  int       `json:"word_count"`
	Cached     bool      `json:"cached"`
	CreatedAt  time.Time `json:"created_at"`
}

// Service 将任务映射为指令并驱动分块推理
type Service struct {
	analyzer  Analyzer
	books     BookSource
	results   ResultStore
	resultTTL time.Duration
	now       func() time.Time
}

// NewService 创建分析服务，results 为空时不缓存
func NewService(analyzer Analyzer, books BookSource, results ResultStore, resultTTL time.Duration) *Service {
	return &Service{
		analyzer:  analyzer,
		books:     books,
		results:   results,
		resultTTL: resultTTL,
		now:       time.Now,
	}
}

// ResultKey 构建结果缓存键
func ResultKey(task Task, bookID string) string {
	return fmt.Sprintf("analysis:%s:%s", task, bookID)
}

// AnalyzeBook 对图书执行分析任务，优先读取缓存结果
func (s *Service) AnalyzeBook(ctx context.Context, task Task, bookID string) (*Result, error) {
	if !task.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	ctx = logger.WithContext(ctx, logger.TaskKey, string(task))
	ctx = logger.WithContext(ctx, logger.BookIDKey, bookID)
	ctx, span := tracer.Start(ctx, "analysis.AnalyzeBook")
	defer span.End()
	span.SetAttributes(
		attribute.String("analysis.task", string(task)),
		attribute.String("book.id", bookID),
	)

	log := logger.FromContext(ctx)
	key := ResultKey(task, bookID)

	if s.results != nil {
		var cached Result
		found, err := s.results.Load(ctx, key, &cached)
		if err != nil {
			// 缓存故障不影响分析
			log.Warn("result cache read failed", "error", err)
		} else if found {
			cached.Cached = true
			span.SetAttributes(attribute.Bool("analysis.cached", true))
			metrics.TaskTotal.WithLabelValues(string(task), "cached").Inc()
			return &cached, nil
		}
	}

	if s.books == nil {
		return nil, fmt.Errorf("book source not configured")
	}
	content, err := s.books.Content(ctx, bookID)
	if err != nil {
		metrics.TaskTotal.WithLabelValues(string(task), "error").Inc()
		return nil, err
	}

	res, err := s.analyze(ctx, task, content)
	if err != nil {
		return nil, err
	}
	res.BookID = bookID

	if s.results != nil {
		if err := s.results.Save(ctx, key, res, s.resultTTL); err != nil {
			log.Warn("result cache write failed", "error", err)
		}
	}
	return res, nil
}

// AnalyzeText 对调用方提供的正文执行分析，不读写缓存
func (s *Service) AnalyzeText(ctx context.Context, task Task, content string) (*Result, error) {
	if !task.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	ctx = logger.WithContext(ctx, logger.TaskKey, string(task))
	return s.analyze(ctx, task, content)
}

func (s *Service) analyze(ctx context.Context, task Task, content string) (*Result, error) {
	a, err := s.analyzer.Run(ctx, content, task.Prompt())
	if err != nil {
		metrics.TaskTotal.WithLabelValues(string(task), "error").Inc()
		return nil, err
	}
	metrics.TaskTotal.WithLabelValues(string(task), "success").Inc()

	return &Result{
		Task:       task,
		Analysis:   a.Text,
		TokenCount: a.TokenCount,
		ChunkCount: a.ChunkCount,
		WordCount:  len(strings.Fields(a.Text)),
		CreatedAt:  s.now().UTC(),
	}, nil
}
