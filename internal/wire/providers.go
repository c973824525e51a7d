// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"os"

	"gutenberg-analysis-api/internal/application/analysis"
	"gutenberg-analysis-api/internal/config"
	"gutenberg-analysis-api/internal/infrastructure/books"
	"gutenberg-analysis-api/internal/infrastructure/llm"
	"gutenberg-analysis-api/internal/infrastructure/messaging"
	"gutenberg-analysis-api/internal/infrastructure/persistence/redis"
	"gutenberg-analysis-api/internal/interfaces/http/router"
	"gutenberg-analysis-api/pkg/logger"
)

// Worker 异步分析任务执行器
type Worker struct {
	Consumer *messaging.Consumer
	Jobs     *analysis.JobService
}

func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

func ProvideJobStore(client *redis.Client, cfg *config.Config) *redis.JobStore {
	return redis.NewJobStore(client, cfg.Analysis.JobTTL)
}

func ProvideMessagingProducer(client *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return messaging.NewProducer(client.Redis(), int64(maxLen))
}

// ProvideLLMResource 加载分词器并连接默认模型，进程内只创建一次
func ProvideLLMResource(ctx context.Context, cfg *config.Config) (*llm.Resource, func(), error) {
	res, err := llm.NewResource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(ctx, "inference resource ready",
		"provider", cfg.LLM.DefaultProvider,
		"encoding", res.Tokenizer.Encoding(),
	)
	cleanup := func() {
		_ = res.Close()
	}
	return res, cleanup, nil
}

func ProvideOrchestrator(res *llm.Resource, cfg *config.Config) (*analysis.Orchestrator, error) {
	return res.Orchestrator(cfg.Inference)
}

// ProvideBookSource Gutenberg 正文源，经 Redis 读穿缓存
func ProvideBookSource(cfg *config.Config, cache *redis.Cache) *books.CachedSource {
	return books.NewCachedSource(books.NewGutenbergSource(cfg.Books), cache, cfg.Books.CacheTTL)
}

func ProvideAnalysisService(o *analysis.Orchestrator, source *books.CachedSource, cache *redis.Cache, cfg *config.Config) *analysis.Service {
	return analysis.NewService(o, source, cache, cfg.Analysis.ResultTTL)
}

func ProvideJobService(store *redis.JobStore, producer *messaging.Producer, svc *analysis.Service) *analysis.JobService {
	return analysis.NewJobService(store, producer, svc)
}

func ProvideRouter(cfg *config.Config, svc *analysis.Service, source *books.CachedSource, jobs *analysis.JobService, client *redis.Client, limiter *redis.RateLimiter) *router.Router {
	return router.New(cfg, router.Dependencies{
		Analyzer:    svc,
		Books:       source,
		Jobs:        jobs,
		Health:      client,
		RateLimiter: limiter,
	})
}

// ProvideConsumer 订阅分析任务流并交给 JobService 执行
func ProvideConsumer(client *redis.Client, cfg *config.Config, jobs *analysis.JobService) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(client.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamAnalysisJobs,
		Group:         messaging.ConsumerGroupAnalysisWorker,
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    rs.RetryBackoff.Initial,
			Max:        rs.RetryBackoff.Max,
			Multiplier: rs.RetryBackoff.Multiplier,
		},
	})
	consumer.RegisterHandler(messaging.TypeAnalysisJob, messaging.AnalysisJobHandler(jobs, cfg.Analysis.TaskTimeout))
	return consumer
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
