//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"gutenberg-analysis-api/internal/config"
	"gutenberg-analysis-api/internal/infrastructure/persistence/redis"
	"gutenberg-analysis-api/internal/interfaces/http/router"
)

var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	ProvideJobStore,
)

var AnalysisSet = wire.NewSet(
	ProvideLLMResource,
	ProvideOrchestrator,
	ProvideBookSource,
	ProvideAnalysisService,
	ProvideMessagingProducer,
	ProvideJobService,
)

// InitializeApp 构建 HTTP 服务所需的完整依赖图
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		RedisSet,
		AnalysisSet,
		redis.NewRateLimiter,
		ProvideRouter,
	)
	return nil, nil, nil
}

// InitializeWorker 构建任务执行器
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		RedisSet,
		AnalysisSet,
		ProvideConsumer,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}
