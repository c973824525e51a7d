package llm

import (
	"context"
	"fmt"

	"gutenberg-analysis-api/internal/application/analysis"
	"gutenberg-analysis-api/internal/config"
)

// Resource 进程级推理资源，创建一次后只读共享
type Resource struct {
	Tokenizer *Tokenizer
	Generator *ChatGenerator
	factory   *EinoFactory
}

// NewResource 加载分词器并连接默认提供商，失败时返回 ErrModelUnavailable
func NewResource(ctx context.Context, cfg *config.Config) (*Resource, error) {
	return NewResourceWithFactory(ctx, cfg, NewEinoFactory(&cfg.LLM))
}

// NewResourceWithFactory 使用给定工厂创建资源
func NewResourceWithFactory(ctx context.Context, cfg *config.Config, factory *EinoFactory) (*Resource, error) {
	tok, err := NewTokenizer(cfg.Inference.TokenizerEncoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", analysis.ErrModelUnavailable, err)
	}

	chatModel, err := factory.Default(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", analysis.ErrModelUnavailable, err)
	}

	return &Resource{
		Tokenizer: tok,
		Generator: NewChatGenerator(chatModel, tok, cfg.LLM.DefaultProvider),
		factory:   factory,
	}, nil
}

// Orchestrator 按推理配置创建编排器
func (r *Resource) Orchestrator(cfg config.InferenceConfig) (*analysis.Orchestrator, error) {
	return analysis.NewOrchestrator(r.Tokenizer, r.Generator, OrchestratorOptions(cfg))
}

// Close 释放模型客户端
func (r *Resource) Close() error {
	if r.factory != nil {
		r.factory.Reset()
	}
	return nil
}

// OrchestratorOptions 将推理配置映射为编排器参数
func OrchestratorOptions(cfg config.InferenceConfig) analysis.Options {
	return analysis.Options{
		Window: analysis.WindowConfig{
			MaxWindow: cfg.MaxWindow,
			Overlap:   cfg.Overlap,
		},
		Generate: analysis.GenerateOptions{
			MaxNewTokens: cfg.MaxNewTokens,
			Temperature:  cfg.Temperature,
			TopP:         cfg.TopP,
		},
		Concurrency:  cfg.Concurrency,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}
}
