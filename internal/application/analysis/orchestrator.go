package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"gutenberg-analysis-api/pkg/logger"
	"gutenberg-analysis-api/pkg/metrics"
	"gutenberg-analysis-api/pkg/tracer"
)

// Options 编排器配置
type Options struct {
	Window   WindowConfig
	Generate GenerateOptions
	// Concurrency 同时进行的窗口生成数，<=1 为顺序执行
	Concurrency int
	// MaxRetries 单窗口失败后的额外尝试次数
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultOptions 返回顺序执行、不重试的默认配置
func DefaultOptions() Options {
	return Options{
		Window:      DefaultWindowConfig(),
		Generate:    DefaultGenerateOptions(),
		Concurrency: 1,
	}
}

// Analysis 一次分块推理的结果
type Analysis struct {
	Text       string
	TokenCount int
	ChunkCount int
}

// Orchestrator 将超出上下文的文本切窗、逐窗生成并按序重组
type Orchestrator struct {
	tokenizer Tokenizer
	generator Generator
	opts      Options
}

// NewOrchestrator 创建编排器，窗口无法推进时返回 ErrInvalidWindow
func NewOrchestrator(tokenizer Tokenizer, generator Generator, opts Options) (*Orchestrator, error) {
	if tokenizer == nil || generator == nil {
		return nil, fmt.Errorf("%w: tokenizer and generator are required", ErrModelUnavailable)
	}
	if err := opts.Window.Validate(); err != nil {
		return nil, err
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Orchestrator{
		tokenizer: tokenizer,
		generator: generator,
		opts:      opts,
	}, nil
}

// Analyze 返回所有窗口生成文本按输入顺序拼接的结果
func (o *Orchestrator) Analyze(ctx context.Context, content, prompt string) (string, error) {
	a, err := o.Run(ctx, content, prompt)
	if err != nil {
		return "", err
	}
	return a.Text, nil
}

// Plan 对 prompt 与 content 编码并切窗，不调用模型
func (o *Orchestrator) Plan(content, prompt string) ([]Chunk, int, error) {
	tokens, err := o.tokenizer.Tokenize(prompt + "\n" + content)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrTokenization, err)
	}

	chunks, err := Partition(tokens, o.opts.Window)
	if err != nil {
		return nil, 0, err
	}
	for i := range chunks {
		text, err := o.tokenizer.Decode(chunks[i].Tokens)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: decode chunk at %d: %w", ErrTokenization, chunks[i].StartOffset, err)
		}
		chunks[i].Text = text
	}
	return chunks, len(tokens), nil
}

// Run 执行完整流水线并返回结果与统计
func (o *Orchestrator) Run(ctx context.Context, content, prompt string) (*Analysis, error) {
	ctx, span := tracer.Start(ctx, "analysis.Run")
	defer span.End()

	start := time.Now()
	a, err := o.run(ctx, span, content, prompt)
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.AnalysisTotal.WithLabelValues(statusOf(err)).Inc()
		return nil, err
	}
	metrics.AnalysisTotal.WithLabelValues("success").Inc()
	return a, nil
}

func (o *Orchestrator) run(ctx context.Context, span trace.Span, content, prompt string) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	chunks, tokenCount, err := o.Plan(content, prompt)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("analysis.tokens", tokenCount),
		attribute.Int("analysis.chunks", len(chunks)),
		attribute.Int("analysis.concurrency", o.opts.Concurrency),
	)
	metrics.AnalysisInputTokens.Observe(float64(tokenCount))
	metrics.AnalysisChunks.Observe(float64(len(chunks)))

	logger.FromContext(ctx).Info("chunked analysis started",
		"tokens", tokenCount,
		"chunks", len(chunks),
		"max_window", o.opts.Window.MaxWindow,
		"overlap", o.opts.Window.Overlap,
	)

	results := make([]ChunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for i := range chunks {
		g.Go(func() error {
			r, err := o.generateChunk(gctx, chunks[i])
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// 调用方取消优先于兄弟窗口触发的取消
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, cancelled(ctxErr)
		}
		return nil, err
	}

	return &Analysis{
		Text:       Combine(results),
		TokenCount: tokenCount,
		ChunkCount: len(chunks),
	}, nil
}

// generateChunk 对单窗口生成，失败时按配置有限重试
func (o *Orchestrator) generateChunk(ctx context.Context, c Chunk) (ChunkResult, error) {
	ctx, span := tracer.Start(ctx, "analysis.generateChunk",
		trace.WithAttributes(
			attribute.Int("chunk.start_offset", c.StartOffset),
			attribute.Int("chunk.tokens", len(c.Tokens)),
		))
	defer span.End()

	log := logger.FromContext(ctx)
	var lastErr error
	attempts := 0
	for attempts <= o.opts.MaxRetries {
		if attempts > 0 {
			if err := sleepCtx(ctx, o.opts.RetryBackoff*time.Duration(attempts)); err != nil {
				return ChunkResult{}, cancelled(err)
			}
		}
		if err := ctx.Err(); err != nil {
			return ChunkResult{}, cancelled(err)
		}
		attempts++

		out, err := o.generator.Generate(ctx, c.Tokens, o.opts.Generate)
		o.release()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ChunkResult{}, cancelled(ctxErr)
			}
			metrics.ChunkGenerationTotal.WithLabelValues("error").Inc()
			log.Warn("chunk generation failed",
				"start_offset", c.StartOffset,
				"attempt", attempts,
				"error", err,
			)
			lastErr = err
			continue
		}

		text, err := o.tokenizer.Decode(out)
		if err != nil {
			metrics.ChunkGenerationTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
			return ChunkResult{}, fmt.Errorf("%w: decode output at %d: %w", ErrTokenization, c.StartOffset, err)
		}

		metrics.ChunkGenerationTotal.WithLabelValues("success").Inc()
		log.Debug("chunk generated",
			"start_offset", c.StartOffset,
			"input_tokens", len(c.Tokens),
			"output_tokens", len(out),
			"attempt", attempts,
		)
		return ChunkResult{StartOffset: c.StartOffset, Text: text}, nil
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return ChunkResult{}, &ChunkError{StartOffset: c.StartOffset, Attempts: attempts, Err: lastErr}
}

func (o *Orchestrator) release() {
	if r, ok := o.generator.(Releaser); ok {
		r.Release()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrTokenization):
		return "tokenization_error"
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, ErrPartialGeneration):
		return "generation_error"
	default:
		return "error"
	}
}
