package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"gutenberg-analysis-api/internal/application/analysis"
	einoobs "gutenberg-analysis-api/internal/observability/eino"
)

// ChatGenerator 通过 OpenAI 兼容的 ChatModel 对单窗口生成
// 窗口 token 解码为用户消息，回复再编码为 token
type ChatGenerator struct {
	model     model.BaseChatModel
	tokenizer analysis.Tokenizer
	provider  string
}

var _ analysis.Generator = (*ChatGenerator)(nil)

// NewChatGenerator 创建生成器
func NewChatGenerator(m model.BaseChatModel, tokenizer analysis.Tokenizer, provider string) *ChatGenerator {
	return &ChatGenerator{model: m, tokenizer: tokenizer, provider: provider}
}

// Generate 实现 analysis.Generator
func (g *ChatGenerator) Generate(ctx context.Context, tokens []int, opts analysis.GenerateOptions) ([]int, error) {
	prompt, err := g.tokenizer.Decode(tokens)
	if err != nil {
		return nil, err
	}

	ctx = einoobs.WithProvider(ctx, g.provider)
	msg, err := g.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, modelOptions(opts)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", analysis.ErrModelUnavailable, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: %w", analysis.ErrModelUnavailable, errors.New("empty response"))
	}

	return g.tokenizer.Tokenize(msg.Content)
}

func modelOptions(opts analysis.GenerateOptions) []model.Option {
	out := make([]model.Option, 0, 3)
	if opts.MaxNewTokens > 0 {
		out = append(out, model.WithMaxTokens(opts.MaxNewTokens))
	}
	if opts.Temperature > 0 {
		out = append(out, model.WithTemperature(float32(opts.Temperature)))
	}
	if opts.TopP > 0 {
		out = append(out, model.WithTopP(float32(opts.TopP)))
	}
	return out
}
