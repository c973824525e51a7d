package eino

import (
	"context"
	"strings"
)

type providerKey struct{}

// WithProvider 在 context 中标注本次调用的 LLM 提供商，用于指标标签
func WithProvider(ctx context.Context, provider string) context.Context {
	p := strings.TrimSpace(provider)
	if p == "" {
		return ctx
	}
	return context.WithValue(ctx, providerKey{}, p)
}

// ProviderFromContext 读取提供商，未标注时返回 unknown
func ProviderFromContext(ctx context.Context) string {
	s, ok := ctx.Value(providerKey{}).(string)
	if !ok || s == "" {
		return "unknown"
	}
	return s
}
