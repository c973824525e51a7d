package books

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gutenberg-analysis-api/internal/application/analysis"
	"gutenberg-analysis-api/pkg/logger"
)

// Loader 带 singleflight 的读穿缓存，由 redis.Cache 实现
type Loader interface {
	GetOrLoadSafe(ctx context.Context, key string, ttl time.Duration, loader func() (any, error)) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

// Source 同时提供正文与元数据的图书源
type Source interface {
	analysis.BookSource
	Metadata(ctx context.Context, bookID string) (*analysis.BookMetadata, error)
}

// CachedSource 为任意图书源加一层缓存，并发请求同一本书只下载一次
type CachedSource struct {
	source Source
	cache  Loader
	ttl    time.Duration
}

var _ Source = (*CachedSource)(nil)

// NewCachedSource 创建带缓存的图书源
func NewCachedSource(source Source, cache Loader, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, cache: cache, ttl: ttl}
}

// ContentKey 构建正文缓存键
func ContentKey(bookID string) string {
	return "book:content:" + bookID
}

// MetadataKey 构建元数据缓存键
func MetadataKey(bookID string) string {
	return "book:meta:" + bookID
}

// Content 实现 analysis.BookSource
func (s *CachedSource) Content(ctx context.Context, bookID string) (string, error) {
	if err := analysis.ValidateBookID(bookID); err != nil {
		return "", err
	}
	return readThrough(ctx, s, ContentKey(bookID), func() (string, error) {
		return s.source.Content(ctx, bookID)
	})
}

// Metadata 返回缓存的图书元数据
func (s *CachedSource) Metadata(ctx context.Context, bookID string) (*analysis.BookMetadata, error) {
	if err := analysis.ValidateBookID(bookID); err != nil {
		return nil, err
	}
	return readThrough(ctx, s, MetadataKey(bookID), func() (*analysis.BookMetadata, error) {
		return s.source.Metadata(ctx, bookID)
	})
}

// readThrough 缓存不可用时直接回源，条目损坏时删除后回源
func readThrough[T any](ctx context.Context, s *CachedSource, key string, load func() (T, error)) (T, error) {
	var zero T
	raw, err := s.cache.GetOrLoadSafe(ctx, key, s.ttl, func() (any, error) {
		return load()
	})
	if err != nil {
		if isSourceError(ctx, err) {
			return zero, err
		}
		logger.FromContext(ctx).Warn("book cache unavailable, fetching directly", "key", key, "error", err)
		return load()
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		logger.FromContext(ctx).Warn("corrupt cached book entry, refetching", "key", key, "error", err)
		if delErr := s.cache.Delete(ctx, key); delErr != nil {
			return zero, fmt.Errorf("evict cached entry %s: %w", key, delErr)
		}
		return load()
	}
	return v, nil
}

func isSourceError(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, analysis.ErrBookNotFound) ||
		errors.Is(err, analysis.ErrBookSource) ||
		errors.Is(err, analysis.ErrInvalidBookID)
}
