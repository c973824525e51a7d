// Package books 从 Project Gutenberg 获取图书正文与元数据
package books

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gutenberg-analysis-api/internal/application/analysis"
	"gutenberg-analysis-api/internal/config"
	"gutenberg-analysis-api/pkg/logger"
)

var tracer = otel.Tracer("books")

const (
	defaultBaseURL  = "https://www.gutenberg.org"
	defaultMaxBytes = 8 << 20
	maxPageBytes    = 1 << 20
)

// GutenbergSource 按图书 ID 下载纯文本正文
type GutenbergSource struct {
	baseURL  string
	maxBytes int64
	client   *http.Client
}

var _ analysis.BookSource = (*GutenbergSource)(nil)

// NewGutenbergSource 创建内容源
func NewGutenbergSource(cfg config.BooksConfig) *GutenbergSource {
	return NewGutenbergSourceWithClient(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewGutenbergSourceWithClient 使用指定 HTTP 客户端创建内容源
func NewGutenbergSourceWithClient(cfg config.BooksConfig, client *http.Client) *GutenbergSource {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &GutenbergSource{baseURL: base, maxBytes: maxBytes, client: client}
}

// URL 返回图书纯文本地址
func (s *GutenbergSource) URL(bookID string) string {
	return fmt.Sprintf("%s/cache/epub/%s/pg%s.txt", s.baseURL, bookID, bookID)
}

// Content 实现 analysis.BookSource，正文超过上限时截断
func (s *GutenbergSource) Content(ctx context.Context, bookID string) (string, error) {
	if err := analysis.ValidateBookID(bookID); err != nil {
		return "", err
	}

	url := s.URL(bookID)
	ctx, span := tracer.Start(ctx, "books.Content",
		trace.WithAttributes(
			attribute.String("book.id", bookID),
			attribute.String("http.url", url),
		))
	defer span.End()

	start := time.Now()
	body, err := s.fetch(ctx, span, bookID, url, "text/plain", s.maxBytes)
	if err != nil {
		return "", err
	}

	content := strings.ToValidUTF8(strings.TrimPrefix(string(body), "\ufeff"), "")
	span.SetAttributes(attribute.Int("book.bytes", len(content)))
	logger.FromContext(ctx).Debug("book fetched",
		"bytes", len(content),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// fetch 读取至多 limit 字节，404 映射为 ErrBookNotFound，其余失败映射为 ErrBookSource
func (s *GutenbergSource) fetch(ctx context.Context, span trace.Span, bookID, url, accept string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", analysis.ErrBookSource, err)
	}
	req.Header.Set("Accept", accept)

	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", analysis.ErrBookSource, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", analysis.ErrBookNotFound, bookID)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		err := fmt.Errorf("%w: unexpected status %d", analysis.ErrBookSource, resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: read body: %w", analysis.ErrBookSource, err)
	}
	return body, nil
}
