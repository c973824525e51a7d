// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"gutenberg-analysis-api/internal/application/analysis"
	"gutenberg-analysis-api/internal/interfaces/http/dto"
	"gutenberg-analysis-api/pkg/errors"
	"gutenberg-analysis-api/pkg/logger"
)

// toAppError 将分析错误映射为带错误码的应用错误
// 每次返回新实例
func toAppError(err error) *errors.AppError {
	if errors.IsAppError(err) {
		return errors.AsAppError(err)
	}

	switch {
	case stderrors.Is(err, analysis.ErrCancelled),
		stderrors.Is(err, context.Canceled),
		stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(err, errors.CodeRequestCancelled, "analysis cancelled")
	case stderrors.Is(err, analysis.ErrUnknownTask):
		return errors.Wrap(err, errors.CodeUnknownTask, "unknown analysis task").
			WithDetail(fmt.Sprintf("supported tasks: %v", analysis.Tasks()))
	case stderrors.Is(err, analysis.ErrInvalidBookID):
		return errors.Wrap(err, errors.CodeInvalidParam, "invalid book id").
			WithDetail("book_id must be a positive integer")
	case stderrors.Is(err, analysis.ErrBookNotFound):
		return errors.Wrap(err, errors.CodeBookNotFound, "book not found")
	case stderrors.Is(err, analysis.ErrJobNotFound):
		return errors.Wrap(err, errors.CodeJobNotFound, "job not found")
	case stderrors.Is(err, analysis.ErrTokenization):
		return errors.Wrap(err, errors.CodeTokenizationFailed, "text could not be tokenized")
	case stderrors.Is(err, analysis.ErrModelUnavailable):
		return errors.Wrap(err, errors.CodeLLMProviderError, "model unavailable")
	case stderrors.Is(err, analysis.ErrPartialGeneration):
		appErr := errors.Wrap(err, errors.CodeGenerationFailed, "chunk generation failed")
		var ce *analysis.ChunkError
		if stderrors.As(err, &ce) {
			appErr.WithDetail(fmt.Sprintf("window at token offset %d failed after %d attempts", ce.StartOffset, ce.Attempts))
		}
		return appErr
	case stderrors.Is(err, analysis.ErrBookSource):
		return errors.Wrap(err, errors.CodeBookSourceError, "book source unavailable")
	default:
		return errors.Wrap(err, errors.CodeInternalError, "internal server error")
	}
}

// respondError 渲染错误响应，服务端错误记录日志
func respondError(c *gin.Context, op string, err error) {
	appErr := toAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), op+" failed", err, "code", string(appErr.Code))
	} else {
		logger.Debug(c.Request.Context(), op+" rejected", "code", string(appErr.Code), "error", err.Error())
	}
	dto.AppError(c, appErr)
}
