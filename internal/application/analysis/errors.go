package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenization 输入无法编码或输出无法解码，重试无意义
	ErrTokenization = errors.New("tokenization failed")
	// ErrModelUnavailable 生成资源无法初始化或调用
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrPartialGeneration 某个窗口生成失败，整次分析作废
	ErrPartialGeneration = errors.New("chunk generation failed")
	// ErrCancelled 调用方取消或超时
	ErrCancelled = errors.New("analysis cancelled")
	// ErrInvalidWindow 窗口配置无法推进
	ErrInvalidWindow = errors.New("invalid window configuration")
	// ErrUnknownTask 未知分析任务
	ErrUnknownTask = errors.New("unknown analysis task")
	// ErrBookNotFound 图书内容源中不存在该图书
	ErrBookNotFound = errors.New("book not found")
	// ErrBookSource 图书内容源请求失败
	ErrBookSource = errors.New("book source unavailable")
	// ErrInvalidBookID 图书 ID 不是正整数
	ErrInvalidBookID = errors.New("invalid book id")
	// ErrJobNotFound 任务不存在或已过期
	ErrJobNotFound = errors.New("job not found")
)

// ChunkError 记录失败窗口的位置与尝试次数
type ChunkError struct {
	StartOffset int
	Attempts    int
	Err         error
}

// Error 实现 error 接口
func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk at offset %d failed after %d attempt(s): %v", e.StartOffset, e.Attempts, e.Err)
}

// Unwrap 返回底层错误，保留 ErrModelUnavailable 等分类
func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrPartialGeneration) 成立
func (e *ChunkError) Is(target error) bool {
	return target == ErrPartialGeneration
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
