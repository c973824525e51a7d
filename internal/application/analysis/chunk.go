// Package analysis 提供长文本分块推理与按序重组
package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// 默认窗口参数
const (
	DefaultMaxWindow = 512
	DefaultOverlap   = 50
)

// WindowConfig 滑动窗口配置
type WindowConfig struct {
	MaxWindow int
	Overlap   int
}

// DefaultWindowConfig 返回默认窗口配置
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{MaxWindow: DefaultMaxWindow, Overlap: DefaultOverlap}
}

// Validate 校验窗口步长为正
func (w WindowConfig) Validate() error {
	if w.MaxWindow <= 0 {
		return fmt.Errorf("%w: max window %d must be > 0", ErrInvalidWindow, w.MaxWindow)
	}
	if w.Overlap < 0 {
		return fmt.Errorf("%w: overlap %d must be >= 0", ErrInvalidWindow, w.Overlap)
	}
	if w.Overlap >= w.MaxWindow {
		return fmt.Errorf("%w: overlap %d must be smaller than max window %d", ErrInvalidWindow, w.Overlap, w.MaxWindow)
	}
	return nil
}

// Chunk 原始 token 序列中的一个连续窗口
type Chunk struct {
	Tokens []int
	// StartOffset 窗口首 token 在原序列中的下标，是重组排序键
	StartOffset int
	// Text 窗口解码文本，仅用于诊断
	Text string
}

// End 返回窗口末尾（不含）
func (c Chunk) End() int {
	return c.StartOffset + len(c.Tokens)
}

// ChunkResult 单个窗口的生成结果
type ChunkResult struct {
	StartOffset int
	Text        string
}

// Partition 将 [0, len(tokens)) 切分为重叠窗口
// 下一个窗口从上一个窗口末尾回退 Overlap 开始，直到覆盖序列末尾
func Partition(tokens []int, w WindowConfig) ([]Chunk, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	n := len(tokens)
	if n == 0 {
		return nil, nil
	}

	step := w.MaxWindow - w.Overlap
	chunks := make([]Chunk, 0, (n+step-1)/step)
	for pos := 0; ; {
		end := pos + w.MaxWindow
		if end > n {
			end = n
		}
		chunks = append(chunks, Chunk{
			Tokens:      tokens[pos:end:end],
			StartOffset: pos,
		})
		if end == n {
			break
		}
		pos = end - w.Overlap
	}
	return chunks, nil
}

// ChunkCount 返回长度为 n 的序列将产生的窗口数
func ChunkCount(n int, w WindowConfig) int {
	if n <= 0 {
		return 0
	}
	if n <= w.MaxWindow {
		return 1
	}
	step := w.MaxWindow - w.Overlap
	return (n - w.Overlap + step - 1) / step
}

// Combine 按 StartOffset 升序拼接结果，与到达顺序无关
func Combine(results []ChunkResult) string {
	ordered := make([]ChunkResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartOffset < ordered[j].StartOffset
	})

	texts := make([]string, len(ordered))
	for i, r := range ordered {
		texts[i] = r.Text
	}
	return strings.Join(texts, " ")
}
