package analysis

import "context"

// Tokenizer 文本与 token 序列互转，由推理资源提供
type Tokenizer interface {
	// Tokenize 不截断地编码整段文本
	Tokenize(text string) ([]int, error)
	Decode(tokens []int) (string, error)
}

// GenerateOptions 固定解码参数
type GenerateOptions struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
}

// DefaultGenerateOptions 返回默认解码参数
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		MaxNewTokens: 150,
		Temperature:  0.7,
		TopP:         0.9,
	}
}

// Generator 对单个窗口执行生成，返回输出 token 序列
type Generator interface {
	Generate(ctx context.Context, tokens []int, opts GenerateOptions) ([]int, error)
}

// Releaser 可选接口：每个窗口生成结束后释放加速器资源
type Releaser interface {
	Release()
}
