// Package llm 提供分块推理所需的分词器与生成器
package llm

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"gutenberg-analysis-api/internal/application/analysis"
)

// DefaultEncoding GPT-2 词表
const DefaultEncoding = "r50k_base"

// Tokenizer 基于 tiktoken 的 BPE 分词器
type Tokenizer struct {
	encoding string
	enc      *tiktoken.Tiktoken
}

var _ analysis.Tokenizer = (*Tokenizer)(nil)

// 词表随二进制内嵌，启动不依赖网络
var setLoaderOnce sync.Once

// NewTokenizer 加载指定编码，为空时使用 DefaultEncoding
func NewTokenizer(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	setLoaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", encoding, err)
	}
	return &Tokenizer{encoding: encoding, enc: enc}, nil
}

// Encoding 返回编码名
func (t *Tokenizer) Encoding() string {
	return t.encoding
}

// Tokenize 编码整段文本，特殊 token 按普通文本处理
func (t *Tokenizer) Tokenize(text string) ([]int, error) {
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: input is not valid utf-8", analysis.ErrTokenization)
	}
	return t.enc.Encode(text, nil, nil), nil
}

// Decode 解码 token 序列，窗口边界截断的多字节字符替换为 U+FFFD
func (t *Tokenizer) Decode(tokens []int) (string, error) {
	for _, tok := range tokens {
		if tok < 0 {
			return "", fmt.Errorf("%w: negative token id %d", analysis.ErrTokenization, tok)
		}
		// tiktoken 对词表外的 id 静默跳过，每个有效 id 至少解码出一个字节
		if t.enc.Decode([]int{tok}) == "" {
			return "", fmt.Errorf("%w: token id %d not in %s vocabulary", analysis.ErrTokenization, tok, t.encoding)
		}
	}
	return strings.ToValidUTF8(t.enc.Decode(tokens), "\uFFFD"), nil
}
