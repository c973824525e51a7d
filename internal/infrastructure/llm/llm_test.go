package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gutenberg-analysis-api/internal/application/analysis"
	"gutenberg-analysis-api/internal/config"
)

// fakeChatModel 记录消息与解码参数
type fakeChatModel struct {
	mu       sync.Mutex
	messages [][]*schema.Message
	options  []*model.Options
	reply    func(prompt string) (*schema.Message, error)
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.messages = append(m.messages, input)
	m.options = append(m.options, model.GetCommonOptions(&model.Options{}, opts...))
	m.mu.Unlock()
	if m.reply != nil {
		return m.reply(input[0].Content)
	}
	return schema.AssistantMessage(strings.ToUpper(input[0].Content), nil), nil
}

func (m *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

// byteTokenizer 每个字节一个 token
type byteTokenizer struct{}

func (byteTokenizer) Tokenize(text string) ([]int, error) {
	out := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int(text[i])
	}
	return out, nil
}

func (byteTokenizer) Decode(tokens []int) (string, error) {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		if t < 0 || t > 255 {
			return "", analysis.ErrTokenization
		}
		b[i] = byte(t)
	}
	return string(b), nil
}

func TestChatGeneratorRoundTrip(t *testing.T) {
	cm := &fakeChatModel{}
	g := NewChatGenerator(cm, byteTokenizer{}, "local")

	in, _ := byteTokenizer{}.Tokenize("call me ishmael")
	out, err := g.Generate(context.Background(), in, analysis.DefaultGenerateOptions())
	require.NoError(t, err)

	text, err := byteTokenizer{}.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, "CALL ME ISHMAEL", text)

	require.Len(t, cm.messages, 1)
	assert.Equal(t, schema.User, cm.messages[0][0].Role)
	assert.Equal(t, "call me ishmael", cm.messages[0][0].Content)

	opts := cm.options[0]
	require.NotNil(t, opts.MaxTokens)
	require.NotNil(t, opts.Temperature)
	require.NotNil(t, opts.TopP)
	assert.Equal(t, 150, *opts.MaxTokens)
	assert.InDelta(t, 0.7, *opts.Temperature, 1e-6)
	assert.InDelta(t, 0.9, *opts.TopP, 1e-6)
}

func TestChatGeneratorOmitsZeroOptions(t *testing.T) {
	cm := &fakeChatModel{}
	g := NewChatGenerator(cm, byteTokenizer{}, "local")

	_, err := g.Generate(context.Background(), []int{'h', 'i'}, analysis.GenerateOptions{})
	require.NoError(t, err)
	assert.Nil(t, cm.options[0].MaxTokens)
	assert.Nil(t, cm.options[0].Temperature)
	assert.Nil(t, cm.options[0].TopP)
}

func TestChatGeneratorErrors(t *testing.T) {
	t.Run("call failure", func(t *testing.T) {
		cm := &fakeChatModel{reply: func(string) (*schema.Message, error) {
			return nil, errors.New("connection refused")
		}}
		_, err := NewChatGenerator(cm, byteTokenizer{}, "local").Generate(context.Background(), []int{'a'}, analysis.GenerateOptions{})
		assert.ErrorIs(t, err, analysis.ErrModelUnavailable)
	})

	t.Run("empty response", func(t *testing.T) {
		cm := &fakeChatModel{reply: func(string) (*schema.Message, error) { return nil, nil }}
		_, err := NewChatGenerator(cm, byteTokenizer{}, "local").Generate(context.Background(), []int{'a'}, analysis.GenerateOptions{})
		assert.ErrorIs(t, err, analysis.ErrModelUnavailable)
	})

	t.Run("undecodable input", func(t *testing.T) {
		cm := &fakeChatModel{}
		_, err := NewChatGenerator(cm, byteTokenizer{}, "local").Generate(context.Background(), []int{999}, analysis.GenerateOptions{})
		assert.ErrorIs(t, err, analysis.ErrTokenization)
		assert.Empty(t, cm.messages)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cm := &fakeChatModel{reply: func(string) (*schema.Message, error) {
			cancel()
			return nil, context.Canceled
		}}
		_, err := NewChatGenerator(cm, byteTokenizer{}, "local").Generate(ctx, []int{'a'}, analysis.GenerateOptions{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, analysis.ErrModelUnavailable)
	})
}

func TestGeneratorDrivesOrchestrator(t *testing.T) {
	cm := &fakeChatModel{reply: func(p string) (*schema.Message, error) {
		return schema.AssistantMessage(p[:1], nil), nil
	}}
	opts := analysis.DefaultOptions()
	opts.Window = analysis.WindowConfig{MaxWindow: 4, Overlap: 1}

	o, err := analysis.NewOrchestrator(byteTokenizer{}, NewChatGenerator(cm, byteTokenizer{}, "local"), opts)
	require.NoError(t, err)

	// "P\nabcdefg" 共 9 个 token，窗口起点 0,3,6
	out, err := o.Analyze(context.Background(), "abcdefg", "P")
	require.NoError(t, err)
	assert.Equal(t, "P b e", out)
}

func TestEinoFactoryCachesModels(t *testing.T) {
	builds := 0
	cfg := &config.LLMConfig{
		DefaultProvider: "local",
		Providers: map[string]config.ProviderConfig{
			"local": {BaseURL: "http://localhost:8000/v1", Model: "gpt2"},
			"bad":   {Model: "broken"},
		},
	}
	f := NewEinoFactoryWithBuilder(cfg, func(_ context.Context, p config.ProviderConfig) (model.BaseChatModel, error) {
		builds++
		if p.Model == "broken" {
			return nil, errors.New("boom")
		}
		return &fakeChatModel{}, nil
	})
	ctx := context.Background()

	m1, err := f.Default(ctx)
	require.NoError(t, err)
	m2, err := f.Get(ctx, "local")
	require.NoError(t, err)
	assert.Same(t, m1, m2)
	assert.Equal(t, 1, builds)

	_, err = f.Get(ctx, "missing")
	assert.ErrorContains(t, err, "not found")

	_, err = f.Get(ctx, "bad")
	assert.ErrorContains(t, err, "boom")

	f.Reset()
	_, err = f.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, builds)
}

func TestOrchestratorOptions(t *testing.T) {
	opts := OrchestratorOptions(config.InferenceConfig{
		MaxWindow:    256,
		Overlap:      16,
		MaxNewTokens: 64,
		Temperature:  0.5,
		TopP:         0.8,
		Concurrency:  3,
		MaxRetries:   2,
	})
	assert.Equal(t, analysis.WindowConfig{MaxWindow: 256, Overlap: 16}, opts.Window)
	assert.Equal(t, 64, opts.Generate.MaxNewTokens)
	assert.Equal(t, 3, opts.Concurrency)
	assert.Equal(t, 2, opts.MaxRetries)
}

func TestTiktokenTokenizer(t *testing.T) {
	tok, err := NewTokenizer("")
	require.NoError(t, err)
	assert.Equal(t, DefaultEncoding, tok.Encoding())

	text := "It was the best of times, it was the worst of times."
	tokens, err := tok.Tokenize(text)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens)

	back, err := tok.Decode(tokens)
	require.NoError(t, err)
	assert.Equal(t, text, back)

	_, err = tok.Tokenize("bad \xff")
	assert.ErrorIs(t, err, analysis.ErrTokenization)

	_, err = tok.Decode([]int{-1})
	assert.ErrorIs(t, err, analysis.ErrTokenization)
}

func TestTiktokenTokenizerRejectsUnknownIDs(t *testing.T) {
	tok, err := NewTokenizer(DefaultEncoding)
	require.NoError(t, err)

	tokens, err := tok.Tokenize("Call me Ishmael.")
	require.NoError(t, err)

	// r50k_base 的最大 id 为 50256 (<|endoftext|>)
	_, err = tok.Decode(append(tokens, 50257))
	assert.ErrorIs(t, err, analysis.ErrTokenization)

	_, err = tok.Decode([]int{1 << 30})
	assert.ErrorIs(t, err, analysis.ErrTokenization)

	eot, err := tok.Decode([]int{50256})
	require.NoError(t, err)
	assert.Equal(t, "<|endoftext|>", eot)
}

func TestTiktokenTokenizerWindowsDecodeToSource(t *testing.T) {
	tok, err := NewTokenizer(DefaultEncoding)
	require.NoError(t, err)

	text := strings.Repeat("Whale ho! The sea was calm. ", 40)
	tokens, err := tok.Tokenize(text)
	require.NoError(t, err)

	chunks, err := analysis.Partition(tokens, analysis.WindowConfig{MaxWindow: 32, Overlap: 4})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		decoded, err := tok.Decode(c.Tokens)
		require.NoError(t, err)
		assert.Contains(t, text, decoded, "window at %d", c.StartOffset)
	}
}
