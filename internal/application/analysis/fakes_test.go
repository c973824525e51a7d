package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// runeTokenizer 以 Unicode 码点作为 token，编解码可精确往返
type runeTokenizer struct{}

func (runeTokenizer) Tokenize(text string) ([]int, error) {
	if !utf8.ValidString(text) {
		return nil, errors.New("invalid utf-8")
	}
	out := make([]int, 0, len(text))
	for _, r := range text {
		out = append(out, int(r))
	}
	return out, nil
}

func (runeTokenizer) Decode(tokens []int) (string, error) {
	var b strings.Builder
	for _, t := range tokens {
		if t < 0 || t > utf8.MaxRune {
			return "", errors.New("token out of range")
		}
		b.WriteRune(rune(t))
	}
	return b.String(), nil
}

// fakeGenerator 记录调用并委托给 fn，fn 为空时原样回显输入
type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	inputs   [][]int
	released int
	fn       func(ctx context.Context, call int, tokens []int) ([]int, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, tokens []int, _ GenerateOptions) ([]int, error) {
	g.mu.Lock()
	g.calls++
	call := g.calls
	g.inputs = append(g.inputs, tokens)
	g.mu.Unlock()

	if g.fn == nil {
		return tokens, nil
	}
	return g.fn(ctx, call, tokens)
}

func (g *fakeGenerator) Release() {
	g.mu.Lock()
	g.released++
	g.mu.Unlock()
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// plainGenerator 不实现 Releaser
type plainGenerator struct{}

func (plainGenerator) Generate(_ context.Context, tokens []int, _ GenerateOptions) ([]int, error) {
	return tokens, nil
}

// fakeAnalyzer 实现 Analyzer
type fakeAnalyzer struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	text    string
	err     error
}

func (a *fakeAnalyzer) Run(_ context.Context, content, prompt string) (*Analysis, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.prompts = append(a.prompts, prompt)
	if a.err != nil {
		return nil, a.err
	}
	text := a.text
	if text == "" {
		text = "analysis of " + content
	}
	return &Analysis{Text: text, TokenCount: len(content), ChunkCount: 1}, nil
}

// fakeBooks 实现 BookSource
type fakeBooks struct {
	books map[string]string
	calls int
}

func (b *fakeBooks) Content(_ context.Context, bookID string) (string, error) {
	b.calls++
	c, ok := b.books[bookID]
	if !ok {
		return "", ErrBookNotFound
	}
	return c, nil
}

// memoryResults 以 map 保存结果副本
type memoryResults struct {
	mu      sync.Mutex
	items   map[string]Result
	ttls    map[string]time.Duration
	loadErr error
	saveErr error
}

func newMemoryResults() *memoryResults {
	return &memoryResults{items: map[string]Result{}, ttls: map[string]time.Duration{}}
}

func (m *memoryResults) Load(_ context.Context, key string, v any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return false, m.loadErr
	}
	r, ok := m.items[key]
	if !ok {
		return false, nil
	}
	*(v.(*Result)) = r
	return true, nil
}

func (m *memoryResults) Save(_ context.Context, key string, v any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[key] = *(v.(*Result))
	m.ttls[key] = ttl
	return nil
}

// memoryJobs 实现 JobStore
type memoryJobs struct {
	mu      sync.Mutex
	jobs    map[string]Job
	history map[string][]JobStatus
	saveErr error
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: map[string]Job{}, history: map[string][]JobStatus{}}
}

func (m *memoryJobs) Save(_ context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.jobs[job.ID] = *job
	m.history[job.ID] = append(m.history[job.ID], job.Status)
	return nil
}

func (m *memoryJobs) Get(_ context.Context, id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &j, nil
}

// memoryQueue 实现 JobQueue
type memoryQueue struct {
	ids []string
	err error
}

func (q *memoryQueue) Enqueue(_ context.Context, job *Job) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, job.ID)
	return nil
}
