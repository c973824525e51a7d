package analysis

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

type bounds struct{ Start, End int }

func spansOf(chunks []Chunk) []bounds {
	out := make([]bounds, len(chunks))
	for i, c := range chunks {
		out[i] = bounds{c.StartOffset, c.End()}
	}
	return out
}

func TestPartitionBoundaries(t *testing.T) {
	w := DefaultWindowConfig()

	tests := []struct {
		name string
		n    int
		want []bounds
	}{
		{"empty", 0, []bounds{}},
		{"single token", 1, []bounds{{0, 1}}},
		{"exactly one window", 512, []bounds{{0, 512}}},
		{"one past window", 513, []bounds{{0, 512}, {462, 513}}},
		{"thousand tokens", 1000, []bounds{{0, 512}, {462, 974}, {924, 1000}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Partition(seq(tt.n), w)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, spansOf(chunks)); diff != "" {
				t.Errorf("spans mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, len(tt.want), ChunkCount(tt.n, w))
		})
	}
}

func TestPartitionCoverageAndOverlap(t *testing.T) {
	windows := []WindowConfig{
		{MaxWindow: 512, Overlap: 50},
		{MaxWindow: 10, Overlap: 3},
		{MaxWindow: 7, Overlap: 0},
		{MaxWindow: 2, Overlap: 1},
	}
	for _, w := range windows {
		for n := 1; n <= 1200; n += 37 {
			tokens := seq(n)
			chunks, err := Partition(tokens, w)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			assert.Equal(t, ChunkCount(n, w), len(chunks), "window=%+v n=%d", w, n)
			assert.Equal(t, 0, chunks[0].StartOffset)
			assert.Equal(t, n, chunks[len(chunks)-1].End())

			covered := make([]bool, n)
			for i, c := range chunks {
				assert.LessOrEqual(t, len(c.Tokens), w.MaxWindow)
				assert.NotEmpty(t, c.Tokens)
				assert.Equal(t, tokens[c.StartOffset:c.End()], c.Tokens)
				for j := c.StartOffset; j < c.End(); j++ {
					covered[j] = true
				}
				if i > 0 {
					prev := chunks[i-1]
					assert.Equal(t, w.Overlap, prev.End()-c.StartOffset, "window=%+v n=%d chunk=%d", w, n, i)
					assert.Greater(t, c.StartOffset, prev.StartOffset)
				}
			}
			for j, ok := range covered {
				assert.True(t, ok, "token %d not covered (window=%+v n=%d)", j, w, n)
			}
		}
	}
}

func TestPartitionChunksDoNotAliasAppend(t *testing.T) {
	tokens := seq(20)
	chunks, err := Partition(tokens, WindowConfig{MaxWindow: 8, Overlap: 2})
	require.NoError(t, err)

	_ = append(chunks[0].Tokens, -1)
	assert.Equal(t, 8, tokens[8])
}

func TestPartitionInvalidWindow(t *testing.T) {
	for _, w := range []WindowConfig{
		{MaxWindow: 50, Overlap: 50},
		{MaxWindow: 10, Overlap: 20},
		{MaxWindow: 0, Overlap: 0},
		{MaxWindow: 10, Overlap: -1},
	} {
		_, err := Partition(seq(100), w)
		assert.ErrorIs(t, err, ErrInvalidWindow, "window=%+v", w)
	}
}

func TestCombineOrderIndependent(t *testing.T) {
	results := []ChunkResult{
		{StartOffset: 0, Text: "alpha"},
		{StartOffset: 462, Text: "beta"},
		{StartOffset: 924, Text: "gamma"},
		{StartOffset: 1386, Text: "delta"},
	}
	want := "alpha beta gamma delta"
	assert.Equal(t, want, Combine(results))

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]ChunkResult(nil), results...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Combine(shuffled))
	}
}

func TestCombineDoesNotReorderInput(t *testing.T) {
	in := []ChunkResult{{StartOffset: 5, Text: "b"}, {StartOffset: 0, Text: "a"}}
	assert.Equal(t, "a b", Combine(in))
	assert.Equal(t, 5, in[0].StartOffset)
}

func TestCombineEmpty(t *testing.T) {
	assert.Equal(t, "", Combine(nil))
}
