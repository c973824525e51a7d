package books

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gutenberg-analysis-api/internal/application/analysis"
	"gutenberg-analysis-api/internal/config"
	"gutenberg-analysis-api/internal/infrastructure/persistence/redis"
)

const frankensteinPage = `<!DOCTYPE html>
<html><head>
<title>Frankenstein | Project Gutenberg</title>
<meta property="og:title" content="Frankenstein; Or, The Modern Prometheus by Mary Wollstonecraft Shelley">
<meta property="og:description" content="Free kindle book and epub digitized and proofread by volunteers.">
<meta property="og:type" content="book">
<meta property="og:image" content="https://www.gutenberg.org/cache/epub/84/pg84.cover.medium.jpg"/>
<meta property="og:url" content="https://www.gutenberg.org/ebooks/84">
<meta property="og:site_name" content="Project Gutenberg &amp; friends">
<meta name="viewport" content="width=device-width">
</head><body><h1>Frankenstein</h1></body></html>`

func newGutenbergServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/cache/epub/84/pg84.txt", func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		_, _ = w.Write([]byte("\ufeffFrankenstein; or, the Modern Prometheus"))
	})
	mux.HandleFunc("/ebooks/84", func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		_, _ = w.Write([]byte(frankensteinPage))
	})
	mux.HandleFunc("/ebooks/2701", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title> Moby Dick; Or, The Whale </title></head><body></body></html>`))
	})
	mux.HandleFunc("/ebooks/3", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head></head><body><meta property="og:title" content="late"></body></html>`))
	})
	mux.HandleFunc("/cache/epub/500/pg500.txt", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGutenbergSourceContent(t *testing.T) {
	srv := newGutenbergServer(t, nil)
	src := NewGutenbergSource(config.BooksConfig{BaseURL: srv.URL + "/", Timeout: time.Second})

	assert.Equal(t, srv.URL+"/cache/epub/84/pg84.txt", src.URL("84"))

	content, err := src.Content(context.Background(), "84")
	require.NoError(t, err)
	assert.Equal(t, "Frankenstein; or, the Modern Prometheus", content)
}

func TestGutenbergSourceErrors(t *testing.T) {
	srv := newGutenbergServer(t, nil)
	src := NewGutenbergSource(config.BooksConfig{BaseURL: srv.URL, Timeout: time.Second})
	ctx := context.Background()

	_, err := src.Content(ctx, "12345")
	assert.ErrorIs(t, err, analysis.ErrBookNotFound)

	_, err = src.Content(ctx, "500")
	assert.ErrorIs(t, err, analysis.ErrBookSource)

	_, err = src.Content(ctx, "../etc")
	assert.ErrorIs(t, err, analysis.ErrInvalidBookID)
}

func TestGutenbergSourceTruncatesBody(t *testing.T) {
	srv := newGutenbergServer(t, nil)
	src := NewGutenbergSource(config.BooksConfig{BaseURL: srv.URL, MaxBytes: 16})

	content, err := src.Content(context.Background(), "84")
	require.NoError(t, err)
	// 前 3 字节为 BOM
	assert.Equal(t, "Frankenstein;", content)
}

func TestGutenbergSourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := NewGutenbergSource(config.BooksConfig{BaseURL: url, Timeout: time.Second})
	_, err := src.Content(context.Background(), "84")
	assert.ErrorIs(t, err, analysis.ErrBookSource)
}

func newTestCache(t *testing.T) (*redis.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return redis.NewCache(client), mr
}

func TestCachedSourceFetchesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := newGutenbergServer(t, &hits)
	cache, mr := newTestCache(t)
	src := NewCachedSource(NewGutenbergSource(config.BooksConfig{BaseURL: srv.URL}), cache, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		content, err := src.Content(ctx, "84")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(content, "Frankenstein"))
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, time.Hour, mr.TTL(ContentKey("84")))
}

func TestCachedSourcePropagatesNotFound(t *testing.T) {
	srv := newGutenbergServer(t, nil)
	cache, mr := newTestCache(t)
	src := NewCachedSource(NewGutenbergSource(config.BooksConfig{BaseURL: srv.URL}), cache, time.Hour)

	_, err := src.Content(context.Background(), "999")
	assert.ErrorIs(t, err, analysis.ErrBookNotFound)
	assert.False(t, mr.Exists(ContentKey("999")))
}

func TestCachedSourceFallsBackWhenCacheDown(t *testing.T) {
	var hits atomic.Int32
	srv := newGutenbergServer(t, &hits)
	cache, mr := newTestCache(t)
	mr.Close()

	src := NewCachedSource(NewGutenbergSource(config.BooksConfig{BaseURL: srv.URL}), cache, time.Hour)
	content, err := src.Content(context.Background(), "84")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "Frankenstein"))
	assert.Equal(t, int32(1), hits.Load())
}

func TestCachedSourceEvictsCorruptEntry(t *testing.T) {
	var hits atomic.Int32
	srv := newGutenbergServer(t, &hits)
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set(ContentKey("84"), "{not json"))

	src := NewCachedSource(NewGutenbergSource(config.BooksConfig{BaseURL: srv.URL}), cache, time.Hour)
	content, err := src.Content(context.Background(), "84")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "Frankenstein"))
	assert.Equal(t, int32(1), hits.Load())
	assert.False(t, mr.Exists(ContentKey("84")))

	_, err = src.Content(context.Background(), "84")
	require.NoError(t, err)
	assert.True(t, mr.Exists(ContentKey("84")))
	assert.Equal(t, int32(2), hits.Load())
}

func TestGutenbergSourceMetadata(t *testing.T) {
	srv := newGutenbergServer(t, nil)
	src := NewGutenbergSource(config.BooksConfig{BaseURL: srv.URL})

	meta, err := src.Metadata(context.Background(), "84")
	require.NoError(t, err)
	assert.Equal(t, &analysis.BookMetadata{
		ID:          "84",
		Title:       "Frankenstein; Or, The Modern Prometheus by Mary Wollstonecraft Shelley",
		Description: "Free kindle book and epub digitized and proofread by volunteers.",
		Type:        "book",
		Image:       "https://www.gutenberg.org/cache/epub/84/pg84.cover.medium.jpg",
		URL:         "https://www.gutenberg.org/ebooks/84",
		SiteName:    "Project Gutenberg & friends",
	}, meta)
}

func TestGutenbergSourceMetadataFallbacks(t *testing.T) {
	srv := newGutenbergServer(t, nil)
	src := NewGutenbergSource(config.BooksConfig{BaseURL: srv.URL})
	ctx := context.Background()

	meta, err := src.Metadata(ctx, "2701")
	require.NoError(t, err)
	assert.Equal(t, "Moby Dick; Or, The Whale", meta.Title)
	assert.Equal(t, srv.URL+"/ebooks/2701", meta.URL)

	// <body> 之后的标签不参与解析
	_, err = src.Metadata(ctx, "3")
	assert.ErrorIs(t, err, analysis.ErrBookSource)

	_, err = src.Metadata(ctx, "999")
	assert.ErrorIs(t, err, analysis.ErrBookNotFound)

	_, err = src.Metadata(ctx, "x1")
	assert.ErrorIs(t, err, analysis.ErrInvalidBookID)
}

func TestCachedSourceMetadataFetchesOnce(t *testing.T) {
	var hits atomic.Int32
	srv := newGutenbergServer(t, &hits)
	cache, mr := newTestCache(t)
	src := NewCachedSource(NewGutenbergSource(config.BooksConfig{BaseURL: srv.URL}), cache, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		meta, err := src.Metadata(ctx, "84")
		require.NoError(t, err)
		assert.Equal(t, "book", meta.Type)
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, mr.Exists(MetadataKey("84")))
	assert.False(t, mr.Exists(ContentKey("84")))
}
