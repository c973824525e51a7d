package books

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"gutenberg-analysis-api/internal/application/analysis"
)

// PageURL 返回图书详情页地址
func (s *GutenbergSource) PageURL(bookID string) string {
	return fmt.Sprintf("%s/ebooks/%s", s.baseURL, bookID)
}

// Metadata 读取详情页 <head> 中的 og:* 标签
func (s *GutenbergSource) Metadata(ctx context.Context, bookID string) (*analysis.BookMetadata, error) {
	if err := analysis.ValidateBookID(bookID); err != nil {
		return nil, err
	}

	url := s.PageURL(bookID)
	ctx, span := tracer.Start(ctx, "books.Metadata",
		trace.WithAttributes(
			attribute.String("book.id", bookID),
			attribute.String("http.url", url),
		))
	defer span.End()

	body, err := s.fetch(ctx, span, bookID, url, "text/html", maxPageBytes)
	if err != nil {
		return nil, err
	}

	meta := parseMetadata(bytes.NewReader(body))
	meta.ID = bookID
	if meta.URL == "" {
		meta.URL = url
	}
	if meta.Title == "" {
		return nil, fmt.Errorf("%w: book page %s has no title", analysis.ErrBookSource, bookID)
	}
	span.SetAttributes(attribute.String("book.title", meta.Title))
	return meta, nil
}

// parseMetadata 扫描到 </head> 或 <body> 为止，og:title 缺失时使用 <title>
func parseMetadata(r io.Reader) *analysis.BookMetadata {
	meta := &analysis.BookMetadata{}
	var title string

	z := html.NewTokenizer(r)
scan:
	for {
		switch z.Next() {
		case html.ErrorToken:
			break scan
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Meta:
				applyOpenGraph(meta, tok.Attr)
			case atom.Title:
				if z.Next() == html.TextToken {
					title = strings.TrimSpace(string(z.Text()))
				}
			case atom.Body:
				break scan
			}
		case html.EndTagToken:
			if z.Token().DataAtom == atom.Head {
				break scan
			}
		}
	}

	if meta.Title == "" {
		meta.Title = title
	}
	return meta
}

func applyOpenGraph(meta *analysis.BookMetadata, attrs []html.Attribute) {
	var property, content string
	for _, a := range attrs {
		switch a.Key {
		case "property":
			property = a.Val
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}

	switch property {
	case "og:title":
		meta.Title = content
	case "og:description":
		meta.Description = content
	case "og:type":
		meta.Type = content
	case "og:image":
		meta.Image = content
	case "og:url":
		meta.URL = content
	case "og:site_name":
		meta.SiteName = content
	}
}
