package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"gutenberg-analysis-api/internal/application/analysis"
	"gutenberg-analysis-api/internal/interfaces/http/dto"
)

// BookCatalog 图书元数据查询
type BookCatalog interface {
	Metadata(ctx context.Context, bookID string) (*analysis.BookMetadata, error)
}

// BookHandler 图书处理器
type BookHandler struct {
	books BookCatalog
}

// NewBookHandler 创建图书处理器
func NewBookHandler(books BookCatalog) *BookHandler {
	return &BookHandler{books: books}
}

// GetBook 查询图书元数据
// @Summary 图书详情
// @Tags Books
// @Produce json
// @Param id path string true "Gutenberg 图书 ID"
// @Success 200 {object} dto.Response[dto.BookResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	meta, err := h.books.Metadata(c.Request.Context(), dto.BindPathBookID(c))
	if err != nil {
		respondError(c, "get book", err)
		return
	}
	dto.Success(c, dto.ToBookResponse(meta))
}
