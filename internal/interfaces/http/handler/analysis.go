package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"gutenberg-analysis-api/internal/application/analysis"
	"gutenberg-analysis-api/internal/interfaces/http/dto"
)

// Analyzer 同步分析能力
type Analyzer interface {
	AnalyzeBook(ctx context.Context, task analysis.Task, bookID string) (*analysis.Result, error)
	AnalyzeText(ctx context.Context, task analysis.Task, content string) (*analysis.Result, error)
}

// AnalysisHandler 同步分析处理器
type AnalysisHandler struct {
	analyzer Analyzer
}

// NewAnalysisHandler 创建分析处理器
func NewAnalysisHandler(analyzer Analyzer) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer}
}

// ListTasks 列出支持的分析任务
// @Summary 分析任务列表
// @Tags Analysis
// @Produce json
// @Success 200 {object} dto.Response[dto.TaskListResponse]
// @Router /api/v1/analysis/tasks [get]
func (h *AnalysisHandler) ListTasks(c *gin.Context) {
	dto.Success(c, dto.ToTaskListResponse(analysis.Tasks()))
}

// AnalyzeBook 对 Gutenberg 图书执行分析
// @Summary 图书分析
// @Description 拉取图书正文，按 token 窗口分块推理后合并结果
// @Tags Analysis
// @Produce json
// @Param task path string true "summary | sentiment | characters | language"
// @Param book_id query string true "Gutenberg 图书 ID"
// @Success 200 {object} dto.Response[dto.AnalysisResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/v1/analysis/{task} [post]
func (h *AnalysisHandler) AnalyzeBook(c *gin.Context) {
	task, err := analysis.ParseTask(dto.BindTask(c))
	if err != nil {
		respondError(c, "analyze book", err)
		return
	}
	bookID := dto.BindBookID(c)
	if bookID == "" {
		dto.BadRequest(c, "book_id is required")
		return
	}

	res, err := h.analyzer.AnalyzeBook(c.Request.Context(), task, bookID)
	if err != nil {
		respondError(c, "analyze book", err)
		return
	}
	dto.Success(c, dto.ToAnalysisResponse(res))
}

// AnalyzeText 对请求体中的文本执行分析，结果不缓存
// @Summary 文本分析
// @Tags Analysis
// @Accept json
// @Produce json
// @Param body body dto.AnalyzeTextRequest true "分析请求"
// @Success 200 {object} dto.Response[dto.AnalysisResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/analysis/text [post]
func (h *AnalysisHandler) AnalyzeText(c *gin.Context) {
	var req dto.AnalyzeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	task, err := analysis.ParseTask(req.Task)
	if err != nil {
		respondError(c, "analyze text", err)
		return
	}

	res, err := h.analyzer.AnalyzeText(c.Request.Context(), task, req.Content)
	if err != nil {
		respondError(c, "analyze text", err)
		return
	}
	dto.Success(c, dto.ToAnalysisResponse(res))
}
