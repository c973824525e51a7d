package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"gutenberg-analysis-api/internal/application/analysis"
	"gutenberg-analysis-api/internal/interfaces/http/dto"
	"gutenberg-analysis-api/pkg/logger"
)

// JobService 异步任务的提交与查询
type JobService interface {
	Submit(ctx context.Context, task analysis.Task, bookID string) (*analysis.Job, error)
	Get(ctx context.Context, id string) (*analysis.Job, error)
}

// JobHandler 任务处理器
type JobHandler struct {
	jobs JobService
}

// NewJobHandler 创建任务处理器
func NewJobHandler(jobs JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// SubmitJob 提交异步图书分析任务
// @Summary 提交分析任务
// @Tags Jobs
// @Accept json
// @Produce json
// @Param body body dto.SubmitJobRequest true "任务请求"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/jobs [post]
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	task, err := analysis.ParseTask(req.Task)
	if err != nil {
		respondError(c, "submit job", err)
		return
	}

	job, err := h.jobs.Submit(c.Request.Context(), task, req.BookID)
	if err != nil {
		respondError(c, "submit job", err)
		return
	}
	logger.Info(c.Request.Context(), "analysis job accepted", "job_id", job.ID)
	dto.Accepted(c, dto.ToJobResponse(job))
}

// GetJob 获取任务状态与结果
// @Summary 获取任务详情
// @Tags Jobs
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} dto.Response[dto.JobResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/jobs/{id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), dto.BindJobID(c))
	if err != nil {
		respondError(c, "get job", err)
		return
	}
	dto.Success(c, dto.ToJobResponse(job))
}
