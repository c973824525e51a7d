package dto

import (
	"time"

	"gutenberg-analysis-api/internal/application/analysis"
)

// JobResponse 任务响应
type JobResponse struct {
	ID        string            `json:"id"`
	BookID    string            `json:"book_id"`
	Task      string            `json:"task"`
	Status    string            `json:"status"`
	Result    *AnalysisResponse `json:"result,omitempty"`
	ErrorMsg  string            `json:"error_msg,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ToJobResponse 将任务转换为响应 DTO
func ToJobResponse(j *analysis.Job) *JobResponse {
	if j == nil {
		return nil
	}
	return &JobResponse{
		ID:        j.ID,
		BookID:    j.BookID,
		Task:      string(j.Task),
		Status:    string(j.Status),
		Result:    ToAnalysisResponse(j.Result),
		ErrorMsg:  j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
