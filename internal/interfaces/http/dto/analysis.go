package dto

import (
	"time"

	"gutenberg-analysis-api/internal/application/analysis"
)

// AnalysisResponse 分析结果响应
type AnalysisResponse struct {
	BookID     string    `json:"book_id,omitempty"`
	Task       string    `json:"task"`
	Analysis   string    `json:"analysis"`
	TokenCount int       `json:"token_count"`
	ChunkCount int       `json:"chunk_count"`
	WordCount  int       `json:"word_count"`
	Cached     bool      `json:"cached"`
	CreatedAt  time.Time `json:"created_at"`
}

// TaskListResponse 支持的分析任务
type TaskListResponse struct {
	Tasks []string `json:"tasks"`
}

// ToAnalysisResponse 将分析结果转换为响应 DTO
func ToAnalysisResponse(r *analysis.Result) *AnalysisResponse {
	if r == nil {
		return nil
	}
	return &AnalysisResponse{
		BookID:     r.BookID,
		Task:       string(r.Task),
		Analysis:   r.Analysis,
		TokenCount: r.TokenCount,
		ChunkCount: r.ChunkCount,
		WordCount:  r.WordCount,
		Cached:     r.Cached,
		CreatedAt:  r.CreatedAt,
	}
}

// ToTaskListResponse 列出全部任务名
func ToTaskListResponse(tasks []analysis.Task) *TaskListResponse {
	resp := &TaskListResponse{Tasks: make([]string, 0, len(tasks))}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, string(t))
	}
	return resp
}
