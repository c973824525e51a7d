package dto

import (
	"github.com/gin-gonic/gin"
)

// AnalyzeTextRequest 对任意文本执行分析
type AnalyzeTextRequest struct {
	Task    string `json:"task" binding:"required"`
	Content string `json:"content"`
}

// SubmitJobRequest 提交异步图书分析任务
type SubmitJobRequest struct {
	Task   string `json:"task" binding:"required"`
	BookID string `json:"book_id" binding:"required"`
}

// BindTask 从 URI 绑定任务名
func BindTask(c *gin.Context) string {
	return c.Param("task")
}

// BindBookID 从查询参数绑定图书 ID
func BindBookID(c *gin.Context) string {
	return c.Query("book_id")
}

// BindJobID 从 URI 绑定任务 ID
func BindJobID(c *gin.Context) string {
	return c.Param("id")
}

// BindPathBookID 从 URI 绑定图书 ID
func BindPathBookID(c *gin.Context) string {
	return c.Param("id")
}
