package dto

import "gutenberg-analysis-api/internal/application/analysis"

// BookResponse 图书元数据响应
type BookResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Image       string `json:"image,omitempty"`
	URL         string `json:"url"`
	SiteName    string `json:"site_name,omitempty"`
}

// ToBookResponse 将图书元数据转换为响应 DTO
func ToBookResponse(m *analysis.BookMetadata) *BookResponse {
	if m == nil {
		return nil
	}
	return &BookResponse{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Type:        m.Type,
		Image:       m.Image,
		URL:         m.URL,
		SiteName:    m.SiteName,
	}
}
