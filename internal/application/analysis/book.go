package analysis

// BookMetadata 图书详情页的 Open Graph 元数据
type BookMetadata struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Image       string `json:"image"`
	URL         string `json:"url"`
	SiteName    string `json:"site_name"`
}
