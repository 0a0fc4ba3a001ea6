// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"novel-journey-api/internal/domain/entity"
)

// MemorySearchRequest 记忆检索请求
type MemorySearchRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit" binding:"gte=0,lte=20"`
}

// MemoryHitResponse 记忆检索命中项
type MemoryHitResponse struct {
	ChapterNumber int                      `json:"chapter_number"`
	Score         float64                  `json:"score"`
	Summary       entity.StructuredSummary `json:"summary"`
}

// MemorySearchResponse 记忆检索响应
type MemorySearchResponse struct {
	Hits []*MemoryHitResponse `json:"hits"`
}

// ToMemorySearchResponse 转换为记忆检索响应
func ToMemorySearchResponse(hits []*entity.ScoredSummary) *MemorySearchResponse {
	items := make([]*MemoryHitResponse, 0, len(hits))
	for _, h := range hits {
		items = append(items, &MemoryHitResponse{
			ChapterNumber: h.ChapterNumber,
			Score:         h.Score,
			Summary:       h.Summary,
		})
	}
	return &MemorySearchResponse{Hits: items}
}
