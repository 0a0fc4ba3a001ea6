// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"novel-journey-api/internal/application/coordinator"
	"novel-journey-api/internal/domain/entity"
)

// BatchGenerateRequest 批量生成章节请求
type BatchGenerateRequest struct {
	Mode             string `json:"mode" binding:"required,oneof=sequential parallel selective"`
	Chapters         []int  `json:"chapters,omitempty"`
	TemplateOverride string `json:"template_override,omitempty"`
}

// RegenerateChapterRequest 单章重新生成请求
type RegenerateChapterRequest struct {
	TemplateOverride string `json:"template_override,omitempty"`
}

// EditChapterRequest 章节交互编辑请求
type EditChapterRequest struct {
	Instructions     string `json:"instructions" binding:"required"`
	ConsistencyNotes string `json:"consistency_notes,omitempty"`
	TemplateOverride string `json:"template_override,omitempty"`
}

// FeedbackRequest 章节反馈条目请求
type FeedbackRequest struct {
	Type        string `json:"type" binding:"required,oneof=suggestion error improvement"`
	Category    string `json:"category" binding:"max=100"`
	Description string `json:"description" binding:"required,max=5000"`
	Priority    string `json:"priority" binding:"omitempty,oneof=high medium low"`
}

// ChapterSummaryResponse 章节列表项响应（不含正文）
type ChapterSummaryResponse struct {
	ID        string `json:"id"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Synopsis  string `json:"synopsis,omitempty"`
	Status    string `json:"status"`
	WordCount int    `json:"word_count"`
	Quality   int    `json:"quality"`
}

// ChapterListResponse 章节列表响应
type ChapterListResponse struct {
	Chapters []*ChapterSummaryResponse `json:"chapters"`
	Total    int                       `json:"total"`
}

// BatchResultResponse 批量生成结果响应
type BatchResultResponse struct {
	BatchID    string   `json:"batch_id"`
	Mode       string   `json:"mode"`
	Succeeded  []int    `json:"succeeded"`
	Failed     []int    `json:"failed,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// ToChapterSummaryResponse 转换为章节列表项响应
func ToChapterSummaryResponse(ch *entity.GeneratedChapter) *ChapterSummaryResponse {
	return &ChapterSummaryResponse{
		ID:        ch.ID,
		Number:    ch.Number,
		Title:     ch.Title,
		Synopsis:  ch.Synopsis,
		Status:    string(ch.Status),
		WordCount: ch.WordCount,
		Quality:   ch.Quality.Overall,
	}
}

// ToChapterListResponse 转换为章节列表响应
func ToChapterListResponse(chapters []entity.GeneratedChapter) *ChapterListResponse {
	items := make([]*ChapterSummaryResponse, 0, len(chapters))
	for i := range chapters {
		items = append(items, ToChapterSummaryResponse(&chapters[i]))
	}
	return &ChapterListResponse{
		Chapters: items,
		Total:    len(items),
	}
}

// ToBatchResultResponse 转换为批量生成结果响应
func ToBatchResultResponse(result *coordinator.BatchResult) *BatchResultResponse {
	failed := make([]int, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, f.Chapter)
	}
	return &BatchResultResponse{
		BatchID:    result.BatchID,
		Mode:       string(result.Mode),
		Succeeded:  result.Succeeded,
		Failed:     failed,
		Warnings:   result.Warnings,
		DurationMs: result.Duration.Milliseconds(),
	}
}
