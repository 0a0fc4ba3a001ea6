// Package entity 定义领域实体
package entity

import (
	"time"
)

// StructuredSummary 章节的结构化摘要。
// 各字段为开放集合，不做固定模式约束。
type StructuredSummary struct {
	Characters             []string          `json:"characters,omitempty"`
	PlotPoints             []string          `json:"plot_points,omitempty"`
	StylisticTraits        map[string]string `json:"stylistic_traits,omitempty"`
	SpatialTemporalDetails map[string]string `json:"spatial_temporal_details,omitempty"`
	MainThemes             []string          `json:"main_themes,omitempty"`
}

// ChapterSummary 章节摘要记录，供检索增强使用。
// 每个 (project_id, chapter_number) 唯一；章节定稿时 upsert。
type ChapterSummary struct {
	ID            string            `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID     string            `json:"project_id" gorm:"type:uuid;uniqueIndex:idx_summary_project_chapter;not null"`
	ChapterNumber int               `json:"chapter_number" gorm:"uniqueIndex:idx_summary_project_chapter;not null"`
	Summary       StructuredSummary `json:"summary" gorm:"type:jsonb;serializer:json"`
	Embedding     []float32         `json:"embedding" gorm:"type:jsonb;serializer:json"`
	CreatedAt     time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (ChapterSummary) TableName() string {
	return "chapter_summaries"
}

// ScoredSummary 带相似度得分的检索结果
type ScoredSummary struct {
	ChapterSummary
	Score float64 `json:"score"`
}
