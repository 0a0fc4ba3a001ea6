// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"
)

// ChapterStatus 章节状态
type ChapterStatus string

const (
	ChapterStatusDraft    ChapterStatus = "draft"
	ChapterStatusReviewed ChapterStatus = "reviewed"
	ChapterStatusEdited   ChapterStatus = "edited"
	ChapterStatusFinal    ChapterStatus = "final"
)

// ChapterQuality 多维质量评分 (0-100)
type ChapterQuality struct {
	StyleConsistency     int `json:"style_consistency"`
	CharacterConsistency int `json:"character_consistency"`
	PlotConsistency      int `json:"plot_consistency"`
	CulturalAuthenticity int `json:"cultural_authenticity"`
	Overall              int `json:"overall"`
}

// ChapterMetrics 文本度量 (0-100)
type ChapterMetrics struct {
	Readability int `json:"readability"`
	Engagement  int `json:"engagement"`
	Coherence   int `json:"coherence"`
	Innovation  int `json:"innovation"`
}

// FeedbackType 反馈条目类型
type FeedbackType string

const (
	FeedbackSuggestion  FeedbackType = "suggestion"
	FeedbackError       FeedbackType = "error"
	FeedbackImprovement FeedbackType = "improvement"
)

// FeedbackEntry 编辑工具附加的反馈条目
type FeedbackEntry struct {
	ID          string       `json:"id"`
	Type        FeedbackType `json:"type"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Priority    string       `json:"priority"` // high / medium / low
	CreatedAt   time.Time    `json:"created_at"`
}

// GenerationMetadata 生成元数据
type GenerationMetadata struct {
	Model            string  `json:"model,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	GeneratedAt      string  `json:"generated_at,omitempty"`
}

// GeneratedChapter 第四阶段产物：一章生成结果
type GeneratedChapter struct {
	ID           string              `json:"id"`
	Number       int                 `json:"number"`
	Title        string              `json:"title"`
	Content      string              `json:"content"`
	Synopsis     string              `json:"synopsis"`
	WordCount    int                 `json:"word_count"`
	Quality      ChapterQuality      `json:"quality"`
	Metrics      ChapterMetrics      `json:"metrics"`
	Status       ChapterStatus       `json:"status"`
	Feedback     []FeedbackEntry     `json:"feedback,omitempty"`
	Generation   *GenerationMetadata `json:"generation,omitempty"`
	LastModified time.Time           `json:"last_modified"`
}

// SetContent 设置章节内容并重算字数
func (c *GeneratedChapter) SetContent(content string) {
	c.Content = content
	c.WordCount = CountWords(content)
	c.LastModified = time.Now()
}

// AppendFeedback 追加反馈条目
func (c *GeneratedChapter) AppendFeedback(entry FeedbackEntry) {
	c.Feedback = append(c.Feedback, entry)
	c.LastModified = time.Now()
}

// IsEditable 检查章节是否可编辑
func (c *GeneratedChapter) IsEditable() bool {
	return c.Status != ChapterStatusFinal
}

// CountWords 按空白切分统计词数
func CountWords(text string) int {
	return len(strings.Fields(text))
}
