// Package entity 定义领域实体
package entity

import (
	"time"
)

// StyleProfile 源小说的文风画像
type StyleProfile struct {
	Vocabulary           string   `json:"vocabulary,omitempty"`
	SentenceStructure    string   `json:"sentence_structure,omitempty"`
	ToneProfile          string   `json:"tone_profile,omitempty"`
	NarrativePerspective string   `json:"narrative_perspective,omitempty"`
	DialogueStyle        string   `json:"dialogue_style,omitempty"`
	DescriptiveLevel     string   `json:"descriptive_level,omitempty"`
	CulturalContext      []string `json:"cultural_context,omitempty"`
	RhetoricalDevices    []string `json:"rhetorical_devices,omitempty"`
	Pacing               string   `json:"pacing,omitempty"`
	Characterization     string   `json:"characterization,omitempty"`
}

// SourceAnalysis 第一阶段产物：参考文本的风格分析
type SourceAnalysis struct {
	Title        string       `json:"title"`
	Author       string       `json:"author,omitempty"`
	WordCount    int          `json:"word_count"`
	ChapterCount int          `json:"chapter_count,omitempty"`
	StyleProfile StyleProfile `json:"style_profile"`
	Themes       []string     `json:"themes,omitempty"`
	UploadedAt   time.Time    `json:"uploaded_at"`
}

// IdeaRating 创意评分
type IdeaRating struct {
	Originality       int `json:"originality"`
	Appeal            int `json:"appeal"`
	Feasibility       int `json:"feasibility"`
	CulturalRelevance int `json:"cultural_relevance"`
}

// GeneratedIdea 第二阶段产物：候选创意；整组中最多一个被选中
type GeneratedIdea struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Genre             string     `json:"genre,omitempty"`
	Setting           string     `json:"setting,omitempty"`
	Timeframe         string     `json:"timeframe,omitempty"`
	MainCharacter     string     `json:"main_character,omitempty"`
	Conflict          string     `json:"conflict,omitempty"`
	Theme             string     `json:"theme,omitempty"`
	Synopsis          string     `json:"synopsis"`
	UniqueElements    []string   `json:"unique_elements,omitempty"`
	EstimatedChapters int        `json:"estimated_chapters,omitempty"`
	TargetAudience    string     `json:"target_audience,omitempty"`
	Rating            IdeaRating `json:"rating"`
	Selected          bool       `json:"selected"`
}

// CharacterRelationship 角色关系
type CharacterRelationship struct {
	Character    string `json:"character"`
	Relationship string `json:"relationship"`
	Description  string `json:"description,omitempty"`
}

// CharacterDevelopment 角色在某章的发展
type CharacterDevelopment struct {
	Chapter int    `json:"chapter"`
	Event   string `json:"event,omitempty"`
	Growth  string `json:"growth,omitempty"`
}

// CharacterProfile 角色档案
type CharacterProfile struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Role          string                  `json:"role,omitempty"`
	Description   string                  `json:"description,omitempty"`
	Background    string                  `json:"background,omitempty"`
	Personality   []string                `json:"personality,omitempty"`
	Motivations   []string                `json:"motivations,omitempty"`
	Relationships []CharacterRelationship `json:"relationships,omitempty"`
	Development   []CharacterDevelopment  `json:"development,omitempty"`
	Voice         string                  `json:"voice,omitempty"`
}

// PlotPoint 情节节点
type PlotPoint struct {
	Type         string `json:"type,omitempty"`
	Chapter      int    `json:"chapter"`
	Description  string `json:"description"`
	Significance string `json:"significance,omitempty"`
}

// BlueprintOverview 蓝图总览
type BlueprintOverview struct {
	Title          string   `json:"title"`
	Genre          string   `json:"genre,omitempty"`
	ChapterCount   int      `json:"chapter_count"`
	EstimatedWords int      `json:"estimated_words,omitempty"`
	Themes         []string `json:"themes,omitempty"`
	Tone           string   `json:"tone,omitempty"`
	Setting        string   `json:"setting,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// PlotStructure 情节结构
type PlotStructure struct {
	ActStructure  string      `json:"act_structure,omitempty"`
	PlotPoints    []PlotPoint `json:"plot_points,omitempty"`
	Pacing        string      `json:"pacing,omitempty"`
	ClimaxChapter int         `json:"climax_chapter,omitempty"`
	Resolution    string      `json:"resolution,omitempty"`
}

// ChapterOutline 单章大纲
type ChapterOutline struct {
	ID                 string   `json:"id"`
	Number             int      `json:"number"`
	Title              string   `json:"title"`
	Synopsis           string   `json:"synopsis"`
	KeyEvents          []string `json:"key_events,omitempty"`
	CharactersInvolved []string `json:"characters_involved,omitempty"`
	EmotionalTone      string   `json:"emotional_tone,omitempty"`
	Pacing             string   `json:"pacing,omitempty"`
	PlotAdvancement    string   `json:"plot_advancement,omitempty"`
	WordTarget         int      `json:"word_target,omitempty"`
}

// NovelBlueprint 第三阶段产物：完整的结构化写作计划
type NovelBlueprint struct {
	Idea            GeneratedIdea      `json:"idea"`
	Overview        BlueprintOverview  `json:"overview"`
	PlotStructure   PlotStructure      `json:"plot_structure"`
	Characters      []CharacterProfile `json:"characters"`
	Chapters        []ChapterOutline   `json:"chapters"`
	PrimaryThemes   []string           `json:"primary_themes,omitempty"`
	SecondaryThemes []string           `json:"secondary_themes,omitempty"`
}

// OutlineFor 返回指定章号的大纲；未找到返回 nil
func (b *NovelBlueprint) OutlineFor(number int) *ChapterOutline {
	for i := range b.Chapters {
		if b.Chapters[i].Number == number {
			return &b.Chapters[i]
		}
	}
	return nil
}

// CharacterName 按角色 ID 解析名称；未知 ID 原样返回
func (b *NovelBlueprint) CharacterName(id string) string {
	for i := range b.Characters {
		if b.Characters[i].ID == id {
			return b.Characters[i].Name
		}
	}
	return id
}

// Recommendation 质量报告中的改进建议
type Recommendation struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Priority    string `json:"priority"` // high / medium / low
}

// QualityReport 终审质量报告
type QualityReport struct {
	OverallQuality  int              `json:"overall_quality"`
	Strengths       []string         `json:"strengths,omitempty"`
	Improvements    []string         `json:"improvements,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// ExportSettings 导出描述符
type ExportSettings struct {
	Format          string `json:"format"` // txt / docx / pdf
	IncludeMetadata bool   `json:"include_metadata"`
	IncludeAnalysis bool   `json:"include_analysis"`
}

// FinalProject 第六阶段产物：汇总质量报告与导出描述符
type FinalProject struct {
	QualityReport  QualityReport  `json:"quality_report"`
	ExportSettings ExportSettings `json:"export_settings"`
	TotalWordCount int            `json:"total_word_count"`
	ChapterCount   int            `json:"chapter_count"`
	CompletedAt    time.Time      `json:"completed_at"`
}
