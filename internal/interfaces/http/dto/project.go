// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"novel-journey-api/internal/domain/entity"
)

// CreateProjectRequest 创建项目请求。
// FreshStart 为 true 时跳过源文本分析，直接从创意实验室开始。
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"max=5000"`
	FreshStart  bool   `json:"fresh_start"`
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,max=255"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=5000"`
}

// ProjectResponse 项目详情响应（含完整工作流状态）
type ProjectResponse struct {
	ID          string                `json:"id"`
	OwnerID     string                `json:"owner_id,omitempty"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	State       *entity.WorkflowState `json:"state,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// ProjectSummaryResponse 项目列表项响应（不含状态明细）
type ProjectSummaryResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CurrentStage int       `json:"current_stage"`
	StageName    string    `json:"stage_name"`
	ChapterCount int       `json:"chapter_count"`
	TotalWords   int       `json:"total_words"`
	UpdatedAt    time.Time `json:"updated_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProjectListResponse 项目列表响应
type ProjectListResponse struct {
	Projects []*ProjectSummaryResponse `json:"projects"`
	Total    int                       `json:"total"`
}

// ToProjectResponse 转换为项目详情响应
func ToProjectResponse(p *entity.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		State:       p.State,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToProjectSummaryResponse 转换为项目列表项响应
func ToProjectSummaryResponse(p *entity.Project) *ProjectSummaryResponse {
	resp := &ProjectSummaryResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.State != nil {
		resp.CurrentStage = int(p.State.CurrentStage)
		resp.StageName = p.State.CurrentStage.String()
		resp.ChapterCount = len(p.State.GeneratedChapters)
		resp.TotalWords = p.State.TotalWordCount()
	}
	return resp
}

// ToProjectListResponse 转换为项目列表响应
func ToProjectListResponse(projects []*entity.Project) *ProjectListResponse {
	items := make([]*ProjectSummaryResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, ToProjectSummaryResponse(p))
	}
	return &ProjectListResponse{
		Projects: items,
		Total:    len(items),
	}
}
