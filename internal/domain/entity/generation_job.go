// Package entity 定义领域实体
package entity

import (
	"time"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// GenerationJob 单章生成任务记录。
// 批量生成时每个章节单元一条；失败单元保持可见，支持定向重试。
type GenerationJob struct {
	ID             string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProjectID      string         `json:"project_id" gorm:"type:uuid;index;not null"`
	BatchID        string         `json:"batch_id" gorm:"type:uuid;index"`
	ChapterNumber  int            `json:"chapter_number" gorm:"not null"`
	Mode           GenerationMode `json:"mode" gorm:"type:varchar(20)"`
	Status         JobStatus      `json:"status" gorm:"type:varchar(20);default:'pending'"`
	ErrorMessage   string         `json:"error_message,omitempty" gorm:"type:text"`
	ModelID        string         `json:"model_id,omitempty" gorm:"type:varchar(128)"`
	TokensPrompt   int            `json:"tokens_prompt,omitempty"`
	TokensComplete int            `json:"tokens_completion,omitempty"`
	DurationMs     int            `json:"duration_ms,omitempty"`
	RetryCount     int            `json:"retry_count"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (GenerationJob) TableName() string {
	return "generation_jobs"
}

// NewGenerationJob 创建新任务
func NewGenerationJob(projectID, batchID string, chapterNumber int, mode GenerationMode) *GenerationJob {
	return &GenerationJob{
		ProjectID:     projectID,
		BatchID:       batchID,
		ChapterNumber: chapterNumber,
		Mode:          mode,
		Status:        JobStatusPending,
		CreatedAt:     time.Now(),
	}
}

// Start 开始执行任务
func (j *GenerationJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// Complete 完成任务
func (j *GenerationJob) Complete() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.CompletedAt = &now
	if j.StartedAt != nil {
		j.DurationMs = int(now.Sub(*j.StartedAt).Milliseconds())
	}
}

// Fail 任务失败
func (j *GenerationJob) Fail(errMsg string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
	if j.StartedAt != nil {
		j.DurationMs = int(now.Sub(*j.StartedAt).Milliseconds())
	}
}

// Cancel 取消任务（仅对未开始的单元生效）
func (j *GenerationJob) Cancel() {
	if j.Status == JobStatusPending {
		j.Status = JobStatusCancelled
	}
}

// Retry 重试任务
func (j *GenerationJob) Retry() {
	j.RetryCount++
	j.Status = JobStatusPending
	j.StartedAt = nil
	j.CompletedAt = nil
	j.ErrorMessage = ""
}

// SetLLMMetrics 设置 LLM 使用指标
func (j *GenerationJob) SetLLMMetrics(modelID string, promptTokens, completionTokens int) {
	j.ModelID = modelID
	j.TokensPrompt = promptTokens
	j.TokensComplete = completionTokens
}
