// Package entity 定义领域实体
package entity

import (
	"time"
)

// Project 项目快照记录。
// State 为完整序列化的 WorkflowState；保存按 projectId upsert。
type Project struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerID     string         `json:"owner_id" gorm:"type:varchar(128);index"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description,omitempty" gorm:"type:text"`
	State       *WorkflowState `json:"state" gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// CurrentStage 返回快照中的当前阶段；无状态时返回 0
func (p *Project) CurrentStage() Stage {
	if p.State == nil {
		return 0
	}
	return p.State.CurrentStage
}
