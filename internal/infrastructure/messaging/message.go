// Package messaging 基于 Redis Streams 实现异步消息
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"novel-journey-api/internal/domain/entity"
)

// Message 消息结构
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	ProjectID string            `json:"project_id"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建新消息，payload 序列化为 JSON 随消息入流
func NewMessage(id, msgType, projectID string, payload interface{}) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message payload: %w", err)
	}

	return &Message{
		ID:        id,
		Type:      msgType,
		ProjectID: projectID,
		Payload:   raw,
		Metadata:  make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// GetMetadata 获取元数据
func (m *Message) GetMetadata(key string) string {
	if m.Metadata == nil {
		return ""
	}
	return m.Metadata[key]
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(m.Payload, v)
}

// MsgTypeMemoryUpdate 章节记忆写回消息类型
const MsgTypeMemoryUpdate = "memory_update"

// MemoryUpdateMessage 章节记忆写回消息：
// 章节定稿后投递，由 memory-worker 向量化并入库。
type MemoryUpdateMessage struct {
	ProjectID     string                   `json:"project_id"`
	ChapterNumber int                      `json:"chapter_number"`
	Content       string                   `json:"content"`
	Summary       entity.StructuredSummary `json:"summary"`
}

// Stream 流定义
type Stream string

const (
	StreamMemoryUpdate Stream = "stream:memory:update"
)

// DLQStream 获取对应的死信队列流名称
func (s Stream) DLQStream() string {
	return "dlq:" + string(s)
}

// ConsumerGroup 消费者组定义
type ConsumerGroup string

const (
	ConsumerGroupMemWriter ConsumerGroup = "cg-mem-writer"
)

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultBackoffConfig 默认退避配置
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    time.Second,
		Max:        time.Minute,
		Multiplier: 2,
	}
}

// CalculateBackoff 计算第 retryCount 次重试前的等待时间，指数增长封顶于 Max
func (c BackoffConfig) CalculateBackoff(retryCount int) time.Duration {
	wait := c.Initial
	for ; retryCount > 0 && wait < c.Max; retryCount-- {
		wait = time.Duration(float64(wait) * c.Multiplier)
	}
	return min(wait, c.Max)
}
