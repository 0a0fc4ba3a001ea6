// Package entity 定义领域实体
package entity

// ModelDescriptor 生成模型的静态描述；启动时加载，不可变
type ModelDescriptor struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	RequiresKey       bool   `json:"requires_key"`
	APIKeyPlaceholder string `json:"api_key_placeholder,omitempty"`
}

// DefaultModelCatalog 内置模型目录
func DefaultModelCatalog() []ModelDescriptor {
	return []ModelDescriptor{
		{ID: "default-model", Name: "Default (balanced)", Description: "Balanced model for general use", RequiresKey: false},
		{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", Description: "Very fast, ideal for quick idea and chapter generation", RequiresKey: true, APIKeyPlaceholder: "Enter Gemini API key"},
		{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Description: "Advanced Google model with strong comprehension", RequiresKey: true, APIKeyPlaceholder: "Enter Gemini API key"},
		{ID: "gpt-4o", Name: "GPT-4o", Description: "OpenAI multimodal flagship", RequiresKey: true, APIKeyPlaceholder: "Enter OpenAI API key"},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", Description: "High quality, best for plot complexity and style analysis", RequiresKey: true, APIKeyPlaceholder: "Enter OpenAI API key"},
		{ID: "claude-3-opus", Name: "Claude 3 Opus", Description: "Anthropic flagship, excellent contextual reasoning", RequiresKey: true, APIKeyPlaceholder: "Enter Claude API key"},
		{ID: "claude-3-sonnet", Name: "Claude 3 Sonnet", Description: "Balanced Anthropic model", RequiresKey: true, APIKeyPlaceholder: "Enter Claude API key"},
		{ID: "claude-3-haiku", Name: "Claude 3 Haiku", Description: "Fastest Anthropic model, ideal for quick tasks", RequiresKey: true, APIKeyPlaceholder: "Enter Claude API key"},
		{ID: "llama-3-8b", Name: "Llama 3 (8B)", Description: "Open Meta model for lightweight tasks", RequiresKey: false},
		{ID: "llama-3-70b", Name: "Llama 3 (70B)", Description: "Large open Meta model", RequiresKey: false},
	}
}

// FindModelDescriptor 按 ID 查找模型描述；未找到返回 nil
func FindModelDescriptor(catalog []ModelDescriptor, id string) *ModelDescriptor {
	for i := range catalog {
		if catalog[i].ID == id {
			return &catalog[i]
		}
	}
	return nil
}
