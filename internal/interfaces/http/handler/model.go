// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"novel-journey-api/internal/domain/entity"
	"novel-journey-api/internal/interfaces/http/dto"
)

// ModelHandler 模型目录处理器
type ModelHandler struct {
	catalog []entity.ModelDescriptor
}

// NewModelHandler 创建模型目录处理器
func NewModelHandler() *ModelHandler {
	return &ModelHandler{catalog: entity.DefaultModelCatalog()}
}

// ListModels 获取可用模型目录
// @Summary 获取可选生成模型列表
// @Tags Models
// @Produce json
// @Success 200 {object} dto.Response[dto.ModelCatalogResponse]
// @Router /v1/models [get]
func (h *ModelHandler) ListModels(c *gin.Context) {
	dto.Success(c, dto.ModelCatalogResponse{Models: h.catalog})
}
