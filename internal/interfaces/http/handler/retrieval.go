// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"novel-journey-api/internal/application/memory"
	"novel-journey-api/internal/interfaces/http/dto"
)

// RetrievalHandler 记忆检索调试处理器
type RetrievalHandler struct {
	store *memory.Store
}

// NewRetrievalHandler 创建检索处理器
func NewRetrievalHandler(store *memory.Store) *RetrievalHandler {
	return &RetrievalHandler{store: store}
}

// Search 记忆检索
// @Summary 按查询文本检索相关章节记忆
// @Tags Retrieval
// @Accept json
// @Produce json
// @Param pid path string true "项目 ID"
// @Param body body dto.MemorySearchRequest true "检索参数"
// @Success 200 {object} dto.Response[dto.MemorySearchResponse]
// @Router /v1/projects/{pid}/memory/search [post]
func (h *RetrievalHandler) Search(c *gin.Context) {
	var req dto.MemorySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	hits, err := h.store.RetrieveRelevant(c.Request.Context(), c.Param("pid"), req.Query, req.Limit)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	dto.Success(c, dto.ToMemorySearchResponse(hits))
}
