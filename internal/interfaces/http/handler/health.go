// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"novel-journey-api/internal/infrastructure/persistence/milvus"
	"novel-journey-api/internal/infrastructure/persistence/postgres"
	"novel-journey-api/internal/infrastructure/persistence/redis"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	probes []probe
}

// probe 单个依赖的就绪探测；required 为 false 的依赖失败只降级不拦截流量
type probe struct {
	name     string
	required bool
	check    func(context.Context) error
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(pg *postgres.Client, redisClient *redis.Client, milvusClient *milvus.Client) *HealthHandler {
	h := &HealthHandler{}
	if pg != nil {
		h.probes = append(h.probes, probe{name: "postgres", required: true, check: pg.HealthCheck})
	} else {
		h.probes = append(h.probes, probe{name: "postgres", required: true})
	}
	if redisClient != nil {
		h.probes = append(h.probes, probe{name: "redis", required: true, check: redisClient.HealthCheck})
	} else {
		h.probes = append(h.probes, probe{name: "redis", required: true})
	}
	// Milvus 缺席时检索退化为全量扫描，不算不健康
	if milvusClient != nil {
		h.probes = append(h.probes, probe{name: "milvus", check: milvusClient.HealthCheck})
	}
	return h
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description 检查服务是否可以接收流量
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]*readinessCheck, len(h.probes))
	ready := true

	for _, p := range h.probes {
		result := &readinessCheck{Status: "ok"}
		checks[p.name] = result

		if p.check == nil {
			result.Status = "missing"
			result.Error = p.name + " client not configured"
			if p.required {
				ready = false
			}
			continue
		}

		start := time.Now()
		err := p.check(ctx)
		result.LatencyMs = time.Since(start).Milliseconds()
		if err == nil {
			continue
		}
		result.Error = err.Error()
		if p.required {
			result.Status = "error"
			ready = false
		} else {
			result.Status = "degraded"
		}
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}
