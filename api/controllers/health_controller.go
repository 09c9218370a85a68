/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供服务健康状态检查
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow HTTP请求处理流程
 * @rules 提供简单的健康检查接口，用于容器健康检查和负载均衡
 * @dependencies net/http
 * @refs main.go
 */

package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"datasync-service/service"
)

// HealthController 健康检查控制器
type HealthController struct{}

// NewHealthController 创建健康检查控制器实例
func NewHealthController() *HealthController {
	return &HealthController{}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string    `json:"version" example:"1.0.0"`
	Service   string    `json:"service" example:"datasync-service"`
	Database  string    `json:"database,omitempty" example:"ok"`
	Upstream  string    `json:"upstream,omitempty" example:"ok"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Service:   "datasync-service",
	}

	render.JSON(w, r, response)
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查数据库是否可用；upstream=true时额外探测上游API，探测会消耗限流配额
// @Tags 系统
// @Produce json
// @Param upstream query bool false "是否探测上游API"
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Service:   "datasync-service",
		Database:  "ok",
	}

	if sqlDB, err := service.DB.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
		response.Status = "not_ready"
		response.Database = "unreachable"
	}

	if r.URL.Query().Get("upstream") == "true" && service.GlobalFetcher != nil {
		if err := service.GlobalFetcher.HealthCheck(r.Context()); err != nil {
			// 上游不可用不阻断就绪，凭据可能尚未录入
			response.Upstream = err.Error()
		} else {
			response.Upstream = "ok"
		}
	}

	if response.Status != "ready" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, response)
}
