/*
 * @module api/controllers/sync_controller
 * @description 同步运行控制器，提供触发、取消和状态查询接口
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow HTTP请求 -> 参数验证 -> 编排器调用 -> 响应返回
 * @rules 同一时刻只允许一个同步运行；后台模式立即返回运行受理结果
 * @dependencies service/sync, service/meta
 * @refs api/routes.go
 */

package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"datasync-service/service"
	"datasync-service/service/meta"
	syncsvc "datasync-service/service/sync"
)

// SyncController 同步运行控制器
type SyncController struct {
	orchestrator *syncsvc.Orchestrator
	logService   *syncsvc.SyncLogService
}

// NewSyncController 创建同步运行控制器
func NewSyncController() *SyncController {
	return &SyncController{
		orchestrator: service.GlobalOrchestrator,
		logService:   service.GlobalSyncLogService,
	}
}

// SyncRunRequest 触发同步请求
type SyncRunRequest struct {
	Entities   []string                     `json:"entities" binding:"required,min=1" example:"[\"customers\",\"sales-contracts\"]"`
	Params     map[string]map[string]string `json:"params,omitempty"` // 实体 -> 透传给上游API的查询参数
	Background bool                         `json:"background,omitempty" example:"false"`
}

// RunSync 触发同步运行
// @Summary 触发同步运行
// @Description 按依赖顺序同步指定实体，自动展开传递依赖
// @Description
// @Description **同步阶段:**
// @Description - 1: 独立实体（customers, companies等）
// @Description - 2: 基础依赖（enterprises, projects）
// @Description - 3: 复杂依赖（sales-contracts, units, 财务数据）
// @Description - 4: 关联数据（sales-commissions）
// @Description
// @Description background=true时立即返回，结果通过同步日志查询
// @Tags 同步管理
// @Accept json
// @Produce json
// @Param request body SyncRunRequest true "同步请求"
// @Success 200 {object} APIResponse{data=sync.RunResult} "同步完成"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 409 {object} APIResponse "已有同步运行在进行中"
// @Router /sync/run [post]
func (c *SyncController) RunSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数解析失败", err.Error()))
		return
	}
	if len(req.Entities) == 0 {
		render.JSON(w, r, BadRequestResponse("entities不能为空", nil))
		return
	}
	for _, entity := range req.Entities {
		if !meta.HasEndpointConfig(entity) {
			render.JSON(w, r, BadRequestResponse("实体没有端点配置: "+entity, nil))
			return
		}
	}

	syncReq := syncsvc.SyncRequest{Entities: req.Entities, Params: req.Params}

	if req.Background {
		go func() {
			if _, err := c.orchestrator.RunSync(context.Background(), syncReq); err != nil {
				slog.Error("后台同步运行失败", "entities", req.Entities, "error", err)
			}
		}()
		render.JSON(w, r, SuccessResponse("同步已在后台启动", map[string]interface{}{
			"entities": req.Entities,
		}))
		return
	}

	result, err := c.orchestrator.RunSync(r.Context(), syncReq)
	if errors.Is(err, syncsvc.ErrSyncAlreadyRunning) {
		render.JSON(w, r, ConflictResponse(err.Error(), nil))
		return
	}
	if err != nil && result == nil {
		render.JSON(w, r, InternalErrorResponse("同步运行失败: "+err.Error(), nil))
		return
	}

	render.JSON(w, r, SuccessResponse("同步完成", result))
}

// CancelRun 取消指定同步运行
// @Summary 取消同步运行
// @Description 取消进行中的同步运行，取消在页和记录边界生效
// @Tags 同步管理
// @Produce json
// @Param run_id path string true "运行ID"
// @Success 200 {object} APIResponse "取消成功"
// @Failure 404 {object} APIResponse "运行不存在或已结束"
// @Router /sync/runs/{run_id}/cancel [post]
func (c *SyncController) CancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if runID == "" {
		render.JSON(w, r, BadRequestResponse("run_id参数不能为空", nil))
		return
	}

	if !c.orchestrator.Cancel(runID) {
		render.JSON(w, r, NotFoundResponse("运行不存在或已结束", nil))
		return
	}
	render.JSON(w, r, SuccessResponse("取消成功", nil))
}

// StopAll 取消全部进行中的运行
// @Summary 取消全部同步运行
// @Tags 同步管理
// @Produce json
// @Success 200 {object} APIResponse "取消结果"
// @Router /sync/stop [post]
func (c *SyncController) StopAll(w http.ResponseWriter, r *http.Request) {
	n := c.orchestrator.CancelAll()
	render.JSON(w, r, SuccessResponse("取消完成", map[string]interface{}{"cancelled": n}))
}

// GetStatus 查询同步状态
// @Summary 查询同步状态
// @Description 返回进行中的运行和每个实体最近一次运行的状态
// @Tags 同步管理
// @Produce json
// @Success 200 {object} APIResponse "同步状态"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/status [get]
func (c *SyncController) GetStatus(w http.ResponseWriter, r *http.Request) {
	latest, err := c.logService.LatestByEntity()
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询同步状态失败: "+err.Error(), nil))
		return
	}

	status := map[string]interface{}{
		"running_runs": c.orchestrator.RunningRuns(),
		"entities":     latest,
	}
	if service.GlobalScheduler != nil {
		status["next_scheduled_run"] = service.GlobalScheduler.NextRun()
	}

	render.JSON(w, r, SuccessResponse("查询成功", status))
}

// ListEntities 查询可同步的实体
// @Summary 查询可同步的实体
// @Description 返回全部已配置实体及其端点、目标表、阶段和依赖
// @Tags 同步管理
// @Produce json
// @Success 200 {object} APIResponse "实体列表"
// @Router /sync/entities [get]
func (c *SyncController) ListEntities(w http.ResponseWriter, r *http.Request) {
	type entityInfo struct {
		Entity      string   `json:"entity"`
		APIEndpoint string   `json:"api_endpoint"`
		TableName   string   `json:"table_name"`
		Phase       int      `json:"phase"`
		DependsOn   []string `json:"depends_on,omitempty"`
	}

	entities := make([]entityInfo, 0)
	for _, name := range meta.ListConfiguredEntities() {
		cfg := meta.GetEndpointConfig(name)
		entities = append(entities, entityInfo{
			Entity:      name,
			APIEndpoint: cfg.APIEndpoint,
			TableName:   cfg.TableName,
			Phase:       meta.DefaultDependencyGraph.Phase(name),
			DependsOn:   meta.DefaultDependencyGraph.DirectDependencies(name),
		})
	}

	render.JSON(w, r, SuccessResponse("查询成功", entities))
}
