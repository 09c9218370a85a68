/*
 * @module api/controllers/sync_log_controller
 * @description 同步日志控制器，提供运行历史的分页查询
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow HTTP请求 -> 参数验证 -> 日志服务调用 -> 响应返回
 * @rules 按开始时间倒序返回；entity_type为空时不过滤
 * @dependencies service/sync
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"datasync-service/service"
	syncsvc "datasync-service/service/sync"
)

// SyncLogController 同步日志控制器
type SyncLogController struct {
	logService *syncsvc.SyncLogService
}

// NewSyncLogController 创建同步日志控制器
func NewSyncLogController() *SyncLogController {
	return &SyncLogController{
		logService: service.GlobalSyncLogService,
	}
}

// ListLogs 分页查询同步日志
// @Summary 分页查询同步日志
// @Description 按开始时间倒序返回同步运行日志
// @Tags 同步日志
// @Produce json
// @Param entity_type query string false "按实体过滤" example(customers)
// @Param page query int false "页码，从1开始" example(1)
// @Param size query int false "每页数量" example(20)
// @Success 200 {object} PaginatedResponse{data=[]models.SyncLog} "查询成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /sync/logs [get]
func (c *SyncLogController) ListLogs(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	logs, total, err := c.logService.ListRecent(entityType, page, size)
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("查询同步日志失败: "+err.Error(), nil))
		return
	}

	render.JSON(w, r, SuccessPaginatedResponse("查询成功", logs, total, page, size))
}
