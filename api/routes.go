/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers
 */

package api

import (
	"datasync-service/api/controllers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 同步管理
	r.Route("/sync", func(r chi.Router) {
		syncController := controllers.NewSyncController()
		syncLogController := controllers.NewSyncLogController()

		// 触发同步运行
		r.Post("/run", syncController.RunSync)

		// 取消指定运行
		r.Post("/runs/{run_id}/cancel", syncController.CancelRun)

		// 取消全部进行中的运行
		r.Post("/stop", syncController.StopAll)

		// 同步状态查询
		r.Get("/status", syncController.GetStatus)

		// 可同步实体查询
		r.Get("/entities", syncController.ListEntities)

		// 同步日志分页查询
		r.Get("/logs", syncLogController.ListLogs)
	})

	// 配置管理
	r.Route("/config", func(r chi.Router) {
		configController := controllers.NewConfigController()

		r.Route("/credentials", func(r chi.Router) {
			r.Post("/", configController.StoreCredential)
			r.Get("/", configController.GetActiveCredential)
			r.Post("/verify", configController.VerifyCredential)
		})
	})
}
