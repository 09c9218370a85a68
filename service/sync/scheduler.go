/*
 * @module service/sync/scheduler
 * @description 定时同步调度器，按cron表达式触发全量实体同步
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 启动注册cron任务 -> 到点触发全量同步 -> 运行冲突时跳过本轮
 * @rules 同一时刻只允许一个调度触发的运行；触发失败只记录日志，等待下一轮
 * @dependencies github.com/robfig/cron/v3
 * @refs service/init.go, service/sync/orchestrator.go
 */

package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"datasync-service/service/meta"
)

// SyncScheduler 定时同步调度器
type SyncScheduler struct {
	cron         *cron.Cron
	orchestrator *Orchestrator
	spec         string
	entities     []string
	entryID      cron.EntryID
}

// NewSyncScheduler 创建调度器
// spec 为cron表达式；entities为空时同步全部已配置实体
func NewSyncScheduler(orchestrator *Orchestrator, spec string, entities []string) *SyncScheduler {
	return &SyncScheduler{
		cron:         cron.New(),
		orchestrator: orchestrator,
		spec:         spec,
		entities:     entities,
	}
}

// Start 注册并启动定时任务
func (s *SyncScheduler) Start() error {
	entryID, err := s.cron.AddFunc(s.spec, s.runScheduledSync)
	if err != nil {
		return err
	}
	s.entryID = entryID
	s.cron.Start()
	slog.Info("定时同步调度器已启动", "cron", s.spec, "entities", s.targetEntities())
	return nil
}

// Stop 停止调度器，等待进行中的触发结束
func (s *SyncScheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		slog.Warn("调度器停止等待超时")
	}
}

// NextRun 下一次触发时间
func (s *SyncScheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

func (s *SyncScheduler) targetEntities() []string {
	if len(s.entities) > 0 {
		return s.entities
	}
	return meta.ListConfiguredEntities()
}

func (s *SyncScheduler) runScheduledSync() {
	slog.Info("定时同步触发")

	result, err := s.orchestrator.RunSync(context.Background(), SyncRequest{
		Entities: s.targetEntities(),
	})
	if err != nil {
		if errors.Is(err, ErrSyncAlreadyRunning) {
			slog.Warn("已有同步运行在进行中，跳过本轮定时同步")
			return
		}
		slog.Error("定时同步失败", "error", err)
		return
	}

	slog.Info("定时同步完成",
		"run_id", result.RunID,
		"processed", result.Totals.Processed,
		"errors", result.Totals.Errors)
}
