/*
 * @module service/sync/sync_log_service
 * @description 同步日志服务，管理每个实体运行的生命周期记录
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 运行开始创建in_progress行 -> 运行结束补写计数和终态
 * @rules 结束状态写入失败只记录日志不无限重试；日志行缺失不阻断同步本身
 * @dependencies gorm.io/gorm, service/models
 * @refs service/sync/orchestrator.go, api/controllers/sync_log_controller.go
 */

package sync

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"datasync-service/service/models"
)

// SyncLogService 同步日志服务
type SyncLogService struct {
	db *gorm.DB
}

// NewSyncLogService 创建同步日志服务
func NewSyncLogService(db *gorm.DB) *SyncLogService {
	return &SyncLogService{db: db}
}

// StartRun 创建一条in_progress运行记录
func (s *SyncLogService) StartRun(entityType string) (*models.SyncLog, error) {
	log := &models.SyncLog{
		EntityType:    entityType,
		SyncStartedAt: time.Now(),
		Status:        models.SyncStatusInProgress,
	}
	if err := s.db.Create(log).Error; err != nil {
		return nil, fmt.Errorf("创建同步日志失败: %w", err)
	}
	return log, nil
}

// RunCounts 运行结束时的计数
type RunCounts struct {
	Processed int
	Inserted  int
	Updated   int
	Errors    int
	APICalls  int
}

// CompleteRun 补写运行终态，写入失败记录日志但不返回错误
func (s *SyncLogService) CompleteRun(logID uint, counts RunCounts, status, errorMessage string) {
	now := time.Now()
	err := s.db.Model(&models.SyncLog{}).
		Where("id = ?", logID).
		Updates(map[string]interface{}{
			"sync_completed_at": &now,
			"records_processed": counts.Processed,
			"records_inserted":  counts.Inserted,
			"records_updated":   counts.Updated,
			"records_errors":    counts.Errors,
			"api_calls_made":    counts.APICalls,
			"status":            status,
			"error_message":     errorMessage,
		}).Error
	if err != nil {
		slog.Error("同步日志终态写入失败",
			"sync_log_id", logID,
			"status", status,
			"error", err)
	}
}

// ListRecent 按开始时间倒序分页查询运行日志，entityType为空时不过滤
func (s *SyncLogService) ListRecent(entityType string, page, size int) ([]models.SyncLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 20
	}

	query := s.db.Model(&models.SyncLog{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计同步日志失败: %w", err)
	}

	var logs []models.SyncLog
	err := query.Order("sync_started_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&logs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询同步日志失败: %w", err)
	}
	return logs, total, nil
}

// LatestByEntity 查询每个实体最近一次运行的状态
// 通过分组子查询只取每实体最新行，结果集不随运行历史增长
func (s *SyncLogService) LatestByEntity() (map[string]models.SyncLog, error) {
	sub := s.db.Model(&models.SyncLog{}).
		Select("entity_type, MAX(sync_started_at) AS max_started_at").
		Group("entity_type")

	var logs []models.SyncLog
	err := s.db.Model(&models.SyncLog{}).
		Joins("JOIN (?) latest ON sync_logs.entity_type = latest.entity_type AND sync_logs.sync_started_at = latest.max_started_at", sub).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("查询同步日志失败: %w", err)
	}

	latest := make(map[string]models.SyncLog)
	for _, log := range logs {
		latest[log.EntityType] = log
	}
	return latest, nil
}

// HasRunInProgress 检查是否有未结束的运行
func (s *SyncLogService) HasRunInProgress() (bool, error) {
	var count int64
	err := s.db.Model(&models.SyncLog{}).
		Where("status = ?", models.SyncStatusInProgress).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("查询进行中的运行失败: %w", err)
	}
	return count > 0, nil
}
