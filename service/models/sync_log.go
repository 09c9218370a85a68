/*
 * @module service/models/sync_log
 * @description 同步运行日志模型，每个实体的一次同步运行对应一行
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow in_progress -> completed / completed_with_errors / failed / cancelled
 * @rules 运行开始即落库，结束时补写计数和状态；completed_with_errors表示部分记录失败
 * @dependencies gorm.io/gorm
 * @refs service/sync/sync_log_service.go, service/sync/orchestrator.go
 */

package models

import (
	"time"
)

// 同步运行状态
const (
	SyncStatusInProgress          = "in_progress"
	SyncStatusCompleted           = "completed"
	SyncStatusCompletedWithErrors = "completed_with_errors"
	SyncStatusFailed              = "failed"
	SyncStatusCancelled           = "cancelled"
)

// SyncLog 同步运行日志
type SyncLog struct {
	ID               uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	EntityType       string     `json:"entity_type" gorm:"not null;size:50;index" example:"customers"`
	SyncStartedAt    time.Time  `json:"sync_started_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	SyncCompletedAt  *time.Time `json:"sync_completed_at,omitempty"`
	RecordsProcessed int        `json:"records_processed" gorm:"default:0" example:"120"`
	RecordsInserted  int        `json:"records_inserted" gorm:"default:0" example:"100"`
	RecordsUpdated   int        `json:"records_updated" gorm:"default:0" example:"18"`
	RecordsErrors    int        `json:"records_errors" gorm:"default:0" example:"2"`
	APICallsMade     int        `json:"api_calls_made" gorm:"default:0" example:"3"`
	Status           string     `json:"status" gorm:"not null;size:30;default:'in_progress';index" example:"completed"`
	ErrorMessage     string     `json:"error_message,omitempty" gorm:"type:text"`
}

// TableName 指定表名
func (SyncLog) TableName() string {
	return "sync_logs"
}

// IsFinished 判断运行是否已结束
func (sl *SyncLog) IsFinished() bool {
	finished := map[string]bool{
		SyncStatusCompleted:           true,
		SyncStatusCompletedWithErrors: true,
		SyncStatusFailed:              true,
		SyncStatusCancelled:           true,
	}
	return finished[sl.Status]
}

// HasErrors 判断运行是否有记录级错误
func (sl *SyncLog) HasErrors() bool {
	return sl.RecordsErrors > 0 || sl.Status == SyncStatusFailed
}

// Duration 获取运行时长
func (sl *SyncLog) Duration() *time.Duration {
	if sl.SyncCompletedAt == nil {
		return nil
	}
	d := sl.SyncCompletedAt.Sub(sl.SyncStartedAt)
	return &d
}

// IsValidSyncStatus 校验同步状态值
func IsValidSyncStatus(status string) bool {
	valid := map[string]bool{
		SyncStatusInProgress:          true,
		SyncStatusCompleted:           true,
		SyncStatusCompletedWithErrors: true,
		SyncStatusFailed:              true,
		SyncStatusCancelled:           true,
	}
	return valid[status]
}
