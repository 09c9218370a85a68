/*
 * @module service/sync/repository
 * @description 实体仓储，按端点配置对动态表执行查存更插和外键引用校验
 * @architecture 数据访问层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 引用校验 -> 主键查询 -> 存在则更新/不存在则插入
 * @rules 引用缺失按规则置空或拒绝；upsert以配置的主键列判定存在性；同一记录重复同步不产生重复行
 * @dependencies gorm.io/gorm, service/meta
 * @refs service/sync/orchestrator.go
 */

package sync

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"datasync-service/service/meta"
)

// ReferenceError 外键引用缺失且策略为fail时的记录级错误
type ReferenceError struct {
	Entity    string
	Column    string
	RefEntity string
	RefValue  interface{}
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("引用实体不存在 [%s.%s -> %s=%v]", e.Entity, e.Column, e.RefEntity, e.RefValue)
}

// EntityRepository 实体仓储
type EntityRepository struct {
	db *gorm.DB
}

// NewEntityRepository 创建实体仓储
func NewEntityRepository(db *gorm.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// Exists 检查实体表中主键值是否存在
func (r *EntityRepository) Exists(cfg *meta.EndpointConfig, pkValue interface{}) (bool, error) {
	var count int64
	err := r.db.Table(cfg.TableName).
		Where(fmt.Sprintf("%s = ?", cfg.PrimaryKey), pkValue).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("查询 %s 失败: %w", cfg.TableName, err)
	}
	return count > 0, nil
}

// ResolveReferences 按引用规则校验外键
// null策略：引用行不存在时置空外键并告警；fail策略：返回ReferenceError拒绝记录
func (r *EntityRepository) ResolveReferences(cfg *meta.EndpointConfig, row map[string]interface{}) error {
	for _, rule := range cfg.References {
		value, ok := row[rule.Column]
		if !ok || value == nil {
			continue
		}

		refCfg := meta.GetEndpointConfig(rule.Entity)
		if refCfg == nil {
			return fmt.Errorf("引用规则指向未配置的实体 %s", rule.Entity)
		}

		exists, err := r.Exists(refCfg, value)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		switch rule.OnMissing {
		case meta.OnMissingNull:
			slog.Warn("引用实体不存在，外键置空",
				"entity", cfg.Entity,
				"column", rule.Column,
				"ref_entity", rule.Entity,
				"ref_value", value)
			row[rule.Column] = nil
		case meta.OnMissingFail:
			return &ReferenceError{
				Entity:    cfg.Entity,
				Column:    rule.Column,
				RefEntity: rule.Entity,
				RefValue:  value,
			}
		default:
			return fmt.Errorf("未知的引用缺失策略 %q", rule.OnMissing)
		}
	}
	return nil
}

// UpsertResult upsert操作结果
type UpsertResult string

const (
	UpsertInserted UpsertResult = "inserted"
	UpsertUpdated  UpsertResult = "updated"
)

// Upsert 按主键查存更插一条映射后的记录
func (r *EntityRepository) Upsert(cfg *meta.EndpointConfig, row map[string]interface{}) (UpsertResult, error) {
	pkValue, ok := row[cfg.PrimaryKey]
	if !ok || pkValue == nil {
		return "", &MappingError{Entity: cfg.Entity, Field: cfg.PrimaryKey, Reason: "主键值缺失"}
	}

	exists, err := r.Exists(cfg, pkValue)
	if err != nil {
		return "", err
	}

	if exists {
		updates := make(map[string]interface{}, len(row))
		for k, v := range row {
			if k == cfg.PrimaryKey {
				continue
			}
			updates[k] = v
		}
		if len(updates) == 0 {
			return UpsertUpdated, nil
		}
		err = r.db.Table(cfg.TableName).
			Where(fmt.Sprintf("%s = ?", cfg.PrimaryKey), pkValue).
			Updates(updates).Error
		if err != nil {
			return "", fmt.Errorf("更新 %s#%v 失败: %w", cfg.TableName, pkValue, err)
		}
		return UpsertUpdated, nil
	}

	insert := make(map[string]interface{}, len(row))
	for k, v := range row {
		insert[k] = v
	}
	if err := r.db.Table(cfg.TableName).Create(insert).Error; err != nil {
		return "", fmt.Errorf("插入 %s#%v 失败: %w", cfg.TableName, pkValue, err)
	}
	return UpsertInserted, nil
}

// FindByPrimaryKey 按主键查询一行，不存在返回nil
func (r *EntityRepository) FindByPrimaryKey(cfg *meta.EndpointConfig, pkValue interface{}) (map[string]interface{}, error) {
	row := make(map[string]interface{})
	err := r.db.Table(cfg.TableName).
		Where(fmt.Sprintf("%s = ?", cfg.PrimaryKey), pkValue).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询 %s#%v 失败: %w", cfg.TableName, pkValue, err)
	}
	return row, nil
}

// CountByTable 统计实体表行数
func (r *EntityRepository) CountByTable(cfg *meta.EndpointConfig) (int64, error) {
	var count int64
	err := r.db.Table(cfg.TableName).Count(&count).Error
	return count, err
}
