/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新服务自有表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 仅迁移服务自有表（同步日志、凭据）；业务实体表由独立的schema工具管理
 * @dependencies datasync-service/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"datasync-service/service/models"
	"log"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	err := db.AutoMigrate(
		&models.SyncLog{},
		&models.ApiCredential{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}
