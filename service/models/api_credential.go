/*
 * @module service/models/api_credential
 * @description 上游API凭据模型，密码以AES-256-GCM加密存储，盐和IV按行独立
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 凭据录入 -> 加密落库 -> 同步启动时解密使用
 * @rules 同一时刻最多一条激活凭据；密文、IV、盐均为hex编码；明文密码永不落库
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/credentials/credential_service.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiCredential 上游API访问凭据
type ApiCredential struct {
	ID                string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Subdomain         string    `json:"subdomain" gorm:"not null;size:100" example:"minha-construtora"`
	APIUser           string    `json:"api_user" gorm:"not null;size:100" example:"svc-integracao"`
	PasswordEncrypted string    `json:"-" gorm:"not null;type:text"`       // AES-256-GCM密文（含认证标签），hex编码
	PasswordIV        string    `json:"-" gorm:"not null;size:64"`         // GCM nonce，hex编码
	PasswordSalt      string    `json:"-" gorm:"not null;size:128"`        // PBKDF2盐，hex编码
	PasswordHash      string    `json:"-" gorm:"not null;type:text"`       // bcrypt哈希，凭据校验接口使用
	IsActive          bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt         time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName 指定表名
func (ApiCredential) TableName() string {
	return "api_credentials"
}

// BeforeCreate GORM钩子，创建前生成UUID
func (c *ApiCredential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
