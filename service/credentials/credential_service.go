/*
 * @module service/credentials/credential_service
 * @description 上游API凭据服务，密码AES-256-GCM加密存储，密钥由主密钥PBKDF2派生
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 录入加密落库 -> 同步启动时解密 -> 凭据校验接口bcrypt比对
 * @rules 每行独立盐和nonce；PBKDF2迭代100000次SHA-512；主密钥来自环境变量，缺失时拒绝启动凭据功能
 * @dependencies golang.org/x/crypto/pbkdf2, golang.org/x/crypto/bcrypt, gorm.io/gorm
 * @refs client/sienge_client.go, api/controllers/config_controller.go
 */

package credentials

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"gorm.io/gorm"

	"datasync-service/client"
	"datasync-service/service/models"
)

const (
	pbkdf2Iterations = 100000
	keyLength        = 32 // AES-256
	saltLength       = 32
)

// ErrNoActiveCredential 没有激活的凭据
var ErrNoActiveCredential = errors.New("没有激活的API凭据")

// CredentialService 凭据服务
type CredentialService struct {
	db        *gorm.DB
	masterKey []byte
}

// NewCredentialService 创建凭据服务，masterKey为空返回错误
func NewCredentialService(db *gorm.DB, masterKey string) (*CredentialService, error) {
	if masterKey == "" {
		return nil, fmt.Errorf("加密主密钥未配置")
	}
	return &CredentialService{db: db, masterKey: []byte(masterKey)}, nil
}

// Store 加密存储一组凭据并激活，原有激活凭据自动停用
func (s *CredentialService) Store(subdomain, apiUser, password string) (*models.ApiCredential, error) {
	if subdomain == "" || apiUser == "" || password == "" {
		return nil, fmt.Errorf("凭据字段不能为空")
	}

	encrypted, iv, salt, err := s.encrypt(password)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	cred := &models.ApiCredential{
		Subdomain:         subdomain,
		APIUser:           apiUser,
		PasswordEncrypted: encrypted,
		PasswordIV:        iv,
		PasswordSalt:      salt,
		PasswordHash:      string(hash),
		IsActive:          true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ApiCredential{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(cred).Error
	})
	if err != nil {
		return nil, fmt.Errorf("凭据落库失败: %w", err)
	}

	return cred, nil
}

// Resolve 解析当前激活的凭据，实现client.CredentialProvider
func (s *CredentialService) Resolve(_ context.Context) (client.Credentials, error) {
	var cred models.ApiCredential
	err := s.db.Where("is_active = ?", true).
		Order("created_at DESC").
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return client.Credentials{}, ErrNoActiveCredential
	}
	if err != nil {
		return client.Credentials{}, fmt.Errorf("查询激活凭据失败: %w", err)
	}

	password, err := s.decrypt(cred.PasswordEncrypted, cred.PasswordIV, cred.PasswordSalt)
	if err != nil {
		return client.Credentials{}, fmt.Errorf("凭据解密失败: %w", err)
	}

	return client.Credentials{
		Subdomain: cred.Subdomain,
		Username:  cred.APIUser,
		Password:  password,
	}, nil
}

// Verify 用bcrypt哈希校验子域的密码是否正确
func (s *CredentialService) Verify(subdomain, password string) (bool, error) {
	var cred models.ApiCredential
	err := s.db.Where("subdomain = ? AND is_active = ?", subdomain, true).
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrNoActiveCredential
	}
	if err != nil {
		return false, fmt.Errorf("查询凭据失败: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("密码校验失败: %w", err)
	}
	return true, nil
}

// ActiveCredentialInfo 返回激活凭据的非敏感信息
func (s *CredentialService) ActiveCredentialInfo() (*models.ApiCredential, error) {
	var cred models.ApiCredential
	err := s.db.Where("is_active = ?", true).
		Order("created_at DESC").
		First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoActiveCredential
	}
	if err != nil {
		return nil, fmt.Errorf("查询激活凭据失败: %w", err)
	}
	cred.PasswordEncrypted = ""
	cred.PasswordIV = ""
	cred.PasswordSalt = ""
	cred.PasswordHash = ""
	return &cred, nil
}

// encrypt AES-256-GCM加密，返回hex编码的密文（含GCM认证标签）、nonce和盐
func (s *CredentialService) encrypt(plaintext string) (encrypted, ivHex, saltHex string, err error) {
	salt := make([]byte, saltLength)
	if _, err = rand.Read(salt); err != nil {
		return "", "", "", err
	}

	key := pbkdf2.Key(s.masterKey, salt, pbkdf2Iterations, keyLength, sha512.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", "", "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return "", "", "", err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(ciphertext), hex.EncodeToString(nonce), hex.EncodeToString(salt), nil
}

// decrypt AES-256-GCM解密
func (s *CredentialService) decrypt(encrypted, ivHex, saltHex string) (string, error) {
	ciphertext, err := hex.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("密文格式错误: %w", err)
	}
	nonce, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("nonce格式错误: %w", err)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("盐格式错误: %w", err)
	}

	key := pbkdf2.Key(s.masterKey, salt, pbkdf2Iterations, keyLength, sha512.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("解密或认证失败: %w", err)
	}
	return string(plaintext), nil
}
