/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试数据库和数据工厂
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 测试库为sqlite内存库；业务实体表按端点配置动态建表
 * @dependencies gorm, sqlite, testify
 * @refs service/models, service/meta
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"datasync-service/service/meta"
	"datasync-service/service/models"
)

// TestDB 测试数据库
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建sqlite内存测试数据库并迁移服务自有表
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	err = db.AutoMigrate(
		&models.SyncLog{},
		&models.ApiCredential{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CreateEntityTables 按端点配置为指定实体建表，不传实体时为全部实体建表
func (tdb *TestDB) CreateEntityTables(entities ...string) {
	if len(entities) == 0 {
		entities = meta.ListConfiguredEntities()
	}
	for _, entity := range entities {
		cfg := meta.GetEndpointConfig(entity)
		if cfg == nil {
			panic(fmt.Sprintf("no endpoint config for entity %s", entity))
		}
		if err := tdb.DB.Exec(entityTableSQL(cfg)).Error; err != nil {
			panic(fmt.Sprintf("failed to create table %s: %v", cfg.TableName, err))
		}
	}
}

// entityTableSQL 从端点配置生成sqlite建表语句，列集合为全部目标字段
func entityTableSQL(cfg *meta.EndpointConfig) string {
	seen := map[string]bool{cfg.PrimaryKey: true}
	cols := []string{fmt.Sprintf("%s PRIMARY KEY", cfg.PrimaryKey)}
	for _, m := range cfg.FieldMappings {
		if seen[m.TargetField] {
			continue
		}
		seen[m.TargetField] = true
		cols = append(cols, m.TargetField)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", cfg.TableName, strings.Join(cols, ", "))
}

// CleanDB 清空全部表数据
func (tdb *TestDB) CleanDB() {
	tables := []string{"sync_logs", "api_credentials"}
	for _, entity := range meta.ListConfiguredEntities() {
		tables = append(tables, meta.GetEndpointConfig(entity).TableName)
	}
	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// SyncLogOption 同步日志选项函数类型
type SyncLogOption func(*models.SyncLog)

// CreateSyncLog 创建测试同步日志
func (f *TestDataFactory) CreateSyncLog(entityType string, opts ...SyncLogOption) *models.SyncLog {
	log := &models.SyncLog{
		EntityType:    entityType,
		SyncStartedAt: time.Now(),
		Status:        models.SyncStatusInProgress,
	}

	for _, opt := range opts {
		opt(log)
	}

	if err := f.DB.Create(log).Error; err != nil {
		panic(fmt.Sprintf("failed to create test sync log: %v", err))
	}
	return log
}

// InsertEntityRow 直接向实体表插入一行，用于准备引用数据
func (f *TestDataFactory) InsertEntityRow(entity string, row map[string]interface{}) {
	cfg := meta.GetEndpointConfig(entity)
	if cfg == nil {
		panic(fmt.Sprintf("no endpoint config for entity %s", entity))
	}
	if err := f.DB.Table(cfg.TableName).Create(row).Error; err != nil {
		panic(fmt.Sprintf("failed to insert row into %s: %v", cfg.TableName, err))
	}
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
