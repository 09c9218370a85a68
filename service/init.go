/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、配置加载和全局服务装配
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务；依赖图有环时拒绝启动
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs main.go, api/routes.go
 */

package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"datasync-service/client"
	"datasync-service/logger"
	"datasync-service/service/credentials"
	"datasync-service/service/database"
	"datasync-service/service/distributed_lock"
	"datasync-service/service/meta"
	syncsvc "datasync-service/service/sync"
)

var (
	DB                      *gorm.DB
	GlobalCredentialService *credentials.CredentialService
	GlobalSyncLogService    *syncsvc.SyncLogService
	GlobalOrchestrator      *syncsvc.Orchestrator
	GlobalScheduler         *syncsvc.SyncScheduler
	GlobalRedisLock         *distributed_lock.RedisLock
	GlobalFetcher           *LazyFetcher
)

func init() {
	logger.InitLogger()
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "datasync")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 获取整型环境变量，解析失败时返回默认值
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("环境变量 %s=%q 不是合法整数，使用默认值 %d", key, os.Getenv(key), defaultValue)
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	log.Println("数据库表结构迁移完成")
}

// initServices 初始化服务
func initServices() {
	if err := meta.DefaultDependencyGraph.ValidateNoCycles(); err != nil {
		log.Fatalf("实体依赖图校验失败: %v", err)
	}

	GlobalSyncLogService = syncsvc.NewSyncLogService(DB)

	// 主密钥配置后启用数据库凭据存储，否则只能用环境变量凭据
	if masterKey := os.Getenv("CREDENTIAL_MASTER_KEY"); masterKey != "" {
		var err error
		GlobalCredentialService, err = credentials.NewCredentialService(DB, masterKey)
		if err != nil {
			log.Fatalf("凭据服务初始化失败: %v", err)
		}
	} else {
		log.Println("CREDENTIAL_MASTER_KEY未配置，凭据管理接口不可用")
	}

	GlobalFetcher = NewLazyFetcher(loadSiengeConfig(), credentialProvider())
	GlobalOrchestrator = syncsvc.NewOrchestrator(
		GlobalFetcher,
		syncsvc.NewEntityRepository(DB),
		GlobalSyncLogService,
		nil)

	if delay := getEnvInt("SYNC_PHASE_DELAY_SECONDS", 0); delay > 0 {
		GlobalOrchestrator.SetPhaseDelay(time.Duration(delay) * time.Second)
	}
	if reportDir := os.Getenv("SYNC_REPORT_DIR"); reportDir != "" {
		GlobalOrchestrator.SetReportDir(reportDir)
	}

	// Redis配置后启用分布式运行锁，多实例部署时防止并发运行
	if os.Getenv("REDIS_HOST") != "" {
		lock, err := distributed_lock.NewRedisLock()
		if err != nil {
			log.Printf("Redis分布式锁初始化失败，退化为单实例模式: %v", err)
		} else {
			GlobalRedisLock = lock
			GlobalOrchestrator.SetDistributedLock(lock)
		}
	}

	initScheduler()

	log.Println("服务初始化完成")
}

// initScheduler 初始化定时同步调度器
func initScheduler() {
	if getEnvWithDefault("SYNC_CRON_ENABLED", "true") != "true" {
		log.Println("定时同步已禁用")
		return
	}

	spec := getEnvWithDefault("SYNC_CRON", "0 2 * * *")
	GlobalScheduler = syncsvc.NewSyncScheduler(GlobalOrchestrator, spec, nil)
	if err := GlobalScheduler.Start(); err != nil {
		log.Printf("定时同步调度器启动失败: %v", err)
		GlobalScheduler = nil
	}
}

// loadSiengeConfig 从环境变量加载Sienge客户端配置
func loadSiengeConfig() client.SiengeConfig {
	cfg := client.DefaultSiengeConfig()
	if tpl := os.Getenv("SIENGE_BASE_URL_TEMPLATE"); tpl != "" {
		cfg.BaseURLTemplate = tpl
	}
	cfg.PageSize = getEnvInt("SIENGE_PAGE_SIZE", cfg.PageSize)
	cfg.RateLimitPerMinute = getEnvInt("SIENGE_RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.MaxConcurrent = getEnvInt("SIENGE_MAX_CONCURRENT", cfg.MaxConcurrent)
	cfg.RetryAttempts = getEnvInt("SIENGE_RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.MaxPages = getEnvInt("SIENGE_MAX_PAGES", cfg.MaxPages)
	cfg.MaxRecords = getEnvInt("SIENGE_MAX_RECORDS", cfg.MaxRecords)
	if seconds := getEnvInt("SIENGE_TIMEOUT_SECONDS", 0); seconds > 0 {
		cfg.Timeout = time.Duration(seconds) * time.Second
	}
	return cfg
}

// credentialProvider 组装凭据提供者：优先数据库激活凭据，其次环境变量
func credentialProvider() client.CredentialProvider {
	static := client.StaticCredentials{
		Subdomain: os.Getenv("SIENGE_SUBDOMAIN"),
		Username:  os.Getenv("SIENGE_API_USER"),
		Password:  os.Getenv("SIENGE_API_PASSWORD"),
	}
	if GlobalCredentialService == nil {
		return static
	}
	return &chainedProvider{primary: GlobalCredentialService, fallback: static}
}

// chainedProvider 凭据提供者链
type chainedProvider struct {
	primary  client.CredentialProvider
	fallback client.StaticCredentials
}

func (p *chainedProvider) Resolve(ctx context.Context) (client.Credentials, error) {
	creds, err := p.primary.Resolve(ctx)
	if err == nil {
		return creds, nil
	}
	return p.fallback.Resolve(ctx)
}

// LazyFetcher 延迟构建的上游拉取器
// 凭据可能在服务启动后才通过配置接口录入，首次拉取时才真正构建客户端
type LazyFetcher struct {
	mu       sync.Mutex
	cfg      client.SiengeConfig
	provider client.CredentialProvider
	client   *client.SiengeClient
}

// NewLazyFetcher 创建延迟拉取器
func NewLazyFetcher(cfg client.SiengeConfig, provider client.CredentialProvider) *LazyFetcher {
	return &LazyFetcher{cfg: cfg, provider: provider}
}

// FetchAllPages 实现sync.Fetcher，首次调用时构建底层客户端
func (f *LazyFetcher) FetchAllPages(ctx context.Context, endpoint string, params map[string]string) ([]map[string]interface{}, int, error) {
	c, err := f.ensureClient(ctx)
	if err != nil {
		return nil, 0, err
	}
	return c.FetchAllPages(ctx, endpoint, params)
}

// HealthCheck 探测上游API可用性
func (f *LazyFetcher) HealthCheck(ctx context.Context) error {
	c, err := f.ensureClient(ctx)
	if err != nil {
		return err
	}
	return c.HealthCheck(ctx)
}

// Reset 丢弃已构建的客户端，凭据变更后下次拉取重新构建
func (f *LazyFetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.client = nil
}

func (f *LazyFetcher) ensureClient(ctx context.Context) (*client.SiengeClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil {
		return f.client, nil
	}
	c, err := client.NewSiengeClient(ctx, f.cfg, f.provider, nil)
	if err != nil {
		return nil, err
	}
	f.client = c
	return c, nil
}
