/*
 * @module client/sienge_client
 * @description Sienge ERP REST API客户端，提供限流、重试退避、认证和编码处理
 * @architecture 分层架构 - 客户端层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 凭据解析 -> 限流准入 -> HTTP请求 -> 错误分类 -> 重试/返回
 * @rules 认证错误和4xx不重试；网络错误和5xx指数退避重试；每次调用记录结构化日志
 * @dependencies net/http, log/slog, service/utils
 * @refs client/paginator.go, service/sync/orchestrator.go
 */

package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"datasync-service/service/utils"
)

// SiengeConfig Sienge API客户端配置
type SiengeConfig struct {
	BaseURLTemplate    string        // {subdomain} 占位符由凭据中的子域替换
	PageSize           int           // 分页大小
	RateLimitPerMinute int           // 每分钟请求配额
	MaxConcurrent      int           // 并发请求上限
	RetryAttempts      int           // 最大重试次数
	RetryBaseDelay     time.Duration // 退避基础延迟，第n次重试延迟 base * 2^n
	Timeout            time.Duration // 单次请求超时
	MaxPages           int           // 单实体最大拉取页数
	MaxRecords         int           // 单实体最大拉取记录数
	FetchDeadline      time.Duration // 单实体整体拉取时限
}

// DefaultSiengeConfig 默认配置
func DefaultSiengeConfig() SiengeConfig {
	return SiengeConfig{
		BaseURLTemplate:    "https://api.sienge.com.br/{subdomain}/public/api/v1",
		PageSize:           200,
		RateLimitPerMinute: 200,
		MaxConcurrent:      1,
		RetryAttempts:      3,
		RetryBaseDelay:     time.Second,
		Timeout:            30 * time.Second,
		MaxPages:           1000,
		MaxRecords:         200000,
		FetchDeadline:      30 * time.Minute,
	}
}

// Credentials Sienge API访问凭据
type Credentials struct {
	Subdomain string
	Username  string
	Password  string
}

// CredentialProvider 凭据解析接口，由凭据服务实现
type CredentialProvider interface {
	Resolve(ctx context.Context) (Credentials, error)
}

// StaticCredentials 固定凭据提供者，测试和环境变量配置时使用
type StaticCredentials Credentials

func (s StaticCredentials) Resolve(_ context.Context) (Credentials, error) {
	if s.Subdomain == "" || s.Username == "" {
		return Credentials{}, fmt.Errorf("凭据不完整")
	}
	return Credentials(s), nil
}

// SiengeClient Sienge API客户端
type SiengeClient struct {
	cfg        SiengeConfig
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	limiter    *RateLimiter
	clock      Clock
	apiCalls   atomic.Int64
	retries    atomic.Int64
}

// NewSiengeClient 创建客户端，凭据解析失败视为致命认证错误
func NewSiengeClient(ctx context.Context, cfg SiengeConfig, provider CredentialProvider, clock Clock) (*SiengeClient, error) {
	if clock == nil {
		clock = RealClock()
	}

	creds, err := provider.Resolve(ctx)
	if err != nil {
		return nil, &AuthError{Message: fmt.Sprintf("凭据解析失败: %v", err)}
	}

	baseURL := strings.Replace(cfg.BaseURLTemplate, "{subdomain}", creds.Subdomain, 1)

	return &SiengeClient{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: NewRateLimiter(cfg.RateLimitPerMinute, time.Minute, cfg.MaxConcurrent, clock),
		clock:   clock,
	}, nil
}

// Config 返回客户端配置
func (c *SiengeClient) Config() SiengeConfig {
	return c.cfg
}

// APICallCount 返回累计API调用次数
func (c *SiengeClient) APICallCount() int64 {
	return c.apiCalls.Load()
}

// LimiterStats 返回限流器状态
func (c *SiengeClient) LimiterStats() (reservoir, inflight int) {
	return c.limiter.Stats()
}

// Get 执行GET请求，带限流准入和指数退避重试
func (c *SiengeClient) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			// 指数退避: base * 2^(attempt-1)
			delay := c.cfg.RetryBaseDelay * (1 << (attempt - 1))
			c.retries.Add(1)
			slog.Warn("Sienge API请求重试",
				"path", path,
				"attempt", attempt,
				"delay", delay.String(),
				"error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-c.clock.After(delay):
			}
		}

		body, err := c.doRequest(ctx, path, query)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("重试%d次后仍然失败: %w", c.cfg.RetryAttempts, lastErr)
}

// doRequest 执行单次请求并分类错误
func (c *SiengeClient) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.limiter.Release()

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)
	req.Header.Set("Accept", "application/json")

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	c.apiCalls.Add(1)
	latency := c.clock.Now().Sub(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("Sienge API网络错误", "path", path, "latency_ms", latency.Milliseconds(), "error", err)
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("读取响应失败: %w", err)}
	}

	slog.Debug("Sienge API请求完成",
		"method", http.MethodGet,
		"path", path,
		"status", resp.StatusCode,
		"latency_ms", latency.Milliseconds(),
		"bytes", len(body))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: truncateBody(body)}
	case resp.StatusCode >= 500:
		return nil, &ServerError{StatusCode: resp.StatusCode, Message: truncateBody(body)}
	case resp.StatusCode >= 400:
		return nil, &ClientError{StatusCode: resp.StatusCode, Message: truncateBody(body)}
	}

	// 上游历史接口返回Latin-1编码的响应体
	if isLatin1(resp.Header.Get("Content-Type")) {
		decoded, decErr := utils.DecodeLatin1(body)
		if decErr != nil {
			slog.Warn("Latin-1解码失败，使用原始响应体", "path", path, "error", decErr)
		} else {
			body = decoded
		}
	}

	return body, nil
}

// HealthCheck 探测上游API可用性
func (c *SiengeClient) HealthCheck(ctx context.Context) error {
	query := url.Values{}
	query.Set("limit", "1")
	_, err := c.Get(ctx, "/customers", query)
	return err
}

func isLatin1(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "iso-8859-1") || strings.Contains(ct, "latin1") || strings.Contains(ct, "latin-1")
}

func truncateBody(body []byte) string {
	const max = 512
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
