/*
 * @module client/errors
 * @description 上游API错误分类，区分认证失败、客户端错误、服务端错误和网络错误
 * @architecture 分层架构 - 客户端层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 请求失败 -> 按状态码/错误类型分类 -> 重试决策
 * @rules 401/403和凭据解析失败为致命错误；仅网络错误和5xx可重试；其余4xx不重试
 * @dependencies 无
 * @refs client/sienge_client.go, service/sync/error_logger.go
 */

package client

import (
	"errors"
	"fmt"
)

// AuthError 认证错误，致命，立即终止该实体的同步
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("认证失败 (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("认证失败: %s", e.Message)
}

// ClientError 客户端错误（除认证外的4xx），不重试
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("上游客户端错误 (HTTP %d): %s", e.StatusCode, e.Message)
}

// ServerError 服务端错误（5xx），可重试
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("上游服务端错误 (HTTP %d): %s", e.StatusCode, e.Message)
}

// NetworkError 网络错误（连接失败、超时），可重试
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("网络请求失败: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	var serverErr *ServerError
	var netErr *NetworkError
	return errors.As(err, &serverErr) || errors.As(err, &netErr)
}

// IsFatalAuth 判断是否为致命认证错误
func IsFatalAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
