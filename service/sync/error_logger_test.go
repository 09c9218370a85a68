/*
 * @module service/sync/error_logger_test
 * @description 错误聚合器单元测试
 * @architecture 测试层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 记录错误 -> 分类断言 -> 汇总与报告断言
 * @rules 覆盖类型断言分类、消息模式分类、样例和严重错误截断
 * @dependencies testify, github.com/lib/pq
 * @refs service/sync/error_logger.go
 */

package sync

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasync-service/client"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"认证错误", &client.AuthError{StatusCode: 401, Message: "unauthorized"}, ErrTypeAuthentication},
		{"网络错误", &client.NetworkError{Err: errors.New("connection refused")}, ErrTypeNetwork},
		{"网络超时归入超时类", &client.NetworkError{Err: errors.New("context deadline exceeded")}, ErrTypeTimeout},
		{"上游服务端错误", &client.ServerError{StatusCode: 502, Message: "bad gateway"}, ErrTypeUpstreamServer},
		{"上游客户端错误", &client.ClientError{StatusCode: 404, Message: "not found"}, ErrTypeUpstreamClient},
		{"映射错误", &MappingError{Entity: "customers", Field: "name", Reason: "必填字段缺失"}, ErrTypeMapping},
		{"引用错误", &ReferenceError{Entity: "units", Column: "id_contrato", RefEntity: "sales-contracts", RefValue: 9}, ErrTypeReference},
		{"pq外键错误码", &pq.Error{Code: "23503"}, ErrTypeForeignKey},
		{"pq唯一约束错误码", &pq.Error{Code: "23505"}, ErrTypeUnique},
		{"pq非空约束错误码", &pq.Error{Code: "23502"}, ErrTypeNotNull},
		{"唯一约束消息", errors.New(`pq: duplicate key value violates unique constraint "clientes_pkey"`), ErrTypeUnique},
		{"sqlite唯一约束消息", errors.New("UNIQUE constraint failed: clientes.id_cliente"), ErrTypeUnique},
		{"外键约束消息", errors.New("insert or update violates foreign key constraint"), ErrTypeForeignKey},
		{"非空列消息", errors.New(`pq: null value in column "nome_completo"`), ErrTypeNotNull},
		{"sqlite非空约束消息", errors.New("NOT NULL constraint failed: clientes.nome_completo"), ErrTypeNotNull},
		{"连接被拒消息", errors.New("dial tcp: connection refused"), ErrTypeConnection},
		{"超时消息", errors.New("request timed out after 30s"), ErrTypeTimeout},
		{"校验消息", errors.New("invalid value for field status"), ErrTypeValidation},
		{"未知错误", errors.New("something completely different"), ErrTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyError(tt.err))
			// 同一输入重复分类结果一致
			assert.Equal(t, tt.expected, ClassifyError(tt.err))
		})
	}
}

func TestClassifyError_包装错误仍按类型分类(t *testing.T) {
	wrapped := fmt.Errorf("同步customers失败: %w", &client.AuthError{StatusCode: 403, Message: "forbidden"})
	assert.Equal(t, ErrTypeAuthentication, ClassifyError(wrapped))
}

func TestErrorLogger_汇总统计(t *testing.T) {
	el := NewErrorLogger()

	for i := 0; i < 5; i++ {
		el.LogError("customers", fmt.Sprintf("%d", i),
			errors.New(`pq: duplicate key value violates unique constraint "clientes_pkey"`))
	}
	el.LogError("units", "10", &ReferenceError{Entity: "units", Column: "id_contrato", RefEntity: "sales-contracts", RefValue: 42})
	el.LogError("companies", "20", errors.New("dial tcp: connection refused"))

	assert.Equal(t, 7, el.Count())
	assert.Equal(t, 5, el.CountByEntity("customers"))

	summary := el.Summary()
	assert.Equal(t, 7, summary.TotalErrors)
	assert.Equal(t, 5, summary.ByType[ErrTypeUnique])
	assert.Equal(t, 1, summary.ByType[ErrTypeReference])
	assert.Equal(t, 1, summary.ByType[ErrTypeConnection])
	assert.Equal(t, 5, summary.ByEntity["customers"])

	// 每个模式最多保留3个样例
	require.NotNil(t, summary.Patterns[ErrTypeUnique])
	assert.Equal(t, 5, summary.Patterns[ErrTypeUnique].Count)
	assert.Len(t, summary.Patterns[ErrTypeUnique].Examples, 3)

	// 连接错误属于严重错误
	require.Len(t, summary.Critical, 1)
	assert.Equal(t, ErrTypeConnection, summary.Critical[0].Type)
}

func TestErrorLogger_严重错误最多保留10条(t *testing.T) {
	el := NewErrorLogger()
	for i := 0; i < 15; i++ {
		el.LogError("customers", fmt.Sprintf("%d", i), errors.New("dial tcp: connection refused"))
	}

	summary := el.Summary()
	assert.Equal(t, 15, summary.TotalErrors)
	assert.Len(t, summary.Critical, 10)
}

func TestErrorLogger_报告格式(t *testing.T) {
	el := NewErrorLogger()
	assert.Contains(t, el.FormatReport(), "无错误")

	el.LogError("customers", "1", errors.New(`pq: duplicate key value violates unique constraint "clientes_pkey"`))
	el.LogError("customers", "2", errors.New(`pq: duplicate key value violates unique constraint "clientes_pkey"`))
	el.LogError("units", "3", &ReferenceError{Entity: "units", Column: "id_contrato", RefEntity: "sales-contracts", RefValue: 7})

	report := el.FormatReport()
	assert.Contains(t, report, "错误总数: 3")
	assert.Contains(t, report, ErrTypeUnique)
	assert.Contains(t, report, "customers")
	assert.Contains(t, report, "units")
	assert.Contains(t, report, "处置建议")
	assert.Contains(t, report, remediationHints[ErrTypeUnique])

	// 按实体条形图：customers占3个错误中的2个，条形长度为20
	assert.Contains(t, report, fmt.Sprintf("  %-32s %s 2", "customers", strings.Repeat("█", 20)))

	// 高频模式带样例消息
	assert.Contains(t, report, "常见错误模式")
	assert.Contains(t, report, fmt.Sprintf("%s (2次)", ErrTypeUnique))
	assert.Contains(t, report, `    - pq: duplicate key value violates unique constraint "clientes_pkey"`)
}

func TestErrorLogger_落盘(t *testing.T) {
	dir := t.TempDir()

	// 无错误不产生文件
	el := NewErrorLogger()
	path, err := el.SaveToFile(dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	el.LogError("customers", "1", errors.New("something failed"))
	path, err = el.SaveToFile(dir)
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.True(t, strings.HasPrefix(path, dir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"total_errors": 1`)
}
