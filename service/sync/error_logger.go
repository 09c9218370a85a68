/*
 * @module service/sync/error_logger
 * @description 同步错误聚合器，对记录级错误分类、统计并生成诊断报告
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 每次同步运行创建新实例 -> 逐条记录错误 -> 运行结束生成汇总报告
 * @rules 分类优先用类型断言（客户端错误、pq错误码），其次用消息正则；每个模式最多保留3个样例，严重错误最多保留10条
 * @dependencies github.com/lib/pq, datasync-service/client
 * @refs service/sync/orchestrator.go
 */

package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"datasync-service/client"
)

// 错误类型
const (
	ErrTypeAuthentication = "Authentication Error"
	ErrTypeNetwork        = "Network Error"
	ErrTypeTimeout        = "Timeout Error"
	ErrTypeUpstreamServer = "Upstream Server Error"
	ErrTypeUpstreamClient = "Upstream Client Error"
	ErrTypeMapping        = "Mapping Validation Error"
	ErrTypeForeignKey     = "Foreign Key Constraint"
	ErrTypeUnique         = "Unique Constraint Violation"
	ErrTypeNotNull        = "Not Null Constraint"
	ErrTypeValidation     = "Validation Error"
	ErrTypeConnection     = "Connection Error"
	ErrTypeNotFound       = "Not Found"
	ErrTypeReference      = "Referenced Entity Not Found"
	ErrTypeUnknown        = "Unknown Error"
)

// 严重错误类型，通常意味着整个运行环境有问题而非单条数据问题
var criticalErrorTypes = map[string]bool{
	ErrTypeConnection:     true,
	ErrTypeTimeout:        true,
	ErrTypeForeignKey:     true,
	ErrTypeAuthentication: true,
}

// 超时类消息，网络错误二次分类时使用
var timeoutPattern = regexp.MustCompile(`(?i)(timeout|timed out|deadline exceeded)`)

// 消息模式分类表，按声明顺序匹配
var knownPatterns = []struct {
	Type    string
	Pattern *regexp.Regexp
}{
	{ErrTypeUnique, regexp.MustCompile(`duplicate key value violates unique constraint "([^"]+)"`)},
	{ErrTypeForeignKey, regexp.MustCompile(`(?i)foreign key constraint`)},
	{ErrTypeNotNull, regexp.MustCompile(`(?i)null value in column "([^"]+)"`)},
	{ErrTypeUnique, regexp.MustCompile(`(?i)UNIQUE constraint failed`)},
	{ErrTypeNotNull, regexp.MustCompile(`(?i)NOT NULL constraint failed`)},
	{ErrTypeConnection, regexp.MustCompile(`(?i)connection (refused|reset|closed)`)},
	{ErrTypeTimeout, regexp.MustCompile(`(?i)(timeout|timed out|deadline exceeded)`)},
	{ErrTypeValidation, regexp.MustCompile(`(?i)(validation|invalid|校验失败)`)},
	{ErrTypeNotFound, regexp.MustCompile(`(?i)not found`)},
}

// 错误类型的处置建议
var remediationHints = map[string]string{
	ErrTypeForeignKey:     "检查依赖实体是否已同步，或为该引用配置置空策略",
	ErrTypeUnique:         "检查上游数据是否存在重复主键",
	ErrTypeNotNull:        "检查字段映射是否遗漏必填列的默认值",
	ErrTypeConnection:     "检查数据库/上游API连通性后重新运行",
	ErrTypeTimeout:        "缩小同步范围或加大超时配置后重试",
	ErrTypeAuthentication: "检查API凭据配置",
	ErrTypeMapping:        "检查上游字段命名是否变更，必要时补充别名映射",
}

// ErrorDetail 单条错误明细
type ErrorDetail struct {
	Entity    string    `json:"entity"`
	ItemID    string    `json:"item_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// PatternStat 错误模式统计
type PatternStat struct {
	Count    int      `json:"count"`
	Examples []string `json:"examples"` // 最多3个样例消息
}

// ErrorSummary 运行级错误汇总
type ErrorSummary struct {
	TotalErrors int                     `json:"total_errors"`
	ByType      map[string]int          `json:"by_type"`
	ByEntity    map[string]int          `json:"by_entity"`
	Patterns    map[string]*PatternStat `json:"patterns"`
	Critical    []ErrorDetail           `json:"critical"` // 最多10条
}

// ErrorLogger 同步错误聚合器，每次运行创建新实例
type ErrorLogger struct {
	mu     sync.Mutex
	errors []ErrorDetail
}

// NewErrorLogger 创建错误聚合器
func NewErrorLogger() *ErrorLogger {
	return &ErrorLogger{}
}

// LogError 记录一条错误并分类
func (el *ErrorLogger) LogError(entity, itemID string, err error) {
	detail := ErrorDetail{
		Entity:    entity,
		ItemID:    itemID,
		Type:      ClassifyError(err),
		Message:   err.Error(),
		Timestamp: time.Now(),
	}

	el.mu.Lock()
	el.errors = append(el.errors, detail)
	el.mu.Unlock()
}

// Count 当前错误总数
func (el *ErrorLogger) Count() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.errors)
}

// CountByEntity 指定实体的错误数
func (el *ErrorLogger) CountByEntity(entity string) int {
	el.mu.Lock()
	defer el.mu.Unlock()
	n := 0
	for _, e := range el.errors {
		if e.Entity == entity {
			n++
		}
	}
	return n
}

// ClassifyError 错误分类：先按类型断言，再按消息模式，兜底Unknown
// 同一错误输入永远得到同一分类
func ClassifyError(err error) string {
	var authErr *client.AuthError
	if errors.As(err, &authErr) {
		return ErrTypeAuthentication
	}
	var netErr *client.NetworkError
	if errors.As(err, &netErr) {
		// 超时类网络错误单独归类
		if timeoutPattern.MatchString(err.Error()) {
			return ErrTypeTimeout
		}
		return ErrTypeNetwork
	}
	var serverErr *client.ServerError
	if errors.As(err, &serverErr) {
		return ErrTypeUpstreamServer
	}
	var clientErr *client.ClientError
	if errors.As(err, &clientErr) {
		return ErrTypeUpstreamClient
	}
	var mappingErr *MappingError
	if errors.As(err, &mappingErr) {
		return ErrTypeMapping
	}
	var refErr *ReferenceError
	if errors.As(err, &refErr) {
		return ErrTypeReference
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23503":
			return ErrTypeForeignKey
		case "23505":
			return ErrTypeUnique
		case "23502":
			return ErrTypeNotNull
		}
	}

	msg := err.Error()
	for _, p := range knownPatterns {
		if p.Pattern.MatchString(msg) {
			return p.Type
		}
	}
	return ErrTypeUnknown
}

// Summary 生成运行级错误汇总
func (el *ErrorLogger) Summary() *ErrorSummary {
	el.mu.Lock()
	defer el.mu.Unlock()

	summary := &ErrorSummary{
		TotalErrors: len(el.errors),
		ByType:      make(map[string]int),
		ByEntity:    make(map[string]int),
		Patterns:    make(map[string]*PatternStat),
	}

	for _, e := range el.errors {
		summary.ByType[e.Type]++
		summary.ByEntity[e.Entity]++

		stat, ok := summary.Patterns[e.Type]
		if !ok {
			stat = &PatternStat{}
			summary.Patterns[e.Type] = stat
		}
		stat.Count++
		if len(stat.Examples) < 3 {
			stat.Examples = append(stat.Examples, e.Message)
		}

		if criticalErrorTypes[e.Type] && len(summary.Critical) < 10 {
			summary.Critical = append(summary.Critical, e)
		}
	}

	return summary
}

// FormatReport 生成控制台诊断报告
// 含按类型计数、按实体占比条形图、高频错误模式样例和处置建议
func (el *ErrorLogger) FormatReport() string {
	summary := el.Summary()
	if summary.TotalErrors == 0 {
		return "同步完成，无错误\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n========== 同步错误报告 ==========\n")
	fmt.Fprintf(&b, "错误总数: %d\n\n", summary.TotalErrors)

	b.WriteString("按类型分布:\n")
	types := sortedByCount(summary.ByType)
	for _, typ := range types {
		fmt.Fprintf(&b, "  %-32s %d\n", typ, summary.ByType[typ])
	}

	// 条形长度按该实体占错误总数的比例
	b.WriteString("\n按实体分布:\n")
	for _, entity := range sortedByCount(summary.ByEntity) {
		count := summary.ByEntity[entity]
		barLen := count * 30 / summary.TotalErrors
		if barLen == 0 {
			barLen = 1
		}
		fmt.Fprintf(&b, "  %-32s %s %d\n", entity, strings.Repeat("█", barLen), count)
	}

	b.WriteString("\n常见错误模式 (前5):\n")
	for i, typ := range types {
		if i >= 5 {
			break
		}
		stat := summary.Patterns[typ]
		fmt.Fprintf(&b, "  %s (%d次)\n", typ, stat.Count)
		for _, example := range stat.Examples {
			fmt.Fprintf(&b, "    - %s\n", example)
		}
	}

	if len(summary.Critical) > 0 {
		fmt.Fprintf(&b, "\n严重错误 (前%d条):\n", len(summary.Critical))
		for _, e := range summary.Critical {
			fmt.Fprintf(&b, "  [%s] %s #%s: %s\n", e.Type, e.Entity, e.ItemID, e.Message)
		}
	}

	b.WriteString("\n处置建议:\n")
	for _, typ := range types {
		if hint, ok := remediationHints[typ]; ok {
			fmt.Fprintf(&b, "  - %s: %s\n", typ, hint)
		}
	}
	b.WriteString("==================================\n")
	return b.String()
}

// sortedByCount 按计数降序返回键，计数相同时按键名升序保证输出稳定
func sortedByCount(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// SaveToFile 将错误汇总以JSON形式写入目录，文件名带时间戳
func (el *ErrorLogger) SaveToFile(dir string) (string, error) {
	summary := el.Summary()
	if summary.TotalErrors == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建错误报告目录失败: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("sync-errors-%s.json", time.Now().Format("20060102-150405")))
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化错误汇总失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("写入错误报告失败: %w", err)
	}
	return path, nil
}
