/*
 * @module service/sync/mapper
 * @description 字段映射引擎，按端点配置将上游API记录转换为数据库行
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 源字段求值 -> 别名优先级裁决 -> 默认值兜底 -> 必填校验 -> 输出数据库行
 * @rules 同一目标字段先声明的别名优先；默认值仅在所有别名都无值时生效；必填字段缺失拒绝整条记录；可选字段转换失败跳过该字段
 * @dependencies service/meta
 * @refs service/sync/orchestrator.go
 */

package sync

import (
	"fmt"
	"log/slog"

	"datasync-service/service/meta"
)

// MappingError 记录级映射错误，携带被拒绝的字段和原因
type MappingError struct {
	Entity string
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("记录映射校验失败 [%s.%s]: %s", e.Entity, e.Field, e.Reason)
}

// MapRecord 将一条上游API记录映射为数据库行
// 返回的map仅包含解析出值的列；必填字段无法解析时拒绝整条记录
func MapRecord(raw map[string]interface{}, cfg *meta.EndpointConfig) (map[string]interface{}, error) {
	row := make(map[string]interface{})
	resolved := make(map[string]bool)

	// 第一遍：只用源记录中实际存在的值，同一目标字段先声明的别名优先。
	// 默认值在这一遍不参与，否则先声明别名的默认值会盖掉后声明别名携带的显式值
	for _, m := range cfg.FieldMappings {
		if resolved[m.TargetField] {
			continue
		}

		value, exists := raw[m.SourceField]
		if !exists {
			continue
		}

		value, ok, err := resolveValue(m, value, raw, cfg.Entity)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		row[m.TargetField] = value
		resolved[m.TargetField] = true
	}

	// 第二遍：所有别名都无值的目标字段按声明顺序应用默认值
	for _, m := range cfg.FieldMappings {
		if resolved[m.TargetField] || m.DefaultValue == nil {
			continue
		}

		value, ok, err := resolveValue(m, m.DefaultValue, raw, cfg.Entity)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		row[m.TargetField] = value
		resolved[m.TargetField] = true
	}

	// 必填校验：别名和默认值求值后目标字段仍未解析时拒绝记录
	for _, m := range cfg.FieldMappings {
		if m.Required && !resolved[m.TargetField] {
			return nil, &MappingError{Entity: cfg.Entity, Field: m.SourceField,
				Reason: fmt.Sprintf("必填字段缺失 (目标列 %s)", m.TargetField)}
		}
	}

	return row, nil
}

// resolveValue 对单条映射规则求值，ok为false表示该字段被跳过
func resolveValue(m meta.FieldMapping, value interface{}, raw map[string]interface{}, entity string) (interface{}, bool, error) {
	if m.Transform == "" {
		return value, true, nil
	}

	fn, ok := meta.LookupTransform(m.Transform)
	if !ok {
		return nil, false, &MappingError{Entity: entity, Field: m.SourceField,
			Reason: fmt.Sprintf("未注册的转换函数 %q", m.Transform)}
	}

	transformed, err := fn(value, raw)
	if err != nil {
		if m.Required {
			return nil, false, &MappingError{Entity: entity, Field: m.SourceField,
				Reason: fmt.Sprintf("必填字段转换失败: %v", err)}
		}
		// 可选字段转换失败只跳过该字段
		slog.Debug("可选字段转换失败，跳过",
			"entity", entity,
			"source_field", m.SourceField,
			"error", err)
		return nil, false, nil
	}
	return transformed, true, nil
}
