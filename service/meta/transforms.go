/*
 * @module service/meta/transforms
 * @description 字段转换函数注册表，按名称查找；支持内置转换和yaegi脚本转换
 * @architecture 元数据驱动 - 注册表模式
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 服务启动时注册内置转换 -> 映射执行时按名称查找调用
 * @rules 转换函数接收原始值和完整源记录（支持跨字段转换），返回转换后的值或错误
 * @dependencies github.com/spf13/cast, github.com/traefik/yaegi
 * @refs service/sync/mapper.go
 */

package meta

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// TransformFunc 字段转换函数
// value 为源字段值，record 为完整的源记录（跨字段转换时使用）
type TransformFunc func(value interface{}, record map[string]interface{}) (interface{}, error)

var (
	transformMu       sync.RWMutex
	transformRegistry = map[string]TransformFunc{}
)

// 上游日期字段的常见格式
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

func init() {
	RegisterTransform("stringOrEmpty", func(value interface{}, _ map[string]interface{}) (interface{}, error) {
		if value == nil {
			return "", nil
		}
		return cast.ToStringE(value)
	})

	// 仅显式false视为false，缺失或其他值视为true
	RegisterTransform("notFalse", func(value interface{}, _ map[string]interface{}) (interface{}, error) {
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return value != nil, nil
	})

	RegisterTransform("toBool", func(value interface{}, _ map[string]interface{}) (interface{}, error) {
		if value == nil {
			return nil, nil
		}
		return cast.ToBoolE(value)
	})

	RegisterTransform("toInt", func(value interface{}, _ map[string]interface{}) (interface{}, error) {
		if value == nil || value == "" {
			return nil, nil
		}
		return cast.ToInt64E(value)
	})

	RegisterTransform("toFloat", func(value interface{}, _ map[string]interface{}) (interface{}, error) {
		if value == nil || value == "" {
			return nil, nil
		}
		return cast.ToFloat64E(value)
	})

	RegisterTransform("toFloatOrZero", func(value interface{}, _ map[string]interface{}) (interface{}, error) {
		if value == nil || value == "" {
			return float64(0), nil
		}
		return cast.ToFloat64E(value)
	})

	RegisterTransform("parseDate", func(value interface{}, _ map[string]interface{}) (interface{}, error) {
		return parseDateValue(value, false)
	})

	RegisterTransform("dateOrNow", func(value interface{}, _ map[string]interface{}) (interface{}, error) {
		return parseDateValue(value, true)
	})

	RegisterTransform("now", func(_ interface{}, _ map[string]interface{}) (interface{}, error) {
		return time.Now(), nil
	})
}

// parseDateValue 解析日期值，fallbackNow为true时空值返回当前时间，否则返回nil
func parseDateValue(value interface{}, fallbackNow bool) (interface{}, error) {
	if value == nil || value == "" {
		if fallbackNow {
			return time.Now(), nil
		}
		return nil, nil
	}

	if t, ok := value.(time.Time); ok {
		return t, nil
	}

	str := strings.TrimSpace(cast.ToString(value))
	if str == "" {
		if fallbackNow {
			return time.Now(), nil
		}
		return nil, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t, nil
		}
	}

	return nil, fmt.Errorf("无法解析日期值: %s", str)
}

// RegisterTransform 注册命名转换函数
func RegisterTransform(name string, fn TransformFunc) {
	transformMu.Lock()
	defer transformMu.Unlock()
	transformRegistry[name] = fn
}

// LookupTransform 按名称查找转换函数
func LookupTransform(name string) (TransformFunc, bool) {
	transformMu.RLock()
	defer transformMu.RUnlock()
	fn, ok := transformRegistry[name]
	return fn, ok
}

// RegisterScriptTransform 注册yaegi脚本转换
// 脚本必须是一个 func(value interface{}, record map[string]interface{}) interface{} 表达式，
// 用于租户定制的字段清洗逻辑，无需重新编译服务
func RegisterScriptTransform(name, script string) error {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("脚本环境初始化失败: %w", err)
	}

	v, err := i.Eval(script)
	if err != nil {
		return fmt.Errorf("脚本编译失败: %w", err)
	}

	fn, ok := v.Interface().(func(interface{}, map[string]interface{}) interface{})
	if !ok {
		return fmt.Errorf("脚本必须是 func(value interface{}, record map[string]interface{}) interface{} 类型")
	}

	RegisterTransform(name, func(value interface{}, record map[string]interface{}) (out interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("脚本转换执行失败: %v", r)
			}
		}()
		return fn(value, record), nil
	})

	return nil
}
