/*
 * @module client/paginator
 * @description 分页拉取器，循环拉取上游端点的全部页并归一化多种响应包络
 * @architecture 分层架构 - 客户端层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 拉取页 -> 包络归一化 -> 累积记录 -> 续页判定 -> 终止/下一页
 * @rules 包络识别优先级: records/results+元数据 > 裸数组 > data/items/results+hasMore > 首个数组键；空页或续页标志为假时停止
 * @dependencies encoding/json, log/slog
 * @refs client/sienge_client.go, service/sync/orchestrator.go
 */

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"

	"github.com/spf13/cast"
)

// FetchAllPages 拉取端点的全部分页数据
// params 为透传给上游的查询参数（日期范围、状态过滤等）
// 返回累积的记录、实际API调用次数和错误
func (c *SiengeClient) FetchAllPages(ctx context.Context, endpoint string, params map[string]string) ([]map[string]interface{}, int, error) {
	var all []map[string]interface{}
	apiCalls := 0
	limit := c.cfg.PageSize
	offset := 0
	page := 1
	start := c.clock.Now()

	for {
		if err := ctx.Err(); err != nil {
			return all, apiCalls, err
		}

		if page > c.cfg.MaxPages {
			slog.Warn("达到最大页数限制，停止拉取", "endpoint", endpoint, "max_pages", c.cfg.MaxPages)
			break
		}
		if c.cfg.FetchDeadline > 0 && c.clock.Now().Sub(start) > c.cfg.FetchDeadline {
			slog.Warn("达到拉取时限，停止拉取", "endpoint", endpoint, "deadline", c.cfg.FetchDeadline.String())
			break
		}

		query := url.Values{}
		for k, v := range params {
			query.Set(k, v)
		}
		query.Set("limit", strconv.Itoa(limit))
		query.Set("offset", strconv.Itoa(offset))

		body, err := c.Get(ctx, endpoint, query)
		if err != nil {
			return all, apiCalls, fmt.Errorf("拉取 %s 第%d页失败: %w", endpoint, page, err)
		}
		apiCalls++

		records, hasMore, err := extractPage(body, offset)
		if err != nil {
			return all, apiCalls, fmt.Errorf("解析 %s 第%d页响应失败: %w", endpoint, page, err)
		}

		if len(records) == 0 {
			break
		}
		all = append(all, records...)

		slog.Debug("分页拉取进度",
			"endpoint", endpoint,
			"page", page,
			"page_records", len(records),
			"total_records", len(all),
			"has_more", hasMore)

		if !hasMore {
			break
		}
		if len(all) >= c.cfg.MaxRecords {
			slog.Warn("达到最大记录数限制，停止拉取", "endpoint", endpoint, "max_records", c.cfg.MaxRecords)
			break
		}

		offset += len(records)
		page++
	}

	return all, apiCalls, nil
}

// extractPage 包络归一化，识别上游响应的数据数组和续页标志
// 识别优先级:
//  1. records/results 数组 + resultSetMetadata（偏移量算续页）
//  2. 裸数组（单页，无续页）
//  3. data/items/results 数组 + hasMore/has_more 布尔
//  4. 首个数组值键（键名排序后取第一个）
func extractPage(body []byte, offset int) ([]map[string]interface{}, bool, error) {
	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false, fmt.Errorf("响应不是合法JSON: %w", err)
	}

	// 裸数组
	if arr, ok := payload.([]interface{}); ok {
		return toRecords(arr), false, nil
	}

	obj, ok := payload.(map[string]interface{})
	if !ok {
		return nil, false, nil
	}

	// records/results + resultSetMetadata
	if metaRaw, ok := obj["resultSetMetadata"].(map[string]interface{}); ok {
		for _, key := range []string{"records", "results"} {
			if arr, ok := obj[key].([]interface{}); ok {
				records := toRecords(arr)
				total := metadataTotal(metaRaw)
				hasMore := total > 0 && offset+len(records) < total
				return records, hasMore, nil
			}
		}
	}

	// data/items/results + hasMore
	for _, key := range []string{"data", "items", "results"} {
		if arr, ok := obj[key].([]interface{}); ok {
			return toRecords(arr), boolFlag(obj), nil
		}
	}

	// 首个数组值键
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if arr, ok := obj[k].([]interface{}); ok {
			return toRecords(arr), boolFlag(obj), nil
		}
	}

	return nil, false, nil
}

// metadataTotal 从resultSetMetadata提取总记录数
func metadataTotal(meta map[string]interface{}) int {
	for _, key := range []string{"totalRecords", "count", "total"} {
		if v, ok := meta[key]; ok {
			return cast.ToInt(v)
		}
	}
	return 0
}

// boolFlag 提取hasMore续页标志
func boolFlag(obj map[string]interface{}) bool {
	for _, key := range []string{"hasMore", "has_more"} {
		if v, ok := obj[key]; ok {
			return cast.ToBool(v)
		}
	}
	return false
}

func toRecords(arr []interface{}) []map[string]interface{} {
	records := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]interface{}); ok {
			records = append(records, m)
		}
	}
	return records
}
