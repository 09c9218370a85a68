/*
 * @module service/sync/metrics
 * @description 同步指标，暴露给/metrics端点
 * @architecture 可观测层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 同步过程中累加，Prometheus定期抓取
 * @rules 指标注册到默认registry，由main.go挂载promhttp暴露
 * @dependencies github.com/prometheus/client_golang
 * @refs service/sync/orchestrator.go, main.go
 */

package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datasync",
		Name:      "records_total",
		Help:      "按实体和结果统计的同步记录数",
	}, []string{"entity", "result"}) // result: inserted, updated, error

	metricRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datasync",
		Name:      "runs_total",
		Help:      "按终态统计的实体同步运行数",
	}, []string{"entity", "status"})

	metricAPICallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datasync",
		Name:      "api_calls_total",
		Help:      "按实体统计的上游API调用数",
	}, []string{"entity"})

	metricSyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "datasync",
		Name:      "entity_sync_duration_seconds",
		Help:      "单实体同步耗时分布",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"entity"})
)
