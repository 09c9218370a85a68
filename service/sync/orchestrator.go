/*
 * @module service/sync/orchestrator
 * @description 依赖有序的同步编排器，按阶段并发同步实体并保证阶段间严格屏障
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 依赖展开 -> 按阶段分组 -> 阶段内并发同步 -> 阶段屏障 -> 汇总报告
 * @rules 失败实体的依赖方跳过并标注原因；单实体内记录串行upsert；记录级错误不中断实体；取消在页和记录边界生效
 * @dependencies service/meta, service/models, service/distributed_lock, github.com/google/uuid
 * @refs api/controllers/sync_controller.go, service/sync/scheduler.go
 */

package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"datasync-service/service/distributed_lock"
	"datasync-service/service/meta"
	"datasync-service/service/models"
)

// ErrSyncAlreadyRunning 已有运行持有同步锁
var ErrSyncAlreadyRunning = errors.New("已有同步运行在进行中")

// 同步运行锁的键和TTL
const (
	syncRunLockKey = "sync_run"
	syncRunLockTTL = 2 * time.Hour
)

// Fetcher 上游分页拉取接口
type Fetcher interface {
	FetchAllPages(ctx context.Context, endpoint string, params map[string]string) ([]map[string]interface{}, int, error)
}

// SyncRequest 同步请求
type SyncRequest struct {
	Entities []string                     `json:"entities"`
	Params   map[string]map[string]string `json:"params,omitempty"` // 实体 -> 透传给上游的查询参数
}

// EntityResult 单实体同步结果
type EntityResult struct {
	Entity       string `json:"entity"`
	Status       string `json:"status"`
	Processed    int    `json:"processed"`
	Inserted     int    `json:"inserted"`
	Updated      int    `json:"updated"`
	Errors       int    `json:"errors"`
	APICalls     int    `json:"api_calls"`
	DurationMs   int64  `json:"duration_ms"`
	ErrorMessage string `json:"error_message,omitempty"`
	SyncLogID    uint   `json:"sync_log_id,omitempty"`
}

// RunResult 整次运行结果
type RunResult struct {
	RunID       string                   `json:"run_id"`
	Order       []string                 `json:"order"`
	Results     map[string]*EntityResult `json:"results"`
	Skipped     map[string]string        `json:"skipped,omitempty"` // 实体 -> 跳过原因
	Totals      RunCounts                `json:"totals"`
	Report      string                   `json:"report,omitempty"`
	StartedAt   time.Time                `json:"started_at"`
	CompletedAt time.Time                `json:"completed_at"`
}

// Orchestrator 同步编排器
type Orchestrator struct {
	graph      *meta.DependencyGraph
	fetcher    Fetcher
	repo       *EntityRepository
	logs       *SyncLogService
	lock       distributed_lock.DistributedLock // 可为nil，单实例部署时不加锁
	phaseDelay time.Duration
	reportDir  string

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewOrchestrator 创建同步编排器
func NewOrchestrator(fetcher Fetcher, repo *EntityRepository, logs *SyncLogService, graph *meta.DependencyGraph) *Orchestrator {
	if graph == nil {
		graph = meta.DefaultDependencyGraph
	}
	return &Orchestrator{
		graph:   graph,
		fetcher: fetcher,
		repo:    repo,
		logs:    logs,
		running: make(map[string]context.CancelFunc),
	}
}

// SetDistributedLock 配置分布式运行锁，多实例部署时防止并发运行
func (o *Orchestrator) SetDistributedLock(lock distributed_lock.DistributedLock) {
	o.lock = lock
}

// SetPhaseDelay 配置阶段之间的等待时长
func (o *Orchestrator) SetPhaseDelay(d time.Duration) {
	o.phaseDelay = d
}

// SetReportDir 配置错误报告JSON输出目录，为空不落盘
func (o *Orchestrator) SetReportDir(dir string) {
	o.reportDir = dir
}

// RunSync 执行一次依赖有序的同步运行
func (o *Orchestrator) RunSync(ctx context.Context, req SyncRequest) (*RunResult, error) {
	if len(req.Entities) == 0 {
		return nil, fmt.Errorf("同步请求未指定实体")
	}
	for _, entity := range req.Entities {
		if !meta.HasEndpointConfig(entity) {
			return nil, fmt.Errorf("实体 %s 没有端点配置", entity)
		}
	}

	if o.lock != nil {
		locked, err := o.lock.TryLock(ctx, syncRunLockKey, syncRunLockTTL)
		if err != nil {
			return nil, fmt.Errorf("获取同步运行锁失败: %w", err)
		}
		if !locked {
			return nil, ErrSyncAlreadyRunning
		}
		defer func() {
			if err := o.lock.Unlock(context.Background(), syncRunLockKey); err != nil {
				slog.Error("释放同步运行锁失败", "error", err)
			}
		}()
	}

	runID := uuid.New().String()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.running[runID] = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.running, runID)
		o.mu.Unlock()
	}()

	order := o.graph.SyncOrder(req.Entities)
	phases, phaseMap := o.graph.GroupByPhase(order)
	errLogger := NewErrorLogger()

	result := &RunResult{
		RunID:     runID,
		Order:     order,
		Results:   make(map[string]*EntityResult),
		Skipped:   make(map[string]string),
		StartedAt: time.Now(),
	}

	slog.Info("同步运行开始",
		"run_id", runID,
		"requested", req.Entities,
		"expanded_order", order,
		"phases", len(phases))

	failed := make(map[string]bool)
	var resultMu sync.Mutex

	for i, phase := range phases {
		entities := phaseMap[phase]
		var wg sync.WaitGroup

		for _, entity := range entities {
			// 依赖失败的实体跳过并连带标记，让更深层的依赖方也跳过
			resultMu.Lock()
			reason := o.failedDependency(entity, failed)
			if reason != "" {
				result.Skipped[entity] = reason
				failed[entity] = true
			}
			resultMu.Unlock()
			if reason != "" {
				slog.Warn("跳过实体同步", "run_id", runID, "entity", entity, "reason", reason)
				continue
			}

			wg.Add(1)
			go func(entity string) {
				defer wg.Done()
				res := o.syncEntity(runCtx, entity, req.Params[entity], errLogger)
				resultMu.Lock()
				result.Results[entity] = res
				if res.Status == models.SyncStatusFailed || res.Status == models.SyncStatusCancelled {
					failed[entity] = true
				}
				resultMu.Unlock()
			}(entity)
		}

		// 阶段屏障：本阶段全部结束后才进入下一阶段
		wg.Wait()

		if runCtx.Err() != nil {
			break
		}
		if o.phaseDelay > 0 && i < len(phases)-1 {
			select {
			case <-runCtx.Done():
			case <-time.After(o.phaseDelay):
			}
		}
	}

	for _, res := range result.Results {
		result.Totals.Processed += res.Processed
		result.Totals.Inserted += res.Inserted
		result.Totals.Updated += res.Updated
		result.Totals.Errors += res.Errors
		result.Totals.APICalls += res.APICalls
	}
	result.CompletedAt = time.Now()
	result.Report = errLogger.FormatReport()

	if o.reportDir != "" {
		if path, err := errLogger.SaveToFile(o.reportDir); err != nil {
			slog.Error("错误报告落盘失败", "run_id", runID, "error", err)
		} else if path != "" {
			slog.Info("错误报告已写入", "run_id", runID, "path", path)
		}
	}

	slog.Info("同步运行结束",
		"run_id", runID,
		"duration_ms", result.CompletedAt.Sub(result.StartedAt).Milliseconds(),
		"processed", result.Totals.Processed,
		"inserted", result.Totals.Inserted,
		"updated", result.Totals.Updated,
		"errors", result.Totals.Errors,
		"skipped", len(result.Skipped))

	return result, runCtx.Err()
}

// failedDependency 返回首个失败依赖的跳过原因，无失败依赖返回空串
func (o *Orchestrator) failedDependency(entity string, failed map[string]bool) string {
	for _, dep := range o.graph.DirectDependencies(entity) {
		if failed[dep] {
			return fmt.Sprintf("依赖实体 %s 同步失败", dep)
		}
	}
	return ""
}

// syncEntity 同步单个实体：拉取全部分页后逐条映射、校验引用并串行upsert
func (o *Orchestrator) syncEntity(ctx context.Context, entity string, params map[string]string, errLogger *ErrorLogger) *EntityResult {
	cfg := meta.GetEndpointConfig(entity)
	start := time.Now()
	res := &EntityResult{Entity: entity}

	logRow, err := o.logs.StartRun(entity)
	if err != nil {
		slog.Error("同步日志创建失败，继续同步", "entity", entity, "error", err)
	} else {
		res.SyncLogID = logRow.ID
	}

	finish := func(status, errMsg string) *EntityResult {
		res.Status = status
		res.ErrorMessage = errMsg
		res.DurationMs = time.Since(start).Milliseconds()
		if res.SyncLogID != 0 {
			o.logs.CompleteRun(res.SyncLogID, RunCounts{
				Processed: res.Processed,
				Inserted:  res.Inserted,
				Updated:   res.Updated,
				Errors:    res.Errors,
				APICalls:  res.APICalls,
			}, status, errMsg)
		}
		metricRunsTotal.WithLabelValues(entity, status).Inc()
		metricSyncDuration.WithLabelValues(entity).Observe(time.Since(start).Seconds())
		slog.Info("实体同步结束",
			"entity", entity,
			"status", status,
			"processed", res.Processed,
			"inserted", res.Inserted,
			"updated", res.Updated,
			"errors", res.Errors,
			"api_calls", res.APICalls,
			"duration_ms", res.DurationMs)
		return res
	}

	records, apiCalls, err := o.fetcher.FetchAllPages(ctx, cfg.APIEndpoint, params)
	res.APICalls = apiCalls
	metricAPICallsTotal.WithLabelValues(entity).Add(float64(apiCalls))
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return finish(models.SyncStatusCancelled, "同步被取消")
		}
		errLogger.LogError(entity, "", err)
		return finish(models.SyncStatusFailed, err.Error())
	}

	slog.Info("实体数据拉取完成", "entity", entity, "records", len(records), "api_calls", apiCalls)

	for _, raw := range records {
		if ctx.Err() != nil {
			return finish(models.SyncStatusCancelled, "同步被取消")
		}
		res.Processed++

		row, err := MapRecord(raw, cfg)
		if err != nil {
			res.Errors++
			errLogger.LogError(entity, itemID(raw), err)
			metricRecordsTotal.WithLabelValues(entity, "error").Inc()
			continue
		}

		if err := o.repo.ResolveReferences(cfg, row); err != nil {
			res.Errors++
			errLogger.LogError(entity, itemID(raw), err)
			metricRecordsTotal.WithLabelValues(entity, "error").Inc()
			continue
		}

		outcome, err := o.repo.Upsert(cfg, row)
		if err != nil {
			res.Errors++
			errLogger.LogError(entity, itemID(raw), err)
			metricRecordsTotal.WithLabelValues(entity, "error").Inc()
			continue
		}

		switch outcome {
		case UpsertInserted:
			res.Inserted++
			metricRecordsTotal.WithLabelValues(entity, "inserted").Inc()
		case UpsertUpdated:
			res.Updated++
			metricRecordsTotal.WithLabelValues(entity, "updated").Inc()
		}
	}

	status := models.SyncStatusCompleted
	if res.Errors > 0 {
		status = models.SyncStatusCompletedWithErrors
	}
	return finish(status, "")
}

// Cancel 取消指定运行，存在并成功触发取消时返回true
func (o *Orchestrator) Cancel(runID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	cancel, ok := o.running[runID]
	if ok {
		cancel()
	}
	return ok
}

// CancelAll 取消全部进行中的运行，返回取消数量
func (o *Orchestrator) CancelAll() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, cancel := range o.running {
		cancel()
		n++
	}
	return n
}

// RunningRuns 返回进行中的运行ID
func (o *Orchestrator) RunningRuns() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.running))
	for id := range o.running {
		ids = append(ids, id)
	}
	return ids
}

func itemID(raw map[string]interface{}) string {
	if v, ok := raw["id"]; ok {
		return cast.ToString(v)
	}
	return "unknown"
}
