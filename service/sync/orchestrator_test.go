/*
 * @module service/sync/orchestrator_test
 * @description 同步编排器集成测试，使用内存sqlite库和假的上游拉取器
 * @architecture 测试层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 构造假上游 -> 执行同步运行 -> 断言结果、表内容和同步日志
 * @rules 覆盖端到端同步、依赖跳过、外键置空、重复运行幂等、运行锁和取消
 * @dependencies testify, sqlite
 * @refs service/sync/orchestrator.go
 */

package sync

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasync-service/service/meta"
	"datasync-service/service/models"
	"datasync-service/testutil"
)

// fakeFetcher 假的上游分页拉取器，按端点返回预置数据或错误
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string][]map[string]interface{}
	errs     map[string]error
	calls    map[string]int
	blockAll bool // 为true时阻塞到ctx取消，用于测试取消
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: make(map[string][]map[string]interface{}),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) FetchAllPages(ctx context.Context, endpoint string, _ map[string]string) ([]map[string]interface{}, int, error) {
	if f.blockAll {
		<-ctx.Done()
		return nil, 0, ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[endpoint]++
	if err, ok := f.errs[endpoint]; ok {
		return nil, 1, err
	}
	return f.pages[endpoint], 1, nil
}

func (f *fakeFetcher) callCount(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

// fakeLock 假的分布式锁
type fakeLock struct {
	busy bool
}

func (l *fakeLock) TryLock(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return !l.busy, nil
}
func (l *fakeLock) Unlock(_ context.Context, _ string) error { return nil }
func (l *fakeLock) IsLocked(_ context.Context, _ string) (bool, error) {
	return l.busy, nil
}

func setupOrchestratorTest(t *testing.T, fetcher Fetcher, entities ...string) (*testutil.TestDB, *Orchestrator) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	tdb.CreateEntityTables(entities...)

	orch := NewOrchestrator(fetcher, NewEntityRepository(tdb.DB), NewSyncLogService(tdb.DB), nil)
	return tdb, orch
}

func TestRunSync_端到端同步含记录级错误(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["/customers"] = []map[string]interface{}{
		{"id": float64(1), "name": "Maria", "cpfCnpj": "111"},
		{"id": float64(2), "name": "João", "cpfCnpj": "222"},
		{"id": float64(3), "cpfCnpj": "333"}, // name缺失，映射拒绝
		{"id": float64(4), "name": "Ana", "cpf": "444"},
	}
	tdb, orch := setupOrchestratorTest(t, fetcher, "customers")

	result, err := orch.RunSync(context.Background(), SyncRequest{Entities: []string{"customers"}})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, []string{"customers"}, result.Order)

	res := result.Results["customers"]
	require.NotNil(t, res)
	assert.Equal(t, models.SyncStatusCompletedWithErrors, res.Status)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 1, res.APICalls)

	assert.Equal(t, 4, result.Totals.Processed)
	assert.Contains(t, result.Report, ErrTypeMapping)

	// 同步日志落库
	var log models.SyncLog
	require.NoError(t, tdb.DB.First(&log, res.SyncLogID).Error)
	assert.Equal(t, "customers", log.EntityType)
	assert.Equal(t, models.SyncStatusCompletedWithErrors, log.Status)
	assert.Equal(t, 4, log.RecordsProcessed)
	assert.Equal(t, 3, log.RecordsInserted)
	assert.Equal(t, 1, log.RecordsErrors)
	assert.NotNil(t, log.SyncCompletedAt)

	// 重复运行同样数据只产生更新，不产生重复行
	result, err = orch.RunSync(context.Background(), SyncRequest{Entities: []string{"customers"}})
	require.NoError(t, err)
	res = result.Results["customers"]
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 3, res.Updated)

	repo := NewEntityRepository(tdb.DB)
	count, err := repo.CountByTable(meta.GetEndpointConfig("customers"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestRunSync_依赖展开与失败跳过(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.errs["/companies"] = &ServerErrorForTest{}
	_, orch := setupOrchestratorTest(t, fetcher,
		"companies", "customers", "enterprises", "sales-contracts")

	result, err := orch.RunSync(context.Background(), SyncRequest{Entities: []string{"sales-contracts"}})
	require.NoError(t, err)

	// 请求sales-contracts自动展开出全部传递依赖
	assert.ElementsMatch(t, []string{"companies", "customers", "enterprises", "sales-contracts"}, result.Order)

	assert.Equal(t, models.SyncStatusFailed, result.Results["companies"].Status)
	assert.Equal(t, models.SyncStatusCompleted, result.Results["customers"].Status)

	// 失败实体的依赖方逐级跳过
	assert.Contains(t, result.Skipped["enterprises"], "companies")
	assert.Contains(t, result.Skipped["sales-contracts"], "enterprises")
	assert.NotContains(t, result.Results, "enterprises")
	assert.Equal(t, 0, fetcher.callCount("/enterprises"))
	assert.Equal(t, 0, fetcher.callCount("/sales-contracts"))
}

// ServerErrorForTest 模拟上游5xx的测试错误
type ServerErrorForTest struct{}

func (e *ServerErrorForTest) Error() string { return "上游服务端错误 (状态码 503)" }

func TestRunSync_引用缺失外键置空(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.pages["/companies"] = nil // 上游没有企业数据
	fetcher.pages["/enterprises"] = []map[string]interface{}{
		{"id": float64(10), "name": "Residencial Sol", "companyId": float64(99)},
	}
	tdb, orch := setupOrchestratorTest(t, fetcher, "companies", "enterprises")

	result, err := orch.RunSync(context.Background(), SyncRequest{Entities: []string{"enterprises"}})
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, result.Results["enterprises"].Status)
	assert.Equal(t, 1, result.Results["enterprises"].Inserted)

	repo := NewEntityRepository(tdb.DB)
	row, err := repo.FindByPrimaryKey(meta.GetEndpointConfig("enterprises"), 10)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Nil(t, row["id_empresa"], "引用不存在的外键应被置空")
}

func TestRunSync_未配置实体拒绝请求(t *testing.T) {
	_, orch := setupOrchestratorTest(t, newFakeFetcher())

	_, err := orch.RunSync(context.Background(), SyncRequest{Entities: []string{"no-such-entity"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "没有端点配置")

	_, err = orch.RunSync(context.Background(), SyncRequest{})
	require.Error(t, err)
}

func TestRunSync_运行锁被占用(t *testing.T) {
	_, orch := setupOrchestratorTest(t, newFakeFetcher(), "customers")
	orch.SetDistributedLock(&fakeLock{busy: true})

	_, err := orch.RunSync(context.Background(), SyncRequest{Entities: []string{"customers"}})
	assert.ErrorIs(t, err, ErrSyncAlreadyRunning)
}

func TestRunSync_取消进行中的运行(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.blockAll = true
	_, orch := setupOrchestratorTest(t, fetcher, "customers")

	type runOutcome struct {
		result *RunResult
		err    error
	}
	done := make(chan runOutcome, 1)
	go func() {
		result, err := orch.RunSync(context.Background(), SyncRequest{Entities: []string{"customers"}})
		done <- runOutcome{result, err}
	}()

	require.Eventually(t, func() bool {
		return len(orch.RunningRuns()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	runID := orch.RunningRuns()[0]
	assert.True(t, orch.Cancel(runID))

	select {
	case outcome := <-done:
		require.NotNil(t, outcome.result)
		assert.ErrorIs(t, outcome.err, context.Canceled)
		assert.Equal(t, models.SyncStatusCancelled, outcome.result.Results["customers"].Status)
	case <-time.After(2 * time.Second):
		t.Fatal("取消后运行未结束")
	}

	assert.Empty(t, orch.RunningRuns())
	assert.False(t, orch.Cancel(runID), "已结束的运行不可再取消")
}

func TestRunSync_错误报告落盘(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.errs["/customers"] = errors.New("dial tcp: connection refused")
	_, orch := setupOrchestratorTest(t, fetcher, "customers")

	dir := t.TempDir()
	orch.SetReportDir(dir)

	result, err := orch.RunSync(context.Background(), SyncRequest{Entities: []string{"customers"}})
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusFailed, result.Results["customers"].Status)

	files, err := filepath.Glob(filepath.Join(dir, "sync-errors-*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
