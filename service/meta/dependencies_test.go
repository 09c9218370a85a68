package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncOrder_展开传递依赖(t *testing.T) {
	order := DefaultDependencyGraph.SyncOrder([]string{"units"})

	// units 传递依赖 enterprises, sales-contracts, companies, customers
	assert.Contains(t, order, "companies")
	assert.Contains(t, order, "customers")
	assert.Contains(t, order, "enterprises")
	assert.Contains(t, order, "sales-contracts")
	assert.Contains(t, order, "units")

	pos := make(map[string]int)
	for i, entity := range order {
		pos[entity] = i
	}
	assert.Less(t, pos["companies"], pos["enterprises"])
	assert.Less(t, pos["enterprises"], pos["sales-contracts"])
	assert.Less(t, pos["sales-contracts"], pos["units"])
}

func TestSyncOrder_请求顺序不影响结果(t *testing.T) {
	a := DefaultDependencyGraph.SyncOrder([]string{"accounts-receivable", "companies"})
	b := DefaultDependencyGraph.SyncOrder([]string{"companies", "accounts-receivable"})
	assert.Equal(t, a, b)
}

func TestSyncOrder_未声明实体直接纳入(t *testing.T) {
	order := DefaultDependencyGraph.SyncOrder([]string{"custom-entity"})
	assert.Equal(t, []string{"custom-entity"}, order)
}

func TestGroupByPhase(t *testing.T) {
	order := DefaultDependencyGraph.SyncOrder([]string{"sales-commissions"})
	phases, phaseMap := DefaultDependencyGraph.GroupByPhase(order)

	require.Equal(t, []int{PhaseIndependent, PhaseBasicDependencies, PhaseComplexDependencies, PhaseRelationships}, phases)
	assert.ElementsMatch(t, []string{"companies", "customers"}, phaseMap[PhaseIndependent])
	assert.Equal(t, []string{"enterprises"}, phaseMap[PhaseBasicDependencies])
	assert.Equal(t, []string{"sales-contracts"}, phaseMap[PhaseComplexDependencies])
	assert.Equal(t, []string{"sales-commissions"}, phaseMap[PhaseRelationships])
}

func TestDependenciesSatisfied(t *testing.T) {
	synced := map[string]bool{"companies": true}
	assert.True(t, DefaultDependencyGraph.DependenciesSatisfied("enterprises", synced))
	assert.False(t, DefaultDependencyGraph.DependenciesSatisfied("sales-contracts", synced))
	// 未声明的实体视为无依赖
	assert.True(t, DefaultDependencyGraph.DependenciesSatisfied("custom-entity", nil))
}

func TestValidateNoCycles_默认依赖图无环(t *testing.T) {
	assert.NoError(t, DefaultDependencyGraph.ValidateNoCycles())
}

func TestValidateNoCycles_检测循环依赖(t *testing.T) {
	g := NewDependencyGraph([]EntityDependency{
		{Entity: "a", DependsOn: []string{"b"}, Phase: 1},
		{Entity: "b", DependsOn: []string{"c"}, Phase: 2},
		{Entity: "c", DependsOn: []string{"a"}, Phase: 3},
	})

	err := g.ValidateNoCycles()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "循环依赖")
}

func TestValidateNoCycles_菱形依赖不是环(t *testing.T) {
	g := NewDependencyGraph([]EntityDependency{
		{Entity: "base", DependsOn: []string{}, Phase: 1},
		{Entity: "left", DependsOn: []string{"base"}, Phase: 2},
		{Entity: "right", DependsOn: []string{"base"}, Phase: 2},
		{Entity: "top", DependsOn: []string{"left", "right"}, Phase: 3},
	})
	assert.NoError(t, g.ValidateNoCycles())
}

func TestEndpointConfigs_全部实体在依赖图中(t *testing.T) {
	for _, entity := range ListConfiguredEntities() {
		assert.NotNil(t, DefaultDependencyGraph.byName[entity], "实体 %s 缺少依赖声明", entity)
	}
}

func TestEndpointConfigs_引用规则指向已配置实体(t *testing.T) {
	for entity, cfg := range EndpointConfigs {
		for _, ref := range cfg.References {
			assert.True(t, HasEndpointConfig(ref.Entity), "实体 %s 引用了未配置的实体 %s", entity, ref.Entity)
			assert.Contains(t, []string{OnMissingNull, OnMissingFail}, ref.OnMissing)
		}
	}
}
