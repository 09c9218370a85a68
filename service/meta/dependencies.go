/*
 * @module service/meta/dependencies
 * @description 实体同步依赖图，定义同步顺序的阶段划分与依赖展开
 * @architecture 元数据驱动 - 有向无环图
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 服务启动时校验无环 -> 同步请求时展开依赖并按阶段分组
 * @rules 同阶段实体可并发，阶段之间严格屏障；依赖必须位于更早或相同阶段
 * @dependencies 无
 * @refs service/sync/orchestrator.go, service/init.go
 */

package meta

import (
	"fmt"
	"sort"
)

// 同步阶段
const (
	PhaseIndependent         = 1 // 无外键的独立实体
	PhaseBasicDependencies   = 2 // 单一依赖实体
	PhaseComplexDependencies = 3 // 多依赖实体
	PhaseRelationships       = 4 // 关联关系实体
)

// EntityDependency 实体依赖声明
type EntityDependency struct {
	Entity    string   `json:"entity"`
	DependsOn []string `json:"depends_on"`
	Phase     int      `json:"phase"`
}

// DependencyGraph 实体依赖图
type DependencyGraph struct {
	entries []EntityDependency
	byName  map[string]*EntityDependency
}

// NewDependencyGraph 从依赖声明构建依赖图
func NewDependencyGraph(entries []EntityDependency) *DependencyGraph {
	g := &DependencyGraph{
		entries: entries,
		byName:  make(map[string]*EntityDependency, len(entries)),
	}
	for i := range entries {
		g.byName[entries[i].Entity] = &entries[i]
	}
	return g
}

// DefaultDependencyGraph 全量实体的默认依赖图
var DefaultDependencyGraph = NewDependencyGraph([]EntityDependency{
	{Entity: "companies", DependsOn: []string{}, Phase: PhaseIndependent},
	{Entity: "customers", DependsOn: []string{}, Phase: PhaseIndependent},
	{Entity: "indexers", DependsOn: []string{}, Phase: PhaseIndependent},
	{Entity: "financial-plans", DependsOn: []string{}, Phase: PhaseIndependent},
	{Entity: "receivable-carriers", DependsOn: []string{}, Phase: PhaseIndependent},
	{Entity: "cost-centers", DependsOn: []string{}, Phase: PhaseIndependent},

	{Entity: "enterprises", DependsOn: []string{"companies"}, Phase: PhaseBasicDependencies},
	{Entity: "projects", DependsOn: []string{"companies"}, Phase: PhaseBasicDependencies},

	{Entity: "sales-contracts", DependsOn: []string{"enterprises", "companies", "customers"}, Phase: PhaseComplexDependencies},
	{Entity: "units", DependsOn: []string{"enterprises", "sales-contracts"}, Phase: PhaseComplexDependencies},
	{Entity: "accounts-receivable", DependsOn: []string{"customers", "companies", "sales-contracts"}, Phase: PhaseComplexDependencies},
	{Entity: "accounts-payable", DependsOn: []string{"companies"}, Phase: PhaseComplexDependencies},

	{Entity: "sales-commissions", DependsOn: []string{"sales-contracts"}, Phase: PhaseRelationships},
})

// DirectDependencies 获取实体的直接依赖
func (g *DependencyGraph) DirectDependencies(entity string) []string {
	if dep, ok := g.byName[entity]; ok {
		return dep.DependsOn
	}
	return nil
}

// Phase 获取实体所在阶段，未声明的实体归入独立阶段
func (g *DependencyGraph) Phase(entity string) int {
	if dep, ok := g.byName[entity]; ok {
		return dep.Phase
	}
	return PhaseIndependent
}

// SyncOrder 展开请求实体的传递依赖并按阶段排序
// 未在依赖图中声明的实体直接纳入，视为独立实体
func (g *DependencyGraph) SyncOrder(requested []string) []string {
	required := make(map[string]bool)

	var addWithDependencies func(entity string)
	addWithDependencies = func(entity string) {
		if required[entity] {
			return
		}
		dep, ok := g.byName[entity]
		if !ok {
			required[entity] = true
			return
		}
		for _, d := range dep.DependsOn {
			addWithDependencies(d)
		}
		required[entity] = true
	}

	for _, entity := range requested {
		addWithDependencies(entity)
	}

	// 按声明顺序过滤，保证同阶段内顺序稳定
	ordered := make([]string, 0, len(required))
	for _, dep := range g.entries {
		if required[dep.Entity] {
			ordered = append(ordered, dep.Entity)
			delete(required, dep.Entity)
		}
	}
	// 依赖图外的实体排在最后
	extra := make([]string, 0, len(required))
	for entity := range required {
		extra = append(extra, entity)
	}
	sort.Strings(extra)
	ordered = append(ordered, extra...)

	sort.SliceStable(ordered, func(i, j int) bool {
		return g.Phase(ordered[i]) < g.Phase(ordered[j])
	})
	return ordered
}

// GroupByPhase 将实体列表按阶段分组，返回升序阶段号和阶段到实体的映射
func (g *DependencyGraph) GroupByPhase(entities []string) ([]int, map[int][]string) {
	phaseMap := make(map[int][]string)
	for _, entity := range entities {
		phase := g.Phase(entity)
		phaseMap[phase] = append(phaseMap[phase], entity)
	}

	phases := make([]int, 0, len(phaseMap))
	for phase := range phaseMap {
		phases = append(phases, phase)
	}
	sort.Ints(phases)
	return phases, phaseMap
}

// DependenciesSatisfied 检查实体的直接依赖是否都已同步完成
func (g *DependencyGraph) DependenciesSatisfied(entity string, synced map[string]bool) bool {
	for _, dep := range g.DirectDependencies(entity) {
		if !synced[dep] {
			return false
		}
	}
	return true
}

// ValidateNoCycles 校验依赖图无环，发现环返回涉及的实体
func (g *DependencyGraph) ValidateNoCycles() error {
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	var visit func(entity string) error
	visit = func(entity string) error {
		visited[entity] = true
		inStack[entity] = true

		for _, dep := range g.DirectDependencies(entity) {
			if !visited[dep] {
				if err := visit(dep); err != nil {
					return err
				}
			} else if inStack[dep] {
				return fmt.Errorf("检测到循环依赖: %s -> %s", entity, dep)
			}
		}

		inStack[entity] = false
		return nil
	}

	for _, dep := range g.entries {
		if !visited[dep.Entity] {
			if err := visit(dep.Entity); err != nil {
				return err
			}
		}
	}
	return nil
}
