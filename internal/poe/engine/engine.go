// Package engine contains the crafting data business logic.
//
// DataContext owns the current snapshot and every index derived from it.
// Indices are rebuilt from scratch whenever a snapshot is loaded, never
// patched. A read-write guard around the snapshot swap lets the HTTP
// surface read concurrently while refreshes stay atomic: in-flight reads
// finish against the old snapshot, reads after the swap see only the new
// one.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/exilecraft/poe-crafting-server/internal/poe/normalize"
	"github.com/exilecraft/poe-crafting-server/internal/poe/price"
	"github.com/exilecraft/poe-crafting-server/internal/poe/rules"
	"github.com/exilecraft/poe-crafting-server/internal/poe/snapshot"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

// Capacity bounds for the in-memory plan and build stores. Both are LRU
// caches; without a bound a long-lived process would grow without limit.
const (
	planStoreSize  = 512
	buildStoreSize = 256
)

// DataContext is the orchestrator over one active snapshot.
type DataContext struct {
	store  *snapshot.Store
	logger *slog.Logger

	mu       sync.RWMutex
	snapshot *poe.Snapshot
	prices   *price.Index
	ruleSet  poe.CraftingRuleSet

	// Rule sets layered on top of the snapshot's own; they survive
	// refreshes and later sets win on duplicate ids.
	extraRules []poe.CraftingRuleSet

	// Sorted candidate slices keep search results deterministic.
	modList  []poe.ModDefinition
	baseList []poe.BaseItemDefinition
	gemList  []poe.GemDefinition

	// Normalized name (and alias) to entity id.
	modNames  map[string]string
	baseNames map[string]string
	gemNames  map[string]string

	plans  *lru.Cache[string, *poe.CraftPlan]
	builds *lru.Cache[string, poe.PobBuildSummary]
}

// SnapshotInfo identifies the snapshot a response was served from.
type SnapshotInfo struct {
	Version   string `json:"version"`
	League    string `json:"league"`
	CreatedAt string `json:"createdAt"`
}

// New creates a DataContext over the given snapshot directory. No
// snapshot is loaded until EnsureReady.
func New(snapshotDir string, logger *slog.Logger) *DataContext {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	plans, _ := lru.New[string, *poe.CraftPlan](planStoreSize)
	builds, _ := lru.New[string, poe.PobBuildSummary](buildStoreSize)

	return &DataContext{
		store:  snapshot.New(snapshotDir, logger),
		logger: logger,
		plans:  plans,
		builds: builds,
	}
}

// Store exposes the underlying snapshot store.
func (dc *DataContext) Store() *snapshot.Store { return dc.store }

// EnsureReady ensures the store exists and a snapshot is loaded with all
// derived indices built. Subsequent calls are no-ops until Refresh.
func (dc *DataContext) EnsureReady(ctx context.Context) error {
	if err := dc.store.EnsureReady(); err != nil {
		return err
	}

	dc.mu.RLock()
	loaded := dc.snapshot != nil
	dc.mu.RUnlock()
	if loaded {
		return nil
	}

	return dc.Refresh(ctx)
}

// Refresh reloads the latest snapshot and rebuilds every derived index.
// A corrupt snapshot is surfaced immediately; retrying the same read
// cannot heal it.
func (dc *DataContext) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap, err := dc.store.LoadLatest()
	if err != nil {
		return err
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.install(snap)

	return nil
}

// install swaps in a snapshot and rebuilds indices. Callers hold the
// write lock.
func (dc *DataContext) install(snap *poe.Snapshot) {
	dc.snapshot = snap
	dc.prices = price.New(snap)
	dc.ruleSet = dc.mergedRules(snap)

	dc.modList = make([]poe.ModDefinition, 0, len(snap.Mods))
	dc.modNames = make(map[string]string, len(snap.Mods)*2)
	for id, mod := range snap.Mods {
		dc.modList = append(dc.modList, mod)
		dc.modNames[normalize.Name(id)] = id
		dc.modNames[normalize.Name(mod.Name)] = id
	}
	sort.Slice(dc.modList, func(i, j int) bool { return dc.modList[i].Name < dc.modList[j].Name })

	dc.baseList = make([]poe.BaseItemDefinition, 0, len(snap.Bases))
	dc.baseNames = make(map[string]string, len(snap.Bases)*2)
	for id, base := range snap.Bases {
		dc.baseList = append(dc.baseList, base)
		dc.baseNames[normalize.Name(id)] = id
		dc.baseNames[normalize.Name(base.Name)] = id
	}
	sort.Slice(dc.baseList, func(i, j int) bool { return dc.baseList[i].Name < dc.baseList[j].Name })

	dc.gemList = make([]poe.GemDefinition, 0, len(snap.Gems))
	dc.gemNames = make(map[string]string, len(snap.Gems)*2)
	for id, gem := range snap.Gems {
		dc.gemList = append(dc.gemList, gem)
		dc.gemNames[normalize.Name(id)] = id
		dc.gemNames[normalize.Name(gem.Name)] = id
	}
	sort.Slice(dc.gemList, func(i, j int) bool { return dc.gemList[i].Name < dc.gemList[j].Name })

	// Alias overlay runs strictly after direct population so an alias can
	// never be shadowed by a direct name registered later; both write into
	// the same maps and last write wins.
	for _, entry := range snap.NameIndex.Entries {
		var target map[string]string
		switch entry.Type {
		case "mod":
			target = dc.modNames
		case "base":
			target = dc.baseNames
		case "gem":
			target = dc.gemNames
		default:
			continue
		}

		target[normalize.Name(entry.Slug)] = entry.ID
		for _, alias := range entry.Aliases {
			target[normalize.Name(alias)] = entry.ID
		}
	}

	// Snapshot-bundled builds seed the build store; an empty snapshot gets
	// the default builds so pob_delta works out of the box.
	if len(snap.Pob.Builds) == 0 {
		for _, build := range defaultBuilds() {
			dc.builds.Add(build.ID, build)
		}
	}
	ids := make([]string, 0, len(snap.Pob.Builds))
	for id := range snap.Pob.Builds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		dc.builds.Add(id, snap.Pob.Builds[id])
	}
}

// mergedRules combines the snapshot's rules with every added overlay.
// Callers hold the write lock.
func (dc *DataContext) mergedRules(snap *poe.Snapshot) poe.CraftingRuleSet {
	if len(dc.extraRules) == 0 {
		return rules.Normalize(snap.Rules)
	}
	sets := make([]poe.CraftingRuleSet, 0, 1+len(dc.extraRules))
	sets = append(sets, snap.Rules)
	sets = append(sets, dc.extraRules...)
	return rules.Merge(sets...)
}

// AddRules layers a rule set over the snapshot's own. The overlay is
// applied immediately and re-applied after every refresh.
func (dc *DataContext) AddRules(ruleSet poe.CraftingRuleSet) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.extraRules = append(dc.extraRules, ruleSet)
	if dc.snapshot != nil {
		dc.ruleSet = dc.mergedRules(dc.snapshot)
	}
}

// Info returns the loaded snapshot's identity, or zero values before
// EnsureReady.
func (dc *DataContext) Info() SnapshotInfo {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	if dc.snapshot == nil {
		return SnapshotInfo{Version: "unknown", League: "unknown"}
	}
	return SnapshotInfo{
		Version:   dc.snapshot.Version,
		League:    dc.snapshot.Metadata.League,
		CreatedAt: dc.snapshot.CreatedAt,
	}
}

// Snapshot returns the current snapshot.
func (dc *DataContext) Snapshot() (*poe.Snapshot, error) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	if dc.snapshot == nil {
		return nil, noSnapshot()
	}
	return dc.snapshot, nil
}

// PriceIndex returns the current price index.
func (dc *DataContext) PriceIndex() (*price.Index, error) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	if dc.prices == nil {
		return nil, noSnapshot()
	}
	return dc.prices, nil
}

// ListSnapshots enumerates stored snapshots.
func (dc *DataContext) ListSnapshots() ([]poe.SnapshotSummary, error) {
	return dc.store.List()
}

func notFound(format string, hint string, args ...any) error {
	return &poe.NotFoundError{Message: fmt.Sprintf(format, args...), Hint: hint}
}

// noSnapshot is the uniform error for any operation invoked before a
// snapshot is loaded.
func noSnapshot() error {
	return &poe.StorageError{Message: "no snapshot loaded; call EnsureReady first"}
}
