package engine

import (
	"fmt"
	"strings"

	"github.com/exilecraft/poe-crafting-server/internal/poe/normalize"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

// Three-tier resolution: raw id, then normalized identifier as id, then
// the alias-augmented name map. Every public method accepting a "name or
// id" argument goes through one of these.

func (dc *DataContext) resolveMod(identifier string) (poe.ModDefinition, error) {
	if dc.snapshot == nil {
		return poe.ModDefinition{}, noSnapshot()
	}
	if mod, ok := dc.snapshot.Mods[identifier]; ok {
		return mod, nil
	}
	normalized := normalize.Name(identifier)
	if mod, ok := dc.snapshot.Mods[normalized]; ok {
		return mod, nil
	}
	if id, ok := dc.modNames[normalized]; ok {
		if mod, ok := dc.snapshot.Mods[id]; ok {
			return mod, nil
		}
	}
	return poe.ModDefinition{}, notFound("unknown modifier %q", "Use search_mods to discover modifier identifiers.", identifier)
}

func (dc *DataContext) resolveBase(identifier string) (poe.BaseItemDefinition, error) {
	if dc.snapshot == nil {
		return poe.BaseItemDefinition{}, noSnapshot()
	}
	if base, ok := dc.snapshot.Bases[identifier]; ok {
		return base, nil
	}
	normalized := normalize.Name(identifier)
	if base, ok := dc.snapshot.Bases[normalized]; ok {
		return base, nil
	}
	if id, ok := dc.baseNames[normalized]; ok {
		if base, ok := dc.snapshot.Bases[id]; ok {
			return base, nil
		}
	}
	return poe.BaseItemDefinition{}, notFound("unknown base item %q", "Use search_bases to discover base item identifiers.", identifier)
}

func (dc *DataContext) resolveGem(identifier string) (poe.GemDefinition, error) {
	if dc.snapshot == nil {
		return poe.GemDefinition{}, noSnapshot()
	}
	if gem, ok := dc.snapshot.Gems[identifier]; ok {
		return gem, nil
	}
	normalized := normalize.Name(identifier)
	if gem, ok := dc.snapshot.Gems[normalized]; ok {
		return gem, nil
	}
	if id, ok := dc.gemNames[normalized]; ok {
		if gem, ok := dc.snapshot.Gems[id]; ok {
			return gem, nil
		}
	}
	return poe.GemDefinition{}, notFound("unknown gem %q", "Use search_gems to discover gem identifiers.", identifier)
}

// ResolveMod resolves a modifier by id, name or alias.
func (dc *DataContext) ResolveMod(identifier string) (poe.ModDefinition, error) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.resolveMod(identifier)
}

// ResolveBase resolves a base item by id, name or alias.
func (dc *DataContext) ResolveBase(identifier string) (poe.BaseItemDefinition, error) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.resolveBase(identifier)
}

// ResolveGem resolves a gem by id, name or alias.
func (dc *DataContext) ResolveGem(identifier string) (poe.GemDefinition, error) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()
	return dc.resolveGem(identifier)
}

// CanRollResult reports whether a modifier can roll on a base, with every
// blocking reason listed.
type CanRollResult struct {
	Base    poe.BaseItemDefinition `json:"base"`
	Mod     poe.ModDefinition      `json:"mod"`
	CanRoll bool                   `json:"canRoll"`
	Reasons []string               `json:"reasons"`
}

// CanRollMod resolves both identifiers and checks tag applicability and
// level requirements independently. The checks do not short-circuit, so
// the caller sees every blocking reason at once; CanRoll is true iff
// Reasons is empty.
func (dc *DataContext) CanRollMod(baseIdentifier, modIdentifier string) (CanRollResult, error) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	base, err := dc.resolveBase(baseIdentifier)
	if err != nil {
		return CanRollResult{}, err
	}
	mod, err := dc.resolveMod(modIdentifier)
	if err != nil {
		return CanRollResult{}, err
	}

	reasons := []string{}

	baseTags := make(map[string]struct{}, len(base.Tags))
	for _, tag := range base.Tags {
		baseTags[normalize.Tag(tag)] = struct{}{}
	}
	applicable := false
	for _, tag := range mod.ApplicableTags {
		if _, ok := baseTags[normalize.Tag(tag)]; ok {
			applicable = true
			break
		}
	}
	if !applicable {
		reasons = append(reasons, fmt.Sprintf(
			"%s requires one of the tags [%s]; %s has [%s]",
			mod.Name, strings.Join(mod.ApplicableTags, ", "),
			base.Name, strings.Join(base.Tags, ", ")))
	}

	if base.RequiredLevel < mod.MinimumItemLevel {
		reasons = append(reasons, fmt.Sprintf(
			"%s requires item level %d but %s is level %d",
			mod.Name, mod.MinimumItemLevel, base.Name, base.RequiredLevel))
	}

	return CanRollResult{
		Base:    base,
		Mod:     mod,
		CanRoll: len(reasons) == 0,
		Reasons: reasons,
	}, nil
}
