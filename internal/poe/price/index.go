// Package price builds the per-snapshot price index.
package price

import (
	"sort"
	"strings"

	"github.com/exilecraft/poe-crafting-server/internal/poe/normalize"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

// Index provides O(1) price lookups by item id and normalized name over a
// single snapshot. Built once per snapshot load; never patched.
type Index struct {
	snapshot *poe.Snapshot
	byID     map[string]poe.ItemPrice
	byName   map[string]poe.ItemPrice
}

// New indexes every priced item in the snapshot. O(n) build.
func New(snap *poe.Snapshot) *Index {
	idx := &Index{
		snapshot: snap,
		byID:     make(map[string]poe.ItemPrice, len(snap.Items)),
		byName:   make(map[string]poe.ItemPrice, len(snap.Items)),
	}

	for _, item := range snap.Items {
		if item.NormalizedName == "" {
			item.NormalizedName = normalize.Name(item.Name)
		}
		idx.byID[item.ItemID] = item
		idx.byName[item.NormalizedName] = item
	}

	return idx
}

// Version returns the snapshot version the index was built from.
func (idx *Index) Version() string { return idx.snapshot.Version }

// CreatedAt returns the snapshot creation timestamp.
func (idx *Index) CreatedAt() string { return idx.snapshot.CreatedAt }

// Metadata returns the snapshot metadata.
func (idx *Index) Metadata() poe.SnapshotMetadata { return idx.snapshot.Metadata }

// List returns every priced item in stable (item-id) order.
func (idx *Index) List() []poe.ItemPrice {
	out := make([]poe.ItemPrice, len(idx.snapshot.Items))
	copy(out, idx.snapshot.Items)
	return out
}

// ByID looks up an item price by raw item id.
func (idx *Index) ByID(itemID string) (poe.ItemPrice, bool) {
	item, ok := idx.byID[itemID]
	return item, ok
}

// ByName looks up an item price by display name; the argument is
// normalized first.
func (idx *Index) ByName(name string) (poe.ItemPrice, bool) {
	item, ok := idx.byName[normalize.Name(name)]
	return item, ok
}

// SuggestedDivineRate derives the chaos-per-divine rate from the reference
// items, falling back to the default when either is absent or the divine
// value is zero.
func (idx *Index) SuggestedDivineRate() float64 {
	chaos, okChaos := idx.ByName("chaos orb")
	divine, okDivine := idx.ByName("divine orb")
	if !okChaos || !okDivine || divine.ChaosValue == 0 {
		return normalize.DefaultDivineRate
	}
	return chaos.ChaosValue / divine.ChaosValue
}

// Search scores every item against query and returns the top matches,
// ties broken alphabetically. When scoring yields nothing it degrades to a
// plain substring filter over normalized names rather than returning an
// empty result.
func (idx *Index) Search(query string, limit int) []poe.ItemPrice {
	if limit <= 0 {
		limit = 10
	}
	normalizedQuery := normalize.Name(query)

	type scored struct {
		item  poe.ItemPrice
		score float64
	}

	var matches []scored
	for _, item := range idx.snapshot.Items {
		if score := normalize.ScoreMatch(normalizedQuery, item.NormalizedName); score > 0 {
			matches = append(matches, scored{item: item, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].item.Name < matches[j].item.Name
	})

	if len(matches) > 0 {
		if len(matches) > limit {
			matches = matches[:limit]
		}
		out := make([]poe.ItemPrice, len(matches))
		for i, m := range matches {
			out[i] = m.item
		}
		return out
	}

	var fallback []poe.ItemPrice
	for _, item := range idx.snapshot.Items {
		if strings.Contains(item.NormalizedName, normalizedQuery) {
			fallback = append(fallback, item)
			if len(fallback) == limit {
				break
			}
		}
	}

	return fallback
}

// StructuredResult projects an item for output. The divine value is
// recomputed at read time; the stored value may reflect a historical rate.
func (idx *Index) StructuredResult(item poe.ItemPrice) poe.ItemPrice {
	out := item
	out.DivineValue = normalize.ChaosToDivine(item.ChaosValue, normalize.DefaultDivineRate)
	return out
}
