package engine

import (
	"sort"

	"github.com/exilecraft/poe-crafting-server/internal/poe/normalize"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

// SearchOptions filter and bound a search over mods, bases or gems.
type SearchOptions struct {
	Limit int
	Tag   string
}

const defaultSearchLimit = 5

// rankedSearch is the one shared search implementation. Candidates are
// filtered by optional exact tag membership first; an empty query returns
// the filtered set unscored. A non-empty query scores name and every tag,
// keeps positive scores sorted descending with an alphabetical name
// tie-break, and falls back to the tag-filtered candidates when scoring
// yields nothing.
func rankedSearch[T any](candidates []T, query string, opts SearchOptions, name func(T) string, tags func(T) []string) []T {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	filtered := candidates
	if opts.Tag != "" {
		target := normalize.Tag(opts.Tag)
		filtered = nil
		for _, c := range candidates {
			for _, tag := range tags(c) {
				if normalize.Tag(tag) == target {
					filtered = append(filtered, c)
					break
				}
			}
		}
	}

	clip := func(in []T) []T {
		if len(in) > limit {
			return in[:limit]
		}
		return in
	}

	q := normalize.Name(query)
	if q == "" {
		return clip(filtered)
	}

	type scored struct {
		candidate T
		score     float64
	}
	var matches []scored
	for _, c := range filtered {
		score := normalize.ScoreMatch(q, name(c))
		for _, tag := range tags(c) {
			if tagScore := normalize.ScoreMatch(q, tag); tagScore > score {
				score = tagScore
			}
		}
		if score > 0 {
			matches = append(matches, scored{candidate: c, score: score})
		}
	}

	if len(matches) == 0 {
		return clip(filtered)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return name(matches[i].candidate) < name(matches[j].candidate)
	})

	out := make([]T, 0, min(limit, len(matches)))
	for _, m := range matches {
		out = append(out, m.candidate)
		if len(out) == limit {
			break
		}
	}
	return out
}

// SearchMods finds modifiers by fuzzy query with an optional tag filter.
// The tag filter matches against both a mod's own tags and its applicable
// tags.
func (dc *DataContext) SearchMods(query string, opts SearchOptions) []poe.ModDefinition {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	return rankedSearch(dc.modList, query, opts,
		func(m poe.ModDefinition) string { return m.Name },
		func(m poe.ModDefinition) []string {
			tags := make([]string, 0, len(m.Tags)+len(m.ApplicableTags))
			tags = append(tags, m.Tags...)
			tags = append(tags, m.ApplicableTags...)
			return tags
		})
}

// SearchBases finds base items by fuzzy query with an optional tag filter.
func (dc *DataContext) SearchBases(query string, opts SearchOptions) []poe.BaseItemDefinition {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	return rankedSearch(dc.baseList, query, opts,
		func(b poe.BaseItemDefinition) string { return b.Name },
		func(b poe.BaseItemDefinition) []string { return b.Tags })
}

// SearchGems finds gems by fuzzy query with an optional tag filter.
func (dc *DataContext) SearchGems(query string, opts SearchOptions) []poe.GemDefinition {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	return rankedSearch(dc.gemList, query, opts,
		func(g poe.GemDefinition) string { return g.Name },
		func(g poe.GemDefinition) []string { return g.Tags })
}

// SearchItems fuzzy-searches the price index; results carry a freshly
// converted divine value.
func (dc *DataContext) SearchItems(query string, limit int) ([]poe.ItemPrice, error) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	if dc.prices == nil {
		return nil, noSnapshot()
	}

	items := dc.prices.Search(query, limit)
	out := make([]poe.ItemPrice, len(items))
	for i, item := range items {
		out[i] = dc.prices.StructuredResult(item)
	}
	return out, nil
}

// PriceCheckResult is the outcome of a price check for a quantity.
type PriceCheckResult struct {
	Item        poe.ItemPrice `json:"item"`
	Quantity    int           `json:"quantity"`
	TotalChaos  float64       `json:"totalChaos"`
	TotalDivine float64       `json:"totalDivine"`
}

// PriceCheck resolves an item price by exact normalized name or best fuzzy
// match and computes totals for a quantity. Zero or negative quantities
// are treated as 1, never an error.
func (dc *DataContext) PriceCheck(name string, quantity int, exact bool) (PriceCheckResult, error) {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	if dc.prices == nil {
		return PriceCheckResult{}, noSnapshot()
	}

	item, ok := dc.prices.ByName(name)
	if !ok && !exact {
		if matches := dc.prices.Search(name, 1); len(matches) > 0 {
			item, ok = matches[0], true
		}
	}
	if !ok {
		return PriceCheckResult{}, notFound("no price data found for %q", "Use search_items to find priced items.", name)
	}

	if quantity < 1 {
		quantity = 1
	}

	totalChaos := normalize.RoundCurrency(item.ChaosValue * float64(quantity))
	rate := dc.prices.SuggestedDivineRate()

	return PriceCheckResult{
		Item:        dc.prices.StructuredResult(item),
		Quantity:    quantity,
		TotalChaos:  totalChaos,
		TotalDivine: normalize.RoundCurrency(normalize.ChaosToDivine(totalChaos, rate)),
	}, nil
}
