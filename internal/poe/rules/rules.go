// Package rules matches heuristic crafting advice against tag sets.
package rules

import (
	"sort"

	"github.com/exilecraft/poe-crafting-server/internal/poe/normalize"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

// Normalize canonicalizes every rule's tags and rebuilds the byTag
// inverted index from scratch. Call it whenever a rule set arrives from an
// external source; raw tag casing and spacing are not guaranteed
// consistent. ByTag is always a pure function of Rules.
func Normalize(ruleSet poe.CraftingRuleSet) poe.CraftingRuleSet {
	out := poe.CraftingRuleSet{
		Rules: make(map[string]poe.CraftingRule, len(ruleSet.Rules)),
		ByTag: make(map[string][]string),
	}

	ids := make([]string, 0, len(ruleSet.Rules))
	for id := range ruleSet.Rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rule := ruleSet.Rules[id]
		rule.ID = id
		rule.Tags = uniqueTags(rule.Tags)
		out.Rules[id] = rule

		for _, tag := range rule.Tags {
			out.ByTag[tag] = append(out.ByTag[tag], id)
		}
	}

	return out
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := normalize.Tag(tag)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// Match pairs a rule with the target tags it satisfied. Score is the
// fraction of the rule's own tags that matched, so a narrow rule with all
// tags satisfied outranks a broad rule with a partial match.
type Match struct {
	Rule        poe.CraftingRule `json:"rule"`
	MatchedTags []string         `json:"matchedTags"`
	Score       float64          `json:"score"`
}

func scoreRule(rule poe.CraftingRule, target map[string]struct{}) (Match, bool) {
	var matched []string
	for _, tag := range rule.Tags {
		if _, ok := target[tag]; ok {
			matched = append(matched, tag)
		}
	}
	if len(matched) == 0 {
		return Match{}, false
	}

	return Match{
		Rule:        rule,
		MatchedTags: matched,
		Score:       float64(len(matched)) / float64(len(rule.Tags)),
	}, true
}

// MatchForTags finds every rule sharing at least one tag with the target
// set. A rule matching on multiple tags is scored once. Results sort by
// score descending with an alphabetical tie-break on rule title.
func MatchForTags(ruleSet poe.CraftingRuleSet, tags []string) []Match {
	normalized := Normalize(ruleSet)

	target := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if t := normalize.Tag(tag); t != "" {
			target[t] = struct{}{}
		}
	}
	ordered := make([]string, 0, len(target))
	for tag := range target {
		ordered = append(ordered, tag)
	}
	sort.Strings(ordered)

	visited := make(map[string]struct{})
	var matches []Match
	for _, tag := range ordered {
		for _, ruleID := range normalized.ByTag[tag] {
			if _, done := visited[ruleID]; done {
				continue
			}
			visited[ruleID] = struct{}{}
			if match, ok := scoreRule(normalized.Rules[ruleID], target); ok {
				matches = append(matches, match)
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Rule.Title < matches[j].Rule.Title
	})

	return matches
}

// MatchForCraft unions the base's tags with every mod's own and applicable
// tags, then delegates to MatchForTags.
func MatchForCraft(ruleSet poe.CraftingRuleSet, base poe.BaseItemDefinition, mods []poe.ModDefinition) []Match {
	var tags []string
	tags = append(tags, base.Tags...)
	for _, mod := range mods {
		tags = append(tags, mod.Tags...)
		tags = append(tags, mod.ApplicableTags...)
	}
	return MatchForTags(ruleSet, tags)
}

// Merge normalizes and combines several rule sets into one. Later sets win
// on duplicate rule ids.
func Merge(ruleSets ...poe.CraftingRuleSet) poe.CraftingRuleSet {
	combined := poe.CraftingRuleSet{Rules: make(map[string]poe.CraftingRule)}
	for _, ruleSet := range ruleSets {
		for id, rule := range ruleSet.Rules {
			combined.Rules[id] = rule
		}
	}
	return Normalize(combined)
}
