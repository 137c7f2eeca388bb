// Package poe contains the core types for the crafting data server.
package poe

// ============================================
// PRICE TYPES
// ============================================

// ItemPrice is a single priced item from the snapshot's price table.
// NormalizedName is always the canonicalized form of Name; index lookups
// key on it and never on the raw display name.
type ItemPrice struct {
	ItemID         string   `json:"itemId"`
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalizedName"`
	Category       string   `json:"category"`
	ChaosValue     float64  `json:"chaosValue"`
	DivineValue    float64  `json:"divineValue"`
	Confidence     float64  `json:"confidence"`
	SampleSize     int      `json:"sampleSize"`
	Listings       int      `json:"listings"`
	Sources        []string `json:"sources"`
	LastUpdated    string   `json:"lastUpdated,omitempty"`
	DetailsID      string   `json:"detailsId,omitempty"`
}

// PriceTable groups price entries into a named category table.
type PriceTable struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`
	Entries     []string `json:"entries"`
	LastUpdated string   `json:"lastUpdated"`
}

// SnapshotPriceTables is the price section of a snapshot.
type SnapshotPriceTables struct {
	Items           map[string]ItemPrice  `json:"items"`
	Tables          map[string]PriceTable `json:"tables"`
	DivineChaosRate float64               `json:"divineChaosRate"`
}

// ============================================
// GAME DATA TYPES
// ============================================

// TagDefinition describes a tag shared across items, mods and gems.
type TagDefinition struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Category    string   `json:"category"`
	Description string   `json:"description,omitempty"`
	Synonyms    []string `json:"synonyms,omitempty"`
}

// SpawnWeight is a per-tag spawn weight on a modifier.
type SpawnWeight struct {
	Tag    string  `json:"tag"`
	Weight float64 `json:"weight"`
}

// ModDefinition is a crafting modifier with eligibility constraints.
type ModDefinition struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Tier             string        `json:"tier"`
	GenerationType   string        `json:"generationType"` // prefix|suffix|implicit|enchant
	Description      string        `json:"description"`
	Tags             []string      `json:"tags"`
	ApplicableTags   []string      `json:"applicableTags"`
	MinimumItemLevel int           `json:"minimumItemLevel"`
	Domain           string        `json:"domain,omitempty"`
	Group            string        `json:"group,omitempty"`
	Stats            []string      `json:"stats,omitempty"`
	SpawnWeights     []SpawnWeight `json:"spawnWeights,omitempty"`
}

// BaseItemDefinition is an item template onto which modifiers roll.
type BaseItemDefinition struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	ItemClass     string   `json:"itemClass"`
	RequiredLevel int      `json:"requiredLevel"`
	Tags          []string `json:"tags"`
	ImplicitMods  []string `json:"implicitMods"`
	Influences    []string `json:"influences,omitempty"`
	Variant       string   `json:"variant,omitempty"`
}

// GemDefinition is a skill gem record.
type GemDefinition struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	PrimaryAttribute   string   `json:"primaryAttribute"` // Strength|Dexterity|Intelligence|Universal
	Tags               []string `json:"tags"`
	Description        string   `json:"description"`
	GemTags            []string `json:"gemTags,omitempty"`
	WeaponRestrictions []string `json:"weaponRestrictions,omitempty"`
}

// ============================================
// NAME INDEX TYPES
// ============================================

// NameIndexEntry maps a slug to an entity of any indexed type.
type NameIndexEntry struct {
	ID      string   `json:"id"`
	Slug    string   `json:"slug"`
	Type    string   `json:"type"` // item|mod|base|gem|tag|rule|price-table|pob-build
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// NameIndex is the snapshot-global alias table, built once at ingest time.
type NameIndex struct {
	Entries []NameIndexEntry          `json:"entries"`
	BySlug  map[string]NameIndexEntry `json:"bySlug"`
}

// ============================================
// RULE TYPES
// ============================================

// CraftingRule is a human-authored crafting recommendation.
type CraftingRule struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Conditions  []string `json:"conditions"`
	Outcomes    []string `json:"outcomes"`
}

// CraftingRuleSet holds rules plus the byTag inverted index. ByTag is
// always derived from Rules; it is rebuilt, never patched.
type CraftingRuleSet struct {
	Rules map[string]CraftingRule `json:"rules"`
	ByTag map[string][]string     `json:"byTag"`
}

// ============================================
// CRAFT PLAN TYPES
// ============================================

// CraftCost is a single currency amount on a plan step.
type CraftCost struct {
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

// CraftStepDefinition is one step of a generated crafting plan. Requires
// lists step ids that must complete first; the steps form a tree rooted at
// the prepare-base step.
type CraftStepDefinition struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Requires       []string    `json:"requires,omitempty"`
	Cost           []CraftCost `json:"cost,omitempty"`
	RelatedRuleIDs []string    `json:"relatedRuleIds,omitempty"`
}

// CraftEstimate is the aggregate plan cost in both currencies.
type CraftEstimate struct {
	Chaos  float64 `json:"chaos"`
	Divine float64 `json:"divine"`
}

// CraftPlan is a generated, ordered sequence of crafting actions. Plans
// live in memory for the lifetime of the owning Data Context only.
type CraftPlan struct {
	ID            string                `json:"id"`
	Base          BaseItemDefinition    `json:"base"`
	Mods          []ModDefinition       `json:"mods"`
	Steps         []CraftStepDefinition `json:"steps"`
	EstimatedCost CraftEstimate         `json:"estimatedCost"`
	Notes         []string              `json:"notes,omitempty"`
}

// ============================================
// POB BUILD TYPES
// ============================================

// PobBuildSummary is an imported Path of Building setup.
type PobBuildSummary struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	CharacterClass string   `json:"characterClass"`
	MainSkill      string   `json:"mainSkill,omitempty"`
	DPS            float64  `json:"dps"`
	PoeVersion     string   `json:"poeVersion"`
	Items          []string `json:"items"`
	Tags           []string `json:"tags,omitempty"`
}

// BuildDelta is the item and DPS difference between two builds.
type BuildDelta struct {
	DPS          float64  `json:"dps"`
	NewItems     []string `json:"newItems"`
	RemovedItems []string `json:"removedItems"`
}

// ============================================
// SNAPSHOT TYPES
// ============================================

// SnapshotMetadata describes a snapshot's provenance and category counts.
type SnapshotMetadata struct {
	League          string `json:"league"`
	Source          string `json:"source"`
	Notes           string `json:"notes,omitempty"`
	RepoeMods       int    `json:"repoeMods"`
	RepoeBases      int    `json:"repoeBases"`
	RepoeGems       int    `json:"repoeGems"`
	PriceTableCount int    `json:"priceTableCount"`
	PobBuilds       int    `json:"pobBuilds"`
}

// PobSection holds the snapshot's bundled builds.
type PobSection struct {
	Builds map[string]PobBuildSummary `json:"builds"`
}

// Snapshot is an immutable, versioned bundle of every dataset the server
// serves. It is never mutated after creation; derived indices are rebuilt
// from scratch whenever a new snapshot is loaded.
type Snapshot struct {
	Version   string                        `json:"version"`
	CreatedAt string                        `json:"createdAt"`
	Metadata  SnapshotMetadata              `json:"metadata"`
	Prices    SnapshotPriceTables           `json:"prices"`
	Items     []ItemPrice                   `json:"items"`
	Mods      map[string]ModDefinition      `json:"mods"`
	Bases     map[string]BaseItemDefinition `json:"bases"`
	Gems      map[string]GemDefinition      `json:"gems"`
	Tags      map[string]TagDefinition      `json:"tags"`
	NameIndex NameIndex                     `json:"nameIndex"`
	Pob       PobSection                    `json:"pob"`
	Rules     CraftingRuleSet               `json:"rules"`
}

// SnapshotSummary is the listing record for a stored snapshot.
type SnapshotSummary struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	Version   string `json:"version"`
	ItemCount int    `json:"itemCount"`
}

// SnapshotFileMap names the per-category documents inside a snapshot
// directory.
type SnapshotFileMap struct {
	Prices  string `json:"prices"`
	Mods    string `json:"mods"`
	Bases   string `json:"bases"`
	Gems    string `json:"gems"`
	Tags    string `json:"tags"`
	Indices string `json:"indices"`
	Pob     string `json:"pob"`
	Rules   string `json:"rules"`
}

// SnapshotStats carries precomputed counts for listing without re-reading
// the price document.
type SnapshotStats struct {
	ItemCount int `json:"itemCount"`
}

// SnapshotIndexFile is the manifest document written last-but-one during a
// save (the latest pointer is written after it).
type SnapshotIndexFile struct {
	Version   string           `json:"version"`
	CreatedAt string           `json:"createdAt"`
	Metadata  SnapshotMetadata `json:"metadata"`
	Files     SnapshotFileMap  `json:"files"`
	Stats     *SnapshotStats   `json:"stats,omitempty"`
}
