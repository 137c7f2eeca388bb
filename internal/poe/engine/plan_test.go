package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/exilecraft/poe-crafting-server/internal/poe/snapshot"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

func TestPlanCraft(t *testing.T) {
	dc := newTestContext(t)

	plan, err := dc.PlanCraft("Saintly Chainmail", []string{"Fecund", "of the Seal"})
	if err != nil {
		t.Fatalf("PlanCraft: %v", err)
	}

	if plan.ID == "" {
		t.Fatal("plan has no id")
	}
	if plan.Base.ID != "saintly-chainmail" || len(plan.Mods) != 2 {
		t.Fatalf("plan identity = %s with %d mods", plan.Base.ID, len(plan.Mods))
	}

	// Base step, one step per mod, one matched rule (the life essence
	// rule; the caster rule shares no tags with this craft).
	if len(plan.Steps) != 4 {
		t.Fatalf("len(Steps) = %d, want 4", len(plan.Steps))
	}

	baseStep := plan.Steps[0]
	if len(baseStep.Requires) != 0 {
		t.Errorf("base step requires %v, want none", baseStep.Requires)
	}
	// The base is priced in the snapshot, so no fallback cost.
	if len(baseStep.Cost) != 1 || baseStep.Cost[0].Amount != 5 {
		t.Errorf("base step cost = %+v, want 5 chaos", baseStep.Cost)
	}

	for _, step := range plan.Steps[1:] {
		if len(step.Requires) != 1 || step.Requires[0] != baseStep.ID {
			t.Errorf("step %s requires %v, want [%s]", step.ID, step.Requires, baseStep.ID)
		}
	}

	// Fecund is T1 with a life tag: max(20*6, 120) = 120. "of the Seal"
	// is T3 with no hinted tags: 20*2.5 = 50.
	if got := plan.Steps[1].Cost[0].Amount; got != 120 {
		t.Errorf("Fecund step cost = %v, want 120", got)
	}
	if got := plan.Steps[2].Cost[0].Amount; got != 50 {
		t.Errorf("of the Seal step cost = %v, want 50", got)
	}

	ruleStep := plan.Steps[3]
	if len(ruleStep.RelatedRuleIDs) != 1 || ruleStep.RelatedRuleIDs[0] != "essence-life" {
		t.Errorf("rule step relates to %v, want [essence-life]", ruleStep.RelatedRuleIDs)
	}
	if len(ruleStep.Cost) != 0 {
		t.Errorf("rule step cost = %+v, want none", ruleStep.Cost)
	}

	if plan.EstimatedCost.Chaos != 175 {
		t.Errorf("EstimatedCost.Chaos = %v, want 175", plan.EstimatedCost.Chaos)
	}
	if len(plan.Notes) != 1 || plan.Notes[0] != "Apply Screaming Essence of Greed" {
		t.Errorf("Notes = %v", plan.Notes)
	}
}

func TestPlanCraftRejectsEmptyMods(t *testing.T) {
	dc := newTestContext(t)

	_, err := dc.PlanCraft("Saintly Chainmail", nil)
	var ve *poe.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("error type = %T, want *poe.ValidationError", err)
	}

	if _, err := dc.PlanCraft("Saintly Chainmail", []string{"no such mod"}); !poe.NotFound(err) {
		t.Errorf("expected NotFoundError for unknown mod, got %v", err)
	}
}

func TestValidateCraftStep(t *testing.T) {
	dc := newTestContext(t)

	plan, err := dc.PlanCraft("saintly-chainmail", []string{"fecund"})
	if err != nil {
		t.Fatalf("PlanCraft: %v", err)
	}
	baseID := plan.Steps[0].ID
	modID := plan.Steps[1].ID

	blocked, err := dc.ValidateCraftStep(plan.ID, modID, nil)
	if err != nil {
		t.Fatalf("ValidateCraftStep: %v", err)
	}
	if blocked.IsValid || len(blocked.Missing) != 1 || blocked.Missing[0] != baseID {
		t.Errorf("blocked = valid=%v missing=%v", blocked.IsValid, blocked.Missing)
	}

	ready, err := dc.ValidateCraftStep(plan.ID, modID, []string{baseID})
	if err != nil {
		t.Fatalf("ValidateCraftStep: %v", err)
	}
	if !ready.IsValid || len(ready.Missing) != 0 {
		t.Errorf("ready = valid=%v missing=%v", ready.IsValid, ready.Missing)
	}

	// The base step has no dependencies and is always valid.
	first, err := dc.ValidateCraftStep(plan.ID, baseID, nil)
	if err != nil || !first.IsValid {
		t.Errorf("base step valid=%v err=%v", first.IsValid, err)
	}

	if _, err := dc.ValidateCraftStep("nope", modID, nil); !poe.NotFound(err) {
		t.Errorf("expected NotFoundError for unknown plan, got %v", err)
	}
	if _, err := dc.ValidateCraftStep(plan.ID, "nope", nil); !poe.NotFound(err) {
		t.Errorf("expected NotFoundError for unknown step, got %v", err)
	}
}

func TestImportBuildDeduplicatesIDs(t *testing.T) {
	dc := newTestContext(t)

	first, err := dc.ImportBuild(poe.PobBuildSummary{Name: "My RF Build", DPS: 100000}, "")
	if err != nil {
		t.Fatalf("ImportBuild: %v", err)
	}
	if first.ID != "my-rf-build" {
		t.Errorf("first id = %q, want my-rf-build", first.ID)
	}
	if first.CharacterClass != "Unknown" || first.PoeVersion != "unknown" {
		t.Errorf("defaults not applied: %+v", first)
	}

	second, err := dc.ImportBuild(poe.PobBuildSummary{Name: "My RF Build", DPS: 120000}, "")
	if err != nil {
		t.Fatalf("ImportBuild: %v", err)
	}
	if second.ID != "my-rf-build-2" {
		t.Errorf("second id = %q, want my-rf-build-2", second.ID)
	}

	explicit, err := dc.ImportBuild(poe.PobBuildSummary{Name: "My RF Build"}, "custom-id")
	if err != nil || explicit.ID != "custom-id" {
		t.Errorf("explicit id = %q err=%v", explicit.ID, err)
	}

	if _, err := dc.ImportBuild(poe.PobBuildSummary{}, ""); err == nil {
		t.Error("expected error for nameless build")
	}

	got, err := dc.GetBuild("my-rf-build-2")
	if err != nil || got.DPS != 120000 {
		t.Errorf("GetBuild = %+v, %v", got, err)
	}
	if _, err := dc.GetBuild("missing"); !poe.NotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestDiffBuilds(t *testing.T) {
	dc := newTestContext(t)

	// The fixture snapshot carries no builds, so the defaults are seeded.
	diff, err := dc.DiffBuilds("starter-righteous-fire", "essence-shotgun")
	if err != nil {
		t.Fatalf("DiffBuilds: %v", err)
	}

	if diff.Delta.DPS != -400000 {
		t.Errorf("DPS delta = %v, want -400000", diff.Delta.DPS)
	}
	if len(diff.Delta.NewItems) != 1 || diff.Delta.NewItems[0] != "Exalted Orb" {
		t.Errorf("NewItems = %v", diff.Delta.NewItems)
	}
	if len(diff.Delta.RemovedItems) != 2 {
		t.Errorf("RemovedItems = %v", diff.Delta.RemovedItems)
	}

	if _, err := dc.DiffBuilds("starter-righteous-fire", "missing"); !poe.NotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestAddRulesOverlay(t *testing.T) {
	dc := newTestContext(t)

	dc.AddRules(poe.CraftingRuleSet{
		Rules: map[string]poe.CraftingRule{
			"weapon-bench": {
				ID: "weapon-bench", Title: "Bench Craft Weapons",
				Description: "Use the crafting bench for weapon suffixes.",
				Tags:        []string{"weapon", "sword"},
				Outcomes:    []string{"Craft the suffix on the bench"},
			},
		},
	})

	plan, err := dc.PlanCraft("Rusted Sword", []string{"of the Seal"})
	if err != nil {
		t.Fatalf("PlanCraft: %v", err)
	}

	found := false
	for _, step := range plan.Steps {
		for _, id := range step.RelatedRuleIDs {
			if id == "weapon-bench" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("overlay rule not matched; steps = %+v", plan.Steps)
	}

	// The overlay survives a refresh.
	if err := dc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	again, err := dc.PlanCraft("Rusted Sword", []string{"of the Seal"})
	if err != nil {
		t.Fatalf("PlanCraft after refresh: %v", err)
	}
	found = false
	for _, step := range again.Steps {
		for _, id := range step.RelatedRuleIDs {
			if id == "weapon-bench" {
				found = true
			}
		}
	}
	if !found {
		t.Error("overlay rule lost after refresh")
	}
}

func TestRefreshPicksUpNewSnapshot(t *testing.T) {
	dc := newTestContext(t)

	next := fixtureSnapshot()
	next.Version = "0.4.0"
	next.CreatedAt = "2025-08-02T10:00:00Z"
	if _, err := snapshot.New(dc.Store().Dir(), nil).Save(next); err != nil {
		t.Fatalf("saving second snapshot: %v", err)
	}

	if err := dc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if info := dc.Info(); info.Version != "0.4.0" {
		t.Errorf("Info.Version = %q, want 0.4.0", info.Version)
	}
}
