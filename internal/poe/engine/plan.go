package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/exilecraft/poe-crafting-server/internal/poe/normalize"
	"github.com/exilecraft/poe-crafting-server/internal/poe/rules"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

const (
	chaosCurrency = "chaos"

	// Cost of acquiring an unpriced base item.
	defaultBaseCost = 10.0

	// Baseline cost of securing a single modifier; tier multipliers and
	// tag hints only ever raise it.
	baseModStepCost = 20.0

	// Rule-derived advice steps appended to a plan, at most.
	maxRuleSteps = 3
)

// Tier multipliers keyed by tier prefix; the highest tier carries the
// highest multiplier.
var tierMultipliers = []struct {
	prefix     string
	multiplier float64
}{
	{"T1", 6},
	{"T2", 4},
	{"T3", 2.5},
	{"T4", 1.5},
}

// Tag cost hints mark known expensive modifier categories. A hint wins
// over the tier-derived estimate only when it is larger, never smaller.
var tagCostHints = map[string]float64{
	"life":     120,
	"aura":     150,
	"critical": 100,
	"speed":    80,
}

func stepID(planID string, ordinal int) string {
	return fmt.Sprintf("%s-step-%d", planID, ordinal)
}

func (dc *DataContext) basePrepareCost(base poe.BaseItemDefinition) float64 {
	if item, ok := dc.prices.ByName(base.Name); ok {
		return normalize.RoundCurrency(item.ChaosValue)
	}
	if item, ok := dc.prices.ByID(base.ID); ok {
		return normalize.RoundCurrency(item.ChaosValue)
	}
	return defaultBaseCost
}

func modStepCost(mod poe.ModDefinition) float64 {
	cost := baseModStepCost
	tier := strings.ToUpper(strings.TrimSpace(mod.Tier))
	for _, t := range tierMultipliers {
		if strings.HasPrefix(tier, t.prefix) {
			cost = baseModStepCost * t.multiplier
			break
		}
	}
	if cost < baseModStepCost {
		cost = baseModStepCost
	}

	for _, tag := range mod.Tags {
		if hint, ok := tagCostHints[normalize.Tag(tag)]; ok && hint > cost {
			cost = hint
		}
	}

	return normalize.RoundCurrency(cost)
}

// PlanCraft generates a validated, dependency-ordered crafting plan for a
// base and at least one target modifier. The plan is held in memory keyed
// by its id and consumed by ValidateCraftStep; plans do not survive
// restarts.
func (dc *DataContext) PlanCraft(baseIdentifier string, modIdentifiers []string) (*poe.CraftPlan, error) {
	if len(modIdentifiers) == 0 {
		return nil, &poe.ValidationError{Message: "specify at least one target modifier"}
	}

	dc.mu.RLock()
	defer dc.mu.RUnlock()

	base, err := dc.resolveBase(baseIdentifier)
	if err != nil {
		return nil, err
	}

	mods := make([]poe.ModDefinition, 0, len(modIdentifiers))
	for _, identifier := range modIdentifiers {
		mod, err := dc.resolveMod(identifier)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}

	planID := uuid.NewString()
	steps := make([]poe.CraftStepDefinition, 0, 1+len(mods)+maxRuleSteps)

	baseStep := poe.CraftStepDefinition{
		ID:          stepID(planID, 1),
		Title:       fmt.Sprintf("Prepare %s", base.Name),
		Description: fmt.Sprintf("Acquire %s (%s, level %d) and bring it to a craftable state.", base.Name, base.ItemClass, base.RequiredLevel),
		Cost:        []poe.CraftCost{{Currency: chaosCurrency, Amount: dc.basePrepareCost(base)}},
	}
	steps = append(steps, baseStep)

	// Mod steps depend on the base step only; siblings are
	// parallel-eligible.
	for _, mod := range mods {
		steps = append(steps, poe.CraftStepDefinition{
			ID:          stepID(planID, len(steps)+1),
			Title:       fmt.Sprintf("Secure %s", mod.Name),
			Description: fmt.Sprintf("Craft %s (%s %s) onto the base.", mod.Name, mod.Tier, mod.GenerationType),
			Requires:    []string{baseStep.ID},
			Cost:        []poe.CraftCost{{Currency: chaosCurrency, Amount: modStepCost(mod)}},
		})
	}

	var notes []string
	seenNotes := make(map[string]struct{})
	matches := rules.MatchForCraft(dc.ruleSet, base, mods)
	for i, match := range matches {
		if i == maxRuleSteps {
			break
		}
		steps = append(steps, poe.CraftStepDefinition{
			ID:             stepID(planID, len(steps)+1),
			Title:          match.Rule.Title,
			Description:    match.Rule.Description,
			Requires:       []string{baseStep.ID},
			RelatedRuleIDs: []string{match.Rule.ID},
		})
		for _, outcome := range match.Rule.Outcomes {
			if _, dup := seenNotes[outcome]; dup {
				continue
			}
			seenNotes[outcome] = struct{}{}
			notes = append(notes, outcome)
		}
	}

	var totalChaos float64
	for _, step := range steps {
		for _, cost := range step.Cost {
			if cost.Currency == chaosCurrency {
				totalChaos += cost.Amount
			}
		}
	}
	totalChaos = normalize.RoundCurrency(totalChaos)

	plan := &poe.CraftPlan{
		ID:    planID,
		Base:  base,
		Mods:  mods,
		Steps: steps,
		EstimatedCost: poe.CraftEstimate{
			Chaos:  totalChaos,
			Divine: normalize.RoundCurrency(normalize.ChaosToDivine(totalChaos, dc.prices.SuggestedDivineRate())),
		},
		Notes: notes,
	}

	dc.plans.Add(planID, plan)

	return plan, nil
}

// ValidateStepResult reports whether a plan step's direct dependencies are
// satisfied.
type ValidateStepResult struct {
	Plan    *poe.CraftPlan          `json:"plan"`
	Step    poe.CraftStepDefinition `json:"step"`
	IsValid bool                    `json:"isValid"`
	Missing []string                `json:"missing"`
}

// ValidateCraftStep checks a step's Requires list against the completed
// step ids. The check is one level deep: required steps are tested for
// membership only, not recursively re-validated.
func (dc *DataContext) ValidateCraftStep(planID, stepIdentifier string, completedStepIDs []string) (ValidateStepResult, error) {
	plan, ok := dc.plans.Get(planID)
	if !ok {
		return ValidateStepResult{}, notFound("unknown plan %q", "Generate a plan with plan_craft first.", planID)
	}

	var step poe.CraftStepDefinition
	found := false
	for _, candidate := range plan.Steps {
		if candidate.ID == stepIdentifier {
			step = candidate
			found = true
			break
		}
	}
	if !found {
		return ValidateStepResult{}, notFound("plan %q has no step %q", "Use the step identifiers returned by plan_craft.", planID, stepIdentifier)
	}

	completed := make(map[string]struct{}, len(completedStepIDs))
	for _, id := range completedStepIDs {
		completed[id] = struct{}{}
	}

	missing := []string{}
	for _, required := range step.Requires {
		if _, done := completed[required]; !done {
			missing = append(missing, required)
		}
	}

	return ValidateStepResult{
		Plan:    plan,
		Step:    step,
		IsValid: len(missing) == 0,
		Missing: missing,
	}, nil
}
