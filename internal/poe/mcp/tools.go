package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/exilecraft/poe-crafting-server/internal/poe/archive"
	"github.com/exilecraft/poe-crafting-server/internal/poe/engine"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

// ToolDefinition describes an MCP tool.
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputSchema JSONSchema `json:"inputSchema"`
}

// JSONSchema is a simplified JSON Schema representation.
type JSONSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a schema property.
type Property struct {
	Type                 string              `json:"type,omitempty"`
	Description          string              `json:"description,omitempty"`
	Default              any                 `json:"default,omitempty"`
	Enum                 []string            `json:"enum,omitempty"`
	Minimum              *float64            `json:"minimum,omitempty"`
	Maximum              *float64            `json:"maximum,omitempty"`
	Items                *Property           `json:"items,omitempty"`
	Properties           map[string]Property `json:"properties,omitempty"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties *Property           `json:"additionalProperties,omitempty"`
}

// GetToolDefinitions returns all tool definitions. Price history is only
// advertised when an archive database is configured.
func GetToolDefinitions(withHistory bool) []ToolDefinition {
	tools := []ToolDefinition{
		searchModsTool(),
		searchBasesTool(),
		searchGemsTool(),
		searchItemsTool(),
		priceCheckTool(),
		canRollTool(),
		planCraftTool(),
		validateStepTool(),
		pobImportTool(),
		pobDeltaTool(),
		listSnapshotsTool(),
		refreshSnapshotTool(),
	}
	if withHistory {
		tools = append(tools, priceHistoryTool())
	}
	return tools
}

func searchLimitProps(what string) map[string]Property {
	minLimit := 1.0
	maxLimit := 50.0

	return map[string]Property{
		"query": {
			Type:        "string",
			Description: "Fuzzy search term matched against names and tags",
		},
		"tag": {
			Type:        "string",
			Description: "Restrict results to " + what + " carrying this tag",
		},
		"limit": {
			Type:        "integer",
			Description: "Max results",
			Default:     5,
			Minimum:     &minLimit,
			Maximum:     &maxLimit,
		},
	}
}

func searchModsTool() ToolDefinition {
	return ToolDefinition{
		Name:        "search_mods",
		Description: "Search item modifiers by name or tag. Returns modifier identifiers, tiers, tags and item level requirements.",
		InputSchema: JSONSchema{
			Type:       "object",
			Properties: searchLimitProps("modifiers"),
		},
	}
}

func searchBasesTool() ToolDefinition {
	return ToolDefinition{
		Name:        "search_bases",
		Description: "Search craftable base items by name or tag. Returns base identifiers, item classes, tags and level requirements.",
		InputSchema: JSONSchema{
			Type:       "object",
			Properties: searchLimitProps("bases"),
		},
	}
}

func searchGemsTool() ToolDefinition {
	return ToolDefinition{
		Name:        "search_gems",
		Description: "Search skill gems by name or tag. Returns gem identifiers, primary attributes and tags.",
		InputSchema: JSONSchema{
			Type:       "object",
			Properties: searchLimitProps("gems"),
		},
	}
}

func searchItemsTool() ToolDefinition {
	minLimit := 1.0
	maxLimit := 50.0

	return ToolDefinition{
		Name:        "search_items",
		Description: "Fuzzy-search priced items in the current snapshot. Returns chaos and divine values with confidence.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"query": {
					Type:        "string",
					Description: "Item name fragment",
				},
				"limit": {
					Type:        "integer",
					Description: "Max results",
					Default:     10,
					Minimum:     &minLimit,
					Maximum:     &maxLimit,
				},
			},
			Required: []string{"query"},
		},
	}
}

func priceCheckTool() ToolDefinition {
	minQty := 1.0

	return ToolDefinition{
		Name:        "price_check",
		Description: "Price an item by name, with totals for a quantity in chaos and divine orbs.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"name": {
					Type:        "string",
					Description: "Item name or id",
				},
				"quantity": {
					Type:        "integer",
					Description: "How many to price",
					Default:     1,
					Minimum:     &minQty,
				},
				"exact": {
					Type:        "boolean",
					Description: "Require an exact name match instead of the best fuzzy match",
					Default:     false,
				},
			},
			Required: []string{"name"},
		},
	}
}

func canRollTool() ToolDefinition {
	return ToolDefinition{
		Name:        "can_roll",
		Description: "Check whether a modifier can roll on a base item. Reports every blocking reason: tag mismatch and item level, independently.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"base": {
					Type:        "string",
					Description: "Base item id, name or alias",
				},
				"mod": {
					Type:        "string",
					Description: "Modifier id, name or alias",
				},
			},
			Required: []string{"base", "mod"},
		},
	}
}

func planCraftTool() ToolDefinition {
	return ToolDefinition{
		Name:        "plan_craft",
		Description: "Generate a step-by-step crafting plan for a base item and target modifiers, with per-step costs, dependencies and matched crafting rules.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"base": {
					Type:        "string",
					Description: "Base item id, name or alias",
				},
				"mods": {
					Type:        "array",
					Description: "Target modifiers (ids, names or aliases); at least one",
					Items:       &Property{Type: "string"},
				},
			},
			Required: []string{"base", "mods"},
		},
	}
}

func validateStepTool() ToolDefinition {
	return ToolDefinition{
		Name:        "validate_step",
		Description: "Check whether a plan step's prerequisites are satisfied by the completed step ids.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"planId": {
					Type:        "string",
					Description: "Plan id from plan_craft",
				},
				"stepId": {
					Type:        "string",
					Description: "Step id within the plan",
				},
				"completed": {
					Type:        "array",
					Description: "Step ids already completed",
					Items:       &Property{Type: "string"},
				},
			},
			Required: []string{"planId", "stepId"},
		},
	}
}

func pobImportTool() ToolDefinition {
	return ToolDefinition{
		Name:        "pob_import",
		Description: "Import a Path of Building build summary for later comparison. Returns the assigned build id.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"build": {
					Type:        "object",
					Description: "Build summary",
					Properties: map[string]Property{
						"name":           {Type: "string", Description: "Build name"},
						"characterClass": {Type: "string", Description: "Character class"},
						"dps":            {Type: "number", Description: "Headline DPS"},
						"poeVersion":     {Type: "string", Description: "Game version the build targets"},
						"items": {
							Type:        "array",
							Description: "Notable items",
							Items:       &Property{Type: "string"},
						},
					},
					Required: []string{"name"},
				},
				"id": {
					Type:        "string",
					Description: "Preferred build id; derived from the name when omitted",
				},
			},
			Required: []string{"build"},
		},
	}
}

func pobDeltaTool() ToolDefinition {
	return ToolDefinition{
		Name:        "pob_delta",
		Description: "Compare two imported builds: DPS delta plus items added and removed.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"left": {
					Type:        "string",
					Description: "Baseline build id",
				},
				"right": {
					Type:        "string",
					Description: "Candidate build id",
				},
			},
			Required: []string{"left", "right"},
		},
	}
}

func listSnapshotsTool() ToolDefinition {
	return ToolDefinition{
		Name:        "list_snapshots",
		Description: "List stored data snapshots and identify the active one.",
		InputSchema: JSONSchema{Type: "object"},
	}
}

func refreshSnapshotTool() ToolDefinition {
	return ToolDefinition{
		Name:        "refresh_snapshot",
		Description: "Reload the latest snapshot from disk and rebuild all indices.",
		InputSchema: JSONSchema{Type: "object"},
	}
}

func priceHistoryTool() ToolDefinition {
	minLimit := 1.0

	return ToolDefinition{
		Name:        "price_history",
		Description: "Archived price observations for an item across snapshots, newest first.",
		InputSchema: JSONSchema{
			Type: "object",
			Properties: map[string]Property{
				"item": {
					Type:        "string",
					Description: "Item id or name",
				},
				"limit": {
					Type:        "integer",
					Description: "Max points",
					Default:     20,
					Minimum:     &minLimit,
				},
			},
			Required: []string{"item"},
		},
	}
}

// Tool handlers

// snapshotScope identifies the snapshot a tool response was served from.
type snapshotScope struct {
	SnapshotVersion string `json:"snapshotVersion"`
	League          string `json:"league"`
}

func (s *Server) scope() snapshotScope {
	info := s.data.Info()
	return snapshotScope{SnapshotVersion: info.Version, League: info.League}
}

type searchArgs struct {
	Query string `json:"query"`
	Tag   string `json:"tag"`
	Limit int    `json:"limit"`
}

func (s *Server) toolSearchMods(ctx context.Context, args json.RawMessage) (any, error) {
	var req searchArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	mods := s.data.SearchMods(req.Query, engine.SearchOptions{Limit: req.Limit, Tag: req.Tag})
	return toolResult{
		summary: fmt.Sprintf("Found %d modifiers.", len(mods)),
		payload: struct {
			snapshotScope
			Count int                 `json:"count"`
			Mods  []poe.ModDefinition `json:"mods"`
		}{s.scope(), len(mods), mods},
	}, nil
}

func (s *Server) toolSearchBases(ctx context.Context, args json.RawMessage) (any, error) {
	var req searchArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	bases := s.data.SearchBases(req.Query, engine.SearchOptions{Limit: req.Limit, Tag: req.Tag})
	return toolResult{
		summary: fmt.Sprintf("Found %d base items.", len(bases)),
		payload: struct {
			snapshotScope
			Count int                      `json:"count"`
			Bases []poe.BaseItemDefinition `json:"bases"`
		}{s.scope(), len(bases), bases},
	}, nil
}

func (s *Server) toolSearchGems(ctx context.Context, args json.RawMessage) (any, error) {
	var req searchArgs
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	gems := s.data.SearchGems(req.Query, engine.SearchOptions{Limit: req.Limit, Tag: req.Tag})
	return toolResult{
		summary: fmt.Sprintf("Found %d gems.", len(gems)),
		payload: struct {
			snapshotScope
			Count int                 `json:"count"`
			Gems  []poe.GemDefinition `json:"gems"`
		}{s.scope(), len(gems), gems},
	}, nil
}

func (s *Server) toolSearchItems(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	items, err := s.data.SearchItems(req.Query, req.Limit)
	if err != nil {
		return nil, err
	}
	return toolResult{
		summary: fmt.Sprintf("Found %d priced items for %q.", len(items), req.Query),
		payload: struct {
			snapshotScope
			Count int             `json:"count"`
			Items []poe.ItemPrice `json:"items"`
		}{s.scope(), len(items), items},
	}, nil
}

func (s *Server) toolPriceCheck(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
		Exact    bool   `json:"exact"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	result, err := s.data.PriceCheck(req.Name, req.Quantity, req.Exact)
	if err != nil {
		return nil, err
	}
	return toolResult{
		summary: fmt.Sprintf("%d x %s = %.2f chaos (%.2f divine).",
			result.Quantity, result.Item.Name, result.TotalChaos, result.TotalDivine),
		payload: struct {
			snapshotScope
			engine.PriceCheckResult
		}{s.scope(), result},
	}, nil
}

func (s *Server) toolCanRoll(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Base string `json:"base"`
		Mod  string `json:"mod"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	result, err := s.data.CanRollMod(req.Base, req.Mod)
	if err != nil {
		return nil, err
	}
	summary := fmt.Sprintf("%s can roll on %s.", result.Mod.Name, result.Base.Name)
	if !result.CanRoll {
		summary = fmt.Sprintf("%s cannot roll on %s (%d reasons).",
			result.Mod.Name, result.Base.Name, len(result.Reasons))
	}
	return toolResult{
		summary: summary,
		payload: struct {
			snapshotScope
			engine.CanRollResult
		}{s.scope(), result},
	}, nil
}

func (s *Server) toolPlanCraft(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Base string   `json:"base"`
		Mods []string `json:"mods"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	plan, err := s.data.PlanCraft(req.Base, req.Mods)
	if err != nil {
		return nil, err
	}
	return toolResult{
		summary: fmt.Sprintf("Plan %s: %d steps, est. %.2f chaos (%.2f divine).",
			plan.ID, len(plan.Steps), plan.EstimatedCost.Chaos, plan.EstimatedCost.Divine),
		payload: struct {
			snapshotScope
			Plan *poe.CraftPlan `json:"plan"`
		}{s.scope(), plan},
	}, nil
}

func (s *Server) toolValidateStep(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		PlanID    string   `json:"planId"`
		StepID    string   `json:"stepId"`
		Completed []string `json:"completed"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	result, err := s.data.ValidateCraftStep(req.PlanID, req.StepID, req.Completed)
	if err != nil {
		return nil, err
	}
	summary := fmt.Sprintf("Step %s is ready.", result.Step.ID)
	if !result.IsValid {
		summary = fmt.Sprintf("Step %s is blocked by %d incomplete prerequisites.",
			result.Step.ID, len(result.Missing))
	}
	return toolResult{
		summary: summary,
		payload: struct {
			snapshotScope
			engine.ValidateStepResult
		}{s.scope(), result},
	}, nil
}

func (s *Server) toolPobImport(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Build poe.PobBuildSummary `json:"build"`
		ID    string              `json:"id"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	build, err := s.data.ImportBuild(req.Build, req.ID)
	if err != nil {
		return nil, err
	}
	return toolResult{
		summary: fmt.Sprintf("Imported build %q as %s.", build.Name, build.ID),
		payload: struct {
			snapshotScope
			Build poe.PobBuildSummary `json:"build"`
		}{s.scope(), build},
	}, nil
}

func (s *Server) toolPobDelta(ctx context.Context, args json.RawMessage) (any, error) {
	var req struct {
		Left  string `json:"left"`
		Right string `json:"right"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	diff, err := s.data.DiffBuilds(req.Left, req.Right)
	if err != nil {
		return nil, err
	}
	return toolResult{
		summary: fmt.Sprintf("%s vs %s: DPS %+.0f, %d items added, %d removed.",
			diff.Left.Name, diff.Right.Name, diff.Delta.DPS,
			len(diff.Delta.NewItems), len(diff.Delta.RemovedItems)),
		payload: struct {
			snapshotScope
			engine.BuildDiff
		}{s.scope(), diff},
	}, nil
}

func (s *Server) toolListSnapshots(ctx context.Context, args json.RawMessage) (any, error) {
	summaries, err := s.data.ListSnapshots()
	if err != nil {
		return nil, err
	}
	info := s.data.Info()
	return toolResult{
		summary: fmt.Sprintf("%d snapshots stored; active version %s.", len(summaries), info.Version),
		payload: struct {
			Active    engine.SnapshotInfo   `json:"active"`
			Snapshots []poe.SnapshotSummary `json:"snapshots"`
		}{info, summaries},
	}, nil
}

func (s *Server) toolRefreshSnapshot(ctx context.Context, args json.RawMessage) (any, error) {
	if err := s.data.Refresh(ctx); err != nil {
		return nil, err
	}

	recorded := 0
	if s.archive != nil {
		snap, err := s.data.Snapshot()
		if err != nil {
			return nil, err
		}
		recorded, err = s.archive.RecordSnapshot(ctx, snap)
		if err != nil {
			s.logger.Warn("failed to archive refreshed snapshot", "error", err)
		}
	}

	info := s.data.Info()
	return toolResult{
		summary: fmt.Sprintf("Reloaded snapshot %s (%s).", info.Version, info.League),
		payload: struct {
			Active         engine.SnapshotInfo `json:"active"`
			ArchivedPrices int                 `json:"archivedPrices"`
		}{info, recorded},
	}, nil
}

func (s *Server) toolPriceHistory(ctx context.Context, args json.RawMessage) (any, error) {
	if s.archive == nil {
		return nil, &poe.ValidationError{Message: "price archive is not configured"}
	}

	var req struct {
		Item  string `json:"item"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	points, err := s.archive.PriceHistory(ctx, req.Item, req.Limit)
	if err != nil {
		return nil, err
	}
	return toolResult{
		summary: fmt.Sprintf("%d archived price points for %q.", len(points), req.Item),
		payload: struct {
			Item   string               `json:"item"`
			Count  int                  `json:"count"`
			Points []archive.PricePoint `json:"points"`
		}{req.Item, len(points), points},
	}, nil
}
