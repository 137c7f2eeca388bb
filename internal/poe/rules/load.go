package rules

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

// LoadFile reads a rule-set document from disk. The document is the
// CraftingRuleSet JSON shape; any byTag index it carries is discarded and
// rebuilt on merge.
func LoadFile(path string) (poe.CraftingRuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return poe.CraftingRuleSet{}, &poe.StorageError{Message: fmt.Sprintf("reading rules file %s", path), Err: err}
	}

	var ruleSet poe.CraftingRuleSet
	if err := json.Unmarshal(data, &ruleSet); err != nil {
		return poe.CraftingRuleSet{}, &poe.StorageError{Message: fmt.Sprintf("parsing rules file %s", path), Err: err}
	}
	if len(ruleSet.Rules) == 0 {
		return poe.CraftingRuleSet{}, &poe.ValidationError{Message: fmt.Sprintf("rules file %s contains no rules", path)}
	}

	return Normalize(ruleSet), nil
}
