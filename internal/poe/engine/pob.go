package engine

import (
	"fmt"

	"github.com/exilecraft/poe-crafting-server/internal/poe/normalize"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

// defaultBuilds seeds the build store when a snapshot ships without any,
// so build comparison works on a fresh install.
func defaultBuilds() []poe.PobBuildSummary {
	return []poe.PobBuildSummary{
		{
			ID:             "starter-righteous-fire",
			Name:           "Starter Righteous Fire",
			CharacterClass: "Templar",
			DPS:            850000,
			PoeVersion:     "3.25",
			Items:          []string{"Divine Orb", "Chaos Orb", "Lifeforce"},
		},
		{
			ID:             "essence-shotgun",
			Name:           "Essence Drain Trickster",
			CharacterClass: "Shadow",
			DPS:            450000,
			PoeVersion:     "3.25",
			Items:          []string{"Divine Orb", "Exalted Orb"},
		},
	}
}

// ImportBuild stores a build summary under a deduplicated id. When the
// preferred id (explicit id, then the build's own, then a slug of its
// name) collides with a stored build, a numeric suffix is appended.
func (dc *DataContext) ImportBuild(build poe.PobBuildSummary, id string) (poe.PobBuildSummary, error) {
	if build.Name == "" {
		return poe.PobBuildSummary{}, &poe.ValidationError{Message: "build name is required"}
	}

	if build.CharacterClass == "" {
		build.CharacterClass = "Unknown"
	}
	if build.PoeVersion == "" {
		build.PoeVersion = "unknown"
	}
	if build.Items == nil {
		build.Items = []string{}
	}

	preferred := id
	if preferred == "" {
		preferred = build.ID
	}
	if preferred == "" {
		preferred = normalize.Slug(build.Name)
	}
	if preferred == "" {
		return poe.PobBuildSummary{}, &poe.ValidationError{Message: "build id could not be derived from the name"}
	}

	assigned := preferred
	for suffix := 2; dc.builds.Contains(assigned); suffix++ {
		assigned = fmt.Sprintf("%s-%d", preferred, suffix)
	}

	build.ID = assigned
	dc.builds.Add(assigned, build)

	return build, nil
}

// GetBuild returns a stored build by id.
func (dc *DataContext) GetBuild(id string) (poe.PobBuildSummary, error) {
	build, ok := dc.builds.Get(id)
	if !ok {
		return poe.PobBuildSummary{}, notFound("unknown build %q", "Import builds with pob_import first.", id)
	}
	return build, nil
}

// BuildDiff is the comparison of two stored builds.
type BuildDiff struct {
	Left  poe.PobBuildSummary `json:"left"`
	Right poe.PobBuildSummary `json:"right"`
	Delta poe.BuildDelta      `json:"delta"`
}

// DiffBuilds compares two stored builds: item symmetric difference plus a
// signed DPS delta (right minus left).
func (dc *DataContext) DiffBuilds(leftID, rightID string) (BuildDiff, error) {
	left, err := dc.GetBuild(leftID)
	if err != nil {
		return BuildDiff{}, err
	}
	right, err := dc.GetBuild(rightID)
	if err != nil {
		return BuildDiff{}, err
	}

	leftItems := make(map[string]struct{}, len(left.Items))
	for _, item := range left.Items {
		leftItems[item] = struct{}{}
	}
	rightItems := make(map[string]struct{}, len(right.Items))
	for _, item := range right.Items {
		rightItems[item] = struct{}{}
	}

	newItems := []string{}
	for _, item := range right.Items {
		if _, ok := leftItems[item]; !ok {
			newItems = append(newItems, item)
		}
	}
	removedItems := []string{}
	for _, item := range left.Items {
		if _, ok := rightItems[item]; !ok {
			removedItems = append(removedItems, item)
		}
	}

	return BuildDiff{
		Left:  left,
		Right: right,
		Delta: poe.BuildDelta{
			DPS:          right.DPS - left.DPS,
			NewItems:     newItems,
			RemovedItems: removedItems,
		},
	}, nil
}
