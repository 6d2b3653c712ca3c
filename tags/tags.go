// Package tags turns the model's numbered bracket-list answer into garment tag sets.
package tags

import (
	"regexp"
	"strings"

	"github.com/lookanalyst/lookanalyst/models"
)

// linePattern matches "<n>: [item, item, ...]"
var linePattern = regexp.MustCompile(`^\d+:\s*\[(.+)\]$`)

// Parse extracts one ClothingTagSet per matching line, in line order.
// Items are trimmed but not filtered.
// Lines that do not match are skipped. The result is never nil; an empty
// slice means the model reported no garments or answered in another format.
func Parse(raw string) []models.ClothingTagSet {
	sets := []models.ClothingTagSet{}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		match := linePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		items := strings.Split(match[1], ",")
		set := make(models.ClothingTagSet, len(items))
		for i, item := range items {
			set[i] = strings.TrimSpace(item)
		}
		sets = append(sets, set)
	}

	return sets
}

// Count returns the total number of tags across all sets
func Count(sets []models.ClothingTagSet) int {
	n := 0
	for _, set := range sets {
		n += len(set)
	}
	return n
}
