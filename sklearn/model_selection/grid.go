package model_selection

import (
	"math/rand/v2"
	"sort"
)

// ParameterGrid expands space into every combination of its values. Keys
// are iterated in sorted order with the last key varying fastest. An empty
// space yields a single empty combination.
func ParameterGrid(space map[string][]interface{}) []map[string]interface{} {
	keys := sortedKeys(space)
	grid := []map[string]interface{}{{}}
	for _, key := range keys {
		values := space[key]
		if len(values) == 0 {
			continue
		}
		next := make([]map[string]interface{}, 0, len(grid)*len(values))
		for _, partial := range grid {
			for _, v := range values {
				combo := make(map[string]interface{}, len(partial)+1)
				for k, pv := range partial {
					combo[k] = pv
				}
				combo[key] = v
				next = append(next, combo)
			}
		}
		grid = next
	}
	return grid
}

// GridSize returns the number of combinations ParameterGrid would produce.
func GridSize(space map[string][]interface{}) int {
	size := 1
	for _, values := range space {
		if len(values) > 0 {
			size *= len(values)
		}
	}
	return size
}

// ParameterSampler draws nIter distinct combinations of space without
// replacement. When nIter covers the whole grid, the full grid is returned
// in grid order.
func ParameterSampler(space map[string][]interface{}, nIter int, seed int64) []map[string]interface{} {
	grid := ParameterGrid(space)
	if nIter <= 0 || nIter >= len(grid) {
		return grid
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	perm := r.Perm(len(grid))
	out := make([]map[string]interface{}, nIter)
	for i := range out {
		out[i] = grid[perm[i]]
	}
	return out
}

func sortedKeys(space map[string][]interface{}) []string {
	keys := make([]string, 0, len(space))
	for k := range space {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
