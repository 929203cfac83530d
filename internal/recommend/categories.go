// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

import "fmt"

// categoryIDs is the fixed mapping from category slug to ID. The IDs
// match the preprocessed reference data and never change between
// snapshots.
var categoryIDs = map[string]int{
	"chinese":     1,
	"japanese":    2,
	"brunch_cafe": 3,
	"pasta":       4,
	"italian":     5,
	"izakaya":     6,
	"korean":      7,
	"chicken":     8,
	"steak":       9,
	"kbbq":        10,
	"dining_bar":  11,
	"omakase":     12,
}

// categoryNames is the inverse mapping, ID to slug.
var categoryNames = func() map[int]string {
	names := make(map[int]string, len(categoryIDs))
	for name, id := range categoryIDs {
		names[id] = name
	}
	return names
}()

// CategoryID resolves a category slug to its ID.
func CategoryID(name string) (int, error) {
	id, found := categoryIDs[name]
	if !found {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return id, nil
}

// CategoryName resolves a category ID to its slug.
func CategoryName(id int) (string, error) {
	name, found := categoryNames[id]
	if !found {
		return "", fmt.Errorf("%w: %d", ErrUnknownCategory, id)
	}
	return name, nil
}

// CategoryIDs resolves a list of slugs, rejecting the whole list on the
// first unknown name.
func CategoryIDs(names []string) ([]int, error) {
	ids := make([]int, 0, len(names))
	for _, name := range names {
		id, err := CategoryID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
