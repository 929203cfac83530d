// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package hybrid

import (
	"errors"
	"runtime"
	"sort"
	"sync"
)

// ErrNoRatings indicates the input carried no rating events, so no
// similarity matrices can be built. Callers fall back to the composite
// scoring path.
var ErrNoRatings = errors.New("no rating events to build hybrid model")

// Rating is one user-restaurant rating event.
type Rating struct {
	// UserID identifies the rating user.
	UserID string

	// ItemID identifies the rated restaurant.
	ItemID int

	// Value is the rating value.
	Value float64
}

// Item carries one restaurant's content attribute vector: one-hot
// category plus amenity and caution indicator features.
type Item struct {
	// ID identifies the restaurant.
	ID int

	// Attributes maps feature name to value.
	Attributes map[string]float64
}

// Input is everything Build needs from a snapshot.
type Input struct {
	// Ratings is the full rating history.
	Ratings []Rating

	// Items carries content vectors for every known restaurant.
	Items []Item

	// NumWorkers bounds similarity precompute parallelism.
	// Zero means runtime.NumCPU().
	NumWorkers int
}

// Scored is one recommendation candidate with its blended score.
type Scored struct {
	// ItemID identifies the restaurant.
	ItemID int

	// Score is the hybrid (or fallback) score.
	Score float64
}

// Params tunes one Recommend call.
type Params struct {
	// N is the desired result count.
	N int

	// Alpha is the CF/CB blend weight in [0, 1].
	Alpha float64

	// TopSimilarUsers is how many nearest users vote in user-based CF.
	TopSimilarUsers int

	// TopRatedItems is how many of the user's highest-rated items seed
	// content-based scoring.
	TopRatedItems int

	// MinRatingsForPopularity gates items entering the no-history
	// popularity pool.
	MinRatingsForPopularity int

	// PopularityPoolSize caps the no-history popularity pool.
	PopularityPoolSize int
}

// neighbor pairs an index with a similarity value.
type neighbor struct {
	id  int
	sim float64
}

// userNeighbor pairs a user ID with a similarity value.
type userNeighbor struct {
	id  string
	sim float64
}

// itemStat accumulates per-item rating statistics for popularity scoring.
type itemStat struct {
	sum   float64
	count int
}

// Model is the immutable hybrid recommender state for one snapshot.
// All fields are read-only after Build; concurrent Recommend calls need
// no locking.
type Model struct {
	// userVectors maps user -> item -> rating (sparse rows).
	userVectors map[string]map[int]float64

	// itemVectors maps item -> user -> rating (sparse columns).
	itemVectors map[int]map[string]float64

	// content maps item -> attribute vector.
	content map[int]map[string]float64

	// userNeighbors holds, per user, every other user sorted by
	// descending similarity. Ties sort by user ID for determinism.
	userNeighbors map[string][]userNeighbor

	// itemNeighbors holds, per item, every co-rated item with positive
	// similarity, sorted descending.
	itemNeighbors map[int][]neighbor

	// stats holds per-item rating statistics.
	stats map[int]itemStat

	// itemIDs is every known item, ascending, for deterministic sweeps.
	itemIDs []int
}

// Build constructs the model from raw ratings and content vectors.
// Similarity precompute is chunked across workers; the result is
// immutable and safe for concurrent use.
func Build(in Input) (*Model, error) {
	if len(in.Ratings) == 0 {
		return nil, ErrNoRatings
	}

	workers := in.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	m := &Model{
		userVectors: make(map[string]map[int]float64),
		itemVectors: make(map[int]map[string]float64),
		content:     make(map[int]map[string]float64, len(in.Items)),
		stats:       make(map[int]itemStat),
	}

	for _, r := range in.Ratings {
		if m.userVectors[r.UserID] == nil {
			m.userVectors[r.UserID] = make(map[int]float64)
		}
		m.userVectors[r.UserID][r.ItemID] = r.Value

		if m.itemVectors[r.ItemID] == nil {
			m.itemVectors[r.ItemID] = make(map[string]float64)
		}
		m.itemVectors[r.ItemID][r.UserID] = r.Value
	}

	for itemID, vec := range m.itemVectors {
		s := itemStat{}
		for _, v := range vec {
			s.sum += v
			s.count++
		}
		m.stats[itemID] = s
	}

	for _, it := range in.Items {
		m.content[it.ID] = it.Attributes
	}

	m.itemIDs = make([]int, 0, len(m.content))
	for id := range m.content {
		m.itemIDs = append(m.itemIDs, id)
	}
	// Items with ratings but no content vector are still recommendable.
	for id := range m.itemVectors {
		if _, known := m.content[id]; !known {
			m.itemIDs = append(m.itemIDs, id)
		}
	}
	sort.Ints(m.itemIDs)

	m.precomputeUserSimilarity(workers)
	m.precomputeItemSimilarity(workers)

	return m, nil
}

// precomputeUserSimilarity fills userNeighbors, chunking users across
// workers.
func (m *Model) precomputeUserSimilarity(workers int) {
	userIDs := make([]string, 0, len(m.userVectors))
	for id := range m.userVectors {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	m.userNeighbors = make(map[string][]userNeighbor, len(userIDs))

	var wg sync.WaitGroup
	var mu sync.Mutex
	chunkSize := (len(userIDs) + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(chunk []string) {
			defer wg.Done()

			for _, uid := range chunk {
				neighbors := m.computeUserNeighbors(uid, userIDs)

				mu.Lock()
				m.userNeighbors[uid] = neighbors
				mu.Unlock()
			}
		}(userIDs[start:end])
	}

	wg.Wait()
}

// computeUserNeighbors ranks every other user by cosine similarity to
// userID, descending, ties by ascending user ID.
func (m *Model) computeUserNeighbors(userID string, allUsers []string) []userNeighbor {
	vec := m.userVectors[userID]
	neighbors := make([]userNeighbor, 0, len(allUsers)-1)
	for _, other := range allUsers {
		if other == userID {
			continue
		}
		neighbors = append(neighbors, userNeighbor{
			id:  other,
			sim: cosineSparseInt(vec, m.userVectors[other]),
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].sim != neighbors[j].sim {
			return neighbors[i].sim > neighbors[j].sim
		}
		return neighbors[i].id < neighbors[j].id
	})
	return neighbors
}

// precomputeItemSimilarity fills itemNeighbors over rated items, chunking
// items across workers. Only positive similarities are kept.
func (m *Model) precomputeItemSimilarity(workers int) {
	itemIDs := make([]int, 0, len(m.itemVectors))
	for id := range m.itemVectors {
		itemIDs = append(itemIDs, id)
	}
	sort.Ints(itemIDs)

	m.itemNeighbors = make(map[int][]neighbor, len(itemIDs))

	var wg sync.WaitGroup
	var mu sync.Mutex
	chunkSize := (len(itemIDs) + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > len(itemIDs) {
			end = len(itemIDs)
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(chunk []int) {
			defer wg.Done()

			for _, id := range chunk {
				neighbors := m.computeItemNeighbors(id, itemIDs)

				mu.Lock()
				m.itemNeighbors[id] = neighbors
				mu.Unlock()
			}
		}(itemIDs[start:end])
	}

	wg.Wait()
}

// computeItemNeighbors ranks co-rated items by cosine similarity to
// itemID, keeping positive similarities only.
func (m *Model) computeItemNeighbors(itemID int, allItems []int) []neighbor {
	vec := m.itemVectors[itemID]
	var neighbors []neighbor
	for _, other := range allItems {
		if other == itemID {
			continue
		}
		sim := cosineSparseString(vec, m.itemVectors[other])
		if sim > 0 {
			neighbors = append(neighbors, neighbor{id: other, sim: sim})
		}
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].sim != neighbors[j].sim {
			return neighbors[i].sim > neighbors[j].sim
		}
		return neighbors[i].id < neighbors[j].id
	})
	return neighbors
}

// HasUser reports whether the user appears in the rating matrix.
func (m *Model) HasUser(userID string) bool {
	_, found := m.userVectors[userID]
	return found
}

// RatedItems returns the set of items the user has rated.
func (m *Model) RatedItems(userID string) map[int]bool {
	vec := m.userVectors[userID]
	rated := make(map[int]bool, len(vec))
	for id := range vec {
		rated[id] = true
	}
	return rated
}
