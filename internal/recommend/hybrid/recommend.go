// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package hybrid

import (
	"math"
	"sort"
)

// ratedItem pairs an item with the rating the target user gave it.
type ratedItem struct {
	id     int
	rating float64
}

// Recommend produces up to p.N items for the user. A user absent from the
// rating matrix degrades to the popularity ranking; a user with history
// gets the blended CF/CB scores. Already-rated items are never returned,
// and shortfalls are backfilled from global popularity.
func (m *Model) Recommend(userID string, p Params) []Scored {
	if p.N <= 0 {
		return nil
	}

	vec := m.userVectors[userID]
	if len(vec) == 0 {
		pool := m.popularityPool(p.MinRatingsForPopularity, p.PopularityPoolSize)
		if len(pool) > p.N {
			pool = pool[:p.N]
		}
		return m.backfill(pool, p.N, nil)
	}

	rated := m.RatedItems(userID)
	top := m.topRatedItems(vec, p.TopRatedItems)

	var out []Scored
	for _, itemID := range m.itemIDs {
		if rated[itemID] {
			continue
		}
		cf := m.cfScore(userID, itemID, p.TopSimilarUsers)
		cb := m.cbScore(top, itemID)

		var score float64
		switch {
		case cf > 0 && cb > 0:
			score = p.Alpha*cf + (1-p.Alpha)*cb
		case cf > 0:
			score = cf
		case cb > 0:
			score = cb
		}
		if score > 0 && !math.IsNaN(score) && !math.IsInf(score, 0) {
			out = append(out, Scored{ItemID: itemID, Score: score})
		}
	}

	sortScored(out)
	if len(out) > p.N {
		out = out[:p.N]
	}
	return m.backfill(out, p.N, rated)
}

// cfScore computes the collaborative-filtering score for one unrated
// item: the similarity-weighted average rating from the user's topK most
// similar users who rated the item. When those neighbors rated it but
// carry zero similarity mass, their plain mean is used; when none rated
// it, item-based CF against the user's own ratings takes over.
func (m *Model) cfScore(userID string, itemID, topK int) float64 {
	neighbors := m.userNeighbors[userID]
	if topK < len(neighbors) {
		neighbors = neighbors[:topK]
	}

	var weighted, simSum, plain float64
	raters := 0
	for _, nb := range neighbors {
		r, found := m.userVectors[nb.id][itemID]
		if !found {
			continue
		}
		weighted += nb.sim * r
		simSum += nb.sim
		plain += r
		raters++
	}

	if raters > 0 {
		if simSum > 0 {
			return weighted / simSum
		}
		return plain / float64(raters)
	}

	return m.itemCFScore(userID, itemID)
}

// itemCFScore scores an item from item-item similarity against the
// user's own rated items: a similarity-weighted average of the user's
// ratings over the item's positively similar neighbors.
func (m *Model) itemCFScore(userID string, itemID int) float64 {
	vec := m.userVectors[userID]

	var weighted, simSum float64
	for _, nb := range m.itemNeighbors[itemID] {
		r, found := vec[nb.id]
		if !found {
			continue
		}
		weighted += nb.sim * r
		simSum += nb.sim
	}
	if simSum == 0 {
		return 0
	}
	return weighted / simSum
}

// cbScore accumulates content similarity against the user's top-rated
// items, weighted by the ratings given.
func (m *Model) cbScore(top []ratedItem, itemID int) float64 {
	var score float64
	for _, t := range top {
		sim := m.contentSimilarity(itemID, t.id)
		if sim > 0 {
			score += sim * t.rating
		}
	}
	return score
}

// topRatedItems returns the user's k highest-rated items, ties broken by
// ascending item ID.
func (m *Model) topRatedItems(vec map[int]float64, k int) []ratedItem {
	items := make([]ratedItem, 0, len(vec))
	for id, r := range vec {
		items = append(items, ratedItem{id: id, rating: r})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].rating != items[j].rating {
			return items[i].rating > items[j].rating
		}
		return items[i].id < items[j].id
	})
	if len(items) > k {
		items = items[:k]
	}
	return items
}

// popularityScore is mean rating damped by log review mass, so a single
// five-star rating does not outrank a well-established item.
func popularityScore(s itemStat) float64 {
	if s.count == 0 {
		return 0
	}
	return s.sum / float64(s.count) * math.Log1p(float64(s.count))
}

// popularityPool ranks items with at least minRatings ratings by
// popularity score, capped at poolSize.
func (m *Model) popularityPool(minRatings, poolSize int) []Scored {
	var pool []Scored
	for _, id := range m.itemIDs {
		s := m.stats[id]
		if s.count >= minRatings {
			pool = append(pool, Scored{ItemID: id, Score: popularityScore(s)})
		}
	}
	sortScored(pool)
	if poolSize > 0 && len(pool) > poolSize {
		pool = pool[:poolSize]
	}
	return pool
}

// backfill tops the result list up to n from the global popularity
// ranking, skipping excluded and already-recommended items.
func (m *Model) backfill(out []Scored, n int, exclude map[int]bool) []Scored {
	if len(out) >= n {
		return out
	}

	have := make(map[int]bool, len(out))
	for _, s := range out {
		have[s.ItemID] = true
	}

	ranking := make([]Scored, 0, len(m.itemIDs))
	for _, id := range m.itemIDs {
		ranking = append(ranking, Scored{ItemID: id, Score: popularityScore(m.stats[id])})
	}
	sortScored(ranking)

	for _, s := range ranking {
		if len(out) >= n {
			break
		}
		if have[s.ItemID] || exclude[s.ItemID] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// sortScored orders by score descending, ties by ascending item ID for
// deterministic output.
func sortScored(s []Scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].ItemID < s[j].ItemID
	})
}
