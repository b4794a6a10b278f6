// Package grid turns a raw shift matrix into compact render geometry: it
// reorders people rows so that similar schedules sit next to each other, then
// merges runs of signature-equal cells into rectangular blocks.
package grid

import "shiftboard/api/internal/cell"

// viewerBoost weights similarity to the viewer's own row during greedy
// placement, so the viewer's neighbours cluster around them.
const viewerBoost = 2.25

// streakWeight favors contiguous runs of shared slots over the same number
// of scattered matches; contiguous runs column-merge well.
const streakWeight = 0.5

// Similarity scores how alike two people's schedules are. Both rows are raw
// cell values in slot order. Each slot where both cells carry the same
// non-empty signature counts one point, and the best contiguous streak of
// such slots adds half a point per slot. Symmetric by construction.
func Similarity(rowA, rowB []string) float64 {
	slots := len(rowA)
	if len(rowB) < slots {
		slots = len(rowB)
	}
	matches := 0
	streak := 0
	bestStreak := 0
	for i := 0; i < slots; i++ {
		if cell.SignaturesEqual(cell.SignatureOf(rowA[i]), cell.SignatureOf(rowB[i])) {
			matches++
			streak++
			if streak > bestStreak {
				bestStreak = streak
			}
		} else {
			streak = 0
		}
	}
	return float64(matches) + streakWeight*float64(bestStreak)
}

// OrderRows returns a permutation of row indices for display. The viewer's
// row (matched by name) seeds the order when present; otherwise the first
// row does. Remaining rows are placed greedily: the candidate maximizing the
// summed similarity to all already-placed rows, plus a boosted similarity to
// the viewer's row, goes next. Ties keep first-seen (canonical) order, so the
// result is deterministic. This is a presentation heuristic, not an optimal
// clustering.
func OrderRows(cells [][]string, people []string, viewer string) []int {
	n := len(cells)
	if n == 0 {
		return nil
	}

	viewerIdx := -1
	if viewer != "" {
		for i, name := range people {
			if name == viewer {
				viewerIdx = i
				break
			}
		}
	}

	// Pairwise scores up front; the greedy loop below reads each pair many
	// times.
	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := Similarity(cells[i], cells[j])
			scores[i][j] = s
			scores[j][i] = s
		}
	}

	seed := 0
	if viewerIdx >= 0 {
		seed = viewerIdx
	}
	order := make([]int, 0, n)
	order = append(order, seed)
	placed := make([]bool, n)
	placed[seed] = true

	for len(order) < n {
		best := -1
		bestScore := 0.0
		for candidate := 0; candidate < n; candidate++ {
			if placed[candidate] {
				continue
			}
			score := 0.0
			for _, p := range order {
				score += scores[p][candidate]
			}
			if viewerIdx >= 0 {
				score += viewerBoost * scores[viewerIdx][candidate]
			}
			if best == -1 || score > bestScore {
				best = candidate
				bestScore = score
			}
		}
		order = append(order, best)
		placed[best] = true
	}
	return order
}
