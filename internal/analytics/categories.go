package analytics

import (
	"cmp"
	"slices"

	"saldo/internal/core"
)

const topCategoryDeltas = 3

// UncategorizedName labels spending without a category.
const UncategorizedName = "Uncategorized"

type (
	CategoryDelta struct {
		CategoryID   string  `json:"categoryId"`
		Name         string  `json:"name"`
		Color        string  `json:"color,omitempty"`
		Current      float64 `json:"current"`
		Prior        float64 `json:"prior"`
		Delta        float64 `json:"delta"`
		DeltaPercent float64 `json:"deltaPercent"`
	}

	CategoryDeltas struct {
		Increased []CategoryDelta `json:"increased"`
		Decreased []CategoryDelta `json:"decreased"`
	}

	CategoryShare struct {
		CategoryID   string  `json:"categoryId"`
		Name         string  `json:"name"`
		Color        string  `json:"color,omitempty"`
		IsMandatory  bool    `json:"isMandatory"`
		Amount       float64 `json:"amount"`
		SharePercent float64 `json:"sharePercent"`
	}
)

// AveragePrior averages per-category totals over the months that recorded
// any spending. Months without data do not dilute the average.
func AveragePrior(months []map[string]float64) map[string]float64 {
	sums := make(map[string]float64)
	var contributing int
	for _, m := range months {
		if !hasSpending(m) {
			continue
		}
		contributing++
		for id, v := range m {
			sums[id] += v
		}
	}
	if contributing == 0 {
		return sums
	}
	for id := range sums {
		sums[id] /= float64(contributing)
	}
	return sums
}

func hasSpending(m map[string]float64) bool {
	for _, v := range m {
		if v > 0 {
			return true
		}
	}
	return false
}

// CompareCategories reports the largest increases and decreases of current
// spending against the prior average. Categories without prior spending have
// no meaningful percentage and are skipped.
func CompareCategories(current, prior map[string]float64, meta map[string]core.CategoryMeta) CategoryDeltas {
	var increased, decreased []CategoryDelta
	for id, p := range prior {
		if p <= 0 {
			continue
		}
		c := current[id]
		name, color := categoryLabel(id, meta)
		d := CategoryDelta{
			CategoryID:   id,
			Name:         name,
			Color:        color,
			Current:      c,
			Prior:        p,
			Delta:        c - p,
			DeltaPercent: (c - p) / p * 100,
		}
		switch {
		case d.Delta > 0:
			increased = append(increased, d)
		case d.Delta < 0:
			decreased = append(decreased, d)
		}
	}

	slices.SortFunc(increased, func(a, b CategoryDelta) int {
		return cmp.Or(cmp.Compare(b.Delta, a.Delta), cmp.Compare(a.CategoryID, b.CategoryID))
	})
	slices.SortFunc(decreased, func(a, b CategoryDelta) int {
		return cmp.Or(cmp.Compare(a.Delta, b.Delta), cmp.Compare(a.CategoryID, b.CategoryID))
	})

	return CategoryDeltas{
		Increased: top(increased, topCategoryDeltas),
		Decreased: top(decreased, topCategoryDeltas),
	}
}

// Breakdown lists every category with positive spending, largest first.
func Breakdown(current map[string]float64, meta map[string]core.CategoryMeta) []CategoryShare {
	var total float64
	for _, v := range current {
		if v > 0 {
			total += v
		}
	}
	out := []CategoryShare{}
	for id, v := range current {
		if v <= 0 {
			continue
		}
		name, color := categoryLabel(id, meta)
		out = append(out, CategoryShare{
			CategoryID:   id,
			Name:         name,
			Color:        color,
			IsMandatory:  meta[id].IsMandatory,
			Amount:       v,
			SharePercent: v / total * 100,
		})
	}
	slices.SortFunc(out, func(a, b CategoryShare) int {
		return cmp.Or(cmp.Compare(b.Amount, a.Amount), cmp.Compare(a.CategoryID, b.CategoryID))
	})
	return out
}

func categoryLabel(id string, meta map[string]core.CategoryMeta) (string, string) {
	if m, ok := meta[id]; ok {
		return m.Name, m.Color
	}
	if id == "" {
		return UncategorizedName, ""
	}
	return id, ""
}

func top[T any](items []T, n int) []T {
	if items == nil {
		return []T{}
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}
