// Package shopping turns a user's cart into a combined ingredient list.
package shopping

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sort"
	"strings"

	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/policy"
)

// Header is the first line of every report.
const Header = "Shopping list:"

// Source returns the ungrouped ingredient lines of a user's cart.
type Source interface {
	CartLines(ctx context.Context, userID int64) ([]models.IngredientAmount, error)
}

// Item is one grouped line of the report.
type Item struct {
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Total           int    `json:"total"`
}

func (it Item) String() string {
	return fmt.Sprintf("%s - %d, %s", it.Name, it.Total, it.MeasurementUnit)
}

// Report is an aggregated shopping list. Items are ordered by name
// case-insensitively, then by unit.
type Report struct {
	Items []Item `json:"items"`
}

// Lines yields the header followed by one line per item.
func (r *Report) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		if !yield(Header) {
			return
		}
		for _, it := range r.Items {
			if !yield(it.String()) {
				return
			}
		}
	}
}

// WriteTo renders the plain-text download.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	for _, it := range r.Items {
		b.WriteString("\n")
		b.WriteString(it.String())
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Aggregator builds reports from a Source.
type Aggregator struct {
	src Source
}

// NewAggregator creates an Aggregator.
func NewAggregator(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// Aggregate sums the cart lines of actor's cart by (name, unit). Two
// ingredient records sharing a name and unit land in one item. An empty
// cart gives a report with no items.
func (a *Aggregator) Aggregate(ctx context.Context, actor models.Actor) (*Report, error) {
	if err := policy.Authorize(actor, policy.Resource{Kind: policy.ShoppingList, OwnerID: actor.UserID}, policy.OpRetrieve); err != nil {
		return nil, err
	}
	lines, err := a.src.CartLines(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return &Report{Items: group(lines)}, nil
}

type groupKey struct{ name, unit string }

func group(lines []models.IngredientAmount) []Item {
	totals := make(map[groupKey]int, len(lines))
	for _, l := range lines {
		totals[groupKey{l.Name, l.MeasurementUnit}] += l.Amount
	}
	items := make([]Item, 0, len(totals))
	for k, total := range totals {
		items = append(items, Item{Name: k.name, MeasurementUnit: k.unit, Total: total})
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name); la != lb {
			return la < lb
		}
		if a.MeasurementUnit != b.MeasurementUnit {
			return a.MeasurementUnit < b.MeasurementUnit
		}
		return a.Name < b.Name
	})
	return items
}
