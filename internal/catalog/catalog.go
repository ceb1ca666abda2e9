// Package catalog serves ingredient reference data: cached lookup by id,
// fuzzy search by name, and import from a seed file.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"

	"github.com/starford/larder/internal/models"
)

// DefaultCacheSize is used when New is given a non-positive size.
const DefaultCacheSize = 1024

// Source is the persistent side of the catalog.
type Source interface {
	Ingredient(ctx context.Context, id int64) (models.Ingredient, error)
	Ingredients(ctx context.Context) ([]models.Ingredient, error)
}

// Catalog is a read-only view over ingredients. Ingredients are immutable,
// so resolved entries stay cached until Invalidate is called.
type Catalog struct {
	src   Source
	cache *lru.Cache
}

// New creates a catalog with an LRU cache of the given size.
func New(src Source, size int) (*Catalog, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("catalog: create cache: %w", err)
	}
	return &Catalog{src: src, cache: cache}, nil
}

// Resolve returns the ingredient with the given id. Unknown ids wrap
// apperr.ErrNotFound.
func (c *Catalog) Resolve(ctx context.Context, id int64) (models.Ingredient, error) {
	if v, ok := c.cache.Get(id); ok {
		return v.(models.Ingredient), nil
	}
	ing, err := c.src.Ingredient(ctx, id)
	if err != nil {
		return models.Ingredient{}, err
	}
	c.cache.Add(id, ing)
	return ing, nil
}

// Invalidate drops every cached entry. Called after a seed re-import.
func (c *Catalog) Invalidate() {
	c.cache.Purge()
}

// Search returns ingredients matching query, best match first. Names that
// start with the query rank ahead of other fuzzy matches. An empty query
// lists everything by name. limit <= 0 means no limit.
func (c *Catalog) Search(ctx context.Context, query string, limit int) ([]models.Ingredient, error) {
	all, err := c.src.Ingredients(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return truncate(all, limit), nil
	}

	matches := fuzzy.FindFrom(query, searchItems(all))
	sort.SliceStable(matches, func(i, j int) bool {
		pi := strings.HasPrefix(matches[i].Str, query)
		pj := strings.HasPrefix(matches[j].Str, query)
		return pi && !pj
	})

	out := make([]models.Ingredient, 0, len(matches))
	for _, m := range matches {
		out = append(out, all[m.Index])
	}
	return truncate(out, limit), nil
}

// searchItems implements fuzzy.Source over lower-cased ingredient names.
type searchItems []models.Ingredient

func (s searchItems) String(i int) string { return strings.ToLower(s[i].Name) }

func (s searchItems) Len() int { return len(s) }

func truncate(in []models.Ingredient, limit int) []models.Ingredient {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
