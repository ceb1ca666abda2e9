package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/larder/internal/api"
	"github.com/starford/larder/internal/catalog"
	"github.com/starford/larder/internal/mcpserver"
	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/recipe"
	"github.com/starford/larder/internal/relation"
	"github.com/starford/larder/internal/shopping"
	"github.com/starford/larder/internal/sse"
	"github.com/starford/larder/internal/store"
)

var errConfigRequired = errors.New("config is required")

var (
	_ catalog.Source      = (*store.DB)(nil)
	_ catalog.Writer      = (*store.DB)(nil)
	_ relation.Store      = (*store.DB)(nil)
	_ recipe.Repository   = (*store.DB)(nil)
	_ recipe.Reader       = (*store.DB)(nil)
	_ recipe.TagChecker   = (*store.DB)(nil)
	_ recipe.Resolver     = (*catalog.Catalog)(nil)
	_ recipe.Edges        = (*relation.Manager)(nil)
	_ shopping.Source     = (*store.DB)(nil)
	_ api.TagReader       = (*store.DB)(nil)
	_ api.UserSyncer      = (*store.DB)(nil)
	_ mcpserver.TagLister = (*store.DB)(nil)
	_ eventSink           = (*sse.Broker)(nil)
)

// components is the assembled domain layer shared by every entry point.
type components struct {
	db        *store.DB
	catalog   *catalog.Catalog
	follows   *relation.Manager
	favorites *relation.Manager
	cart      *relation.Manager
	composer  *recipe.Composer
	projector *recipe.Projector
	shopping  *shopping.Aggregator
}

// newLogger builds the JSON logger at the configured level.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// eventSink receives change notifications from the domain layer.
type eventSink interface {
	RecipeChanged(kind string, id int64)
	RelationChanged(kind models.RelationKind, action string, actorID, targetID int64)
}

// build opens the database and wires the domain components. events may be nil.
func build(cfg *Config, events eventSink) (*components, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	cat, err := catalog.New(db, cfg.Catalog.CacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}

	var (
		recipeOpts   []recipe.Option
		relationOpts []relation.Option
	)
	if events != nil {
		recipeOpts = append(recipeOpts, recipe.WithNotify(events.RecipeChanged))
		relationOpts = append(relationOpts, relation.WithNotify(events.RelationChanged))
	}

	c := &components{
		db:        db,
		catalog:   cat,
		follows:   relation.New(db, relation.Follow, relationOpts...),
		favorites: relation.New(db, relation.Favorite, relationOpts...),
		cart:      relation.New(db, relation.Cart, relationOpts...),
		shopping:  shopping.NewAggregator(db),
	}
	c.composer = recipe.NewComposer(db, cat, db, recipeOpts...)
	c.projector = recipe.NewProjector(db, c.follows, c.favorites, c.cart)
	return c, nil
}

func (c *components) services() api.Services {
	return api.Services{
		Composer:  c.composer,
		Projector: c.projector,
		Catalog:   c.catalog,
		Tags:      c.db,
		Follows:   c.follows,
		Favorites: c.favorites,
		Cart:      c.cart,
		Shopping:  c.shopping,
	}
}

// importSeed imports the configured seed file, if any, and drops cached
// ingredients when it changed.
func (c *components) importSeed(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	if cfg.Catalog.SeedPath == "" {
		return nil
	}
	changed, err := catalog.Sync(ctx, cfg.Catalog.SeedPath, c.db, logger)
	if err != nil {
		return err
	}
	if changed {
		c.catalog.Invalidate()
	}
	return nil
}

func (c *components) close() error {
	return c.db.Close()
}
