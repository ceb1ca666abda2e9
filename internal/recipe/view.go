package recipe

import (
	"context"
	"iter"
	"time"

	"github.com/starford/larder/internal/models"
	"github.com/starford/larder/internal/policy"
)

// Reader is the read side of the recipe store.
type Reader interface {
	GetRecipe(ctx context.Context, id int64) (*models.Recipe, error)
	RecipeTags(ctx context.Context, id int64) ([]models.Tag, error)
	RecipeIngredients(ctx context.Context, id int64) ([]models.IngredientAmount, error)
	ListRecipes(ctx context.Context, f models.RecipeFilter) ([]models.Recipe, error)
	CountRecipes(ctx context.Context, authorID int64) (int, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Edges answers membership questions for one relation kind.
type Edges interface {
	Has(ctx context.Context, actorID, targetID int64) (bool, error)
	List(ctx context.Context, actorID int64) iter.Seq2[int64, error]
}

// View is a recipe as shown to a particular viewer.
type View struct {
	ID               int64                     `json:"id"`
	Tags             []models.Tag              `json:"tags"`
	Author           Author                    `json:"author"`
	Ingredients      []models.IngredientAmount `json:"ingredients"`
	IsFavorited      bool                      `json:"is_favorited"`
	IsInShoppingCart bool                      `json:"is_in_shopping_cart"`
	Name             string                    `json:"name"`
	Image            string                    `json:"image"`
	Text             string                    `json:"text"`
	CookingTime      int                       `json:"cooking_time"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// Author is a user profile plus whether the viewer follows them.
type Author struct {
	models.User
	IsSubscribed bool `json:"is_subscribed"`
}

// Brief is the short recipe form used in relation responses.
type Brief struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// Subscription is a followed author with a preview of their recipes.
type Subscription struct {
	Author
	Recipes      []Brief `json:"recipes"`
	RecipesCount int     `json:"recipes_count"`
}

// Query narrows List. Favorited and InCart apply to the viewer and are
// ignored for anonymous viewers.
type Query struct {
	AuthorID  int64
	TagSlugs  []string
	Favorited bool
	InCart    bool
	Limit     int
}

// Projector builds read models.
type Projector struct {
	reader    Reader
	follows   Edges
	favorites Edges
	cart      Edges
}

// NewProjector creates a Projector.
func NewProjector(reader Reader, follows, favorites, cart Edges) *Projector {
	return &Projector{reader: reader, follows: follows, favorites: favorites, cart: cart}
}

// Get returns recipe id as seen by viewer.
func (p *Projector) Get(ctx context.Context, viewer models.Actor, id int64) (*View, error) {
	if err := policy.Authorize(viewer, policy.Recipe(0), policy.OpRetrieve); err != nil {
		return nil, err
	}
	r, err := p.reader.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Project(ctx, viewer, r)
}

// List returns matching recipes, newest first.
func (p *Projector) List(ctx context.Context, viewer models.Actor, q Query) ([]View, error) {
	if err := policy.Authorize(viewer, policy.Recipe(0), policy.OpList); err != nil {
		return nil, err
	}
	f := models.RecipeFilter{AuthorID: q.AuthorID, TagSlugs: q.TagSlugs, Limit: q.Limit}
	if viewer.Authenticated() {
		if q.Favorited {
			f.FavoritedBy = viewer.UserID
		}
		if q.InCart {
			f.InCartOf = viewer.UserID
		}
	}
	recipes, err := p.reader.ListRecipes(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(recipes))
	for i := range recipes {
		v, err := p.Project(ctx, viewer, &recipes[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// Project expands r with its tags, author, resolved ingredients and the
// viewer's favorite and cart flags.
func (p *Projector) Project(ctx context.Context, viewer models.Actor, r *models.Recipe) (*View, error) {
	tags, err := p.reader.RecipeTags(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	ings, err := p.reader.RecipeIngredients(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	author, err := p.Profile(ctx, viewer, r.AuthorID)
	if err != nil {
		return nil, err
	}
	fav, err := p.favorites.Has(ctx, viewer.UserID, r.ID)
	if err != nil {
		return nil, err
	}
	inCart, err := p.cart.Has(ctx, viewer.UserID, r.ID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return &View{
		ID:               r.ID,
		Tags:             tags,
		Author:           *author,
		Ingredients:      ings,
		IsFavorited:      fav,
		IsInShoppingCart: inCart,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
		CreatedAt:        r.CreatedAt,
	}, nil
}

// Brief returns the short form of recipe id.
func (p *Projector) Brief(ctx context.Context, id int64) (*Brief, error) {
	r, err := p.reader.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	b := brief(*r)
	return &b, nil
}

// Profile returns user id with the viewer's follow flag.
func (p *Projector) Profile(ctx context.Context, viewer models.Actor, id int64) (*Author, error) {
	u, err := p.reader.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	subscribed, err := p.follows.Has(ctx, viewer.UserID, id)
	if err != nil {
		return nil, err
	}
	return &Author{User: *u, IsSubscribed: subscribed}, nil
}

// Subscription returns the card for author id. recipesLimit <= 0 includes
// every recipe.
func (p *Projector) Subscription(ctx context.Context, viewer models.Actor, id int64, recipesLimit int) (*Subscription, error) {
	author, err := p.Profile(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	recipes, err := p.reader.ListRecipes(ctx, models.RecipeFilter{AuthorID: id, Limit: recipesLimit})
	if err != nil {
		return nil, err
	}
	count, err := p.reader.CountRecipes(ctx, id)
	if err != nil {
		return nil, err
	}
	briefs := make([]Brief, 0, len(recipes))
	for _, r := range recipes {
		briefs = append(briefs, brief(r))
	}
	return &Subscription{Author: *author, Recipes: briefs, RecipesCount: count}, nil
}

// Subscriptions lists the authors viewer follows, oldest follow first.
func (p *Projector) Subscriptions(ctx context.Context, viewer models.Actor, recipesLimit int) ([]Subscription, error) {
	if err := policy.Authorize(viewer, policy.Relation(viewer.UserID), policy.OpList); err != nil {
		return nil, err
	}
	out := []Subscription{}
	for id, err := range p.follows.List(ctx, viewer.UserID) {
		if err != nil {
			return nil, err
		}
		s, err := p.Subscription(ctx, viewer, id, recipesLimit)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func brief(r models.Recipe) Brief {
	return Brief{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime}
}
