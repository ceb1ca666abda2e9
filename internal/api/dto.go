package api

import (
	"github.com/starford/larder/internal/recipe"
)

// RecipeRequest is the request body for creating or replacing a recipe.
type RecipeRequest = recipe.Input

// RecipeResponse is a recipe as seen by the caller.
type RecipeResponse = recipe.View

// BriefRecipeResponse is returned when a recipe is added to favorites or the cart.
type BriefRecipeResponse = recipe.Brief

// SubscriptionResponse is a followed author with a recipe preview.
type SubscriptionResponse = recipe.Subscription
