// Package policy decides whether an actor may perform an operation on a resource.
package policy

import (
	"fmt"

	"github.com/starford/larder/internal/apperr"
	"github.com/starford/larder/internal/models"
)

// Kind identifies a resource family.
type Kind string

const (
	Tags         Kind = "tags"
	Ingredients  Kind = "ingredients"
	Recipes      Kind = "recipes"
	Relations    Kind = "relations"
	ShoppingList Kind = "shopping_list"
)

// Op is an operation on a resource.
type Op string

const (
	OpList     Op = "list"
	OpRetrieve Op = "retrieve"
	OpCreate   Op = "create"
	OpUpdate   Op = "update"
	OpDelete   Op = "delete"
	OpAdd      Op = "add"
	OpRemove   Op = "remove"
)

// Resource is the target of an authorization decision. OwnerID is the
// recipe author for recipes and the edge actor for relations.
type Resource struct {
	Kind    Kind
	OwnerID int64
}

// Recipe returns a recipe resource owned by authorID (0 for collections).
func Recipe(authorID int64) Resource { return Resource{Kind: Recipes, OwnerID: authorID} }

// Relation returns a relation resource whose edges belong to actorID.
func Relation(actorID int64) Resource { return Resource{Kind: Relations, OwnerID: actorID} }

// Authorize returns nil when actor may perform op on res. Denials wrap
// apperr.ErrPermission; anonymous callers get apperr.ErrUnauthenticated.
func Authorize(actor models.Actor, res Resource, op Op) error {
	switch res.Kind {
	case Tags, Ingredients:
		if op == OpList || op == OpRetrieve {
			return nil
		}
		return deny(res, op)

	case Recipes:
		switch op {
		case OpList, OpRetrieve:
			// Retrieval is open regardless of ownership.
			return nil
		case OpCreate:
			return requireAuth(actor)
		case OpUpdate, OpDelete:
			if err := requireAuth(actor); err != nil {
				return err
			}
			if actor.Admin || actor.UserID == res.OwnerID {
				return nil
			}
			return deny(res, op)
		}

	case Relations:
		switch op {
		case OpList, OpAdd, OpRemove:
			if err := requireAuth(actor); err != nil {
				return err
			}
			if actor.UserID == res.OwnerID {
				return nil
			}
			return deny(res, op)
		}

	case ShoppingList:
		if op == OpRetrieve {
			return requireAuth(actor)
		}
	}
	return deny(res, op)
}

func requireAuth(actor models.Actor) error {
	if !actor.Authenticated() {
		return apperr.ErrUnauthenticated
	}
	return nil
}

func deny(res Resource, op Op) error {
	return fmt.Errorf("%w: %s on %s", apperr.ErrPermission, op, res.Kind)
}
