// Package relation manages directed user relations: follows, favorites and
// shopping cart membership. One Manager type serves all three, configured
// by a Rule.
package relation

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/starford/larder/internal/apperr"
	"github.com/starford/larder/internal/models"
)

// Rule selects the edge kind a Manager works on and the checks it applies.
type Rule struct {
	Kind       models.RelationKind
	ForbidSelf bool
}

var (
	Follow   = Rule{Kind: models.KindFollow, ForbidSelf: true}
	Favorite = Rule{Kind: models.KindFavorite}
	Cart     = Rule{Kind: models.KindCart}
)

// Store is the edge set a Manager writes to. InsertEdge must be a single
// atomic insert that fails with apperr.ErrNotFound when the target is gone
// and with apperr.ErrAlreadyExists on a duplicate. DeleteEdge fails with
// apperr.ErrNoRelation when the edge is absent.
type Store interface {
	InsertEdge(ctx context.Context, e models.Edge) error
	DeleteEdge(ctx context.Context, e models.Edge) error
	EdgeExists(ctx context.Context, e models.Edge) (bool, error)
	Targets(ctx context.Context, actorID int64, kind models.RelationKind) iter.Seq2[int64, error]
	TargetExists(ctx context.Context, kind models.RelationKind, id int64) (bool, error)
}

// Actions passed to a notify hook.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// Manager applies one Rule over a Store. Callers authorize the actor first.
type Manager struct {
	store  Store
	rule   Rule
	notify func(kind models.RelationKind, action string, actorID, targetID int64)
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotify registers fn to be called after every successful Add or Remove.
func WithNotify(fn func(kind models.RelationKind, action string, actorID, targetID int64)) Option {
	return func(m *Manager) { m.notify = fn }
}

// New creates a Manager for rule.
func New(store Store, rule Rule, opts ...Option) *Manager {
	m := &Manager{store: store, rule: rule}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Kind returns the edge kind this manager handles.
func (m *Manager) Kind() models.RelationKind { return m.rule.Kind }

// Add creates the edge actorID -> targetID. A missing target fails with
// apperr.ErrNotFound. A second Add of the same edge fails with
// apperr.ErrAlreadyExists rather than succeeding silently.
func (m *Manager) Add(ctx context.Context, actorID, targetID int64) (models.Edge, error) {
	e := m.edge(actorID, targetID)
	if m.rule.ForbidSelf && actorID == targetID {
		return models.Edge{}, fmt.Errorf("%s %d: %w", e.Kind, targetID, apperr.ErrSelfReference)
	}
	if err := m.store.InsertEdge(ctx, e); err != nil {
		return models.Edge{}, err
	}
	m.emit(ActionAdded, e)
	return e, nil
}

// Remove deletes the edge. An absent edge fails with apperr.ErrNoRelation,
// or with plain apperr.ErrNotFound when the target itself does not exist.
func (m *Manager) Remove(ctx context.Context, actorID, targetID int64) error {
	e := m.edge(actorID, targetID)
	err := m.store.DeleteEdge(ctx, e)
	if errors.Is(err, apperr.ErrNoRelation) {
		ok, terr := m.store.TargetExists(ctx, e.Kind, targetID)
		if terr != nil {
			return terr
		}
		if !ok {
			return fmt.Errorf("%s target %d: %w", e.Kind, targetID, apperr.ErrNotFound)
		}
	}
	if err != nil {
		return err
	}
	m.emit(ActionRemoved, e)
	return nil
}

// Has reports whether the edge exists. The anonymous actor holds no edges.
func (m *Manager) Has(ctx context.Context, actorID, targetID int64) (bool, error) {
	if actorID == 0 {
		return false, nil
	}
	return m.store.EdgeExists(ctx, m.edge(actorID, targetID))
}

// List yields the targets of actorID's edges, oldest first. The sequence
// can be ranged over more than once; each pass reads current state.
func (m *Manager) List(ctx context.Context, actorID int64) iter.Seq2[int64, error] {
	return m.store.Targets(ctx, actorID, m.rule.Kind)
}

// Collect drains a target sequence into a slice, stopping at the first error.
func Collect(seq iter.Seq2[int64, error]) ([]int64, error) {
	var ids []int64
	for id, err := range seq {
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Manager) emit(action string, e models.Edge) {
	if m.notify != nil {
		m.notify(e.Kind, action, e.ActorID, e.TargetID)
	}
}

func (m *Manager) edge(actorID, targetID int64) models.Edge {
	return models.Edge{ActorID: actorID, TargetID: targetID, Kind: m.rule.Kind}
}
