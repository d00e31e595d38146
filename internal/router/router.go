// Package router resolves logical calendar references to concrete
// collections and fans searches out across them.
package router

import (
	"context"
	"log"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
)

// DefaultConcurrency bounds parallel per-collection dispatch when no limit
// is configured.
const DefaultConcurrency = 4

// Store is the per-collection operation set the router dispatches to.
// *caldav.CollectionClient satisfies it.
type Store interface {
	Create(ctx context.Context, item *domain.Item) (*domain.Item, error)
	Get(ctx context.Context, uid string) (*domain.Item, error)
	Update(ctx context.Context, uid string, item *domain.Item) (*domain.Item, error)
	Delete(ctx context.Context, uid string) error
	Query(ctx context.Context, q *domain.SearchQuery) ([]*domain.Item, error)
}

// Connector discovers collections and opens per-collection stores.
type Connector interface {
	DiscoverCollections(ctx context.Context) ([]domain.Collection, error)
	Open(col domain.Collection) Store
}

// Router maps calendar references to collections and merges cross-calendar
// queries. The discovery cache is an atomically-swapped snapshot: readers
// never observe a partially-updated set.
type Router struct {
	conn  Connector
	limit int
	cache atomic.Pointer[snapshot]
}

type snapshot struct {
	collections []domain.Collection
}

// New creates a Router over the given connector with the given concurrency
// limit for fan-out dispatch.
func New(conn Connector, limit int) *Router {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Router{conn: conn, limit: limit}
}

// Refresh re-discovers collections and swaps the cache atomically.
func (r *Router) Refresh(ctx context.Context) error {
	cols, err := r.conn.DiscoverCollections(ctx)
	if err != nil {
		return err
	}
	r.cache.Store(&snapshot{collections: cols})
	log.Printf("Discovered %d calendar collections", len(cols))
	return nil
}

// Collections returns the cached collection set, discovering it on first
// use.
func (r *Router) Collections(ctx context.Context) ([]domain.Collection, error) {
	if snap := r.cache.Load(); snap != nil {
		return snap.collections, nil
	}
	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r.cache.Load().collections, nil
}

// Resolve maps a logical calendar reference (display name or path) to
// exactly one collection. A reference matching several display names fails
// with AmbiguousCalendarReference; the caller must supply the path instead.
// Resolution never silently picks one of several candidates.
func (r *Router) Resolve(ctx context.Context, ref string) (domain.Collection, error) {
	cols, err := r.Collections(ctx)
	if err != nil {
		return domain.Collection{}, err
	}

	// An exact path is unique by construction.
	for _, col := range cols {
		if col.Path == ref {
			return col, nil
		}
	}

	var matches []domain.Collection
	for _, col := range cols {
		if strings.EqualFold(col.DisplayName, strings.TrimSpace(ref)) {
			matches = append(matches, col)
		}
	}

	switch len(matches) {
	case 0:
		return domain.Collection{}, domain.Errorf(domain.ErrCalendarNotFound,
			"no calendar matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		paths := make([]string, len(matches))
		for i, m := range matches {
			paths[i] = m.Path
		}
		return domain.Collection{}, domain.Errorf(domain.ErrAmbiguousCalendar,
			"%d calendars are named %q; use one of the paths %s",
			len(matches), ref, strings.Join(paths, ", "))
	}
}

// Open returns the store for a collection.
func (r *Router) Open(col domain.Collection) Store {
	return r.conn.Open(col)
}

// FanOutSearch queries every collection in the query's target set
// concurrently, bounded by the router's limit, and merges results in
// collection order. A failing collection contributes a typed failure to the
// result instead of aborting its siblings.
func (r *Router) FanOutSearch(ctx context.Context, q *domain.SearchQuery) (*domain.SearchResult, error) {
	targets, err := r.targets(ctx, q)
	if err != nil {
		return nil, err
	}

	perCol := make([][]*domain.Item, len(targets))
	failures := make([]*domain.CollectionFailure, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i, col := range targets {
		i, col := i, col
		g.Go(func() error {
			items, err := r.conn.Open(col).Query(gctx, q)
			if err != nil {
				failures[i] = &domain.CollectionFailure{
					Calendar: col.Path,
					Kind:     domain.KindOf(err),
					Message:  err.Error(),
				}
				return nil // isolate: siblings keep running
			}
			perCol[i] = items
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	result := &domain.SearchResult{Items: []*domain.Item{}}
	for i := range targets {
		result.Items = append(result.Items, perCol[i]...)
		if failures[i] != nil {
			result.Failures = append(result.Failures, *failures[i])
		}
	}

	if q.Limit > 0 && len(result.Items) > q.Limit {
		result.Items = result.Items[:q.Limit]
	}
	return result, nil
}

// targets resolves the query's calendar references, defaulting to every
// accessible collection that supports the queried component type.
func (r *Router) targets(ctx context.Context, q *domain.SearchQuery) ([]domain.Collection, error) {
	if len(q.Calendars) == 0 {
		cols, err := r.Collections(ctx)
		if err != nil {
			return nil, err
		}
		var targets []domain.Collection
		for _, col := range cols {
			if q.Kind == "" || col.Supports(q.Kind) {
				targets = append(targets, col)
			}
		}
		return targets, nil
	}

	targets := make([]domain.Collection, 0, len(q.Calendars))
	for _, ref := range q.Calendars {
		col, err := r.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		targets = append(targets, col)
	}
	return targets, nil
}
