// Package batch sequences independent create/update/delete requests with
// per-item failure isolation.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
)

// DefaultConcurrency bounds parallel entry dispatch when no limit is
// configured.
const DefaultConcurrency = 4

// Operations is the single-item mutation set the executor drives. The tool
// façade implements it.
type Operations interface {
	Create(ctx context.Context, calendar string, in domain.ItemInput) (*domain.Item, error)
	Update(ctx context.Context, calendar, uid string, in domain.ItemInput) (*domain.Item, error)
	Delete(ctx context.Context, calendar, uid string) error
}

// Executor runs batches against the façade's single-item operations.
type Executor struct {
	ops   Operations
	limit int
}

// New creates an Executor with the given concurrency limit.
func New(ops Operations, limit int) *Executor {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	return &Executor{ops: ops, limit: limit}
}

// Execute runs every entry of the request. Entries are independent: one
// entry's failure never stops the others, and the result always holds
// exactly one outcome per entry, index-aligned with the request. On
// cancellation, outcomes already produced are preserved and the remaining
// entries report a transport failure.
func (e *Executor) Execute(ctx context.Context, req *domain.BatchRequest) *domain.BatchResult {
	outcomes := make([]domain.BatchOutcome, len(req.Entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)
	for i := range req.Entries {
		i := i
		entry := req.Entries[i]
		g.Go(func() error {
			outcomes[i] = e.dispatch(gctx, entry)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	result := &domain.BatchResult{Outcomes: outcomes}
	for i := range outcomes {
		if outcomes[i].OK {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	return result
}

func (e *Executor) dispatch(ctx context.Context, entry domain.BatchEntry) domain.BatchOutcome {
	if err := ctx.Err(); err != nil {
		return domain.FailureOutcome(entry.Token,
			domain.WrapError(domain.ErrTransport, err, "batch entry canceled"))
	}

	var (
		item *domain.Item
		err  error
	)
	switch entry.Action {
	case domain.ActionCreate:
		item, err = e.ops.Create(ctx, entry.Calendar, entry.Item)
	case domain.ActionUpdate:
		item, err = e.ops.Update(ctx, entry.Calendar, entry.UID, entry.Item)
	case domain.ActionDelete:
		err = e.ops.Delete(ctx, entry.Calendar, entry.UID)
	default:
		err = domain.Errorf(domain.ErrMalformedObject,
			"unknown batch action %q", entry.Action)
	}

	if err != nil {
		return domain.FailureOutcome(entry.Token, err)
	}
	return domain.BatchOutcome{Token: entry.Token, OK: true, Item: item}
}
