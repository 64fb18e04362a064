package section

import (
	"context"
	"errors"

	"github.com/keithlinneman/linnemanlabs-sections/internal/catalog"
	"github.com/keithlinneman/linnemanlabs-sections/internal/log"
	"github.com/keithlinneman/linnemanlabs-sections/internal/xerrors"
)

// ConfirmMessage is shown before an item is deleted.
const ConfirmMessage = "Are you sure you want to delete this post?"

var (
	ErrMissingPort = errors.New("section: delete port not configured")
	ErrNoItem      = errors.New("section: no item to delete")
)

type Confirmer interface {
	Confirm(ctx context.Context, message string) bool
}

type APIClient interface {
	Delete(ctx context.Context, path, id string) error
}

// Collection is the caller-owned list the item is removed from.
type Collection interface {
	Remove(id string) bool
}

type Navigator interface {
	Navigate(ctx context.Context, route string)
}

// Ports are the collaborators of a delete. Navigator may be nil.
type Ports struct {
	Confirm   Confirmer
	API       APIClient
	Store     Collection
	Navigator Navigator
}

// Stage is how far a delete got.
type Stage int

const (
	StagePending Stage = iota
	StageDeclined
	StageRequest
	StageRemoved
	StageNavigated
)

func (s Stage) String() string {
	switch s {
	case StageDeclined:
		return "declined"
	case StageRequest:
		return "request_failed"
	case StageRemoved:
		return "removed"
	case StageNavigated:
		return "navigated"
	}
	return "pending"
}

type DeleteResult struct {
	Stage Stage
	// Err is set when Stage is StageRequest, or StagePending if Wait gave up.
	Err error
	// Removed reports whether the collection still held the item.
	Removed bool
	Route   string
}

// OK reports whether the delete completed.
func (r DeleteResult) OK() bool {
	return r.Stage == StageRemoved || r.Stage == StageNavigated
}

// DeleteOp is a delete running in the background.
type DeleteOp struct {
	done chan struct{}
	res  DeleteResult
}

func (op *DeleteOp) Done() <-chan struct{} { return op.done }

// Wait blocks until the delete finishes or ctx ends. In the latter case the
// result has StagePending and the context error; the delete keeps running.
func (op *DeleteOp) Wait(ctx context.Context) DeleteResult {
	select {
	case <-op.done:
		return op.res
	case <-ctx.Done():
		return DeleteResult{Stage: StagePending, Err: ctx.Err()}
	}
}

// Delete asks for confirmation, deletes the item through the API, removes
// it from the collection and navigates to the redirect route. Each step runs
// only if the previous one succeeded. A failed API call is logged and leaves
// the collection and location untouched.
func (d Detail) Delete(ctx context.Context, item *catalog.Item, p Ports) *DeleteOp {
	op := &DeleteOp{done: make(chan struct{})}
	go func() {
		defer close(op.done)
		op.res = d.runDelete(ctx, item, p)
		if d.Metrics != nil {
			d.Metrics.IncDelete(op.res.Stage.String())
		}
	}()
	return op
}

func (d Detail) runDelete(ctx context.Context, item *catalog.Item, p Ports) DeleteResult {
	opts := d.Options.withDefaults()
	logger := d.Logger
	if logger == nil {
		logger = log.FromContext(ctx)
	}

	switch {
	case item == nil || item.IsZero() || item.ID == "":
		return DeleteResult{Stage: StageRequest, Err: ErrNoItem}
	case p.Confirm == nil || p.API == nil || p.Store == nil:
		return DeleteResult{Stage: StageRequest, Err: ErrMissingPort}
	}

	if !p.Confirm.Confirm(ctx, ConfirmMessage) {
		logger.Debug(ctx, "delete declined", "id", item.ID)
		return DeleteResult{Stage: StageDeclined}
	}

	if err := p.API.Delete(ctx, opts.APIPath, item.ID); err != nil {
		err = xerrors.Wrapf(err, "delete %s %s", opts.APIPath, item.ID)
		logger.Error(ctx, err, "delete request failed", "id", item.ID, "api_path", opts.APIPath)
		return DeleteResult{Stage: StageRequest, Err: err}
	}

	res := DeleteResult{Stage: StageRemoved, Removed: p.Store.Remove(item.ID), Route: opts.RedirectRoute}
	logger.Info(ctx, "item deleted", "id", item.ID, "removed_from_store", res.Removed)

	if p.Navigator != nil {
		p.Navigator.Navigate(ctx, opts.RedirectRoute)
		res.Stage = StageNavigated
	}
	return res
}
