// Package reconcile merges the task lists of Notion and Todoist through the
// local store.
//
// A pull pass reads one remote into the store: known tasks are updated, new
// tasks are matched to or created on the other remote, and records whose task
// vanished are tombstoned. A push pass writes every record modified since the
// watermark to both remotes and deletes tombstoned records everywhere.
package reconcile

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harrisonrobin/tasksync/pkg/logging"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
	"github.com/harrisonrobin/tasksync/pkg/store"
	"github.com/harrisonrobin/tasksync/pkg/util"
)

// Remote is one of the two task services.
type Remote interface {
	Source() model.Source
	ListActive(ctx context.Context) ([]remote.Task, error)
	// ListCompleted returns the sparse completed listing, or nothing when the
	// remote reports completion as a field of active tasks.
	ListCompleted(ctx context.Context) ([]remote.Task, error)
	Create(ctx context.Context, f remote.Fields) (string, error)
	// Update writes title, due, labels and ref. Completion is separate.
	Update(ctx context.Context, id string, f remote.Fields) error
	SetCompletion(ctx context.Context, id string, done bool) error
	Delete(ctx context.Context, id string) error
}

// Linker is implemented by a remote that stores the other remote's id.
type Linker interface {
	SetRef(ctx context.Context, id, ref string) error
}

// PullResult counts what a pull pass did.
type PullResult struct {
	Source     model.Source
	Created    int
	Reused     int
	Updated    int
	Tombstoned int
	// Changed is true when the store was rewritten.
	Changed bool
	// Pending is true when the store holds tombstones or records modified
	// after the watermark, left over from this pass or an earlier failed push.
	Pending bool
}

// PushResult counts what a push pass did.
type PushResult struct {
	Created   int
	Updated   int
	Completed int
	Deleted   int
	Skipped   int
}

// Engine owns the store between passes. Passes must not run concurrently.
type Engine struct {
	remotes   map[model.Source]Remote
	store     *store.Store
	watermark *store.Watermark
	logger    *log.Logger
	now       func() time.Time

	// snapshots holds the last state observed on each remote, by remote id.
	snapshots map[model.Source]map[string]remote.Task
}

func New(notion, todoist Remote, st *store.Store, wm *store.Watermark, zones util.Zones, logger *log.Logger) *Engine {
	if logger == nil {
		logger = logging.Default("reconcile")
	}
	return &Engine{
		remotes: map[model.Source]Remote{
			model.Notion:  notion,
			model.Todoist: todoist,
		},
		store:     st,
		watermark: wm,
		logger:    logger,
		now:       zones.Now,
		snapshots: map[model.Source]map[string]remote.Task{
			model.Notion:  {},
			model.Todoist: {},
		},
	}
}

// SetClock replaces the time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Sync pulls src and pushes when the pull changed the store or left records
// waiting for a push.
func (e *Engine) Sync(ctx context.Context, src model.Source) (PullResult, error) {
	res, err := e.Pull(ctx, src)
	if err != nil || !(res.Changed || res.Pending) {
		return res, err
	}
	if _, err := e.Push(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// remember replaces the snapshot of src with a complete listing. Active
// entries win over completed ones with the same id.
func (e *Engine) remember(src model.Source, active, completed []remote.Task) {
	snap := make(map[string]remote.Task, len(active)+len(completed))
	for _, rt := range completed {
		snap[rt.ID] = rt
	}
	for _, rt := range active {
		snap[rt.ID] = rt
	}
	e.snapshots[src] = snap
}

func (e *Engine) observe(src model.Source, rt remote.Task) {
	e.snapshots[src][rt.ID] = rt
}

func (e *Engine) observed(src model.Source, id string) (remote.Task, bool) {
	rt, ok := e.snapshots[src][id]
	return rt, ok
}

func (e *Engine) forget(src model.Source, id string) {
	delete(e.snapshots[src], id)
}

// pendingPush reports whether a push pass has work in tasks.
func pendingPush(tasks []model.Task, wm time.Time, hasWatermark bool) bool {
	for i := range tasks {
		if tasks[i].Tombstoned || !hasWatermark || tasks[i].LastModified.After(wm) {
			return true
		}
	}
	return false
}

func (e *Engine) lock(ctx context.Context) (func(), error) {
	if err := e.store.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := e.store.Unlock(); err != nil {
			e.logger.Warn("failed to unlock store", "err", err)
		}
	}, nil
}
