// Package cycle runs pull passes against both remotes in turn, forever or
// once, with a settle delay between passes.
package cycle

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harrisonrobin/tasksync/pkg/logging"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/reconcile"
	"github.com/harrisonrobin/tasksync/pkg/remote"
)

type State int

const (
	Pulling State = iota
	Settling
)

func (s State) String() string {
	if s == Settling {
		return "SETTLING"
	}
	return "PULLING"
}

// Syncer is the part of the engine the driver needs.
type Syncer interface {
	Sync(ctx context.Context, src model.Source) (reconcile.PullResult, error)
	ApplyLocalEdits(ctx context.Context) (bool, error)
}

type Options struct {
	// Settle is the pause after each pass.
	Settle time.Duration
	// Once stops after one pass over every remote.
	Once bool
	// Changes signals local edits of the store. It is only read while
	// settling. May be nil.
	Changes <-chan struct{}
	// Errors carries failures of whatever feeds Changes. They are logged.
	Errors <-chan error
}

type Driver struct {
	syncer  Syncer
	order   []model.Source
	opts    Options
	logger  *log.Logger
	onState func(State)
}

func New(syncer Syncer, opts Options, logger *log.Logger) *Driver {
	if logger == nil {
		logger = logging.Default("cycle")
	}
	return &Driver{
		syncer: syncer,
		order:  []model.Source{model.Notion, model.Todoist},
		opts:   opts,
		logger: logger,
	}
}

// Run alternates pull passes until ctx is cancelled. Cancellation is only
// observed between passes; a pass in flight runs to completion. Fatal errors
// end the run. Other errors are logged and the next cycle retries, except in
// once mode where they are returned.
func (d *Driver) Run(ctx context.Context) error {
	for {
		for i, src := range d.order {
			if ctx.Err() != nil {
				d.logger.Info("stopping")
				return nil
			}
			d.setState(Pulling)
			if err := d.pass(ctx, src); err != nil {
				return err
			}
			if d.opts.Once && i == len(d.order)-1 {
				return nil
			}
			d.setState(Settling)
			if err := d.settle(ctx); err != nil {
				return err
			}
		}
	}
}

func (d *Driver) setState(s State) {
	d.logger.Debug("state", "state", s)
	if d.onState != nil {
		d.onState(s)
	}
}

func (d *Driver) pass(ctx context.Context, src model.Source) error {
	res, err := d.syncer.Sync(context.WithoutCancel(ctx), src)
	if err != nil {
		if remote.IsFatal(err) || d.opts.Once {
			return err
		}
		d.logger.Error("pass failed, retrying next cycle", "remote", src, "err", err)
		return nil
	}
	d.logger.Debug("pass finished", "remote", src, "changed", res.Changed)
	return nil
}

// settle waits out the settle delay. Local edits arriving meanwhile are pushed
// right away.
func (d *Driver) settle(ctx context.Context) error {
	timer := time.NewTimer(d.opts.Settle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			return nil
		case err := <-d.opts.Errors:
			d.logger.Warn("store watcher failed", "err", err)
		case <-d.opts.Changes:
			if _, err := d.syncer.ApplyLocalEdits(context.WithoutCancel(ctx)); err != nil {
				if remote.IsFatal(err) {
					return err
				}
				d.logger.Error("failed to push local edits", "err", err)
			}
		}
	}
}
