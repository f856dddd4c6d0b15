package reconcile

import (
	"context"
	"fmt"

	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
	"github.com/harrisonrobin/tasksync/pkg/util"
)

// Push writes every record modified after the watermark to both remotes,
// deletes tombstoned records everywhere and drops them from the store. Hand
// edits of the store file are folded in first. The watermark advances only
// after the store is saved. Any failure other than a missing remote task
// aborts the pass with nothing written.
func (e *Engine) Push(ctx context.Context) (PushResult, error) {
	var res PushResult
	unlock, err := e.lock(ctx)
	if err != nil {
		return res, err
	}
	defer unlock()

	if _, err := e.foldLocalEdits(); err != nil {
		return res, err
	}
	tasks, err := e.store.Load()
	if err != nil {
		return res, err
	}
	wm, hasWatermark, err := e.watermark.Load()
	if err != nil {
		return res, err
	}

	kept := make([]model.Task, 0, len(tasks))
	for i := range tasks {
		t := tasks[i]
		if t.Tombstoned {
			if err := e.purge(ctx, &t); err != nil {
				return res, err
			}
			res.Deleted++
			continue
		}
		if hasWatermark && !t.LastModified.After(wm) {
			res.Skipped++
			kept = append(kept, t)
			continue
		}
		if err := e.pushTask(ctx, &t, &res); err != nil {
			return res, err
		}
		kept = append(kept, t)
	}

	if _, err := e.store.Save(kept); err != nil {
		return res, err
	}
	if err := e.watermark.Save(e.now()); err != nil {
		return res, fmt.Errorf("failed to save watermark: %w", err)
	}
	e.logger.Info("push finished",
		"created", res.Created, "updated", res.Updated, "completed", res.Completed,
		"deleted", res.Deleted, "skipped", res.Skipped)
	return res, nil
}

// pushTask brings both remotes in line with t. Todoist goes first so that a
// new Todoist id reaches the Notion page in the same pass. Calls are skipped
// for a remote whose last observed state already matches.
func (e *Engine) pushTask(ctx context.Context, t *model.Task, res *PushResult) error {
	for _, src := range model.Sources {
		r := e.remotes[src]
		ref := ""
		if src == model.Notion {
			ref = t.TodoistID
		}
		f := remote.FieldsOf(t, ref)

		id := t.RemoteID(src)
		if id == "" {
			newID, err := r.Create(ctx, f)
			if err != nil {
				return fmt.Errorf("failed to create task '%s' on %s: %w", t.Title, src, err)
			}
			t.SetRemoteID(src, newID)
			e.observe(src, remote.TaskFromFields(newID, f))
			res.Created++
			e.logger.Info("task created", "remote", src, "task", t.Title, "id", newID)
			continue
		}

		observed, known := e.observed(src, id)
		if !known || util.ContentNeedsPush(observed, f) {
			if err := r.Update(ctx, id, f); err != nil {
				if remote.IsNotFound(err) {
					e.logger.Warn("task gone upstream, skipping", "remote", src, "task", t.Title, "id", id)
					continue
				}
				return fmt.Errorf("failed to update task '%s' on %s: %w", t.Title, src, err)
			}
			res.Updated++
			e.logger.Debug("task updated", "remote", src, "task", t.Title, "id", id)
		}
		if !known || observed.Completed != f.Completed {
			if err := r.SetCompletion(ctx, id, f.Completed); err != nil {
				if remote.IsNotFound(err) {
					e.logger.Warn("task gone upstream, skipping", "remote", src, "task", t.Title, "id", id)
					continue
				}
				return fmt.Errorf("failed to set completion of '%s' on %s: %w", t.Title, src, err)
			}
			res.Completed++
		}
		e.observe(src, remote.TaskFromFields(id, f))
	}
	return nil
}

// purge deletes a tombstoned record from every remote that still holds it.
// A task that is already gone counts as deleted.
func (e *Engine) purge(ctx context.Context, t *model.Task) error {
	for _, src := range model.Sources {
		id := t.RemoteID(src)
		if id == "" {
			continue
		}
		if err := e.remotes[src].Delete(ctx, id); err != nil {
			if !remote.IsNotFound(err) {
				return fmt.Errorf("failed to delete task '%s' from %s: %w", t.Title, src, err)
			}
			e.logger.Debug("task already gone", "remote", src, "task", t.Title, "id", id)
		} else {
			e.logger.Info("task deleted", "remote", src, "task", t.Title, "id", id)
		}
		e.forget(src, id)
	}
	return nil
}
