package reconcile

import (
	"context"

	"github.com/google/uuid"
	"github.com/harrisonrobin/tasksync/pkg/model"
)

// ApplyLocalEdits picks up changes made to the store file by hand since the
// last pass. Records whose content changed, and records added without an id,
// get a fresh last_modified. Records that were removed from the file but still
// reference a remote task come back tombstoned so the deletion propagates.
// When anything changed a push pass follows. It reports whether it pushed.
func (e *Engine) ApplyLocalEdits(ctx context.Context) (bool, error) {
	changed, err := e.collectLocalEdits(ctx)
	if err != nil || !changed {
		return false, err
	}
	if _, err := e.Push(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (e *Engine) collectLocalEdits(ctx context.Context) (bool, error) {
	unlock, err := e.lock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()
	return e.foldLocalEdits()
}

// foldLocalEdits stamps the records edited by hand and saves them. The store
// lock must be held.
func (e *Engine) foldLocalEdits() (bool, error) {
	prev, ok, err := e.store.Previous()
	if err != nil || !ok {
		return false, err
	}
	edited, err := e.store.Changed()
	if err != nil || !edited {
		return false, err
	}
	tasks, err := e.store.Load()
	if err != nil {
		return false, err
	}

	before := make(map[string]model.Task, len(prev))
	for _, t := range prev {
		before[t.ID] = t
	}
	now := e.now()
	present := make(map[string]bool, len(tasks))
	touched := 0
	for i := range tasks {
		t := &tasks[i]
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		present[t.ID] = true
		t.Labels = model.NormalizeLabels(t.Labels)
		old, known := before[t.ID]
		if known && model.SameContent(&old, t) {
			continue
		}
		t.Touch(now)
		touched++
		e.logger.Debug("local edit", "task", t.Title)
	}
	for _, old := range prev {
		if present[old.ID] || (old.NotionID == "" && old.TodoistID == "") {
			continue
		}
		old.Tombstoned = true
		old.Touch(now)
		tasks = append(tasks, old)
		touched++
		e.logger.Info("task removed locally, tombstoned", "task", old.Title)
	}
	if touched == 0 {
		return false, nil
	}
	if _, err := e.store.Save(tasks); err != nil {
		return false, err
	}
	e.logger.Info("local edits applied", "records", touched)
	return true, nil
}
