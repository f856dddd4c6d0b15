package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/harrisonrobin/tasksync/pkg/index"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
	"github.com/harrisonrobin/tasksync/pkg/util"
)

// pullPass is the state of one pull pass over the records.
type pullPass struct {
	engine *Engine
	ctx    context.Context
	src    model.Source
	other  model.Source
	now    time.Time

	// watermark is the time of the last push. Records modified after it
	// carry edits the remotes have not seen yet.
	watermark    time.Time
	hasWatermark bool
	// before is what src showed when it was last observed.
	before map[string]remote.Task

	tasks    []model.Task
	idx      *index.TaskIndex
	otherIdx *index.TaskIndex

	// peer is the listing of the other remote, fetched on first need.
	peer       []remote.Task
	peerLoaded bool

	res PullResult
}

// Pull reads src into the store. Hand edits of the store file are folded in
// first. The store is written only when its content changed.
func (e *Engine) Pull(ctx context.Context, src model.Source) (PullResult, error) {
	res := PullResult{Source: src}
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
	for _, id := range index.Duplicates(tasks, src) {
		e.logger.Warn("several records reference the same task", "remote", src, "id", id)
	}

	origin := e.remotes[src]
	active, err := origin.ListActive(ctx)
	if err != nil {
		return res, err
	}
	completed, err := origin.ListCompleted(ctx)
	if err != nil {
		return res, err
	}
	// An empty Notion listing is ignored. Todoist listings are taken as is.
	if src == model.Notion && len(active) == 0 && len(completed) == 0 {
		e.logger.Warn("remote listing is empty, leaving the store untouched", "remote", src)
		res.Pending = pendingPush(tasks, wm, hasWatermark)
		return res, nil
	}
	before := e.snapshots[src]
	e.remember(src, active, completed)

	p := &pullPass{
		engine:       e,
		ctx:          ctx,
		src:          src,
		other:        src.Other(),
		now:          e.now(),
		watermark:    wm,
		hasWatermark: hasWatermark,
		before:       before,
		tasks:        tasks,
		idx:          index.New(tasks, src),
		otherIdx:     index.New(tasks, src.Other()),
		res:          res,
	}
	if err := p.run(active, completed); err != nil {
		return p.res, err
	}

	wrote, err := e.store.Save(p.tasks)
	if err != nil {
		return p.res, err
	}
	p.res.Changed = wrote
	p.res.Pending = pendingPush(p.tasks, wm, hasWatermark)
	e.logger.Info("pull finished", "remote", src,
		"created", p.res.Created, "reused", p.res.Reused,
		"updated", p.res.Updated, "tombstoned", p.res.Tombstoned,
		"changed", wrote, "pending", p.res.Pending)
	return p.res, nil
}

func (p *pullPass) run(active, completed []remote.Task) error {
	seen := make(map[string]bool, len(active)+len(completed))
	for _, rt := range active {
		seen[rt.ID] = true
		if pos, ok := p.idx.Get(rt.ID); ok {
			p.apply(pos, rt)
			continue
		}
		if err := p.adopt(rt); err != nil {
			return err
		}
	}

	for _, rt := range completed {
		if seen[rt.ID] {
			continue
		}
		seen[rt.ID] = true
		if pos, ok := p.idx.Get(rt.ID); ok {
			p.apply(pos, rt)
		}
	}

	for i := range p.tasks {
		t := &p.tasks[i]
		id := t.RemoteID(p.src)
		if id == "" || seen[id] || t.Tombstoned {
			continue
		}
		t.Tombstoned = true
		t.Touch(p.now)
		p.res.Tombstoned++
		p.engine.logger.Info("task vanished, tombstoned", "remote", p.src, "task", t.Title, "id", id)
	}
	return nil
}

// apply copies the remote fields onto a known record. Tombstoned records are
// left alone, and so are records with unpushed edits while rt is unchanged
// since src was last observed.
func (p *pullPass) apply(pos int, rt remote.Task) {
	t := &p.tasks[pos]
	if t.Tombstoned {
		return
	}
	if p.unpushed(t) {
		if prev, ok := p.before[rt.ID]; ok && util.SameRemote(prev, rt) {
			p.engine.logger.Debug("keeping unpushed edit", "remote", p.src, "task", t.Title)
			return
		}
	}
	if changed := util.ApplyRemote(t, rt); len(changed) > 0 {
		t.Touch(p.now)
		p.res.Updated++
		p.engine.logger.Debug("task updated", "remote", p.src, "task", t.Title, "fields", changed)
	}
}

func (p *pullPass) unpushed(t *model.Task) bool {
	return !p.hasWatermark || t.LastModified.After(p.watermark)
}

// adopt handles a task the store has never seen from src. It is matched to a
// task on the other remote when possible and created there otherwise, so that
// both remotes always end up in the same record.
func (p *pullPass) adopt(rt remote.Task) error {
	if pos, ok := p.linkable(rt.Ref); ok {
		return p.link(pos, rt)
	}

	peer, found, err := p.findPeer(rt)
	if err != nil {
		return err
	}
	if !found {
		return p.createPeer(rt)
	}

	pos, ok := p.linkable(peer.ID)
	if ok {
		if err := p.link(pos, rt); err != nil {
			return err
		}
	} else {
		task := util.TaskFromRemote(rt)
		task.SetRemoteID(p.src, rt.ID)
		task.SetRemoteID(p.other, peer.ID)
		task.LastModified = p.now
		pos = p.insert(task)
		if err := p.crossLink(pos); err != nil {
			return err
		}
	}
	p.res.Reused++
	p.engine.logger.Info("matched existing task", "remote", p.other, "task", rt.Title, "id", peer.ID)

	if peer.Completed && !rt.Completed {
		return p.completeOrigin(pos, rt)
	}
	return nil
}

// linkable returns the record that carries otherID and has no id for src yet.
func (p *pullPass) linkable(otherID string) (int, bool) {
	pos, ok := p.otherIdx.Get(otherID)
	if !ok {
		return 0, false
	}
	t := &p.tasks[pos]
	if t.Tombstoned || t.RemoteID(p.src) != "" {
		return 0, false
	}
	return pos, true
}

// claimed reports whether otherID already belongs to a record that cannot take
// another task from src.
func (p *pullPass) claimed(otherID string) bool {
	if _, ok := p.otherIdx.Get(otherID); !ok {
		return false
	}
	_, ok := p.linkable(otherID)
	return !ok
}

// link fills in the src id of an existing record and applies rt to it.
func (p *pullPass) link(pos int, rt remote.Task) error {
	p.tasks[pos].SetRemoteID(p.src, rt.ID)
	p.idx.Set(rt.ID, pos)
	p.apply(pos, rt)
	return p.crossLink(pos)
}

// findPeer looks for the task on the other remote: first by cross reference,
// then by identical title among open tasks, then among completed ones. Tasks
// already owned by another record are never reused.
func (p *pullPass) findPeer(rt remote.Task) (remote.Task, bool, error) {
	if err := p.loadPeer(); err != nil {
		return remote.Task{}, false, err
	}
	var open, done *remote.Task
	for i := range p.peer {
		c := &p.peer[i]
		if p.claimed(c.ID) {
			if c.Title == rt.Title {
				p.engine.logger.Warn("title matches a task owned by another record, not merging",
					"remote", p.other, "task", rt.Title, "id", c.ID)
			}
			continue
		}
		if c.Ref != "" && c.Ref == rt.ID {
			return *c, true, nil
		}
		if c.Title != rt.Title {
			continue
		}
		if !c.Completed && open == nil {
			open = c
		}
		if c.Completed && done == nil {
			done = c
		}
	}
	if open != nil {
		return *open, true, nil
	}
	if done != nil {
		return *done, true, nil
	}
	return remote.Task{}, false, nil
}

func (p *pullPass) loadPeer() error {
	if p.peerLoaded {
		return nil
	}
	r := p.engine.remotes[p.other]
	active, err := r.ListActive(p.ctx)
	if err != nil {
		return err
	}
	completed, err := r.ListCompleted(p.ctx)
	if err != nil {
		return err
	}
	p.engine.remember(p.other, active, completed)

	ids := make(map[string]bool, len(active))
	p.peer = make([]remote.Task, 0, len(active)+len(completed))
	for _, rt := range active {
		ids[rt.ID] = true
		p.peer = append(p.peer, rt)
	}
	for _, rt := range completed {
		if !ids[rt.ID] {
			p.peer = append(p.peer, rt)
		}
	}
	p.peerLoaded = true
	return nil
}

// createPeer creates rt on the other remote and inserts the record holding
// both ids.
func (p *pullPass) createPeer(rt remote.Task) error {
	ref := ""
	if p.other == model.Notion {
		ref = rt.ID
	}
	f := remote.FieldsFromTask(rt, ref)
	id, err := p.engine.remotes[p.other].Create(p.ctx, f)
	if err != nil {
		return fmt.Errorf("failed to create task '%s' on %s: %w", rt.Title, p.other, err)
	}
	created := remote.TaskFromFields(id, f)
	p.peer = append(p.peer, created)
	p.engine.observe(p.other, created)

	task := util.TaskFromRemote(rt)
	task.SetRemoteID(p.src, rt.ID)
	task.SetRemoteID(p.other, id)
	task.LastModified = p.now
	pos := p.insert(task)
	p.res.Created++
	p.engine.logger.Info("task created", "remote", p.other, "task", rt.Title, "id", id)
	return p.crossLink(pos)
}

func (p *pullPass) insert(task model.Task) int {
	p.tasks = append(p.tasks, task)
	pos := len(p.tasks) - 1
	p.idx.Set(task.RemoteID(p.src), pos)
	p.otherIdx.Set(task.RemoteID(p.other), pos)
	return pos
}

// crossLink stores the Todoist id on the Notion page of the record unless the
// page already carries it.
func (p *pullPass) crossLink(pos int) error {
	t := &p.tasks[pos]
	if t.NotionID == "" || t.TodoistID == "" {
		return nil
	}
	linker, ok := p.engine.remotes[model.Notion].(Linker)
	if !ok {
		return nil
	}
	page, ok := p.engine.observed(model.Notion, t.NotionID)
	if ok && page.Ref == t.TodoistID {
		return nil
	}
	if err := linker.SetRef(p.ctx, t.NotionID, t.TodoistID); err != nil {
		return fmt.Errorf("failed to link notion page %s: %w", t.NotionID, err)
	}
	if ok {
		page.Ref = t.TodoistID
		p.engine.observe(model.Notion, page)
	}
	return nil
}

// completeOrigin marks the record completed after it was matched to a task
// already completed on the other remote, and completes rt on its own remote.
func (p *pullPass) completeOrigin(pos int, rt remote.Task) error {
	if err := p.engine.remotes[p.src].SetCompletion(p.ctx, rt.ID, true); err != nil {
		return fmt.Errorf("failed to complete task '%s' on %s: %w", rt.Title, p.src, err)
	}
	rt.Completed = true
	p.engine.observe(p.src, rt)

	t := &p.tasks[pos]
	if !t.Completed {
		t.Completed = true
		t.Touch(p.now)
	}
	return nil
}
