package reconcile

import (
	"context"
	"fmt"
	"strconv"

	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
)

// fakeRemote keeps tasks in memory. With split set, completed tasks move to a
// sparse completed listing the way Todoist reports them.
type fakeRemote struct {
	source    model.Source
	split     bool
	tasks     []remote.Task
	nextID    int
	calls     []string
	listErr   error
	// deleteErr fails the next Delete call.
	deleteErr error
}

func newFakeNotion() *fakeNotion {
	return &fakeNotion{fakeRemote{source: model.Notion}}
}

func newFakeTodoist() *fakeRemote {
	return &fakeRemote{source: model.Todoist, split: true, nextID: 100}
}

func (f *fakeRemote) Source() model.Source { return f.source }

func (f *fakeRemote) ListActive(ctx context.Context) ([]remote.Task, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []remote.Task
	for _, t := range f.tasks {
		if f.split && t.Completed {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRemote) ListCompleted(ctx context.Context) ([]remote.Task, error) {
	if !f.split {
		return nil, nil
	}
	var out []remote.Task
	for _, t := range f.tasks {
		if t.Completed {
			out = append(out, remote.Task{ID: t.ID, Title: t.Title, Completed: true, Labels: []string{}, Sparse: true})
		}
	}
	return out, nil
}

func (f *fakeRemote) Create(ctx context.Context, fl remote.Fields) (string, error) {
	f.nextID++
	id := strconv.Itoa(f.nextID)
	if f.source == model.Notion {
		id = fmt.Sprintf("page-%d", f.nextID)
	}
	f.tasks = append(f.tasks, remote.TaskFromFields(id, fl))
	f.calls = append(f.calls, "create:"+fl.Title)
	return id, nil
}

func (f *fakeRemote) find(id string) int {
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeRemote) Update(ctx context.Context, id string, fl remote.Fields) error {
	f.calls = append(f.calls, "update:"+id)
	i := f.find(id)
	if i < 0 {
		return fmt.Errorf("update %s: %w", id, remote.ErrNotFound)
	}
	t := &f.tasks[i]
	t.Title, t.Due, t.Labels, t.Ref = fl.Title, fl.Due, fl.Labels, fl.Ref
	return nil
}

func (f *fakeRemote) SetCompletion(ctx context.Context, id string, done bool) error {
	f.calls = append(f.calls, fmt.Sprintf("complete:%s:%t", id, done))
	i := f.find(id)
	if i < 0 {
		return fmt.Errorf("complete %s: %w", id, remote.ErrNotFound)
	}
	f.tasks[i].Completed = done
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	f.calls = append(f.calls, "delete:"+id)
	if err := f.deleteErr; err != nil {
		f.deleteErr = nil
		return err
	}
	i := f.find(id)
	if i < 0 {
		return fmt.Errorf("delete %s: %w", id, remote.ErrNotFound)
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

func (f *fakeRemote) get(id string) remote.Task {
	if i := f.find(id); i >= 0 {
		return f.tasks[i]
	}
	return remote.Task{}
}

// fakeNotion also stores the cross reference.
type fakeNotion struct {
	fakeRemote
}

func (f *fakeNotion) SetRef(ctx context.Context, id, ref string) error {
	f.calls = append(f.calls, "ref:"+id+":"+ref)
	i := f.find(id)
	if i < 0 {
		return fmt.Errorf("link %s: %w", id, remote.ErrNotFound)
	}
	f.tasks[i].Ref = ref
	return nil
}
