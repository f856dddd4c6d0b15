package util

import (
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
)

const (
	NEEDS_UPDATE_TITLE     = "title"
	NEEDS_UPDATE_COMPLETED = "completed"
	NEEDS_UPDATE_DUE       = "due"
	NEEDS_UPDATE_LABELS    = "labels"
)

// TaskNeedsUpdate returns the names of the fields where the remote task
// differs from the local record. A sparse remote task only speaks for its
// completion state.
func TaskNeedsUpdate(task *model.Task, rt remote.Task) []string {
	var fields []string

	if rt.Sparse {
		if task.Completed != rt.Completed {
			fields = append(fields, NEEDS_UPDATE_COMPLETED)
		}
		return fields
	}

	// 1. Title
	if task.Title != rt.Title {
		fields = append(fields, NEEDS_UPDATE_TITLE)
	}

	// 2. Completion
	if task.Completed != rt.Completed {
		fields = append(fields, NEEDS_UPDATE_COMPLETED)
	}

	// 3. Due date, by stored representation
	if !model.EqualDue(task.Due, rt.Due) {
		fields = append(fields, NEEDS_UPDATE_DUE)
	}

	// 4. Labels, as a set
	if !model.SameLabels(task.Labels, rt.Labels) {
		fields = append(fields, NEEDS_UPDATE_LABELS)
	}

	return fields
}

// ApplyRemote overwrites the differing fields of task with the remote values
// and reports which ones changed. LastModified is left to the caller.
func ApplyRemote(task *model.Task, rt remote.Task) []string {
	fields := TaskNeedsUpdate(task, rt)
	for _, f := range fields {
		switch f {
		case NEEDS_UPDATE_TITLE:
			task.Title = rt.Title
		case NEEDS_UPDATE_COMPLETED:
			task.Completed = rt.Completed
		case NEEDS_UPDATE_DUE:
			task.Due = rt.Due
		case NEEDS_UPDATE_LABELS:
			task.Labels = model.NormalizeLabels(rt.Labels)
		}
	}
	return fields
}

// ContentNeedsPush reports whether the content fields last observed on a
// remote (everything except completion) differ from what would be pushed.
// A sparse observation only knows the title.
func ContentNeedsPush(observed remote.Task, f remote.Fields) bool {
	if observed.Title != f.Title {
		return true
	}
	if observed.Sparse {
		return false
	}
	return !model.EqualDue(observed.Due, f.Due) ||
		!model.SameLabels(observed.Labels, f.Labels) ||
		observed.Ref != f.Ref
}

// SameRemote reports whether two observations of the same remote task carry
// the same content. When either one is sparse only completion is compared.
func SameRemote(a, b remote.Task) bool {
	if a.Completed != b.Completed {
		return false
	}
	if a.Sparse || b.Sparse {
		return true
	}
	return a.Title == b.Title &&
		model.EqualDue(a.Due, b.Due) &&
		model.SameLabels(a.Labels, b.Labels)
}

// TaskFromRemote builds a new local record from a remote task.
func TaskFromRemote(rt remote.Task) model.Task {
	task := model.NewTask()
	task.Title = rt.Title
	task.Completed = rt.Completed
	task.Due = rt.Due
	task.Labels = model.NormalizeLabels(rt.Labels)
	return task
}
