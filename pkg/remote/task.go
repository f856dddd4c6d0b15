// Package remote holds the vocabulary shared by the Notion and Todoist
// adapters: the decoded remote task, the fields pushed to a remote, the error
// taxonomy and the HTTP client both adapters are built on.
package remote

import "github.com/harrisonrobin/tasksync/pkg/model"

// Task is a task as decoded from one remote's listing.
type Task struct {
	ID        string
	Title     string
	Completed bool
	Due       *model.Due
	Labels    []string
	// Ref is the id of the same task in the other remote, when this remote
	// stores one.
	Ref string
	// Sparse marks entries of a completed-task listing, where only ID, Title
	// and Completed are meaningful.
	Sparse bool
}

// Fields are the values written to a remote on create or update.
type Fields struct {
	Title     string
	Completed bool
	Due       *model.Due
	Labels    []string
	Ref       string
}

// FieldsOf returns the pushable fields of a local record. ref is the id the
// record has in the other remote.
func FieldsOf(t *model.Task, ref string) Fields {
	return Fields{
		Title:     t.Title,
		Completed: t.Completed,
		Due:       t.Due,
		Labels:    model.NormalizeLabels(t.Labels),
		Ref:       ref,
	}
}

// FieldsFromTask copies a decoded remote task into pushable fields.
func FieldsFromTask(rt Task, ref string) Fields {
	return Fields{
		Title:     rt.Title,
		Completed: rt.Completed,
		Due:       rt.Due,
		Labels:    model.NormalizeLabels(rt.Labels),
		Ref:       ref,
	}
}

// TaskFromFields returns the remote task a successful write of f leaves behind.
func TaskFromFields(id string, f Fields) Task {
	return Task{
		ID:        id,
		Title:     f.Title,
		Completed: f.Completed,
		Due:       f.Due,
		Labels:    f.Labels,
		Ref:       f.Ref,
	}
}
