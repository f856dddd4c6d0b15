package model

import (
	"time"

	"github.com/google/uuid"
)

// Source names one of the two remote systems kept in sync.
type Source string

const (
	Notion  Source = "notion"
	Todoist Source = "todoist"
)

// Sources lists every remote in the order a push pass visits them. Todoist goes
// first so that a Todoist id created during the pass can be written onto the
// Notion page as its cross reference.
var Sources = []Source{Todoist, Notion}

// Other returns the remote on the opposite side of s.
func (s Source) Other() Source {
	if s == Notion {
		return Todoist
	}
	return Notion
}

func (s Source) String() string {
	return string(s)
}

// Task is one record of the local store. The store holds exactly one Task for
// each task known to either remote.
type Task struct {
	ID           string    `json:"id"`
	NotionID     string    `json:"notion_id"`
	TodoistID    string    `json:"todoist_id"`
	Title        string    `json:"title"`
	Completed    bool      `json:"completed"`
	Due          *Due      `json:"due"`
	Labels       []string  `json:"labels"`
	LastModified time.Time `json:"last_modified"`
	Tombstoned   bool      `json:"tombstoned"`
}

// NewTask returns a record with a fresh local id.
func NewTask() Task {
	return Task{ID: uuid.NewString(), Labels: []string{}}
}

// RemoteID returns the id the record carries for the given remote, or "".
func (t *Task) RemoteID(s Source) string {
	if s == Notion {
		return t.NotionID
	}
	return t.TodoistID
}

// SetRemoteID records the id the task has in the given remote.
func (t *Task) SetRemoteID(s Source, id string) {
	if s == Notion {
		t.NotionID = id
	} else {
		t.TodoistID = id
	}
}

// Touch marks the record as modified at now. LastModified never moves backwards.
func (t *Task) Touch(now time.Time) {
	if now.After(t.LastModified) {
		t.LastModified = now
	}
}

// SameContent reports whether the observable fields of a and b are equal.
// Labels compare as sets.
func SameContent(a, b *Task) bool {
	return a.Title == b.Title &&
		a.Completed == b.Completed &&
		EqualDue(a.Due, b.Due) &&
		SameLabels(a.Labels, b.Labels) &&
		a.Tombstoned == b.Tombstoned
}
