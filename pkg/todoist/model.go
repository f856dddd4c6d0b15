package todoist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
	"github.com/harrisonrobin/tasksync/pkg/util"
)

// noDueDate clears the due date of a task on update.
const noDueDate = "no due date"

// ID is a Todoist object id. Older endpoints send numbers, newer ones strings.
type ID string

// UnmarshalJSON implements the json.Unmarshaler interface for ID.
func (id *ID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("failed to parse Todoist id %s: %w", s, err)
		}
		*id = ID(unquoted)
		return nil
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return fmt.Errorf("failed to parse Todoist id %s: %w", s, err)
	}
	*id = ID(s)
	return nil
}

// Due is the due object of an active task. Datetime is set only for tasks
// with a time of day and wins over Date. Without Timezone the datetime is
// floating and carries no offset.
type Due struct {
	Date     string `json:"date"`
	Datetime string `json:"datetime,omitempty"`
	String   string `json:"string,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Task is an active task from the REST listing.
type Task struct {
	ID          ID       `json:"id"`
	Content     string   `json:"content"`
	IsCompleted bool     `json:"is_completed"`
	Labels      []string `json:"labels"`
	Due         *Due     `json:"due"`
}

// CompletedItem is an entry of the completed-task listing.
type CompletedItem struct {
	TaskID      ID     `json:"task_id"`
	Content     string `json:"content"`
	CompletedAt string `json:"completed_at"`
}

type completedPage struct {
	Items []CompletedItem `json:"items"`
}

// taskPayload is the body of create and update calls. At most one of the due
// fields is set.
type taskPayload struct {
	Content     string   `json:"content"`
	Labels      []string `json:"labels"`
	DueDate     string   `json:"due_date,omitempty"`
	DueDatetime string   `json:"due_datetime,omitempty"`
	DueString   string   `json:"due_string,omitempty"`
}

// toRemote decodes an active task.
func (t Task) toRemote(zones util.Zones) (remote.Task, error) {
	rt := remote.Task{
		ID:        string(t.ID),
		Title:     t.Content,
		Completed: t.IsCompleted,
		Labels:    model.NormalizeLabels(t.Labels),
	}
	if t.Due != nil {
		value := t.Due.Date
		if t.Due.Datetime != "" {
			value = t.Due.Datetime
		}
		due, err := zones.ParseDue(value)
		if err != nil {
			return remote.Task{}, fmt.Errorf("todoist task %s: %w", t.ID, err)
		}
		rt.Due = due
	}
	return rt, nil
}

// toRemote decodes a completed entry. Only id, title and completion are known.
func (c CompletedItem) toRemote() remote.Task {
	return remote.Task{
		ID:        string(c.TaskID),
		Title:     c.Content,
		Completed: true,
		Labels:    []string{},
		Sparse:    true,
	}
}

// newPayload encodes f. A date-only value is sent as a bare date and a
// datetime as RFC 3339 with the canonical offset. clear sends an explicit
// "no due date" when f has no due value.
func newPayload(f remote.Fields, z util.Zones, clear bool) taskPayload {
	p := taskPayload{
		Content: f.Title,
		Labels:  model.NormalizeLabels(f.Labels),
	}
	switch {
	case f.Due == nil:
		if clear {
			p.DueString = noDueDate
		}
	case f.Due.HasTime:
		p.DueDatetime = z.FormatDateTime(f.Due)
	default:
		p.DueDate = util.FormatDate(f.Due)
	}
	return p
}
