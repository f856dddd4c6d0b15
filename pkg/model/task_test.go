package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskJSON(t *testing.T) {
	input := `{
		"id": "8c0a7e1e-6f0e-4a44-9d8f-0d8d1f0b7a11",
		"notion_id": "page-1",
		"todoist_id": "2995104339",
		"title": "Buy milk",
		"completed": false,
		"due": "2024-01-05",
		"labels": ["food", "buy"],
		"last_modified": "2024-01-04T10:00:00+08:00"
	}`

	var task Task
	require.NoError(t, json.Unmarshal([]byte(input), &task))

	assert.Equal(t, "page-1", task.RemoteID(Notion))
	assert.Equal(t, "2995104339", task.RemoteID(Todoist))
	assert.False(t, task.Tombstoned, "missing tombstoned defaults to false")
	require.NotNil(t, task.Due)
	assert.False(t, task.Due.HasTime)

	out, err := json.Marshal(task)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"due":"2024-01-05"`)
}

func TestDueWithTime(t *testing.T) {
	d, err := ParseDue("2024-01-05T09:00:00.500+08:00")
	require.NoError(t, err)
	assert.True(t, d.HasTime)
	assert.Equal(t, "2024-01-05T09:00:00+08:00", d.String())

	midnight := NewDateTime(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	assert.False(t, EqualDue(midnight, NewDate(2024, time.January, 5)))
	assert.True(t, EqualDue(nil, nil))
	assert.False(t, EqualDue(nil, NewDate(2024, time.January, 5)))
}

func TestLabels(t *testing.T) {
	assert.True(t, SameLabels([]string{"work", "urgent"}, []string{"urgent", "work"}))
	assert.True(t, SameLabels(nil, []string{}))
	assert.False(t, SameLabels([]string{"work"}, []string{"work", "home"}))
	assert.Equal(t, []string{"a", "b"}, NormalizeLabels([]string{"b", "", "a", "b"}))
	assert.NotNil(t, NormalizeLabels(nil))
}

func TestTouchIsMonotonic(t *testing.T) {
	later := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	task := Task{LastModified: later}
	task.Touch(later.Add(-time.Hour))
	assert.Equal(t, later, task.LastModified)
	task.Touch(later.Add(time.Minute))
	assert.Equal(t, later.Add(time.Minute), task.LastModified)
}
