package todoist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/harrisonrobin/tasksync/pkg/logging"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
	"github.com/harrisonrobin/tasksync/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	zones, err := util.NewZones("+08:00", "")
	require.NoError(t, err)
	return NewTaskClient(remote.NewClient(srv.Client(), srv.URL, 5*time.Second), zones, logging.Discard())
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, body)
}

func TestListActive(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/v2/tasks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[
			{"id": "101", "content": "Buy milk", "is_completed": false, "labels": [], "due": {"date": "2024-01-05"}},
			{"id": "102", "content": "Call mom", "is_completed": false, "labels": ["home"], "due": null}
		]`)
	})
	c := newTestClient(t, mux)

	tasks, err := c.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "101", tasks[0].ID)
	assert.Equal(t, "2024-01-05", tasks[0].Due.String())
	assert.Nil(t, tasks[1].Due)
	assert.Equal(t, []string{"home"}, tasks[1].Labels)
}

func TestListActiveInvalidToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/v2/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	c := newTestClient(t, mux)

	_, err := c.ListActive(context.Background())
	var authErr *remote.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, model.Todoist, authErr.Service)
}

func TestListCompletedPages(t *testing.T) {
	var offsets []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sync/v9/completed/get_all", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "200", r.URL.Query().Get("limit"))
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)
		n := completedPageSize
		if offset != "0" {
			n = 1
		}
		body := `{"items": [`
		for i := 0; i < n; i++ {
			if i > 0 {
				body += ","
			}
			body += fmt.Sprintf(`{"task_id": "%s-%d", "content": "t"}`, offset, i)
		}
		writeJSON(w, body+`]}`)
	})
	c := newTestClient(t, mux)

	tasks, err := c.ListCompleted(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, completedPageSize+1)
	assert.Equal(t, []string{"0", strconv.Itoa(completedPageSize)}, offsets)
	assert.True(t, tasks[0].Sparse)
}

func TestCreateCompletedClosesTask(t *testing.T) {
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/v2/tasks", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "create")
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"content":"Buy milk","labels":["food"],"due_date":"2024-01-05"}`, string(body))
		writeJSON(w, `{"id": "555", "content": "Buy milk"}`)
	})
	mux.HandleFunc("POST /rest/v2/tasks/555/close", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "close")
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)

	id, err := c.Create(context.Background(), remote.Fields{
		Title:     "Buy milk",
		Completed: true,
		Due:       model.NewDate(2024, time.January, 5),
		Labels:    []string{"food"},
	})
	require.NoError(t, err)
	assert.Equal(t, "555", id)
	assert.Equal(t, []string{"create", "close"}, calls)
}

func TestCreateRemovesTaskWhenCloseFails(t *testing.T) {
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/v2/tasks", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "create")
		writeJSON(w, `{"id": "555", "content": "Buy milk"}`)
	})
	mux.HandleFunc("POST /rest/v2/tasks/555/close", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "close")
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("DELETE /rest/v2/tasks/555", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "delete")
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)

	id, err := c.Create(context.Background(), remote.Fields{Title: "Buy milk", Completed: true})
	require.Error(t, err)
	assert.Empty(t, id)
	assert.Contains(t, err.Error(), "555")
	assert.Equal(t, []string{"create", "close", "delete"}, calls)
}

func TestUpdateAndCompletion(t *testing.T) {
	var calls []string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/v2/tasks/101", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"content":"Buy oat milk","labels":[],"due_string":"no due date"}`, string(body))
		calls = append(calls, "update")
		writeJSON(w, `{"id": "101"}`)
	})
	mux.HandleFunc("POST /rest/v2/tasks/101/close", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "close")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /rest/v2/tasks/101/reopen", func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, "reopen")
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	require.NoError(t, c.Update(ctx, "101", remote.Fields{Title: "Buy oat milk"}))
	require.NoError(t, c.SetCompletion(ctx, "101", true))
	require.NoError(t, c.SetCompletion(ctx, "101", false))
	assert.Equal(t, []string{"update", "close", "reopen"}, calls)
}

func TestDeleteMissingTask(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /rest/v2/tasks/101", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /rest/v2/tasks/404", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Task not found", http.StatusNotFound)
	})
	c := newTestClient(t, mux)

	require.NoError(t, c.Delete(context.Background(), "101"))
	err := c.Delete(context.Background(), "404")
	assert.True(t, remote.IsNotFound(err))
}
