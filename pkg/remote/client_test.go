package remote

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var code int
		fmt.Sscanf(strings.TrimPrefix(r.URL.Path, "/"), "%d", &code)
		w.WriteHeader(code)
		w.Write([]byte(strings.Repeat("x", 300)))
	}))
	defer srv.Close()
	client := NewClient(srv.Client(), srv.URL, time.Second)

	call := func(code int) error {
		resp, err := client.R().Get(fmt.Sprintf("/%d", code))
		require.NoError(t, err)
		return CheckResponse(model.Todoist, "list", resp)
	}

	assert.NoError(t, call(http.StatusOK))
	assert.NoError(t, call(http.StatusNoContent))

	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		err := call(code)
		var authErr *AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "invalid todoist API token", err.Error())
		assert.True(t, IsFatal(err))
	}

	err := call(http.StatusNotFound)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsFatal(err))

	err = call(http.StatusInternalServerError)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 500, statusErr.Code)
	assert.Len(t, statusErr.Body, 203, "body is truncated")
	assert.False(t, IsFatal(err))
	assert.False(t, IsNotFound(err))
}

func TestIsFatalUnwraps(t *testing.T) {
	err := fmt.Errorf("pull: %w", &ConfigError{Service: model.Notion, Detail: "database x"})
	assert.True(t, IsFatal(err))
	assert.Equal(t, "pull: invalid notion configuration: database x", err.Error())
	assert.False(t, IsFatal(errors.New("timeout")))
}

func TestFieldsOfNormalizesLabels(t *testing.T) {
	task := model.NewTask()
	task.Title = "Report"
	task.Labels = []string{"work", "urgent", "work"}

	f := FieldsOf(&task, "101")
	assert.Equal(t, []string{"urgent", "work"}, f.Labels)
	assert.Equal(t, "101", f.Ref)

	rt := TaskFromFields("page-1", f)
	assert.Equal(t, "page-1", rt.ID)
	assert.False(t, rt.Sparse)
}
