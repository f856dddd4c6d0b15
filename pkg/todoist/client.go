// Package todoist is the adapter for the Todoist task list.
package todoist

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/harrisonrobin/tasksync/pkg/auth"
	"github.com/harrisonrobin/tasksync/pkg/config"
	"github.com/harrisonrobin/tasksync/pkg/logging"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
	"github.com/harrisonrobin/tasksync/pkg/util"
)

// completedPageSize is the largest page the completed listing serves.
const completedPageSize = 200

type Client struct {
	http   *resty.Client
	zones  util.Zones
	logger *log.Logger
}

// NewClient creates a Todoist client from the configuration.
func NewClient(ctx context.Context, cfg config.TodoistConfig, httpCfg config.HTTPConfig, zones util.Zones, logger *log.Logger) (*Client, error) {
	httpClient, err := auth.NewHTTPClient(ctx, cfg.Token, httpCfg.Timeout)
	if err != nil {
		return nil, &remote.AuthError{Service: model.Todoist}
	}
	return NewTaskClient(remote.NewClient(httpClient, cfg.BaseURL, httpCfg.Timeout), zones, logger), nil
}

// NewTaskClient wraps an already authenticated resty client.
func NewTaskClient(rc *resty.Client, zones util.Zones, logger *log.Logger) *Client {
	if logger == nil {
		logger = logging.Default("todoist")
	}
	return &Client{http: rc, zones: zones, logger: logger}
}

func (c *Client) Source() model.Source {
	return model.Todoist
}

// ListActive returns every open task.
func (c *Client) ListActive(ctx context.Context) ([]remote.Task, error) {
	var tasks []Task
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&tasks).
		Get("/rest/v2/tasks")
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve todoist tasks: %w", err)
	}
	if err := remote.CheckResponse(model.Todoist, "list", resp); err != nil {
		return nil, err
	}

	result := make([]remote.Task, 0, len(tasks))
	for _, t := range tasks {
		rt, err := t.toRemote(c.zones)
		if err != nil {
			return nil, err
		}
		result = append(result, rt)
	}
	return result, nil
}

// ListCompleted returns the completed tasks, page by page.
func (c *Client) ListCompleted(ctx context.Context) ([]remote.Task, error) {
	var result []remote.Task
	for offset := 0; ; offset += completedPageSize {
		var page completedPage
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("limit", strconv.Itoa(completedPageSize)).
			SetQueryParam("offset", strconv.Itoa(offset)).
			SetResult(&page).
			Get("/sync/v9/completed/get_all")
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve completed todoist tasks: %w", err)
		}
		if err := remote.CheckResponse(model.Todoist, "list completed", resp); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			result = append(result, item.toRemote())
		}
		if len(page.Items) < completedPageSize {
			return result, nil
		}
	}
}

// Create adds a task and returns its id. A completed task is closed right
// after creation since the create call cannot carry completion. If closing
// fails the new task is deleted again and no id is returned.
func (c *Client) Create(ctx context.Context, f remote.Fields) (string, error) {
	var created Task
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(newPayload(f, c.zones, false)).
		SetResult(&created).
		Post("/rest/v2/tasks")
	if err != nil {
		return "", fmt.Errorf("unable to create todoist task: %w", err)
	}
	if err := remote.CheckResponse(model.Todoist, "create", resp); err != nil {
		return "", err
	}
	id := string(created.ID)
	if id == "" {
		return "", fmt.Errorf("todoist create: response carries no task id")
	}
	c.logger.Debug("created task", "title", f.Title, "id", id)
	if f.Completed {
		if err := c.SetCompletion(ctx, id, true); err != nil {
			if delErr := c.Delete(ctx, id); delErr != nil && !remote.IsNotFound(delErr) {
				c.logger.Error("new task left open and could not be removed", "title", f.Title, "id", id, "err", delErr)
			}
			return "", fmt.Errorf("failed to close new todoist task %s: %w", id, err)
		}
	}
	return id, nil
}

// Update replaces the content, labels and due date of a task.
func (c *Client) Update(ctx context.Context, id string, f remote.Fields) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(newPayload(f, c.zones, true)).
		SetPathParam("id", id).
		Post("/rest/v2/tasks/{id}")
	if err != nil {
		return fmt.Errorf("unable to update todoist task %s: %w", id, err)
	}
	return remote.CheckResponse(model.Todoist, "update", resp)
}

// SetCompletion closes or reopens a task.
func (c *Client) SetCompletion(ctx context.Context, id string, done bool) error {
	action := "reopen"
	if done {
		action = "close"
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetPathParam("action", action).
		Post("/rest/v2/tasks/{id}/{action}")
	if err != nil {
		return fmt.Errorf("unable to %s todoist task %s: %w", action, id, err)
	}
	return remote.CheckResponse(model.Todoist, action, resp)
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Delete("/rest/v2/tasks/{id}")
	if err != nil {
		return fmt.Errorf("unable to delete todoist task %s: %w", id, err)
	}
	return remote.CheckResponse(model.Todoist, "delete", resp)
}
