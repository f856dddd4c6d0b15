package notion

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/harrisonrobin/tasksync/pkg/config"
	"github.com/harrisonrobin/tasksync/pkg/logging"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
	"github.com/harrisonrobin/tasksync/pkg/util"
	"github.com/tidwall/gjson"
)

const pageSize = 100

// DatabaseClient reads and writes the pages of one Notion database.
type DatabaseClient struct {
	http       *resty.Client
	databaseID string
	props      config.NotionProperties
	zones      util.Zones
	logger     *log.Logger
}

// NewDatabaseClient wraps an already authenticated resty client.
func NewDatabaseClient(rc *resty.Client, cfg config.NotionConfig, zones util.Zones, logger *log.Logger) *DatabaseClient {
	if logger == nil {
		logger = logging.Default("notion")
	}
	rc.SetHeader("Notion-Version", cfg.Version)
	return &DatabaseClient{
		http:       rc,
		databaseID: cfg.DatabaseID,
		props:      cfg.Properties,
		zones:      zones,
		logger:     logger,
	}
}

func (c *DatabaseClient) Source() model.Source {
	return model.Notion
}

// ListActive returns every page of the database that is not archived,
// following the query cursor until the last page.
func (c *DatabaseClient) ListActive(ctx context.Context) ([]remote.Task, error) {
	var tasks []remote.Task
	cursor := ""
	for {
		body := map[string]any{"page_size": pageSize}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetPathParam("database", c.databaseID).
			Post("/v1/databases/{database}/query")
		if err != nil {
			return nil, fmt.Errorf("unable to query notion database: %w", err)
		}
		switch resp.StatusCode() {
		case http.StatusBadRequest, http.StatusNotFound:
			return nil, &remote.ConfigError{
				Service: model.Notion,
				Detail:  fmt.Sprintf("database %s: %s", c.databaseID, gjson.GetBytes(resp.Body(), "message").String()),
			}
		}
		if err := remote.CheckResponse(model.Notion, "query", resp); err != nil {
			return nil, err
		}

		result := gjson.ParseBytes(resp.Body())
		for _, page := range result.Get("results").Array() {
			if page.Get("archived").Bool() || page.Get("in_trash").Bool() {
				continue
			}
			task, err := c.decodePage(page)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}

		if !result.Get("has_more").Bool() {
			break
		}
		cursor = result.Get("next_cursor").String()
		if cursor == "" {
			break
		}
	}
	return tasks, nil
}

// ListCompleted returns nothing: completion is a page property in Notion.
func (c *DatabaseClient) ListCompleted(ctx context.Context) ([]remote.Task, error) {
	return nil, nil
}

// Create adds a page to the database and returns its id.
func (c *DatabaseClient) Create(ctx context.Context, f remote.Fields) (string, error) {
	props := c.properties(f)
	props[c.props.Done] = checkbox(f.Completed)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"parent":     map[string]any{"database_id": c.databaseID},
			"properties": props,
		}).
		Post("/v1/pages")
	if err != nil {
		return "", fmt.Errorf("unable to create notion page: %w", err)
	}
	if err := remote.CheckResponse(model.Notion, "create", resp); err != nil {
		return "", err
	}
	id := gjson.GetBytes(resp.Body(), "id").String()
	if id == "" {
		return "", fmt.Errorf("notion create: response carries no page id")
	}
	c.logger.Debug("created page", "title", f.Title, "id", id)
	return id, nil
}

// Update patches the content properties of a page. Completion is left to
// SetCompletion.
func (c *DatabaseClient) Update(ctx context.Context, id string, f remote.Fields) error {
	return c.patch(ctx, "update", id, map[string]any{"properties": c.properties(f)})
}

// SetCompletion sets the done checkbox of a page.
func (c *DatabaseClient) SetCompletion(ctx context.Context, id string, done bool) error {
	return c.patch(ctx, "complete", id, map[string]any{
		"properties": map[string]any{c.props.Done: checkbox(done)},
	})
}

// SetRef stores the Todoist id of the task on its page.
func (c *DatabaseClient) SetRef(ctx context.Context, id, ref string) error {
	return c.patch(ctx, "link", id, map[string]any{
		"properties": map[string]any{c.props.Ref: c.refProperty(ref)},
	})
}

// Delete archives a page. Pages that are gone or already archived report
// remote.ErrNotFound.
func (c *DatabaseClient) Delete(ctx context.Context, id string) error {
	return c.patch(ctx, "archive", id, map[string]any{"archived": true})
}

func (c *DatabaseClient) patch(ctx context.Context, op, id string, body map[string]any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetPathParam("page", id).
		Patch("/v1/pages/{page}")
	if err != nil {
		return fmt.Errorf("unable to %s notion page %s: %w", op, id, err)
	}
	if resp.StatusCode() == http.StatusBadRequest && isArchivedError(resp.Body()) {
		return fmt.Errorf("notion %s %s: %w", op, id, remote.ErrNotFound)
	}
	return remote.CheckResponse(model.Notion, op, resp)
}

// isArchivedError recognizes the validation error Notion answers with when a
// page was archived in the meantime.
func isArchivedError(body []byte) bool {
	msg := strings.ToLower(gjson.GetBytes(body, "message").String())
	return strings.Contains(msg, "archived")
}

// decodePage reads the configured properties of a page.
func (c *DatabaseClient) decodePage(page gjson.Result) (remote.Task, error) {
	props := page.Get("properties").Map()
	task := remote.Task{ID: page.Get("id").String()}

	var title strings.Builder
	for _, part := range props[c.props.Title].Get("title.#.plain_text").Array() {
		title.WriteString(part.String())
	}
	task.Title = title.String()
	task.Completed = props[c.props.Done].Get("checkbox").Bool()

	due, err := c.zones.ParseDue(props[c.props.Date].Get("date.start").String())
	if err != nil {
		return remote.Task{}, fmt.Errorf("notion page %s: %w", task.ID, err)
	}
	task.Due = due

	var labels []string
	for _, name := range props[c.props.Labels].Get("multi_select.#.name").Array() {
		labels = append(labels, name.String())
	}
	task.Labels = model.NormalizeLabels(labels)

	if ref := props[c.props.Ref].Get("number"); ref.Type == gjson.Number {
		task.Ref = strconv.FormatInt(ref.Int(), 10)
	}
	return task, nil
}

// properties encodes the content fields of f.
func (c *DatabaseClient) properties(f remote.Fields) map[string]any {
	labels := make([]map[string]string, 0, len(f.Labels))
	for _, l := range model.NormalizeLabels(f.Labels) {
		labels = append(labels, map[string]string{"name": l})
	}
	return map[string]any{
		c.props.Title: map[string]any{
			"title": []any{map[string]any{"text": map[string]string{"content": f.Title}}},
		},
		c.props.Date:   map[string]any{"date": c.dateValue(f.Due)},
		c.props.Labels: map[string]any{"multi_select": labels},
		c.props.Ref:    c.refProperty(f.Ref),
	}
}

// dateValue sends a bare date for date-only values and a full offset
// otherwise. A nil value clears the property.
func (c *DatabaseClient) dateValue(d *model.Due) any {
	if d == nil {
		return nil
	}
	if !d.HasTime {
		return map[string]string{"start": util.FormatDate(d)}
	}
	return map[string]string{"start": c.zones.FormatDateTime(d)}
}

// refProperty encodes a Todoist id as the number property. Ids that are not
// numeric cannot be stored and clear it.
func (c *DatabaseClient) refProperty(ref string) map[string]any {
	n, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		if ref != "" {
			c.logger.Warn("todoist id is not numeric, not stored on page", "ref", ref)
		}
		return map[string]any{"number": nil}
	}
	return map[string]any{"number": n}
}

func checkbox(v bool) map[string]any {
	return map[string]any{"checkbox": v}
}
