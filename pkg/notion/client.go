// Package notion is the adapter for a Notion database holding the task list.
package notion

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/harrisonrobin/tasksync/pkg/auth"
	"github.com/harrisonrobin/tasksync/pkg/config"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
	"github.com/harrisonrobin/tasksync/pkg/util"
)

// NewClient creates a Notion client for the configured database.
func NewClient(ctx context.Context, cfg config.NotionConfig, httpCfg config.HTTPConfig, zones util.Zones, logger *log.Logger) (*DatabaseClient, error) {
	httpClient, err := auth.NewHTTPClient(ctx, cfg.Token, httpCfg.Timeout)
	if err != nil {
		return nil, &remote.AuthError{Service: model.Notion}
	}
	rc := remote.NewClient(httpClient, cfg.BaseURL, httpCfg.Timeout)
	return NewDatabaseClient(rc, cfg, zones, logger), nil
}
