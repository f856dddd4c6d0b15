package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and clears the credential variables.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"NOTION_API_TOKEN", "NOTION_DATABASE_ID", "TODOIST_API_TOKEN"} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.notion.com", cfg.Notion.BaseURL)
	assert.Equal(t, "2022-06-28", cfg.Notion.Version)
	assert.Equal(t, "Name", cfg.Notion.Properties.Title)
	assert.Equal(t, "ID", cfg.Notion.Properties.Ref)
	assert.Equal(t, 4*time.Second, cfg.Sync.Settle)
	assert.Equal(t, "+08:00", cfg.Sync.Timezone)
	assert.Equal(t, filepath.Join(home, ".config", "tasksync", "tasks.json"), cfg.TasksPath())
	assert.Equal(t, filepath.Join(home, ".config", "tasksync", "last_synced_time.json"), cfg.WatermarkPath())
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("NOTION_API_TOKEN", "secret_n")
	t.Setenv("NOTION_DATABASE_ID", "db-1")
	t.Setenv("TODOIST_API_TOKEN", "secret_t")
	t.Setenv("TASKSYNC_SYNC_SETTLE", "10s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "secret_n", cfg.Notion.Token)
	assert.Equal(t, "db-1", cfg.Notion.DatabaseID)
	assert.Equal(t, "secret_t", cfg.Todoist.Token)
	assert.Equal(t, 10*time.Second, cfg.Sync.Settle)
	assert.NoError(t, cfg.Validate())
}

func TestSaveThenLoad(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.Notion.Token = "secret_n"
	cfg.Notion.DatabaseID = "db-2"
	cfg.Sync.Settle = 7 * time.Second
	require.NoError(t, Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret_n", "tokens must not be written")
	assert.Contains(t, string(data), `"settle": "7s"`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db-2", loaded.Notion.DatabaseID)
	assert.Equal(t, 7*time.Second, loaded.Sync.Settle)
	assert.Empty(t, loaded.Notion.Token)
}

func TestValidate(t *testing.T) {
	isolate(t)
	base, err := Load("")
	require.NoError(t, err)
	base.Notion.Token = "n"
	base.Notion.DatabaseID = "db"
	base.Todoist.Token = "t"
	require.NoError(t, base.Validate())

	t.Run("missing notion token", func(t *testing.T) {
		cfg := *base
		cfg.Notion.Token = ""
		var authErr *remote.AuthError
		require.ErrorAs(t, cfg.Validate(), &authErr)
		assert.Equal(t, model.Notion, authErr.Service)
	})

	t.Run("missing database id", func(t *testing.T) {
		cfg := *base
		cfg.Notion.DatabaseID = ""
		var cfgErr *remote.ConfigError
		require.ErrorAs(t, cfg.Validate(), &cfgErr)
	})

	t.Run("missing todoist token", func(t *testing.T) {
		cfg := *base
		cfg.Todoist.Token = ""
		var authErr *remote.AuthError
		require.ErrorAs(t, cfg.Validate(), &authErr)
		assert.Equal(t, model.Todoist, authErr.Service)
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := *base
		cfg.Log.Level = "loud"
		err := cfg.Validate()
		require.Error(t, err)
		assert.False(t, remote.IsFatal(err))
	})
}
