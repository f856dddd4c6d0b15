package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/harrisonrobin/tasksync/pkg/auth"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configFile = "config.json"
	envPrefix  = "TASKSYNC"
)

// Config is built once at process start and handed to every component that
// needs it. Nothing reads credentials from anywhere else.
type Config struct {
	Notion  NotionConfig  `mapstructure:"notion" json:"notion"`
	Todoist TodoistConfig `mapstructure:"todoist" json:"todoist"`
	Store   StoreConfig   `mapstructure:"store" json:"store"`
	Sync    SyncConfig    `mapstructure:"sync" json:"sync"`
	Log     LogConfig     `mapstructure:"log" json:"log"`
	HTTP    HTTPConfig    `mapstructure:"http" json:"http"`
}

type NotionConfig struct {
	Token      string           `mapstructure:"token" json:"-" validate:"required"`
	DatabaseID string           `mapstructure:"database_id" json:"database_id" validate:"required"`
	BaseURL    string           `mapstructure:"base_url" json:"base_url" validate:"required,url"`
	Version    string           `mapstructure:"version" json:"version" validate:"required"`
	Properties NotionProperties `mapstructure:"properties" json:"properties"`
}

// NotionProperties names the database columns the sync reads and writes.
type NotionProperties struct {
	Title  string `mapstructure:"title" json:"title" validate:"required"`
	Done   string `mapstructure:"done" json:"done" validate:"required"`
	Date   string `mapstructure:"date" json:"date" validate:"required"`
	Labels string `mapstructure:"labels" json:"labels" validate:"required"`
	Ref    string `mapstructure:"ref" json:"ref" validate:"required"`
}

type TodoistConfig struct {
	Token   string `mapstructure:"token" json:"-" validate:"required"`
	BaseURL string `mapstructure:"base_url" json:"base_url" validate:"required,url"`
}

type StoreConfig struct {
	Dir           string `mapstructure:"dir" json:"dir" validate:"required"`
	TasksFile     string `mapstructure:"tasks_file" json:"tasks_file" validate:"required"`
	WatermarkFile string `mapstructure:"watermark_file" json:"watermark_file" validate:"required"`
}

type SyncConfig struct {
	Settle        time.Duration `mapstructure:"settle" json:"settle" validate:"gte=0"`
	Timezone      string        `mapstructure:"timezone" json:"timezone"`
	LocalTimezone string        `mapstructure:"local_timezone" json:"local_timezone"`
}

type LogConfig struct {
	Level string `mapstructure:"level" json:"level" validate:"oneof=debug info warn error"`
	File  string `mapstructure:"file" json:"file"`
	JSON  bool   `mapstructure:"json" json:"json"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" validate:"gte=0"`
}

// TasksPath is the location of the local store.
func (c *Config) TasksPath() string {
	return filepath.Join(c.Store.Dir, c.Store.TasksFile)
}

// WatermarkPath is the location of the last-synced watermark.
func (c *Config) WatermarkPath() string {
	return filepath.Join(c.Store.Dir, c.Store.WatermarkFile)
}

func GetConfigPath() (string, error) {
	dir, err := auth.GetXdgHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

func setDefaults(v *viper.Viper) error {
	dir, err := auth.GetXdgHome()
	if err != nil {
		return err
	}
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("notion.base_url", "https://api.notion.com")
	v.SetDefault("notion.version", "2022-06-28")
	v.SetDefault("notion.properties.title", "Name")
	v.SetDefault("notion.properties.done", "Done")
	v.SetDefault("notion.properties.date", "Date")
	v.SetDefault("notion.properties.labels", "Type")
	v.SetDefault("notion.properties.ref", "ID")
	v.SetDefault("todoist.token", "")
	v.SetDefault("todoist.base_url", "https://api.todoist.com")
	v.SetDefault("store.dir", dir)
	v.SetDefault("store.tasks_file", "tasks.json")
	v.SetDefault("store.watermark_file", "last_synced_time.json")
	v.SetDefault("sync.settle", "4s")
	v.SetDefault("sync.timezone", "+08:00")
	v.SetDefault("sync.local_timezone", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.json", false)
	v.SetDefault("http.timeout", "30s")
	return nil
}

// Load merges, lowest precedence first: defaults, the config file, a .env file
// in the working directory, and the environment. An empty path means the
// default location; a missing file is not an error.
func Load(path string) (*Config, error) {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()
	if err := setDefaults(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Variable names used by the .env files of earlier installs.
	_ = v.BindEnv("notion.token", envPrefix+"_NOTION_TOKEN", "NOTION_API_TOKEN")
	_ = v.BindEnv("notion.database_id", envPrefix+"_NOTION_DATABASE_ID", "NOTION_DATABASE_ID")
	_ = v.BindEnv("todoist.token", envPrefix+"_TODOIST_TOKEN", "TODOIST_API_TOKEN")

	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks the configuration before any remote call. A missing token
// is reported like a rejected one, and a missing database id like an invalid
// one, so they exit with the same codes.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch fe.StructNamespace() {
			case "Config.Notion.Token":
				return &remote.AuthError{Service: model.Notion}
			case "Config.Notion.DatabaseID":
				return &remote.ConfigError{Service: model.Notion, Detail: "database id is required"}
			case "Config.Todoist.Token":
				return &remote.AuthError{Service: model.Todoist}
			}
		}
	}
	return fmt.Errorf("invalid configuration: %w", err)
}

// Save writes the non-secret part of cfg to path (default location when
// empty). Tokens never reach the file.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}

// MarshalJSON writes Settle as a duration string so the file reads back.
func (s SyncConfig) MarshalJSON() ([]byte, error) {
	type alias SyncConfig
	return json.Marshal(struct {
		alias
		Settle string `json:"settle"`
	}{alias(s), s.Settle.String()})
}

// MarshalJSON writes Timeout as a duration string so the file reads back.
func (h HTTPConfig) MarshalJSON() ([]byte, error) {
	type alias HTTPConfig
	return json.Marshal(struct {
		alias
		Timeout string `json:"timeout"`
	}{alias(h), h.Timeout.String()})
}
