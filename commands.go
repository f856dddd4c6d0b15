package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harrisonrobin/tasksync/pkg/config"
	"github.com/harrisonrobin/tasksync/pkg/cycle"
	"github.com/harrisonrobin/tasksync/pkg/logging"
	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/notion"
	"github.com/harrisonrobin/tasksync/pkg/reconcile"
	"github.com/harrisonrobin/tasksync/pkg/store"
	"github.com/harrisonrobin/tasksync/pkg/todoist"
	"github.com/harrisonrobin/tasksync/pkg/util"
	"github.com/spf13/cobra"
)

// app holds the global flags shared by every command.
type app struct {
	configPath string
	logLevel   string
	storeDir   string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "tasksync",
		Short:         "Keep a Notion database and a Todoist task list in sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/tasksync/config.json)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&a.storeDir, "store-dir", "", "directory holding tasks.json and the watermark")

	root.AddCommand(a.runCmd(), a.pullCmd(), a.pushCmd(), a.setDatabaseCmd())
	return root
}

func (a *app) runCmd() *cobra.Command {
	var (
		once   bool
		watch  bool
		settle time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Pull Notion, settle, pull Todoist, settle, and repeat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := a.setup(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			opts := cycle.Options{Settle: env.cfg.Sync.Settle, Once: once}
			if cmd.Flags().Changed("settle") {
				opts.Settle = settle
			}
			if watch {
				if err := os.MkdirAll(env.cfg.Store.Dir, 0700); err != nil {
					return fmt.Errorf("failed to create store directory: %w", err)
				}
				w, err := store.Watch(env.cfg.TasksPath())
				if err != nil {
					return err
				}
				defer w.Close()
				opts.Changes = w.Changes()
			opts.Errors = w.Errors()
			}

			env.logger.Info("starting", "settle", opts.Settle, "once", once, "watch", watch, "store", env.cfg.TasksPath())
			return cycle.New(env.engine, opts, env.logger.WithPrefix("cycle")).Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass over both remotes and exit")
	cmd.Flags().BoolVar(&watch, "watch", false, "push hand edits of the store file while settling")
	cmd.Flags().DurationVar(&settle, "settle", 0, "delay between passes (default from config)")
	return cmd
}

func (a *app) pullCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "pull notion|todoist",
		Short:     "Run one pull pass, followed by a push pass when the store changed",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(model.Notion), string(model.Todoist)},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.engine.Sync(context.WithoutCancel(cmd.Context()), model.Source(args[0]))
			if err != nil {
				return err
			}
			if !res.Changed {
				fmt.Printf("No changes detected from %s\n", res.Source)
				return nil
			}
			fmt.Printf("Update from %s: %d created, %d matched, %d updated, %d tombstoned\n",
				res.Source, res.Created, res.Reused, res.Updated, res.Tombstoned)
			return nil
		},
	}
}

func (a *app) pushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push records modified since the last push to both remotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.engine.Push(context.WithoutCancel(cmd.Context()))
			if err != nil {
				return err
			}
			fmt.Printf("Pushed: %d created, %d updated, %d completion changes, %d deleted, %d unchanged\n",
				res.Created, res.Updated, res.Completed, res.Deleted, res.Skipped)
			return nil
		},
	}
}

func (a *app) setDatabaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-database <id>",
		Short: "Set the default Notion database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			cfg.Notion.DatabaseID = args[0]
			if err := config.Save(cfg, a.configPath); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}
			fmt.Printf("Default database set to: %s\n", args[0])
			return nil
		},
	}
}

// env is everything a sync command needs, built from one configuration.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	engine *reconcile.Engine
	closer io.Closer
}

func (e *env) Close() error {
	return e.closer.Close()
}

// setup loads and validates the configuration and wires the engine to both
// adapters.
func (a *app) setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.storeDir != "" {
		cfg.Store.Dir = a.storeDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer := logging.New(cfg.Log)
	zones, err := util.NewZones(cfg.Sync.Timezone, cfg.Sync.LocalTimezone)
	if err != nil {
		closer.Close()
		return nil, err
	}

	notionClient, err := notion.NewClient(ctx, cfg.Notion, cfg.HTTP, zones, logger.WithPrefix("notion"))
	if err != nil {
		closer.Close()
		return nil, err
	}
	todoistClient, err := todoist.NewClient(ctx, cfg.Todoist, cfg.HTTP, zones, logger.WithPrefix("todoist"))
	if err != nil {
		closer.Close()
		return nil, err
	}

	engine := reconcile.New(
		notionClient,
		todoistClient,
		store.New(cfg.TasksPath()),
		&store.Watermark{Path: cfg.WatermarkPath()},
		zones,
		logger.WithPrefix("reconcile"),
	)
	return &env{cfg: cfg, logger: logger, engine: engine, closer: closer}, nil
}
