package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harrisonrobin/tasksync/pkg/model"
	"github.com/harrisonrobin/tasksync/pkg/remote"
)

// Exit codes surfaced to a supervisor.
const (
	exitNotionAuth   = 1
	exitNotionConfig = 2
	exitTodoistAuth  = 3
	exitOtherFailure = 4
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps a failure to the process exit status.
func exitCode(err error) int {
	var authErr *remote.AuthError
	if errors.As(err, &authErr) {
		if authErr.Service == model.Notion {
			return exitNotionAuth
		}
		return exitTodoistAuth
	}
	var cfgErr *remote.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Service == model.Notion {
		return exitNotionConfig
	}
	return exitOtherFailure
}
