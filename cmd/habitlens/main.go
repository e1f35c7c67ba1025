// Package main is the entry point for habitlens. It parses the command line
// and runs the selected command; the dashboard TUI is the default.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/j-veylop/habitlens/internal/cli"
	"github.com/j-veylop/habitlens/internal/config"
	"github.com/j-veylop/habitlens/internal/version"
)

func main() {
	var root cli.Root
	kctx := kong.Parse(&root,
		kong.Name("habitlens"),
		kong.Description("Habit streaks, completion rates and trends in your terminal."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version.Info()},
	)

	appCtx := &cli.Context{
		Ctx:        context.Background(),
		In:         os.Stdin,
		Out:        os.Stdout,
		LoadConfig: config.Load,
	}

	err := kctx.Run(appCtx)
	if closeErr := appCtx.Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
