package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"ledger/internal/cli"
	"ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	// Logs go to stderr so command output stays clean on stdout.
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentCLI, os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	ctx := log.WithLogger(context.Background(), logger)

	result := cli.InitBackend(ctx, logger, cfg)
	a := &app{
		ledger:   result.Ledger,
		audit:    worker.NewAuditWorker(result.Repository),
		currency: cfg.Currency,
		out:      os.Stdout,
	}

	err := a.dispatch(ctx, os.Args[1:])
	if cleanupErr := result.Cleanup(); cleanupErr != nil {
		logger.Error("Cleanup failed", log.FieldError, cleanupErr)
	}
	if err != nil {
		log.LogError(ctx, "Command failed", err, log.ComponentCLI, os.Args[1], nil)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("usage: ledger <command> [flags]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-20s %s\n", name, commands[name].summary)
	}
	fmt.Fprint(os.Stderr, b.String())
}
