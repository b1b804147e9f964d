package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/doeshing/gensh/internal/infrastructure/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := cli.Options{Verbose: isVerbose(os.Args[1:])}

	root, err := cli.NewRootCmd(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.ExitFailure)
	}

	if err := root.ExecuteContext(ctx); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "error:", msg)
		}
		stop()
		os.Exit(cli.ExitCode(err))
	}
}

// isVerbose checks GENSH_DEBUG and the --verbose flag before cobra parses
// arguments, because the container is built first.
func isVerbose(args []string) bool {
	env := os.Getenv("GENSH_DEBUG")
	if strings.EqualFold(env, "1") || strings.EqualFold(env, "true") {
		return true
	}
	for _, arg := range args {
		if arg == "--" {
			break
		}
		if arg == "--verbose" || arg == "-v" {
			return true
		}
	}
	return false
}
