package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/doeshing/cligent-go/internal/infrastructure/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	opts := cli.Options{Verbose: isVerbose()}

	root, container, err := cli.NewRootCmd(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer container.Close()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func isVerbose() bool {
	value := os.Getenv("CLIGENT_DEBUG")
	return value == "1" || strings.EqualFold(value, "true")
}
