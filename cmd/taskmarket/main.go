package main

import (
	"log/slog"
	"os"

	"github.com/TwigBush/taskmarket/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("taskmarket", "err", err)
		os.Exit(1)
	}
}
