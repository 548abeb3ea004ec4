package main

import (
	"log/slog"

	"github.com/els0r/telemetry/logging"

	"github.com/ndpid/ndpid-go/cmd/ndpid/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		logger, _ := logging.New(slog.LevelInfo, "logfmt")
		logger.With("error", err).Fatal("ndpid terminated with an error")
	}
}
