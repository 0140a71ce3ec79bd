package main

import (
	stderrors "errors"
	"os"

	"xppkb/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Tool failures have already been printed in the requested format.
		if !stderrors.Is(err, errReported) {
			logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: "error"})
			logger.Error("Command execution failed", "error", err.Error())
		}
		os.Exit(1)
	}
}
