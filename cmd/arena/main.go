package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ahrav/go-arena/internal/ports"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Tournament or rating completed
	ExitError       = 1 // Runtime or store error
	ExitConfigError = 2 // Configuration file could not be loaded
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Configuration problems get their own exit code so wrappers can
		// distinguish a bad config from a failed run.
		var cfgErr *ports.ConfigError
		if errors.As(err, &cfgErr) {
			os.Exit(ExitConfigError)
		}

		os.Exit(ExitError)
	}
}
