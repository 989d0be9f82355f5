package main

import (
	"fmt"
	"os"

	logger "github.com/sirupsen/logrus"

	"github.com/dot-scm/dot/cmd"
)

func main() {
	//nolint:exhaustruct // Minimal TextFormatter initialization with required fields only
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dot: %v\n", err)
		os.Exit(1)
	}
}
