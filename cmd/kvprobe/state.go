package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

type cliState struct {
	log *logrus.Logger
}

func newCLIState(cfg cliConfig) *cliState {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	switch {
	case cfg.verbose:
		log.SetLevel(logrus.DebugLevel)
	case cfg.quiet:
		log.SetLevel(logrus.WarnLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
	return &cliState{log: log}
}
