package main

import (
	"errors"
	"flag"

	"github.com/kvprobe/kvprobe/internal/dbops"
)

func runClear(state *cliState, args []string) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	var input string
	fs.StringVar(&input, "i", "", "input database directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" {
		return errors.New("clear requires -i")
	}

	return dbops.Clear(input, state.log)
}
