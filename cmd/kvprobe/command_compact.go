package main

import (
	"errors"
	"flag"

	"github.com/kvprobe/kvprobe/internal/dbops"
)

func runCompact(state *cliState, args []string) error {
	fs := flag.NewFlagSet("compact", flag.ContinueOnError)
	var input string
	var compress bool
	fs.StringVar(&input, "i", "", "input database directory")
	fs.BoolVar(&compress, "compress", false, "re-compress blocks with the default codec")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" {
		return errors.New("compact requires -i")
	}

	return dbops.Compact(input, dbops.CompactOptions{
		Compress: compress,
		Logger:   state.log,
	})
}
