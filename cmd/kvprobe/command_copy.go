package main

import (
	"errors"
	"flag"

	"github.com/kvprobe/kvprobe/internal/dbops"
)

func runCopy(state *cliState, args []string) error {
	fs := flag.NewFlagSet("copy", flag.ContinueOnError)
	var input, output string
	var compress, overwrite bool
	fs.StringVar(&input, "i", "", "input database directory")
	fs.StringVar(&output, "o", "", "output database directory")
	fs.BoolVar(&compress, "compress", false, "compress the output database")
	fs.BoolVar(&overwrite, "overwrite", false, "allow writing into an existing output database")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" || output == "" {
		return errors.New("copy requires -i and -o")
	}

	return dbops.Copy(input, output, dbops.CopyOptions{
		Compress:  compress,
		Overwrite: overwrite,
		Logger:    state.log,
	})
}
